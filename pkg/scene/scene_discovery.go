package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// Scene types
const (
	TypeBuiltin = "builtin"
	TypeFile    = "file"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`                 // Unique identifier, used to select the scene
	Name        string `json:"name"`               // Display name
	Description string `json:"description"`        // Optional description
	Type        string `json:"type"`               // "builtin" or "file"
	FilePath    string `json:"filePath,omitempty"` // Path to the scene file (file type only)
}

// builtinScene pairs a built-in scene's metadata with its constructor
type builtinScene struct {
	info  SceneInfo
	build func(seed int64) *Scene
}

var builtinScenes = []builtinScene{
	{
		info: SceneInfo{
			ID:          "three-spheres",
			Name:        "Three Spheres",
			Description: "Diffuse, metal and glass spheres on a ground sphere",
			Type:        TypeBuiltin,
		},
		build: func(int64) *Scene { return NewThreeSpheresScene() },
	},
	{
		info: SceneInfo{
			ID:          "random-spheres",
			Name:        "Random Spheres",
			Description: "Hundreds of small random spheres around three large ones",
			Type:        TypeBuiltin,
		},
		build: NewRandomSpheresScene,
	},
	{
		info: SceneInfo{
			ID:          "defocus",
			Name:        "Defocus Blur",
			Description: "Three spheres seen through a thin lens with a wide aperture",
			Type:        TypeBuiltin,
		},
		build: func(int64) *Scene { return NewDefocusScene() },
	},
}

// DefaultSceneID is rendered when no scene is selected
const DefaultSceneID = "three-spheres"

// ListBuiltinScenes returns the built-in scenes in registration order
func ListBuiltinScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtinScenes))
	for _, b := range builtinScenes {
		scenes = append(scenes, b.info)
	}
	return scenes
}

// NewBuiltinScene creates a built-in scene by ID. The seed only affects generated scenes.
func NewBuiltinScene(id string, seed int64) (*Scene, error) {
	for _, b := range builtinScenes {
		if b.info.ID == id {
			return b.build(seed), nil
		}
	}

	ids := make([]string, 0, len(builtinScenes))
	for _, b := range builtinScenes {
		ids = append(ids, b.info.ID)
	}
	return nil, fmt.Errorf("unknown scene %q (available: %s)", id, strings.Join(ids, ", "))
}

// ListSceneFiles scans dir for *.yaml and *.yml scene files. A missing directory yields no scenes;
// files whose metadata cannot be read are skipped with a warning.
func ListSceneFiles(dir string) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []SceneInfo{}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
		}
		files = append(files, matches...)
	}

	scenes := []SceneInfo{}
	for _, filePath := range files {
		sceneInfo, err := ParseSceneMetadata(filePath)
		if err != nil {
			// Log warning but continue processing other files
			klog.Warningf("Skipping scene file %s: %v", filePath, err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	// Sort scenes by display name
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].Name < scenes[j].Name
	})

	return scenes, nil
}

// ParseSceneMetadata reads the name and description keys of a scene file.
// The file name provides the ID and the fallback name.
func ParseSceneMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	sceneInfo := SceneInfo{
		ID:       "file:" + nameWithoutExt,
		Name:     titleCase(nameWithoutExt),
		Type:     TypeFile,
		FilePath: filePath,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return sceneInfo, fmt.Errorf("failed to read scene file: %w", err)
	}

	// Only the metadata is decoded here; LoadFile does the full validation
	var meta struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return sceneInfo, fmt.Errorf("failed to parse metadata for %s: %w", filePath, err)
	}

	if meta.Name != "" {
		sceneInfo.Name = meta.Name
	}
	sceneInfo.Description = meta.Description
	return sceneInfo, nil
}

// ListAllScenes returns the built-in scenes followed by the scene files in dir
func ListAllScenes(dir string) ([]SceneInfo, error) {
	fileScenes, err := ListSceneFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scene files: %w", err)
	}
	return append(ListBuiltinScenes(), fileScenes...), nil
}

// Load resolves a scene by ID: a built-in scene, or "file:<name>" for <name>.yaml
// (or .yml) in dir
func Load(id, dir string, seed int64) (*Scene, error) {
	if !strings.HasPrefix(id, "file:") {
		return NewBuiltinScene(id, seed)
	}

	name := strings.TrimPrefix(id, "file:")
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid scene file name %q", name)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("scene %q not found in %s", id, dir)
}

// titleCase converts a filename-style string to title case
// e.g., "glass-row" -> "Glass Row"
func titleCase(s string) string {
	// Replace hyphens and underscores with spaces
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Title case each word
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
