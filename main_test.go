package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func ppmHeader(t *testing.T, out string) string {
	t.Helper()
	lines := strings.SplitN(out, "\n", 4)
	require.GreaterOrEqual(t, len(lines), 3)
	return strings.Join(lines[:3], "\n")
}

func TestRender_PPMToStdout(t *testing.T) {
	out, err := execute(t, context.Background(),
		"--width", "8", "--height", "4", "--samples", "1", "--max-depth", "5")
	require.NoError(t, err)

	assert.Equal(t, "P3\n8 4\n255", ppmHeader(t, out))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, 3+8*4)
}

func TestRender_Subcommand(t *testing.T) {
	out, err := execute(t, context.Background(),
		"render", "--scene", "defocus", "--width", "4", "--height", "2", "--samples", "1")
	require.NoError(t, err)
	assert.Equal(t, "P3\n4 2\n255", ppmHeader(t, out))
}

func TestRender_Deterministic(t *testing.T) {
	args := []string{"--width", "6", "--height", "3", "--samples", "2", "--seed", "11"}
	first, err := execute(t, context.Background(), args...)
	require.NoError(t, err)
	second, err := execute(t, context.Background(), args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_PNGFileAndMetrics(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "out", "render.png")
	metricsPath := filepath.Join(dir, "render.prom")

	_, err := execute(t, context.Background(),
		"--width", "5", "--height", "3", "--samples", "2",
		"--output", imagePath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	f, err := os.Open(imagePath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "raytracer_pixels_rendered_total 15")
	assert.Contains(t, string(metrics), "raytracer_samples_total 30")
}

func TestRender_FormatOverride(t *testing.T) {
	out, err := execute(t, context.Background(),
		"--width", "2", "--height", "2", "--samples", "1", "--format", "PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\x89PNG"))
}

func TestRender_EnvironmentAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("width: 5\nheight: 3\nsamples: 1\n"), 0o644))

	out, err := execute(t, context.Background(), "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "P3\n5 3\n255", ppmHeader(t, out))

	// Environment beats the config file, flags beat both
	t.Setenv("RAYTRACER_WIDTH", "7")
	out, err = execute(t, context.Background(), "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "P3\n7 3\n255", ppmHeader(t, out))

	out, err = execute(t, context.Background(), "--config", configPath, "--width", "2")
	require.NoError(t, err)
	assert.Equal(t, "P3\n2 3\n255", ppmHeader(t, out))
}

func TestRender_UnderscoreFlags(t *testing.T) {
	out, err := execute(t, context.Background(),
		"--width", "2", "--height", "1", "--samples", "1", "--max_depth", "3")
	require.NoError(t, err)
	assert.Equal(t, "P3\n2 1\n255", ppmHeader(t, out))
}

func TestRender_SceneFile(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "sky.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
image: {width: 3, height: 2}
sampling: {samples: 1, maxDepth: 2}
camera: {lookFrom: [0, 0, 0], lookAt: [0, 0, -1], vfov: 90}
`), 0o644))

	out, err := execute(t, context.Background(), "--scene-file", scenePath)
	require.NoError(t, err)
	assert.Equal(t, "P3\n3 2\n255", ppmHeader(t, out))

	out, err = execute(t, context.Background(), "--scenes-dir", dir, "--scene", "file:sky")
	require.NoError(t, err)
	assert.Equal(t, "P3\n3 2\n255", ppmHeader(t, out))
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown scene", []string{"--scene", "cornell-box"}, `unknown scene "cornell-box"`},
		{"negative size", []string{"--width", "-1", "--samples", "-2"}, "samples"},
		{"bad format", []string{"--format", "gif"}, "format"},
		{"missing scene file", []string{"--scene-file", "does-not-exist.yaml"}, "failed to read scene file"},
		{"missing config", []string{"--config", "does-not-exist.yaml"}, "failed to read config file"},
		{"extra args", []string{"three-spheres"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, context.Background(), tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := execute(t, ctx, "--width", "4", "--height", "4", "--samples", "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
}

func TestScenesCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "glass-row.yaml"),
		[]byte("name: Glass Row\ndescription: A row of glass spheres\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0o644))

	out, err := execute(t, context.Background(), "scenes", "--scenes-dir", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "three-spheres"))
	assert.Contains(t, out, "random-spheres")
	assert.Contains(t, out, "defocus")
	assert.Contains(t, lines[4], "file:glass-row")
	assert.Contains(t, lines[4], "A row of glass spheres")
}

func TestBindFlags(t *testing.T) {
	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("width", 0, "")
	flags.String("metrics-file", "", "")
	require.NoError(t, bindFlags(v, flags))

	assert.Equal(t, 0, v.GetInt("width"))

	require.NoError(t, flags.Parse([]string{"--width", "9", "--metrics-file", "m.prom"}))
	assert.Equal(t, 9, v.GetInt("width"))
	assert.Equal(t, "m.prom", v.GetString("metrics-file"))
}
