package scene

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"

	"github.com/df07/go-sphere-raytracer/pkg/core"
	"github.com/df07/go-sphere-raytracer/pkg/geometry"
	"github.com/df07/go-sphere-raytracer/pkg/material"
	"github.com/df07/go-sphere-raytracer/pkg/renderer"
)

// Material type names accepted in scene files
const (
	MaterialLambertian = "lambertian"
	MaterialMetal      = "metal"
	MaterialDielectric = "dielectric"
)

var supportedMaterials = []string{MaterialLambertian, MaterialMetal, MaterialDielectric}

// File is the YAML description of a scene
type File struct {
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Image       ImageSpec     `json:"image"`
	Sampling    *SamplingSpec `json:"sampling,omitempty"`
	Camera      CameraSpec    `json:"camera"`
	Spheres     []SphereSpec  `json:"spheres,omitempty"`
}

// ImageSpec is the output image size in pixels
type ImageSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SamplingSpec overrides the default sampling configuration
type SamplingSpec struct {
	Samples  int `json:"samples"`
	MaxDepth int `json:"maxDepth"`
}

// CameraSpec describes a look-at camera; up defaults to +Y
type CameraSpec struct {
	LookFrom      [3]float64  `json:"lookFrom"`
	LookAt        [3]float64  `json:"lookAt"`
	Up            *[3]float64 `json:"up,omitempty"`
	VFov          float64     `json:"vfov"`
	Aperture      float64     `json:"aperture,omitempty"`
	FocusDistance float64     `json:"focusDistance,omitempty"`
}

// SphereSpec is one sphere and its material
type SphereSpec struct {
	Center   [3]float64   `json:"center"`
	Radius   float64      `json:"radius"`
	Material MaterialSpec `json:"material"`
}

// MaterialSpec selects a material by type. Albedo is used by lambertian and metal,
// fuzz by metal and refractiveIndex by dielectric.
type MaterialSpec struct {
	Type            string      `json:"type"`
	Albedo          *[3]float64 `json:"albedo,omitempty"`
	Fuzz            float64     `json:"fuzz,omitempty"`
	RefractiveIndex float64     `json:"refractiveIndex,omitempty"`
}

// up returns the configured up vector or the +Y default
func (c CameraSpec) up() [3]float64 {
	if c.Up != nil {
		return *c.Up
	}
	return [3]float64{0, 1, 0}
}

func toVec3(a [3]float64) core.Vec3 {
	return core.NewVec3(a[0], a[1], a[2])
}

// LoadFile reads and builds a scene from a YAML file. A file without a name
// is named after its base file name.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scene file %s: %w", path, err)
	}
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = titleCase(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return s, nil
}

// Parse decodes, validates and builds a scene description.
// Unknown keys are rejected; every validation problem is reported at once.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}

	if errs := f.Validate(); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return f.Build(), nil
}

// Validate checks the description for values that cannot be rendered
func (f *File) Validate() field.ErrorList {
	allErrs := field.ErrorList{}

	imagePath := field.NewPath("image")
	if f.Image.Width <= 0 {
		allErrs = append(allErrs, field.Invalid(imagePath.Child("width"), f.Image.Width, "must be greater than zero"))
	}
	if f.Image.Height <= 0 {
		allErrs = append(allErrs, field.Invalid(imagePath.Child("height"), f.Image.Height, "must be greater than zero"))
	}

	if f.Sampling != nil {
		samplingPath := field.NewPath("sampling")
		if f.Sampling.Samples <= 0 {
			allErrs = append(allErrs, field.Invalid(samplingPath.Child("samples"), f.Sampling.Samples, "must be greater than zero"))
		}
		if f.Sampling.MaxDepth <= 0 {
			allErrs = append(allErrs, field.Invalid(samplingPath.Child("maxDepth"), f.Sampling.MaxDepth, "must be greater than zero"))
		}
	}

	allErrs = append(allErrs, validateCamera(f.Camera, field.NewPath("camera"))...)

	spheresPath := field.NewPath("spheres")
	for i, sphere := range f.Spheres {
		allErrs = append(allErrs, validateSphere(sphere, spheresPath.Index(i))...)
	}

	return allErrs
}

func validateCamera(c CameraSpec, fldPath *field.Path) field.ErrorList {
	allErrs := field.ErrorList{}

	if !(c.VFov > 0 && c.VFov < 180) {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("vfov"), c.VFov, "must be between 0 and 180 degrees"))
	}

	view := toVec3(c.LookAt).Subtract(toVec3(c.LookFrom))
	if view.LengthSquared() == 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("lookAt"), c.LookAt, "must differ from lookFrom"))
	} else if up := c.up(); toVec3(up).Cross(view).LengthSquared() == 0 {
		detail := "must not be parallel to the view direction"
		if c.Up == nil {
			detail += " (up defaults to [0, 1, 0]; set it for a vertical view)"
		}
		allErrs = append(allErrs, field.Invalid(fldPath.Child("up"), up, detail))
	}

	if c.Aperture < 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("aperture"), c.Aperture, "must not be negative"))
	}
	if c.FocusDistance < 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("focusDistance"), c.FocusDistance, "must not be negative"))
	}

	return allErrs
}

func validateSphere(s SphereSpec, fldPath *field.Path) field.ErrorList {
	allErrs := field.ErrorList{}

	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("radius"), s.Radius, "must be greater than zero"))
	}

	matPath := fldPath.Child("material")
	m := s.Material
	switch m.Type {
	case MaterialLambertian, MaterialMetal:
		if m.Albedo == nil {
			allErrs = append(allErrs, field.Required(matPath.Child("albedo"), "albedo is required for "+m.Type))
		} else if m.Albedo[0] < 0 || m.Albedo[1] < 0 || m.Albedo[2] < 0 {
			allErrs = append(allErrs, field.Invalid(matPath.Child("albedo"), *m.Albedo, "components must not be negative"))
		}
		if m.Type == MaterialMetal && (m.Fuzz < 0 || m.Fuzz > 1) {
			allErrs = append(allErrs, field.Invalid(matPath.Child("fuzz"), m.Fuzz, "must be between 0 and 1"))
		}
	case MaterialDielectric:
		if !(m.RefractiveIndex > 0) {
			allErrs = append(allErrs, field.Invalid(matPath.Child("refractiveIndex"), m.RefractiveIndex, "must be greater than zero"))
		}
	case "":
		allErrs = append(allErrs, field.Required(matPath.Child("type"), ""))
	default:
		allErrs = append(allErrs, field.NotSupported(matPath.Child("type"), m.Type, supportedMaterials))
	}

	return allErrs
}

// Build constructs the scene. The description must have passed Validate.
func (f *File) Build() *Scene {
	cameraConfig := renderer.CameraConfig{
		LookFrom:      toVec3(f.Camera.LookFrom),
		LookAt:        toVec3(f.Camera.LookAt),
		Up:            toVec3(f.Camera.up()),
		VFov:          f.Camera.VFov,
		Aperture:      f.Camera.Aperture,
		FocusDistance: f.Camera.FocusDistance,
	}

	sampling := renderer.DefaultSamplingConfig()
	if f.Sampling != nil {
		sampling = renderer.SamplingConfig{SamplesPerPixel: f.Sampling.Samples, MaxDepth: f.Sampling.MaxDepth}
	}

	s := newScene(f.Image.Width, f.Image.Height, cameraConfig, sampling)
	s.Name = f.Name
	s.Description = f.Description

	for _, sphere := range f.Spheres {
		s.Add(geometry.NewSphere(toVec3(sphere.Center), sphere.Radius, buildMaterial(sphere.Material)))
	}
	return s
}

func buildMaterial(m MaterialSpec) material.Material {
	switch m.Type {
	case MaterialMetal:
		return material.NewMetal(toVec3(*m.Albedo), m.Fuzz)
	case MaterialDielectric:
		return material.NewDielectric(m.RefractiveIndex)
	default:
		return material.NewLambertian(toVec3(*m.Albedo))
	}
}
