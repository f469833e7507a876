package scene

import (
	"github.com/df07/go-sphere-raytracer/pkg/geometry"
	"github.com/df07/go-sphere-raytracer/pkg/renderer"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name           string
	Description    string
	Width          int // Image width
	Height         int // Image height
	Camera         *renderer.Camera
	CameraConfig   renderer.CameraConfig
	World          *geometry.World // Objects in the scene
	SamplingConfig renderer.SamplingConfig
}

// newScene builds a scene with an empty world. The camera aspect ratio
// always follows the image size.
func newScene(width, height int, cameraConfig renderer.CameraConfig, sampling renderer.SamplingConfig) *Scene {
	cameraConfig.AspectRatio = float64(width) / float64(height)

	return &Scene{
		Width:          width,
		Height:         height,
		Camera:         renderer.NewCamera(cameraConfig),
		CameraConfig:   cameraConfig,
		World:          geometry.NewWorld(),
		SamplingConfig: sampling,
	}
}

// Add appends shapes to the scene's world
func (s *Scene) Add(shapes ...geometry.Shape) {
	for _, shape := range shapes {
		s.World.Add(shape)
	}
}

// Resize changes the image size and rebuilds the camera for the new aspect ratio
func (s *Scene) Resize(width, height int) {
	s.Width = width
	s.Height = height
	s.CameraConfig.AspectRatio = float64(width) / float64(height)
	s.Camera = renderer.NewCamera(s.CameraConfig)
}

// GetCamera returns the scene's camera
func (s *Scene) GetCamera() *renderer.Camera {
	return s.Camera
}

// GetWorld returns the scene's world
func (s *Scene) GetWorld() geometry.Shape {
	return s.World
}
