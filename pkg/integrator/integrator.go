package integrator

import (
	"github.com/df07/go-sphere-raytracer/pkg/core"
	"github.com/df07/go-sphere-raytracer/pkg/geometry"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the linear-space color carried back along ray.
	// depth is the number of bounces already taken; callers start at 0.
	RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler, depth int) core.Vec3
}

// Config contains integrator settings
type Config struct {
	MaxDepth  int       // Bounces after which a hit contributes black
	TMin      float64   // Lower bound of the hit interval, guards against self-intersection
	SkyTop    core.Vec3 // Background color straight up
	SkyBottom core.Vec3 // Background color straight down
}

// DefaultConfig returns the classic 50-bounce, white-to-sky-blue setup
func DefaultConfig() Config {
	return Config{
		MaxDepth:  50,
		TMin:      0.001,
		SkyTop:    core.NewVec3(0.5, 0.7, 1.0),
		SkyBottom: core.NewVec3(1.0, 1.0, 1.0),
	}
}
