package geometry

import (
	"github.com/df07/go-sphere-raytracer/pkg/core"
	"github.com/df07/go-sphere-raytracer/pkg/material"
)

// World is an ordered collection of shapes intersected by linear scan.
// World is itself a Shape, so worlds can be nested.
type World struct {
	shapes []Shape
}

// NewWorld creates a world containing shapes in order
func NewWorld(shapes ...Shape) *World {
	w := &World{shapes: make([]Shape, 0, len(shapes))}
	w.shapes = append(w.shapes, shapes...)
	return w
}

// Add appends a shape to the world
func (w *World) Add(shape Shape) {
	w.shapes = append(w.shapes, shape)
}

// Len returns the number of shapes in the world
func (w *World) Len() int {
	return len(w.shapes)
}

// Shapes returns the shapes in insertion order
func (w *World) Shapes() []Shape {
	return w.shapes
}

// Hit returns the closest intersection among all shapes in (tMin, tMax)
func (w *World) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := tMax

	for _, shape := range w.shapes {
		if hit, isHit := shape.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}
