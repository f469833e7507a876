package material

import (
	"fmt"
	"math"

	"github.com/df07/go-sphere-raytracer/pkg/core"
)

// Dielectric represents a transparent material like glass that can both reflect and refract
type Dielectric struct {
	RefractiveIndex float64 // Index of refraction (e.g., 1.5 for glass)
}

// NewDielectric creates a new dielectric material. It panics if refractiveIndex is not positive.
func NewDielectric(refractiveIndex float64) *Dielectric {
	if !(refractiveIndex > 0) {
		panic(fmt.Sprintf("material: dielectric refractive index must be positive, got %v", refractiveIndex))
	}
	return &Dielectric{RefractiveIndex: refractiveIndex}
}

// Scatter implements the Material interface for dielectric scattering
func (d *Dielectric) Scatter(rayIn core.Ray, hit HitRecord, sampler core.Sampler) (ScatterResult, bool) {
	// Dielectrics always attenuate by 1.0 (no color absorption for clear glass)
	attenuation := core.NewVec3(1.0, 1.0, 1.0)

	direction := rayIn.Direction
	cosIncident := direction.Dot(hit.Normal) / direction.Length()

	var outwardNormal core.Vec3
	var niOverNt, cosine float64
	if cosIncident > 0 {
		// Exiting the material (glass to air)
		outwardNormal = hit.Normal.Negate()
		niOverNt = d.RefractiveIndex
		cosine = d.RefractiveIndex * cosIncident
	} else {
		// Entering the material (air to glass)
		outwardNormal = hit.Normal
		niOverNt = 1.0 / d.RefractiveIndex
		cosine = -cosIncident
	}

	scatterDirection := core.Reflect(direction, hit.Normal)
	if refracted, ok := core.Refract(direction, outwardNormal, niOverNt); ok {
		if sampler.Get1D() >= Reflectance(cosine, d.RefractiveIndex) {
			scatterDirection = refracted
		}
	}

	return ScatterResult{
		Scattered:   core.NewRay(hit.Point, scatterDirection),
		Attenuation: attenuation,
	}, true
}

// Reflectance calculates the Fresnel reflectance using Schlick's approximation
func Reflectance(cosine, refractiveIndex float64) float64 {
	// R0 is the reflectance at normal incidence
	r0 := (1 - refractiveIndex) / (1 + refractiveIndex)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}
