package renderer

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/df07/go-sphere-raytracer/pkg/core"
	"github.com/df07/go-sphere-raytracer/pkg/geometry"
	"github.com/df07/go-sphere-raytracer/pkg/integrator"
)

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	SamplesPerPixel int // Number of rays per pixel
	MaxDepth        int // Maximum ray bounce depth
}

// DefaultSamplingConfig returns sensible default values
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}
}

// Scene interface to avoid circular imports
type Scene interface {
	GetCamera() *Camera
	GetWorld() geometry.Shape
}

// Raytracer drives the per-pixel loop: jittered camera samples, averaging and gamma correction.
// A Raytracer is single-threaded; its sampler must not be shared with concurrent renders.
type Raytracer struct {
	scene      Scene
	width      int
	height     int
	config     SamplingConfig
	sampler    core.Sampler
	integrator integrator.Integrator
	logger     core.Logger
	metrics    *Metrics
}

// NewRaytracer creates a new raytracer
func NewRaytracer(scene Scene, width, height int) *Raytracer {
	rt := &Raytracer{
		scene:   scene,
		width:   width,
		height:  height,
		sampler: core.NewSeededSampler(42), // Deterministic for testing
		logger:  core.NopLogger{},
	}
	rt.SetSamplingConfig(DefaultSamplingConfig())
	return rt
}

// SetSamplingConfig updates the sampling configuration
func (rt *Raytracer) SetSamplingConfig(config SamplingConfig) {
	rt.config = config
	integratorConfig := integrator.DefaultConfig()
	integratorConfig.MaxDepth = config.MaxDepth
	rt.integrator = integrator.NewPathTracingIntegrator(integratorConfig)
}

// SetIntegrator replaces the light transport algorithm
func (rt *Raytracer) SetIntegrator(i integrator.Integrator) {
	rt.integrator = i
}

// SetSampler replaces the random source used for jitter, lens and material sampling
func (rt *Raytracer) SetSampler(sampler core.Sampler) {
	rt.sampler = sampler
}

// SetLogger sets the progress logger
func (rt *Raytracer) SetLogger(logger core.Logger) {
	rt.logger = logger
}

// SetMetrics enables metric collection
func (rt *Raytracer) SetMetrics(metrics *Metrics) {
	rt.metrics = metrics
}

// vec3ToColor converts a linear Vec3 color to RGBA with clamping and gamma 2 correction.
// Clamping first keeps negative components out of the square root.
func vec3ToColor(colorVec core.Vec3) color.RGBA {
	colorVec = colorVec.Clamp(0.0, 1.0).GammaCorrect(2.0)

	return color.RGBA{
		R: uint8(255.99 * colorVec.X),
		G: uint8(255.99 * colorVec.Y),
		B: uint8(255.99 * colorVec.Z),
		A: 255,
	}
}

// renderPixel averages SamplesPerPixel jittered samples for pixel (i, j), j counted from the bottom
func (rt *Raytracer) renderPixel(camera *Camera, world geometry.Shape, i, j int) core.Vec3 {
	var stats PixelStats
	for sample := 0; sample < rt.config.SamplesPerPixel; sample++ {
		jitter := rt.sampler.Get2D()
		s := (float64(i) + jitter.X) / float64(rt.width)
		t := (float64(j) + jitter.Y) / float64(rt.height)

		ray := camera.GetRay(s, t, rt.sampler)
		stats.AddSample(rt.integrator.RayColor(ray, world, rt.sampler, 0))
	}
	return stats.GetColor()
}

// Render renders the scene into an image, top row first.
// Cancelling ctx stops the render between pixels; the partial image is returned with ctx.Err().
func (rt *Raytracer) Render(ctx context.Context) (*image.RGBA, RenderStats, error) {
	img := image.NewRGBA(image.Rect(0, 0, rt.width, rt.height))
	camera := rt.scene.GetCamera()
	world := rt.scene.GetWorld()
	stats := RenderStats{}
	startTime := time.Now()

	finish := func() {
		stats.Duration = time.Since(startTime)
		if stats.TotalPixels > 0 {
			stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
		}
		stats.AverageLuminance = CalculateAverageLuminance(img)
		if rt.metrics != nil {
			rt.metrics.observeDuration(stats.Duration)
		}
	}

	for j := rt.height - 1; j >= 0; j-- {
		for i := 0; i < rt.width; i++ {
			if err := ctx.Err(); err != nil {
				finish()
				return img, stats, err
			}

			img.SetRGBA(i, rt.height-1-j, vec3ToColor(rt.renderPixel(camera, world, i, j)))

			stats.TotalPixels++
			stats.TotalSamples += rt.config.SamplesPerPixel
			if rt.metrics != nil {
				rt.metrics.observePixel(rt.config.SamplesPerPixel)
			}
		}

		if rt.metrics != nil {
			rt.metrics.observeRow()
		}
		rt.logger.Printf("Rendered row %d/%d", rt.height-j, rt.height)
	}

	finish()
	return img, stats, nil
}
