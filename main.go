package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"

	"github.com/df07/go-sphere-raytracer/pkg/core"
	"github.com/df07/go-sphere-raytracer/pkg/output"
	"github.com/df07/go-sphere-raytracer/pkg/renderer"
	"github.com/df07/go-sphere-raytracer/pkg/scene"
)

// envPrefix prefixes environment variables, e.g. RAYTRACER_SAMPLES
const envPrefix = "RAYTRACER"

// progressLogLevel is the klog verbosity of per-row progress
const progressLogLevel = 2

// klogLogger adapts klog to core.Logger
type klogLogger struct {
	level klog.Level
}

func (l klogLogger) Printf(format string, args ...interface{}) {
	klog.V(l.level).Infof(format, args...)
}

// renderOptions holds the resolved configuration of a render.
// Zero width, height, samples and max depth keep the scene's own values.
type renderOptions struct {
	Scene       string
	SceneFile   string
	ScenesDir   string
	Width       int
	Height      int
	Samples     int
	MaxDepth    int
	Seed        int64
	Output      string
	Format      string
	MetricsFile string
}

func optionsFromViper(v *viper.Viper) renderOptions {
	return renderOptions{
		Scene:       v.GetString("scene"),
		SceneFile:   v.GetString("scene-file"),
		ScenesDir:   v.GetString("scenes-dir"),
		Width:       v.GetInt("width"),
		Height:      v.GetInt("height"),
		Samples:     v.GetInt("samples"),
		MaxDepth:    v.GetInt("max-depth"),
		Seed:        v.GetInt64("seed"),
		Output:      v.GetString("output"),
		Format:      v.GetString("format"),
		MetricsFile: v.GetString("metrics-file"),
	}
}

// validate reports every invalid option at once
func (o renderOptions) validate() error {
	allErrs := field.ErrorList{}
	for _, opt := range []struct {
		name  string
		value int
	}{
		{"width", o.Width},
		{"height", o.Height},
		{"samples", o.Samples},
		{"max-depth", o.MaxDepth},
	} {
		if opt.value < 0 {
			allErrs = append(allErrs, field.Invalid(field.NewPath(opt.name), opt.value, "must not be negative"))
		}
	}
	if o.Format != "" {
		if _, err := output.ParseFormat(o.Format); err != nil {
			allErrs = append(allErrs, field.NotSupported(field.NewPath("format"), o.Format, []string{string(output.FormatPPM), string(output.FormatPNG)}))
		}
	}
	if o.Output == "" {
		allErrs = append(allErrs, field.Required(field.NewPath("output"), `use "-" for stdout`))
	}
	return allErrs.ToAggregate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		klog.ErrorS(err, "Raytracer failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

// wordSepNormalizeFunc accepts "_" in flag names in place of "-"
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}
	return pflag.NormalizedName(name)
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string
	var bindErr error

	render := func(cmd *cobra.Command, args []string) error {
		return runRender(cmd.Context(), optionsFromViper(v), cmd.OutOrStdout())
	}

	cmd := &cobra.Command{
		Use:   "raytracer",
		Short: "Render scenes of spheres with a recursive path tracer",
		Long: `Render scenes of diffuse, metal and glass spheres.

The image is written as PPM (P3) unless the output ends in .png or --format is set.
Every flag can also be set with a RAYTRACER_ environment variable
(e.g. RAYTRACER_SAMPLES=10) or a key in the --config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil {
				return bindErr
			}
			return loadConfig(v, configFile)
		},
		RunE: render,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file with default flag values")
	flags.String("scene", scene.DefaultSceneID, `Scene ID: a built-in scene or "file:<name>" from --scenes-dir`)
	flags.String("scene-file", "", "Path to a YAML scene file; overrides --scene")
	flags.String("scenes-dir", "scenes", "Directory searched for *.yaml scene files")
	flags.Int("width", 0, "Image width (0 keeps the scene's width)")
	flags.Int("height", 0, "Image height (0 keeps the scene's height)")
	flags.Int("samples", 0, "Samples per pixel (0 keeps the scene's setting)")
	flags.Int("max-depth", 0, "Maximum ray bounce depth (0 keeps the scene's setting)")
	flags.Int64("seed", 42, "Random seed for sampling and generated scenes")
	flags.StringP("output", "o", "-", `Output file, "-" for stdout`)
	flags.String("format", "", "Output format: ppm or png (default from the output extension)")
	flags.String("metrics-file", "", "Write render metrics in Prometheus text format to this file")

	// Bind before adding klog's flags so only render options reach viper
	bindErr = bindFlags(v, flags)

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	flags.AddGoFlagSet(klogFlags)
	cmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "render",
			Short: "Render a scene (the default command)",
			Args:  cobra.NoArgs,
			RunE:  render,
		},
		&cobra.Command{
			Use:   "scenes",
			Short: "List built-in scenes and scene files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listScenes(v.GetString("scenes-dir"), cmd.OutOrStdout())
			},
		},
	)

	return cmd
}

// bindFlags makes every flag in flags the top-priority source of its viper key
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// loadConfig layers environment variables and an optional config file under the flags
func loadConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	klog.V(1).InfoS("Loaded config", "file", v.ConfigFileUsed())
	return nil
}

func loadScene(opts renderOptions) (*scene.Scene, error) {
	if opts.SceneFile != "" {
		return scene.LoadFile(opts.SceneFile)
	}
	return scene.Load(opts.Scene, opts.ScenesDir, opts.Seed)
}

func runRender(ctx context.Context, opts renderOptions, stdout io.Writer) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	s, err := loadScene(opts)
	if err != nil {
		return err
	}

	if opts.Width > 0 || opts.Height > 0 {
		width, height := s.Width, s.Height
		if opts.Width > 0 {
			width = opts.Width
		}
		if opts.Height > 0 {
			height = opts.Height
		}
		s.Resize(width, height)
	}

	sampling := s.SamplingConfig
	if opts.Samples > 0 {
		sampling.SamplesPerPixel = opts.Samples
	}
	if opts.MaxDepth > 0 {
		sampling.MaxDepth = opts.MaxDepth
	}

	format := output.FormatFromPath(opts.Output)
	if opts.Format != "" {
		format = output.Format(strings.ToLower(opts.Format))
	}

	rt := renderer.NewRaytracer(s, s.Width, s.Height)
	rt.SetSamplingConfig(sampling)
	rt.SetSampler(core.NewSeededSampler(opts.Seed))
	rt.SetLogger(klogLogger{level: progressLogLevel})

	var metrics *renderer.Metrics
	if opts.MetricsFile != "" {
		metrics = renderer.NewMetrics()
		rt.SetMetrics(metrics)
	}

	klog.InfoS("Rendering", "scene", s.Name, "width", s.Width, "height", s.Height,
		"samples", sampling.SamplesPerPixel, "maxDepth", sampling.MaxDepth, "shapes", s.World.Len())

	img, stats, err := rt.Render(ctx)
	if err != nil {
		return fmt.Errorf("render interrupted after %d pixels: %w", stats.TotalPixels, err)
	}

	klog.InfoS("Render completed", "duration", stats.Duration, "pixels", stats.TotalPixels,
		"samplesPerPixel", stats.AverageSamples, "averageLuminance", stats.AverageLuminance)

	if err := writeImage(opts.Output, img, format, stdout); err != nil {
		return err
	}

	if metrics != nil {
		if err := metrics.WriteToTextfile(opts.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// writeImage encodes img to path, or to stdout when path is "-"
func writeImage(path string, img image.Image, format output.Format, stdout io.Writer) (err error) {
	if path == "-" {
		return output.Encode(stdout, img, format)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()

	if err := output.Encode(file, img, format); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	klog.InfoS("Render saved", "file", path, "format", format)
	return nil
}

func listScenes(dir string, out io.Writer) error {
	scenes, err := scene.ListAllScenes(dir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, info := range scenes {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Name, info.Description)
	}
	return w.Flush()
}
