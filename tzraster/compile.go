package tzraster

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
)

// DefaultInput is the timezone-boundary-builder shapefile name.
const DefaultInput = "combined-shapefile-with-oceans.shp"

// DefaultHeight of the output image in pixels; the width is always twice this.
const DefaultHeight = 2000

type CompileOptions struct {
	Bucket   string
	Input    string
	Field    string
	Outdir   string
	Height   int
	Strategy ColorStrategy
	Seed     uint64
	Seeded   bool
	Workers  int
	// MetricsFile, when set, receives the run's metrics in Prometheus text format.
	MetricsFile string
}

type CompileResult struct {
	Palette     *Palette
	MappingPath string
	ImagePath   string
	Width       int
	Height      int
	// Pixels counts image pixels per normalized identifier.
	Pixels map[string]int
}

// Compile runs the whole pipeline: load the dataset, assign colors, style
// and render the layer, then write the mapping and the image. Nothing is
// written unless every earlier step succeeded.
func Compile(ctx context.Context, logger *zap.Logger, opts CompileOptions) (*CompileResult, error) {
	start := time.Now()
	if opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image height %d", opts.Height)
	}
	if opts.Input == "" {
		opts.Input = DefaultInput
	}
	if opts.Strategy == "" {
		opts.Strategy = HashColors
	}
	metrics := newRunMetrics()

	done := metrics.step("load")
	layer, err := Open(ctx, logger, opts.Bucket, opts.Input, opts.Field)
	if err != nil {
		return nil, err
	}
	done()

	logger.Info("reading timezones from dataset")
	timezones := NewTimezones(layer.Timezones())
	metrics.observeLayer(layer, len(timezones))

	done = metrics.step("colors")
	colorOpts := DefaultColorOptions()
	colorOpts.Seed = opts.Seed
	colorOpts.Seeded = opts.Seeded
	palette, err := AssignColors(opts.Strategy, timezones, colorOpts)
	if err != nil {
		return nil, err
	}
	done()
	logger.Info("assigned colors", zap.String("strategy", string(opts.Strategy)), zap.Int("timezones", palette.Len()))

	logger.Info("stylizing map")
	layer.SetRenderer(PaletteRenderer(layer.Field, palette))
	layer.TriggerRepaint()

	done = metrics.step("render")
	settings := NewMapSettings(layer, opts.Height)
	settings.Workers = opts.Workers
	job, err := NewRenderJob(layer, settings)
	if err != nil {
		return nil, err
	}
	job.Start(ctx)
	<-job.Finished()
	if err := job.Wait(); err != nil {
		return nil, err
	}
	done()
	img := job.RenderedImage()
	metrics.paintedPixels.Set(float64(job.PaintedPixels()))

	done = metrics.step("write")
	jsonPath, pngPath, err := WriteArtifacts(opts.Outdir, palette, img)
	if err != nil {
		return nil, err
	}
	done()
	logger.Info("saved mappings JSON file", zap.String("path", jsonPath))
	logger.Info("saved PNG map", zap.String("path", pngPath), zap.Int("width", settings.Width), zap.Int("height", settings.Height))

	pixels, unknown := countPixels(img, palette, settings.Background)
	if unknown > 0 {
		logger.Warn("image contains colors outside the palette", zap.Int("pixels", unknown))
	}
	metrics.observePixels(pixels)

	if opts.MetricsFile != "" {
		if err := metrics.writeTextfile(opts.MetricsFile); err != nil {
			return nil, fmt.Errorf("failed to write metrics to %s, %w", opts.MetricsFile, err)
		}
	}

	logger.Info("completed", zap.Duration("elapsed", time.Since(start)))
	return &CompileResult{
		Palette:     palette,
		MappingPath: jsonPath,
		ImagePath:   pngPath,
		Width:       settings.Width,
		Height:      settings.Height,
		Pixels:      pixels,
	}, nil
}

// countPixels tallies pixels per normalized identifier and returns how many
// pixels match neither the palette nor the background.
func countPixels(img *image.NRGBA, p *Palette, background Color) (map[string]int, int) {
	counts := make(map[string]int)
	unknown := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			px := img.Pix[row+x*4:]
			c := RGB(px[0], px[1], px[2])
			if c == background {
				continue
			}
			a, ok := p.Lookup(c)
			if !ok {
				unknown++
				continue
			}
			counts[a.Normalized]++
		}
	}
	return counts, unknown
}
