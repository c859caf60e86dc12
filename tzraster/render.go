package tzraster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

const defaultBandHeight = 64

// MapSettings controls a render job.
type MapSettings struct {
	Background   Color
	Width        int
	Height       int
	Extent       orb.Bound
	Antialiasing bool
	// Workers defaults to GOMAXPROCS.
	Workers int
	// BandHeight is the number of rows handed to a worker at a time.
	BandHeight int
}

// NewMapSettings returns the settings used for timezone maps: white
// background, 2:1 output of the given height, the layer's full extent and
// no antialiasing, so every painted pixel carries an exact palette color.
func NewMapSettings(layer *Layer, height int) MapSettings {
	return MapSettings{
		Background: White,
		Width:      2 * height,
		Height:     height,
		Extent:     layer.Extent,
	}
}

// RenderError wraps failures of a render job.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderJob renders a styled layer in the background. Start it, then block
// on Finished or Wait.
type RenderJob struct {
	layer    *Layer
	settings MapSettings
	img      *image.NRGBA
	finished chan struct{}
	start    sync.Once
	err      error
	painted  atomic.Int64
}

func NewRenderJob(layer *Layer, settings MapSettings) (*RenderJob, error) {
	if settings.Width <= 0 || settings.Height <= 0 {
		return nil, &RenderError{Err: fmt.Errorf("invalid output size %dx%d", settings.Width, settings.Height)}
	}
	if layer.Renderer() == nil {
		return nil, &RenderError{Err: errors.New("layer has no renderer")}
	}
	if settings.Workers <= 0 {
		settings.Workers = runtime.GOMAXPROCS(0)
	}
	if settings.BandHeight <= 0 {
		settings.BandHeight = defaultBandHeight
	}
	return &RenderJob{
		layer:    layer,
		settings: settings,
		img:      image.NewNRGBA(image.Rect(0, 0, settings.Width, settings.Height)),
		finished: make(chan struct{}),
	}, nil
}

// Start launches the job. Calling it again has no effect.
func (j *RenderJob) Start(ctx context.Context) {
	j.start.Do(func() {
		if j.layer.dirty {
			j.layer.TriggerRepaint()
		}
		go func() {
			defer close(j.finished)
			if err := j.render(ctx); err != nil {
				j.err = &RenderError{Err: err}
			}
		}()
	})
}

// Finished is closed once the job completes, successfully or not.
func (j *RenderJob) Finished() <-chan struct{} {
	return j.finished
}

// Wait blocks until the job completes and returns its error.
func (j *RenderJob) Wait() error {
	<-j.finished
	return j.err
}

// RenderedImage is only complete after Finished is closed.
func (j *RenderJob) RenderedImage() *image.NRGBA {
	return j.img
}

// PaintedPixels counts pixel writes made by feature symbols.
func (j *RenderJob) PaintedPixels() int64 {
	return j.painted.Load()
}

type renderItem struct {
	feature *Feature
	bound   orb.Bound
}

func (j *RenderJob) render(ctx context.Context) error {
	fillBackground(j.img, j.settings.Background)

	items := make([]renderItem, 0, len(j.layer.Features))
	for i := range j.layer.Features {
		f := &j.layer.Features[i]
		if f.symbol == nil {
			continue
		}
		items = append(items, renderItem{feature: f, bound: f.Geometry.Bound()})
	}

	proj := newProjection(j.settings.Extent, j.settings.Width, j.settings.Height)
	bands := make(chan image.Rectangle)
	numBands := (j.settings.Height + j.settings.BandHeight - 1) / j.settings.BandHeight
	bar := getProgressWriter().NewCountProgress(int64(numBands), "rendering")
	defer bar.Close()

	errs, ctx := errgroup.WithContext(ctx)
	for i := 0; i < j.settings.Workers; i++ {
		errs.Go(func() error {
			raster := newBandRasterizer(proj, j.settings.Antialiasing)
			for band := range bands {
				painted := 0
				for _, item := range items {
					painted += raster.drawFeature(j.img, band, item.feature, item.bound)
				}
				j.painted.Add(int64(painted))
				bar.Add(1)
			}
			return nil
		})
	}

	errs.Go(func() error {
		defer close(bands)
		for y := 0; y < j.settings.Height; y += j.settings.BandHeight {
			band := image.Rect(0, y, j.settings.Width, min(y+j.settings.BandHeight, j.settings.Height))
			select {
			case bands <- band:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return errs.Wait()
}

func fillBackground(img *image.NRGBA, c Color) {
	r, g, b := c.RGB()
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 0xFF
	}
}
