package tzraster

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// DefaultField is the attribute holding the timezone identifier in the
// timezone-boundary-builder releases.
const DefaultField = "tzid"

// ErrMissingField is wrapped by InputError when the dataset has no attribute
// with the requested name.
var ErrMissingField = errors.New("missing attribute field")

// InputError is returned when a dataset cannot be loaded.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cannot load dataset %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Feature is one timezone region.
type Feature struct {
	Tzid     string
	Geometry orb.MultiPolygon

	symbol *FillSymbol
}

// Layer is a loaded vector dataset.
type Layer struct {
	Source   string
	Format   string
	Field    string
	Features []Feature
	Extent   orb.Bound
	// Skipped counts features without polygonal geometry.
	Skipped int

	renderer *CategorizedRenderer
	dirty    bool
}

func newLayer(source, format, field string) *Layer {
	return &Layer{Source: source, Format: format, Field: field}
}

func (l *Layer) addFeature(tzid string, g orb.Geometry) {
	mp, ok := asMultiPolygon(g)
	if !ok || len(mp) == 0 {
		l.Skipped++
		return
	}
	if len(l.Features) == 0 {
		l.Extent = mp.Bound()
	} else {
		l.Extent = l.Extent.Union(mp.Bound())
	}
	l.Features = append(l.Features, Feature{Tzid: tzid, Geometry: orientMultiPolygon(mp)})
}

// Timezones returns the distinct identifiers of the layer, sorted.
func (l *Layer) Timezones() []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, f := range l.Features {
		if _, ok := seen[f.Tzid]; ok {
			continue
		}
		seen[f.Tzid] = struct{}{}
		result = append(result, f.Tzid)
	}
	sort.Strings(result)
	return result
}

func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		return v, true
	case orb.Collection:
		var result orb.MultiPolygon
		for _, child := range v {
			if mp, ok := asMultiPolygon(child); ok {
				result = append(result, mp...)
			}
		}
		return result, len(result) > 0
	}
	return nil, false
}

// Open loads the dataset at key, optionally from a gocloud bucket. The format
// is chosen by file extension.
func Open(ctx context.Context, logger *zap.Logger, bucketURL string, key string, field string) (*Layer, error) {
	if field == "" {
		field = DefaultField
	}

	source := key
	if bucketURL == "" && strings.Contains(key, "://") {
		var err error
		bucketURL, key, err = NormalizeBucketKey("", "", key)
		if err != nil {
			return nil, &InputError{Path: source, Err: err}
		}
	}

	var layer *Layer
	var err error
	switch strings.ToLower(path.Ext(key)) {
	case ".shp":
		layer, err = openShapefile(ctx, bucketURL, key, field)
	case ".zip":
		layer, err = openZippedShapefile(ctx, bucketURL, key, field)
	case ".json", ".geojson":
		layer, err = openGeoJSON(ctx, bucketURL, key, field)
	case ".gpkg":
		layer, err = openGeoPackage(ctx, bucketURL, key, field)
	default:
		err = fmt.Errorf("unsupported dataset format %q", path.Ext(key))
	}
	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			return nil, err
		}
		return nil, &InputError{Path: source, Err: err}
	}

	if len(layer.Features) == 0 {
		return nil, &InputError{Path: source, Err: errors.New("no polygon features found")}
	}
	if layer.Skipped > 0 {
		logger.Warn("skipped features without polygon geometry", zap.String("path", source), zap.Int("count", layer.Skipped))
	}
	logger.Info("opened dataset",
		zap.String("path", source),
		zap.String("format", layer.Format),
		zap.Int("features", len(layer.Features)),
	)
	return layer, nil
}

func missingField(field string) error {
	return fmt.Errorf("%w %q", ErrMissingField, field)
}

// ringsToPolygons groups shapefile-style rings into polygons: a clockwise
// ring starts a new polygon and counter-clockwise rings are its holes.
func ringsToPolygons(rings []orb.Ring) orb.MultiPolygon {
	var result orb.MultiPolygon
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		if ring.Orientation() == orb.CW || len(result) == 0 {
			result = append(result, orb.Polygon{ring})
			continue
		}
		last := len(result) - 1
		result[last] = append(result[last], ring)
	}
	return result
}
