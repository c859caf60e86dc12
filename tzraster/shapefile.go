package tzraster

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

type shapeReader interface {
	Next() bool
	Shape() (int, shp.Shape)
	Fields() []shp.Field
	Err() error
	Close() error
}

type zipShapeReader struct {
	*shp.ZipReader
}

func (z zipShapeReader) attribute(_ int, field int) string {
	return z.Attribute(field)
}

// go-shp panics on truncated or corrupt files instead of returning errors.
func recoverShapefile(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed shapefile: %v", r)
	}
}

func openShapefile(ctx context.Context, bucketURL string, key string, field string) (layer *Layer, err error) {
	defer recoverShapefile(&err)
	local, cleanup, err := fetchLocal(ctx, bucketURL, key, ".dbf", ".shx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	r, err := shp.Open(local)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readShapes(newLayer(key, "Shapefile", field), r, r.ReadAttribute)
}

func openZippedShapefile(ctx context.Context, bucketURL string, key string, field string) (layer *Layer, err error) {
	defer recoverShapefile(&err)
	local, cleanup, err := fetchLocal(ctx, bucketURL, key)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	zr, err := shp.OpenZip(local)
	if err != nil {
		return nil, err
	}
	r := zipShapeReader{zr}
	defer r.Close()
	return readShapes(newLayer(key, "Zipped Shapefile", field), r, r.attribute)
}

func readShapes(layer *Layer, r shapeReader, attribute func(row int, field int) string) (*Layer, error) {
	fieldIdx := -1
	for idx, f := range r.Fields() {
		name := strings.TrimRight(f.String(), "\x00 ")
		if name == layer.Field {
			fieldIdx = idx
			break
		}
		if fieldIdx < 0 && strings.EqualFold(name, layer.Field) {
			fieldIdx = idx
		}
	}
	if fieldIdx < 0 {
		return nil, missingField(layer.Field)
	}

	for r.Next() {
		row, shape := r.Shape()
		tzid := strings.TrimRight(attribute(row, fieldIdx), "\x00 ")
		if tzid == "" {
			return nil, fmt.Errorf("shape %d: empty %q value", row, layer.Field)
		}
		layer.addFeature(tzid, shapeToGeometry(shape))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return layer, nil
}

func shapeToGeometry(shape shp.Shape) orb.Geometry {
	switch v := shape.(type) {
	case *shp.Polygon:
		return ringsToPolygons(partsToRings(v.Parts, v.Points))
	case *shp.PolygonZ:
		return ringsToPolygons(partsToRings(v.Parts, v.Points))
	case *shp.PolygonM:
		return ringsToPolygons(partsToRings(v.Parts, v.Points))
	}
	return nil
}

func partsToRings(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
