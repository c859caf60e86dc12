package tzraster

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

func openGeoJSON(ctx context.Context, bucketURL string, key string, field string) (*Layer, error) {
	data, err := readObject(ctx, bucketURL, key)
	if err != nil {
		return nil, err
	}
	return unmarshalLayer(key, data, field)
}

// unmarshalLayer accepts a FeatureCollection or a single Feature.
func unmarshalLayer(source string, data []byte, field string) (*Layer, error) {
	layer := newLayer(source, "GeoJSON", field)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		for idx, f := range fc.Features {
			if err := addGeoJSONFeature(layer, f, idx); err != nil {
				return nil, err
			}
		}
		return layer, nil
	}

	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, err
	}
	if err := addGeoJSONFeature(layer, f, 0); err != nil {
		return nil, err
	}
	return layer, nil
}

func addGeoJSONFeature(layer *Layer, f *geojson.Feature, idx int) error {
	value, ok := f.Properties[layer.Field]
	if !ok {
		return fmt.Errorf("feature %d: %w", idx, missingField(layer.Field))
	}
	tzid, ok := value.(string)
	if !ok {
		return fmt.Errorf("feature %d: field %q is %T, not a string", idx, layer.Field, value)
	}
	layer.addFeature(tzid, f.Geometry)
	return nil
}
