package featureio

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

// DecodeGeoJSON accepts a FeatureCollection or a single Feature.
func DecodeGeoJSON(b []byte) (*frame.Frame, error) {
	var doc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}

	var features []*geojson.Feature
	switch doc.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(b)
		if err != nil {
			return nil, fmt.Errorf("geojson collection: %w", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(b)
		if err != nil {
			return nil, fmt.Errorf("geojson feature: %w", err)
		}
		features = []*geojson.Feature{f}
	default:
		return nil, fmt.Errorf("geojson: unsupported document type %q", doc.Type)
	}

	rows := make([]frame.Row, 0, len(features))
	for _, f := range features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		rows = append(rows, frame.Row{ID: featureID(f.ID), Props: props, Geometry: f.Geometry})
	}
	return frame.New(nil, rows), nil
}

func featureID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
