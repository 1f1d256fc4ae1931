// Package mapper derives grid layers from features and areas.
package mapper

import (
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

type Interface interface {
	// Hexbin counts features per grid cell.
	Hexbin(f *frame.Frame, res, maxCells int) (*geojson.FeatureCollection, error)
	// Coverage returns the cells covering bb.
	Coverage(bb model.BBox, res int) (*geojson.FeatureCollection, error)
	// FeatureCoverage returns the cells covering the areal features of f.
	FeatureCoverage(f *frame.Frame, res int) (*geojson.FeatureCollection, error)
}
