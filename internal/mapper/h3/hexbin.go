package h3mapper

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

// Bin is one H3 cell and the number of features whose representative
// point falls in it.
type Bin struct {
	Cell  string
	Count int
}

// Bins counts the frame's features per cell at res. Rows without geometry
// are skipped. Bins are sorted by cell id.
func (m *Mapper) Bins(f *frame.Frame, res int) ([]Bin, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, r := range f.Rows {
		if r.Geometry == nil {
			continue
		}
		p := representativePoint(r.Geometry)
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat(), Lng: p.Lon()}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for %q: %w", r.ID, err)
		}
		counts[c.String()]++
	}
	return sortedBins(counts), nil
}

// Hexbin bins the frame at res, coarsening one resolution at a time while
// there are more than maxCells bins (maxCells <= 0 means no limit).
func (m *Mapper) Hexbin(f *frame.Frame, res, maxCells int) (*geojson.FeatureCollection, error) {
	bins, err := m.Bins(f, res)
	if err != nil {
		return nil, err
	}
	for maxCells > 0 && len(bins) > maxCells && res > 0 {
		res--
		if bins, err = m.Rollup(bins, res); err != nil {
			return nil, err
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, b := range bins {
		poly, err := cellPolygon(b.Cell)
		if err != nil {
			return nil, err
		}
		gf := geojson.NewFeature(poly)
		gf.Properties["cell"] = b.Cell
		gf.Properties["count"] = b.Count
		gf.Properties["resolution"] = res
		fc.Append(gf)
	}
	return fc, nil
}

// Rollup merges bins into their parents at parentRes.
func (m *Mapper) Rollup(bins []Bin, parentRes int) ([]Bin, error) {
	counts := map[string]int{}
	for _, b := range bins {
		p, err := m.ToParent(b.Cell, parentRes)
		if err != nil {
			return nil, err
		}
		counts[p] += b.Count
	}
	return sortedBins(counts), nil
}

// Coverage returns the cells covering bb as a GeoJSON layer.
func (m *Mapper) Coverage(bb model.BBox, res int) (*geojson.FeatureCollection, error) {
	cells, err := m.CellsForBBox(bb, res)
	if err != nil {
		return nil, err
	}
	return cellLayer(cells, nil)
}

// FeatureCoverage returns the cells covering the frame's Polygon and
// MultiPolygon features. Each cell carries the number of features covering
// it. Other geometries are skipped.
func (m *Mapper) FeatureCoverage(f *frame.Frame, res int) (*geojson.FeatureCollection, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, r := range f.Rows {
		switch r.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		cells, err := m.CellsForPolygon(r.Geometry, res)
		if err != nil {
			return nil, fmt.Errorf("cover %q: %w", r.ID, err)
		}
		for _, c := range cells {
			counts[c]++
		}
	}
	cells := make(Cells, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	sort.Strings(cells)
	return cellLayer(cells, counts)
}

func cellLayer(cells Cells, counts map[string]int) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, c := range cells {
		poly, err := cellPolygon(c)
		if err != nil {
			return nil, err
		}
		gf := geojson.NewFeature(poly)
		gf.Properties["cell"] = c
		if counts != nil {
			gf.Properties["features"] = counts[c]
		}
		fc.Append(gf)
	}
	return fc, nil
}

func cellPolygon(id string) (orb.Polygon, error) {
	c, err := parseCell(id)
	if err != nil {
		return nil, err
	}
	boundary, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary: %w", err)
	}
	ring := make(orb.Ring, 0, len(boundary)+1)
	for _, ll := range boundary {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, nil
}

// representativePoint is the point itself, the area centroid of polygons, or
// the centre of the bound otherwise.
func representativePoint(g orb.Geometry) orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return g
	case orb.Polygon, orb.MultiPolygon:
		if c, area := planar.CentroidArea(g); area != 0 {
			return c
		}
	}
	return g.Bound().Center()
}

func sortedBins(counts map[string]int) []Bin {
	out := make([]Bin, 0, len(counts))
	for c, n := range counts {
		out = append(out, Bin{Cell: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out
}
