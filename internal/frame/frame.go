// Package frame holds decoded features as a simple table: one row per
// feature with its id, attributes and geometry.
package frame

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeometryColumn names the geometry in Columns and in table output.
const GeometryColumn = "geometry"

type Row struct {
	ID       string
	Props    map[string]any
	Geometry orb.Geometry
}

type Frame struct {
	// Columns lists attribute names in first-seen order. The geometry is
	// not an attribute and is never listed here.
	Columns []string
	Rows    []Row
}

// New builds a frame, deriving columns from the rows when cols is nil.
func New(cols []string, rows []Row) *Frame {
	if cols == nil {
		cols = columnsOf(rows)
	}
	return &Frame{Columns: cols, Rows: rows}
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Head returns the first n rows sharing storage with f.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n > len(f.Rows) {
		n = len(f.Rows)
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n]}
}

// Select keeps only the named attribute columns, in the order given.
// "geometry" may be named to keep geometries; otherwise they are dropped.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	keepGeom := false
	attrs := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == GeometryColumn {
			keepGeom = true
			continue
		}
		if !slices.Contains(f.Columns, c) {
			return nil, fmt.Errorf("unknown column %q (have: %v)", c, f.Columns)
		}
		attrs = append(attrs, c)
	}

	rows := make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		props := make(map[string]any, len(attrs))
		for _, c := range attrs {
			if v, ok := r.Props[c]; ok {
				props[c] = v
			}
		}
		rows[i] = Row{ID: r.ID, Props: props}
		if keepGeom {
			rows[i].Geometry = r.Geometry
		}
	}
	return &Frame{Columns: attrs, Rows: rows}, nil
}

// Bound is the union of all geometry bounds; ok is false when no row has a
// geometry.
func (f *Frame) Bound() (orb.Bound, bool) {
	var (
		b  orb.Bound
		ok bool
	)
	for _, r := range f.Rows {
		if r.Geometry == nil {
			continue
		}
		gb := r.Geometry.Bound()
		if !ok {
			b, ok = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, ok
}

// GeoJSON converts the frame to a FeatureCollection. Rows without geometry
// get a null geometry.
func (f *Frame) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range f.Rows {
		gf := &geojson.Feature{Type: "Feature", Properties: geojson.Properties{}}
		if r.Geometry != nil {
			gf.Geometry = r.Geometry
		}
		if r.ID != "" {
			gf.ID = r.ID
		}
		for k, v := range r.Props {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}

func columnsOf(rows []Row) []string {
	var cols []string
	seen := map[string]struct{}{}
	for _, r := range rows {
		keys := make([]string, 0, len(r.Props))
		for k := range r.Props {
			if _, dup := seen[k]; !dup {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
