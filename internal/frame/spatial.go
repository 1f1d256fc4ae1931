package frame

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
)

// minimum rect side; the tree rejects zero-size rectangles
const epsilon = 0.0001

type indexedRow struct {
	idx   int
	bound orb.Bound
}

// Bounds implements rtreego.Spatial.
func (r *indexedRow) Bounds() rtreego.Rect {
	return rectFor(r.bound, 0)
}

func rectFor(b orb.Bound, pad float64) rtreego.Rect {
	point := rtreego.Point{b.Min[0] - pad, b.Min[1] - pad}
	w := b.Max[0] - b.Min[0] + 2*pad
	h := b.Max[1] - b.Min[1] + 2*pad
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(point, []float64{w, h})
	return rect
}

// Index is an R-tree over the geometry bounds of a frame's rows.
type Index struct {
	f    *Frame
	tree *rtreego.Rtree
}

func (f *Frame) Index() *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for i, r := range f.Rows {
		if r.Geometry == nil {
			continue
		}
		tree.Insert(&indexedRow{idx: i, bound: r.Geometry.Bound()})
	}
	return &Index{f: f, tree: tree}
}

// Intersecting returns the rows whose geometry intersects bb, boundary
// included. Rows keep their original order.
func (ix *Index) Intersecting(bb model.BBox) *Frame {
	box := orb.Bound{Min: orb.Point{bb.X1, bb.Y1}, Max: orb.Point{bb.X2, bb.Y2}}

	// the padded query catches rows touching the box edge; the exact test
	// below decides
	hits := ix.tree.SearchIntersect(rectFor(box, epsilon))
	keep := make([]bool, len(ix.f.Rows))
	for _, s := range hits {
		r := s.(*indexedRow)
		if Intersects(ix.f.Rows[r.idx].Geometry, box) {
			keep[r.idx] = true
		}
	}

	out := &Frame{Columns: ix.f.Columns}
	for i, k := range keep {
		if k {
			out.Rows = append(out.Rows, ix.f.Rows[i])
		}
	}
	return out
}

// Intersecting is Index().Intersecting(bb) for one-off queries.
func (f *Frame) Intersecting(bb model.BBox) *Frame {
	return f.Index().Intersecting(bb)
}

// Intersects reports whether g shares at least one point with box.
func Intersects(g orb.Geometry, box orb.Bound) bool {
	if g == nil || !g.Bound().Intersects(box) {
		return false
	}
	switch g := g.(type) {
	case orb.Point:
		return box.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if box.Contains(p) {
				return true
			}
		}
		return false
	case orb.LineString:
		return pathIntersects(g, box)
	case orb.MultiLineString:
		for _, ls := range g {
			if pathIntersects(ls, box) {
				return true
			}
		}
		return false
	case orb.Ring:
		return pathIntersects(orb.LineString(g), box) || planar.RingContains(g, box.Center())
	case orb.Polygon:
		return polygonIntersects(g, box)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonIntersects(p, box) {
				return true
			}
		}
		return false
	case orb.Collection:
		for _, c := range g {
			if Intersects(c, box) {
				return true
			}
		}
		return false
	case orb.Bound:
		return g.Intersects(box)
	default:
		return true
	}
}

func polygonIntersects(p orb.Polygon, box orb.Bound) bool {
	for _, ring := range p {
		if pathIntersects(orb.LineString(ring), box) {
			return true
		}
	}
	// box entirely inside the polygon
	return planar.PolygonContains(p, box.Center())
}

func pathIntersects(ls orb.LineString, box orb.Bound) bool {
	for _, p := range ls {
		if box.Contains(p) {
			return true
		}
	}
	corners := [4]orb.Point{
		{box.Min[0], box.Min[1]},
		{box.Max[0], box.Min[1]},
		{box.Max[0], box.Max[1]},
		{box.Min[0], box.Max[1]},
	}
	for i := 1; i < len(ls); i++ {
		for j := range corners {
			if segmentsCross(ls[i-1], ls[i], corners[j], corners[(j+1)%4]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
