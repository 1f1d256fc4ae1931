package featureio

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/paulmach/orb"
)

// geographic CRSs whose authority axis order is latitude first
var latFirstCodes = map[string]bool{
	"4326": true, // WGS 84
	"4283": true, // GDA94
	"7844": true, // GDA2020
	"4258": true, // ETRS89
	"4269": true, // NAD83
	"4167": true, // NZGD2000
}

// latFirst reports whether coordinates in srs are written lat,lon. Only the
// urn and http URI forms carry authority axis order; EPSG:4326 and the
// epsg.xml# form are lon,lat.
func latFirst(srs string) bool {
	s := strings.TrimSpace(srs)
	var code string
	switch {
	case strings.HasPrefix(s, "urn:ogc:def:crs:EPSG:"), strings.HasPrefix(s, "urn:x-ogc:def:crs:EPSG:"):
		code = s[strings.LastIndexByte(s, ':')+1:]
	case strings.HasPrefix(s, "http://www.opengis.net/def/crs/EPSG/"):
		code = s[strings.LastIndexByte(s, '/')+1:]
	default:
		return false
	}
	return latFirstCodes[code]
}

type geomCtx struct {
	srs string
	dim int
}

func (c geomCtx) with(el *etree.Element) geomCtx {
	if s := el.SelectAttrValue("srsName", ""); s != "" {
		c.srs = s
	}
	if d, err := strconv.Atoi(el.SelectAttrValue("srsDimension", "")); err == nil && d > 0 {
		c.dim = d
	}
	return c
}

func (c geomCtx) point(x, y float64) orb.Point {
	if latFirst(c.srs) {
		return orb.Point{y, x}
	}
	return orb.Point{x, y}
}

// geometryOf decodes el when it is a supported GML geometry element.
func geometryOf(el *etree.Element, srs string) (orb.Geometry, bool) {
	return decodeGeometry(el, geomCtx{srs: srs, dim: 2})
}

func decodeGeometry(el *etree.Element, c geomCtx) (orb.Geometry, bool) {
	c = c.with(el)
	switch el.Tag {
	case "Point":
		pts := coords(el, c)
		if len(pts) == 0 {
			return nil, false
		}
		return pts[0], true

	case "LineString":
		return orb.LineString(coords(el, c)), true

	case "LinearRing":
		return orb.Ring(coords(el, c)), true

	case "Curve":
		return curve(el, c), true

	case "Polygon", "PolygonPatch":
		return polygon(el, c), true

	case "Surface":
		var mp orb.MultiPolygon
		for _, patches := range children(el, "patches") {
			for _, p := range patches.ChildElements() {
				mp = append(mp, polygon(p, c.with(p)))
			}
		}
		if len(mp) == 1 {
			return mp[0], true
		}
		return mp, true

	case "MultiPoint":
		var mp orb.MultiPoint
		for _, m := range members(el, "pointMember", "pointMembers") {
			if g, ok := decodeGeometry(m, c); ok {
				if p, ok := g.(orb.Point); ok {
					mp = append(mp, p)
				}
			}
		}
		return mp, true

	case "MultiLineString", "MultiCurve":
		var ml orb.MultiLineString
		for _, m := range members(el, "lineStringMember", "curveMember", "curveMembers") {
			if g, ok := decodeGeometry(m, c); ok {
				switch g := g.(type) {
				case orb.LineString:
					ml = append(ml, g)
				case orb.MultiLineString:
					ml = append(ml, g...)
				}
			}
		}
		return ml, true

	case "MultiPolygon", "MultiSurface":
		var mp orb.MultiPolygon
		for _, m := range members(el, "polygonMember", "surfaceMember", "surfaceMembers") {
			if g, ok := decodeGeometry(m, c); ok {
				switch g := g.(type) {
				case orb.Polygon:
					mp = append(mp, g)
				case orb.MultiPolygon:
					mp = append(mp, g...)
				}
			}
		}
		return mp, true

	case "MultiGeometry":
		var col orb.Collection
		for _, m := range members(el, "geometryMember", "geometryMembers") {
			if g, ok := decodeGeometry(m, c); ok {
				col = append(col, g)
			}
		}
		return col, true
	}
	return nil, false
}

// curve joins the segments of a gml:Curve into one line.
func curve(el *etree.Element, c geomCtx) orb.LineString {
	var ls orb.LineString
	for _, segs := range children(el, "segments") {
		for _, seg := range segs.ChildElements() {
			pts := coords(seg, c.with(seg))
			if len(ls) > 0 && len(pts) > 0 && ls[len(ls)-1].Equal(pts[0]) {
				pts = pts[1:]
			}
			ls = append(ls, pts...)
		}
	}
	return ls
}

func polygon(el *etree.Element, c geomCtx) orb.Polygon {
	var p orb.Polygon
	for _, name := range []string{"exterior", "outerBoundaryIs", "interior", "innerBoundaryIs"} {
		for _, b := range children(el, name) {
			for _, r := range b.ChildElements() {
				rc := c.with(r)
				switch r.Tag {
				case "LinearRing":
					p = append(p, orb.Ring(coords(r, rc)))
				case "Ring":
					var ring orb.Ring
					for _, cm := range children(r, "curveMember") {
						for _, cv := range cm.ChildElements() {
							if g, ok := decodeGeometry(cv, rc); ok {
								if ls, ok := g.(orb.LineString); ok {
									ring = append(ring, ls...)
								}
							}
						}
					}
					p = append(p, ring)
				}
			}
		}
	}
	return p
}

// members returns the geometries under single (fooMember) and array
// (fooMembers) member properties.
func members(el *etree.Element, names ...string) []*etree.Element {
	var out []*etree.Element
	for _, ch := range el.ChildElements() {
		for _, n := range names {
			if ch.Tag == n {
				out = append(out, ch.ChildElements()...)
				break
			}
		}
	}
	return out
}

func children(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, ch := range el.ChildElements() {
		if ch.Tag == local {
			out = append(out, ch)
		}
	}
	return out
}

// coords reads gml:posList, repeated gml:pos, GML2 gml:coordinates or
// gml:coord children of el.
func coords(el *etree.Element, c geomCtx) []orb.Point {
	var pts []orb.Point
	for _, ch := range el.ChildElements() {
		cc := c.with(ch)
		switch ch.Tag {
		case "posList":
			pts = append(pts, tuples(fields(ch.Text()), cc)...)
		case "pos":
			// a single position; its length is its dimension
			vals := fields(ch.Text())
			pts = append(pts, tuples(vals, geomCtx{srs: cc.srs, dim: len(vals)})...)
		case "coordinates":
			pts = append(pts, gml2Coordinates(ch, cc)...)
		case "coord":
			x, _ := strconv.ParseFloat(strings.TrimSpace(childText(ch, "X")), 64)
			y, _ := strconv.ParseFloat(strings.TrimSpace(childText(ch, "Y")), 64)
			pts = append(pts, cc.point(x, y))
		}
	}
	return pts
}

func tuples(vals []float64, c geomCtx) []orb.Point {
	dim := c.dim
	if dim < 2 {
		dim = 2
	}
	pts := make([]orb.Point, 0, len(vals)/dim)
	for i := 0; i+dim <= len(vals); i += dim {
		pts = append(pts, c.point(vals[i], vals[i+1]))
	}
	return pts
}

func gml2Coordinates(el *etree.Element, c geomCtx) []orb.Point {
	cs := el.SelectAttrValue("cs", ",")
	ts := el.SelectAttrValue("ts", " ")
	dec := el.SelectAttrValue("decimal", ".")

	text := strings.TrimSpace(el.Text())
	var tups []string
	if strings.TrimSpace(ts) == "" {
		tups = strings.Fields(text)
	} else {
		tups = strings.Split(text, ts)
	}

	var pts []orb.Point
	for _, t := range tups {
		parts := strings.Split(strings.TrimSpace(t), cs)
		if len(parts) < 2 {
			continue
		}
		x, errx := parseNum(parts[0], dec)
		y, erry := parseNum(parts[1], dec)
		if errx != nil || erry != nil {
			continue
		}
		pts = append(pts, c.point(x, y))
	}
	return pts
}

func parseNum(s, dec string) (float64, error) {
	s = strings.TrimSpace(s)
	if dec != "." {
		s = strings.ReplaceAll(s, dec, ".")
	}
	return strconv.ParseFloat(s, 64)
}

func fields(s string) []float64 {
	fs := strings.Fields(s)
	out := make([]float64, 0, len(fs))
	for _, f := range fs {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func childText(el *etree.Element, local string) string {
	for _, ch := range el.ChildElements() {
		if ch.Tag == local {
			return ch.Text()
		}
	}
	return ""
}
