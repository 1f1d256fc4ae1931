package mapview

import (
	"bufio"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

type PlotOptions struct {
	Width       int
	Height      int
	Padding     int
	Fill        string
	Stroke      string
	PointRadius float64
	Title       string
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Padding <= 0 {
		o.Padding = 16
	}
	if o.Fill == "" {
		o.Fill = "#3388ff"
	}
	if o.Stroke == "" {
		o.Stroke = "#1f4e99"
	}
	if o.PointRadius <= 0 {
		o.PointRadius = 3
	}
	return o
}

var ErrNothingToPlot = errors.New("mapview: frame has no geometries")

// Plot draws every geometry of f as SVG in an equirectangular projection
// fitted to the frame's bound.
func Plot(w io.Writer, f *frame.Frame, opts PlotOptions) error {
	o := opts.withDefaults()
	b, ok := f.Bound()
	if !ok {
		return ErrNothingToPlot
	}
	p := newProjection(b, o)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		o.Width, o.Height, o.Width, o.Height)
	if o.Title != "" {
		fmt.Fprintf(bw, "<title>%s</title>\n", html.EscapeString(o.Title))
	}
	fmt.Fprintf(bw, `<g fill=%q fill-opacity="0.5" stroke=%q stroke-width="1">`+"\n",
		html.EscapeString(o.Fill), html.EscapeString(o.Stroke))
	for _, r := range f.Rows {
		if r.Geometry != nil {
			p.draw(bw, r.Geometry, o)
		}
	}
	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}

type projection struct {
	minX, maxY float64
	scale      float64
	offX, offY float64
}

func newProjection(b orb.Bound, o PlotOptions) projection {
	dx := b.Max[0] - b.Min[0]
	dy := b.Max[1] - b.Min[1]
	innerW := float64(o.Width - 2*o.Padding)
	innerH := float64(o.Height - 2*o.Padding)

	scale := 1.0
	switch {
	case dx == 0 && dy == 0:
	case dx == 0:
		scale = innerH / dy
	case dy == 0:
		scale = innerW / dx
	default:
		scale = math.Min(innerW/dx, innerH/dy)
	}
	// centre the drawing inside the padding
	return projection{
		minX:  b.Min[0],
		maxY:  b.Max[1],
		scale: scale,
		offX:  float64(o.Padding) + (innerW-dx*scale)/2,
		offY:  float64(o.Padding) + (innerH-dy*scale)/2,
	}
}

func (p projection) xy(pt orb.Point) (float64, float64) {
	return p.offX + (pt[0]-p.minX)*p.scale, p.offY + (p.maxY-pt[1])*p.scale
}

func (p projection) draw(w *bufio.Writer, g orb.Geometry, o PlotOptions) {
	switch g := g.(type) {
	case orb.Point:
		x, y := p.xy(g)
		fmt.Fprintf(w, `<circle cx="%s" cy="%s" r="%s"/>`+"\n", num(x), num(y), num(o.PointRadius))
	case orb.MultiPoint:
		for _, pt := range g {
			p.draw(w, pt, o)
		}
	case orb.LineString:
		fmt.Fprintf(w, `<polyline fill="none" points="%s"/>`+"\n", p.points(g))
	case orb.MultiLineString:
		for _, ls := range g {
			p.draw(w, ls, o)
		}
	case orb.Ring:
		p.draw(w, orb.Polygon{g}, o)
	case orb.Polygon:
		fmt.Fprintf(w, `<path fill-rule="evenodd" d="%s"/>`+"\n", p.path(g))
	case orb.MultiPolygon:
		for _, poly := range g {
			p.draw(w, poly, o)
		}
	case orb.Collection:
		for _, c := range g {
			p.draw(w, c, o)
		}
	case orb.Bound:
		p.draw(w, g.ToPolygon(), o)
	}
}

func (p projection) points(ls orb.LineString) string {
	parts := make([]string, len(ls))
	for i, pt := range ls {
		x, y := p.xy(pt)
		parts[i] = num(x) + "," + num(y)
	}
	return strings.Join(parts, " ")
}

func (p projection) path(poly orb.Polygon) string {
	var sb strings.Builder
	for _, ring := range poly {
		for i, pt := range ring {
			x, y := p.xy(pt)
			if i == 0 {
				sb.WriteString("M")
			} else {
				sb.WriteString("L")
			}
			sb.WriteString(num(x) + " " + num(y))
		}
		sb.WriteString("Z")
	}
	return sb.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
