package ogc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
)

type Capabilities struct {
	Version      string
	Title        string
	Operations   []Operation
	FeatureTypes []FeatureType
}

type Operation struct {
	Name       string
	Parameters map[string][]string
}

type FeatureType struct {
	Name          string      `json:"name"`
	Title         string      `json:"title,omitempty"`
	Abstract      string      `json:"abstract,omitempty"`
	DefaultCRS    string      `json:"defaultCrs,omitempty"`
	WGS84Bounds   *model.BBox `json:"wgs84Bounds,omitempty"`
	OutputFormats []string    `json:"outputFormats,omitempty"`
}

// ParseCapabilities reads a WFS 1.0.0, 1.1.0 or 2.0.0 capabilities document.
func ParseCapabilities(b []byte) (*Capabilities, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("parse capabilities xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("capabilities document is empty")
	}
	if exc, ok := exceptionFromRoot(root); ok {
		return nil, exc
	}
	if root.Tag != "WFS_Capabilities" {
		return nil, fmt.Errorf("unexpected root element %q (want WFS_Capabilities)", root.Tag)
	}

	caps := &Capabilities{Version: root.SelectAttrValue("version", "")}

	if svc := firstChild(root, "ServiceIdentification"); svc != nil {
		caps.Title = childText(svc, "Title")
	} else if svc := firstChild(root, "Service"); svc != nil {
		caps.Title = childText(svc, "Title")
	}

	if om := firstChild(root, "OperationsMetadata"); om != nil {
		caps.Operations = parseOWSOperations(om)
	} else if capEl := firstChild(root, "Capability"); capEl != nil {
		caps.Operations = parseLegacyOperations(capEl)
	}

	if ftl := firstChild(root, "FeatureTypeList"); ftl != nil {
		for _, ft := range children(ftl, "FeatureType") {
			caps.FeatureTypes = append(caps.FeatureTypes, parseFeatureType(ft))
		}
	}
	return caps, nil
}

// OperationNames returns the advertised operation names in document order.
func (c *Capabilities) OperationNames() []string {
	out := make([]string, 0, len(c.Operations))
	for _, op := range c.Operations {
		out = append(out, op.Name)
	}
	return out
}

func (c *Capabilities) Operation(name string) (Operation, bool) {
	for _, op := range c.Operations {
		if strings.EqualFold(op.Name, name) {
			return op, true
		}
	}
	return Operation{}, false
}

// OutputFormats lists the GetFeature output formats plus any formats only
// advertised on individual feature types, without duplicates.
func (c *Capabilities) OutputFormats() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(f string) {
		k := strings.ToLower(strings.TrimSpace(f))
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(f))
	}
	if op, ok := c.Operation("GetFeature"); ok {
		for k, vals := range op.Parameters {
			if strings.EqualFold(k, "outputFormat") {
				for _, v := range vals {
					add(v)
				}
			}
		}
	}
	for _, ft := range c.FeatureTypes {
		for _, f := range ft.OutputFormats {
			add(f)
		}
	}
	return out
}

// SupportsOutputFormat is true when the server advertises the format, or
// when it advertises no formats at all.
func (c *Capabilities) SupportsOutputFormat(format string) bool {
	formats := c.OutputFormats()
	if len(formats) == 0 {
		return true
	}
	want := strings.ToLower(strings.TrimSpace(format))
	for _, f := range formats {
		if strings.ToLower(f) == want {
			return true
		}
	}
	return false
}

func (c *Capabilities) FeatureType(name string) (FeatureType, bool) {
	for _, ft := range c.FeatureTypes {
		if ft.Name == name {
			return ft, true
		}
	}
	return FeatureType{}, false
}

func parseOWSOperations(om *etree.Element) []Operation {
	var global []*etree.Element
	for _, p := range children(om, "Parameter") {
		global = append(global, p)
	}

	var ops []Operation
	for _, el := range children(om, "Operation") {
		op := Operation{
			Name:       el.SelectAttrValue("name", ""),
			Parameters: map[string][]string{},
		}
		for _, p := range children(el, "Parameter") {
			addParam(op.Parameters, p)
		}
		// GeoServer advertises some parameters once for all operations
		for _, p := range global {
			name := p.SelectAttrValue("name", "")
			if _, ok := op.Parameters[name]; !ok {
				addParam(op.Parameters, p)
			}
		}
		ops = append(ops, op)
	}
	return ops
}

func addParam(dst map[string][]string, p *etree.Element) {
	name := p.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	vals := dst[name]
	for _, v := range descendants(p, "Value") {
		if s := strings.TrimSpace(v.Text()); s != "" {
			vals = append(vals, s)
		}
	}
	dst[name] = vals
}

// WFS 1.0.0: Capability/Request/<OpName>/ResultFormat/<FORMAT/>
func parseLegacyOperations(capEl *etree.Element) []Operation {
	req := firstChild(capEl, "Request")
	if req == nil {
		return nil
	}
	var ops []Operation
	for _, el := range req.ChildElements() {
		op := Operation{Name: el.Tag, Parameters: map[string][]string{}}
		if rf := firstChild(el, "ResultFormat"); rf != nil {
			for _, f := range rf.ChildElements() {
				op.Parameters["outputFormat"] = append(op.Parameters["outputFormat"], f.Tag)
			}
		}
		ops = append(ops, op)
	}
	return ops
}

func parseFeatureType(el *etree.Element) FeatureType {
	ft := FeatureType{
		Name:     childText(el, "Name"),
		Title:    childText(el, "Title"),
		Abstract: childText(el, "Abstract"),
	}
	for _, tag := range []string{"DefaultCRS", "DefaultSRS", "SRS"} {
		if s := childText(el, tag); s != "" {
			ft.DefaultCRS = s
			break
		}
	}
	if bb := firstChild(el, "WGS84BoundingBox"); bb != nil {
		lo := parseCorner(childText(bb, "LowerCorner"))
		hi := parseCorner(childText(bb, "UpperCorner"))
		if lo != nil && hi != nil {
			ft.WGS84Bounds = &model.BBox{X1: lo[0], Y1: lo[1], X2: hi[0], Y2: hi[1]}
		}
	} else if bb := firstChild(el, "LatLongBoundingBox"); bb != nil {
		var v [4]float64
		ok := true
		for i, a := range []string{"minx", "miny", "maxx", "maxy"} {
			f, err := strconv.ParseFloat(bb.SelectAttrValue(a, ""), 64)
			if err != nil {
				ok = false
				break
			}
			v[i] = f
		}
		if ok {
			ft.WGS84Bounds = &model.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
		}
	}
	if ofs := firstChild(el, "OutputFormats"); ofs != nil {
		for _, f := range children(ofs, "Format") {
			if s := strings.TrimSpace(f.Text()); s != "" {
				ft.OutputFormats = append(ft.OutputFormats, s)
			}
		}
	}
	return ft
}

func parseCorner(s string) []float64 {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return nil
	}
	out := make([]float64, 2)
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil
		}
		out[i] = f
	}
	return out
}

// --- element helpers (match on local name, ignore prefixes) ---

func children(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

func firstChild(el *etree.Element, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

func childText(el *etree.Element, local string) string {
	if c := firstChild(el, local); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func descendants(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == local {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}
