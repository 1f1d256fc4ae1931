package featureio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/ogc"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

// IDColumn carries gml:id (or GML2 fid) of each feature.
const IDColumn = "gml_id"

// DecodeGML reads a WFS FeatureCollection in GML 2, 3.1 or 3.2.
func DecodeGML(b []byte) (*frame.Frame, error) {
	if rep, ok := ogc.ParseExceptionReport(b); ok {
		return nil, fmt.Errorf("gml: server exception: %w", rep)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("gml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("gml: empty document")
	}

	var feats []*etree.Element
	if isCollection(root) {
		feats = collectMembers(root)
	} else {
		// a bare feature
		feats = []*etree.Element{root}
	}

	cols := []string{IDColumn}
	seen := map[string]struct{}{IDColumn: {}}
	rows := make([]frame.Row, 0, len(feats))
	for _, fe := range feats {
		row, order := decodeFeature(fe)
		for _, c := range order {
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				cols = append(cols, c)
			}
		}
		rows = append(rows, row)
	}
	return frame.New(cols, rows), nil
}

func isCollection(el *etree.Element) bool {
	return el.Tag == "FeatureCollection" || el.Tag == "AdditionalObjects" || el.Tag == "SimpleFeatureCollection"
}

// collectMembers flattens wfs:member, gml:featureMember and
// gml:featureMembers, descending into nested collections.
func collectMembers(coll *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, ch := range coll.ChildElements() {
		switch ch.Tag {
		case "member", "featureMember", "featureMembers", "additionalObjects":
			for _, f := range ch.ChildElements() {
				if isCollection(f) {
					out = append(out, collectMembers(f)...)
					continue
				}
				out = append(out, f)
			}
		}
	}
	return out
}

func decodeFeature(fe *etree.Element) (frame.Row, []string) {
	id := featureElementID(fe)
	row := frame.Row{ID: id, Props: map[string]any{IDColumn: id}}
	var order []string

	for _, ch := range fe.ChildElements() {
		if ch.Tag == "boundedBy" || (ch.Tag == "location" && ch.Space == "gml") {
			continue
		}
		if kids := ch.ChildElements(); len(kids) > 0 {
			if g, ok := geometryOf(kids[0], ""); ok {
				if row.Geometry == nil {
					row.Geometry = g
				}
				continue
			}
		}
		if _, dup := row.Props[ch.Tag]; !dup {
			order = append(order, ch.Tag)
		}
		row.Props[ch.Tag] = scalar(ch)
	}
	return row, order
}

func featureElementID(el *etree.Element) string {
	var fid string
	for _, a := range el.Attr {
		switch a.Key {
		case "id":
			return a.Value
		case "fid":
			fid = a.Value
		}
	}
	return fid
}

// scalar types an attribute's text the way a table reader would.
func scalar(el *etree.Element) any {
	if strings.EqualFold(el.SelectAttrValue("xsi:nil", ""), "true") {
		return nil
	}
	s := strings.TrimSpace(el.Text())
	if s == "" {
		return nil
	}
	if keepAsText(s) {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// codes such as postcodes keep their leading zeros
func keepAsText(s string) bool {
	d := strings.TrimPrefix(s, "-")
	if len(d) > 1 && d[0] == '0' && d[1] != '.' {
		return true
	}
	// hex, inf and nan parse as floats but are labels here
	l := strings.ToLower(d)
	return strings.HasPrefix(l, "0x") || strings.HasPrefix(l, "inf") || strings.HasPrefix(l, "nan")
}
