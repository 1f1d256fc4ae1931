// Package mapview renders features as a static SVG plot or an interactive
// Leaflet map in a single HTML file.
package mapview

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/frame"
)

const (
	// centre of Australia
	DefaultLat  = -23.43046
	DefaultLng  = 133.60348
	DefaultZoom = 4

	BBoxZoom      = 15
	BoxLayerName  = "box"
	BoxLayerColor = "yellow"
)

var palette = []string{"#3388ff", "#e4572e", "#17bebb", "#76b041", "#a846a0", "#ffc914"}

type Layer struct {
	Name  string
	Color string
	Data  *geojson.FeatureCollection
}

type Map struct {
	Title  string
	Lat    float64
	Lng    float64
	Zoom   int
	Tiles  string
	Layers []Layer
}

// DefaultMap is centred on Australia.
func DefaultMap() *Map {
	return &Map{Title: "ADP", Lat: DefaultLat, Lng: DefaultLng, Zoom: DefaultZoom, Tiles: DefaultTiles}
}

// ForBBox centres on the bbox centroid at street zoom and draws the bbox
// as a yellow "box" layer.
func ForBBox(bb model.BBox) *Map {
	m := DefaultMap()
	x, y := bb.Center()
	m.Lat, m.Lng, m.Zoom = y, x, BBoxZoom

	ring := orb.Ring{{bb.X1, bb.Y1}, {bb.X2, bb.Y1}, {bb.X2, bb.Y2}, {bb.X1, bb.Y2}, {bb.X1, bb.Y1}}
	fc := geojson.NewFeatureCollection()
	box := geojson.NewFeature(orb.Polygon{ring})
	box.Properties["bbox"] = bb.String()
	fc.Append(box)
	m.AddLayer(BoxLayerName, BoxLayerColor, fc)
	return m
}

// AddLayer appends a GeoJSON layer. An empty color picks the next palette
// colour.
func (m *Map) AddLayer(name, color string, fc *geojson.FeatureCollection) {
	if color == "" {
		color = palette[len(m.Layers)%len(palette)]
	}
	m.Layers = append(m.Layers, Layer{Name: name, Color: color, Data: fc})
}

func (m *Map) AddFrame(name, color string, f *frame.Frame) {
	m.AddLayer(name, color, f.GeoJSON())
}

type layerView struct {
	Name  string
	Color string
	Data  template.JS
}

type mapView struct {
	Title  string
	Lat    float64
	Lng    float64
	Zoom   int
	Tiles  Tiles
	Layers []layerView
}

// Render writes the map as a standalone HTML page.
func (m *Map) Render(w io.Writer) error {
	tiles, err := TilesByName(m.Tiles)
	if err != nil {
		return err
	}
	v := mapView{Title: m.Title, Lat: m.Lat, Lng: m.Lng, Zoom: m.Zoom, Tiles: tiles}
	for _, l := range m.Layers {
		fc := l.Data
		if fc == nil {
			fc = geojson.NewFeatureCollection()
		}
		// json.Marshal escapes <, > and & so the data is safe inside <script>
		b, err := json.Marshal(fc)
		if err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		v.Layers = append(v.Layers, layerView{Name: l.Name, Color: l.Color, Data: template.JS(b)})
	}
	if err := mapTemplate.Execute(w, v); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

func (m *Map) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := m.Render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.Lat}}, {{.Lng}}], {{.Zoom}});
L.tileLayer({{.Tiles.URL}}, {attribution: {{.Tiles.Attribution}}, maxZoom: {{.Tiles.MaxZoom}}}).addTo(map);

function popup(feature, layer) {
  var p = feature.properties || {};
  var rows = Object.keys(p).map(function (k) {
    var td = document.createElement("td");
    td.textContent = p[k];
    return "<tr><th>" + k.replace(/</g, "&lt;") + "</th>" + td.outerHTML + "</tr>";
  });
  if (rows.length) {
    layer.bindPopup("<table>" + rows.join("") + "</table>");
  }
}

var overlays = {};
{{range .Layers}}
overlays[{{.Name}}] = L.geoJSON({{.Data}}, {
  style: {color: {{.Color}}, fillColor: {{.Color}}, weight: 2, fillOpacity: 0.35},
  pointToLayer: function (f, ll) { return L.circleMarker(ll, {radius: 5}); },
  onEachFeature: popup
}).addTo(map);
{{end}}
L.control.layers(null, overlays).addTo(map);
</script>
</body>
</html>
`))
