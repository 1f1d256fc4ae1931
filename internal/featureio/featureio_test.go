package featureio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return b
}

func TestFileExt(t *testing.T) {
	cases := map[string]string{
		"":                                 ExtGML,
		"application/gml+xml; version=3.2": ExtGML,
		"GML2":                             ExtGML,
		"application/json":                 ExtGeoJSON,
		"json":                             ExtGeoJSON,
	}
	for in, want := range cases {
		if got := FileExt(in); got != want {
			t.Fatalf("FileExt(%q)=%q want %q", in, got, want)
		}
	}
}

func TestDecode_GML2(t *testing.T) {
	f, err := Decode(readFixture(t, "lga_gml2.xml"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("rows=%d want 2", f.Len())
	}
	want := []string{IDColumn, "lga_code", "lga_name", "postcode", "area_sqkm"}
	if diff := cmp.Diff(want, f.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}

	r := f.Rows[0]
	if r.ID != "lga_2016.1" || r.Props[IDColumn] != "lga_2016.1" {
		t.Fatalf("id=%q props=%v", r.ID, r.Props[IDColumn])
	}
	if r.Props["lga_code"] != int64(20660) || r.Props["area_sqkm"] != 37.36 {
		t.Fatalf("typed props: %#v", r.Props)
	}
	if r.Props["postcode"] != "0800" {
		t.Fatalf("postcode should keep leading zero: %#v", r.Props["postcode"])
	}
	if f.Rows[1].Props["area_sqkm"] != nil {
		t.Fatalf("empty element should be nil, got %#v", f.Rows[1].Props["area_sqkm"])
	}

	mp, ok := r.Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 1 || len(mp[0][0]) != 5 {
		t.Fatalf("geometry=%#v", r.Geometry)
	}
	// epsg.xml# form is lon,lat: no swap
	if !mp[0][0][0].Equal(orb.Point{144.9, -37.85}) {
		t.Fatalf("first vertex=%v", mp[0][0][0])
	}
}

func TestDecode_GML32(t *testing.T) {
	f, err := Decode(readFixture(t, "roads_gml32.xml"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("rows=%d want 3 (nested collection flattened)", f.Len())
	}
	if diff := cmp.Diff([]string{IDColumn, "highway", "name"}, f.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}

	ml, ok := f.Rows[0].Geometry.(orb.MultiLineString)
	if !ok || len(ml) != 1 || len(ml[0]) != 3 {
		t.Fatalf("row 0 geometry=%#v", f.Rows[0].Geometry)
	}
	// urn EPSG::4326 is lat,lon on the wire
	if !ml[0][0].Equal(orb.Point{144.95, -37.80}) {
		t.Fatalf("axis order not swapped: %v", ml[0][0])
	}

	ls, ok := f.Rows[1].Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("row 1 geometry=%#v", f.Rows[1].Geometry)
	}
	want := orb.LineString{{145.00, -37.70}, {145.01, -37.71}, {145.02, -37.72}}
	if !ls.Equal(want) {
		t.Fatalf("curve=%v want %v", ls, want)
	}

	mp, ok := f.Rows[2].Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 1 || len(mp[0]) != 2 {
		t.Fatalf("row 2 geometry=%#v", f.Rows[2].Geometry)
	}
	if !mp[0][1][0].Equal(orb.Point{144.945, -37.785}) {
		t.Fatalf("interior ring vertex=%v", mp[0][1][0])
	}
}

func TestDecode_GeoJSON(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","totalFeatures":2,"features":[
		{"type":"Feature","id":"fs.1","geometry":{"type":"Point","coordinates":[143.85,-37.56]},"geometry_name":"geom","properties":{"name":"BALLARAT","staffed":true}},
		{"type":"Feature","id":"fs.2","geometry":null,"properties":{"name":"UNKNOWN"}}
	],"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::4326"}}}`)
	f, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Len() != 2 || f.Rows[0].ID != "fs.1" {
		t.Fatalf("rows=%d id=%q", f.Len(), f.Rows[0].ID)
	}
	if p, ok := f.Rows[0].Geometry.(orb.Point); !ok || !p.Equal(orb.Point{143.85, -37.56}) {
		t.Fatalf("geometry=%#v", f.Rows[0].Geometry)
	}
	if f.Rows[1].Geometry != nil {
		t.Fatalf("null geometry should decode to nil")
	}
	if diff := cmp.Diff([]string{"name", "staffed"}, f.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
}

func TestDecode_Rejects(t *testing.T) {
	if _, err := Decode([]byte("   ")); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("blank: %v", err)
	}
	if _, err := Decode([]byte("name,geom\n")); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("csv: %v", err)
	}
	exc := []byte(`<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1"><ows:Exception exceptionCode="NoApplicableCode"><ows:ExceptionText>boom</ows:ExceptionText></ows:Exception></ows:ExceptionReport>`)
	if _, err := Decode(exc); err == nil {
		t.Fatal("exception report must not decode as features")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"lga_gml2.xml", "roads_gml32.xml"} {
		body := readFixture(t, name)
		mem, err := Decode(body)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}

		path := filepath.Join(dir, "nested", name+ExtGML)
		n, err := Save(path, bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s save: %v", name, err)
		}
		if n != int64(len(body)) {
			t.Fatalf("%s wrote %d of %d bytes", name, n, len(body))
		}
		onDisk, err := os.ReadFile(path)
		if err != nil || !bytes.Equal(onDisk, body) {
			t.Fatalf("%s: file is not byte-identical (err=%v)", name, err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("%s load: %v", name, err)
		}
		if loaded.Len() != mem.Len() {
			t.Fatalf("%s: loaded %d features, decoded %d", name, loaded.Len(), mem.Len())
		}
	}
}

func TestLatFirst(t *testing.T) {
	cases := map[string]bool{
		"urn:ogc:def:crs:EPSG::4326":                 true,
		"urn:x-ogc:def:crs:EPSG:4283":                true,
		"http://www.opengis.net/def/crs/EPSG/0/4326": true,
		"EPSG:4326": false,
		"http://www.opengis.net/gml/srs/epsg.xml#4326": false,
		"urn:ogc:def:crs:EPSG::3857":                   false,
		"": false,
	}
	for srs, want := range cases {
		if got := latFirst(srs); got != want {
			t.Fatalf("latFirst(%q)=%v want %v", srs, got, want)
		}
	}
}

func TestDecode_GMLAttributeMentioningException(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:gml="http://www.opengis.net/gml/3.2" xmlns:ds="urn:ds">
  <wfs:member>
    <ds:import_log gml:id="log.1">
      <ds:msg>parser raised ExceptionReport on line 3</ds:msg>
    </ds:import_log>
  </wfs:member>
</wfs:FeatureCollection>`)
	f, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Len() != 1 || f.Rows[0].Props["msg"] != "parser raised ExceptionReport on line 3" {
		t.Fatalf("rows=%+v", f.Rows)
	}
}
