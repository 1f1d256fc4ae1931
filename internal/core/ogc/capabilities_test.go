package ogc

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return b
}

func TestParseCapabilities_200(t *testing.T) {
	caps, err := ParseCapabilities(readFixture(t, "capabilities_200.xml"))
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	if caps.Version != "2.0.0" {
		t.Fatalf("version=%q", caps.Version)
	}
	if caps.Title != "AURIN Data Provider" {
		t.Fatalf("title=%q", caps.Title)
	}

	wantOps := []string{"GetCapabilities", "DescribeFeatureType", "GetFeature", "GetPropertyValue"}
	if diff := cmp.Diff(wantOps, caps.OperationNames()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	if len(caps.FeatureTypes) != 2 {
		t.Fatalf("feature types=%d want 2", len(caps.FeatureTypes))
	}
	fire, ok := caps.FeatureType("datasource-VIC_Govt_DELWP-VIC_Govt_DELWP:datavic_VMFEAT_CFA_FIRE_STATION")
	if !ok {
		t.Fatal("fire station feature type not found")
	}
	wantBounds := &model.BBox{X1: 140.96, Y1: -39.13, X2: 149.97, Y2: -33.98}
	if diff := cmp.Diff(wantBounds, fire.WGS84Bounds); diff != "" {
		t.Fatalf("bounds mismatch (-want +got):\n%s", diff)
	}
	if fire.DefaultCRS != "urn:ogc:def:crs:EPSG::4326" {
		t.Fatalf("default crs=%q", fire.DefaultCRS)
	}
}

func TestCapabilities_OutputFormats(t *testing.T) {
	caps, err := ParseCapabilities(readFixture(t, "capabilities_200.xml"))
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	want := []string{
		"application/gml+xml; version=3.2",
		"GML2",
		"application/json",
		"csv",
		"application/vnd.google-earth.kml+xml",
	}
	if diff := cmp.Diff(want, caps.OutputFormats()); diff != "" {
		t.Fatalf("formats mismatch (-want +got):\n%s", diff)
	}
	if !caps.SupportsOutputFormat("APPLICATION/JSON") {
		t.Fatal("json must be supported (case-insensitive)")
	}
	if caps.SupportsOutputFormat("shape-zip") {
		t.Fatal("shape-zip is not advertised")
	}

	op, ok := caps.Operation("GetFeature")
	if !ok {
		t.Fatal("GetFeature missing")
	}
	if got := op.Parameters["version"]; len(got) != 1 || got[0] != "2.0.0" {
		t.Fatalf("global parameter not propagated: %v", got)
	}
}

func TestParseCapabilities_100(t *testing.T) {
	caps, err := ParseCapabilities(readFixture(t, "capabilities_100.xml"))
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	if diff := cmp.Diff([]string{"GetCapabilities", "DescribeFeatureType", "GetFeature"}, caps.OperationNames()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
	if !caps.SupportsOutputFormat("JSON") || caps.SupportsOutputFormat("csv") {
		t.Fatalf("unexpected format support: %v", caps.OutputFormats())
	}
	ft := caps.FeatureTypes[0]
	if ft.DefaultCRS != "EPSG:4326" || ft.WGS84Bounds == nil || ft.WGS84Bounds.X1 != -124.73 {
		t.Fatalf("unexpected feature type: %+v", ft)
	}
}

func TestParseCapabilities_NoFormatsMeansAnything(t *testing.T) {
	caps, err := ParseCapabilities([]byte(`<WFS_Capabilities version="2.0.0"/>`))
	if err != nil {
		t.Fatalf("ParseCapabilities: %v", err)
	}
	if !caps.SupportsOutputFormat("anything") {
		t.Fatal("with no advertised formats every format is accepted")
	}
}

func TestParseCapabilities_Exception(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1" version="2.0.0">
  <ows:Exception exceptionCode="InvalidParameterValue" locator="version">
    <ows:ExceptionText>Unsupported version 9.9.9</ows:ExceptionText>
  </ows:Exception>
</ows:ExceptionReport>`)
	_, err := ParseCapabilities(body)
	var rep *ExceptionReport
	if !errors.As(err, &rep) {
		t.Fatalf("expected *ExceptionReport, got %T %v", err, err)
	}
}

func TestParseCapabilities_Garbage(t *testing.T) {
	if _, err := ParseCapabilities([]byte("not xml")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseCapabilities([]byte(`<html><body>login</body></html>`)); err == nil {
		t.Fatal("expected error for non-capabilities root")
	}
}
