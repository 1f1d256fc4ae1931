package model

import (
	"math"
	"testing"
)

func TestParseBBox_Valid(t *testing.T) {
	bb, err := ParseBBox("144.951425,-37.821684,144.976358,-37.806563")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := BBox{X1: 144.951425, Y1: -37.821684, X2: 144.976358, Y2: -37.806563}
	if bb != want {
		t.Fatalf("got %+v want %+v", bb, want)
	}
}

func TestParseBBox_WithCRS(t *testing.T) {
	bb, err := ParseBBox("11,55,12,56, EPSG:4326 ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if bb.SRID != "EPSG:4326" {
		t.Fatalf("srid=%q want EPSG:4326", bb.SRID)
	}
}

func TestParseBBox_Invalid(t *testing.T) {
	cases := map[string]string{
		"too few":      "1,2,3",
		"not a number": "a,2,3,4",
		"inverted x":   "5,0,1,1",
		"inverted y":   "0,5,1,1",
		"empty crs":    "0,0,1,1,",
		"nan":          "NaN,0,1,1",
		"inf":          "0,0,+Inf,1",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseBBox(raw); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		})
	}
}

func TestBBox_DegenerateIsValid(t *testing.T) {
	bb := BBox{X1: 1, Y1: 1, X2: 1, Y2: 1}
	if err := bb.Validate(); err != nil {
		t.Fatalf("min==max must be accepted: %v", err)
	}
}

func TestBBox_String(t *testing.T) {
	bb := BBox{X1: 144.951425, Y1: -37.821684, X2: 144.976358, Y2: -37.806563}
	if got, want := bb.String(), "144.951425,-37.821684,144.976358,-37.806563"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	bb.SRID = "EPSG:4326"
	if got, want := bb.String(), "144.951425,-37.821684,144.976358,-37.806563,EPSG:4326"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFeatureQuery_Validate(t *testing.T) {
	if err := (FeatureQuery{}).Validate(); err == nil {
		t.Fatal("expected error for empty type name")
	}
	if err := (FeatureQuery{TypeName: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank type name")
	}
	bad := &BBox{X1: math.NaN()}
	if err := (FeatureQuery{TypeName: "a:b", BBox: bad}).Validate(); err == nil {
		t.Fatal("expected error for NaN bbox")
	}
	if err := (FeatureQuery{TypeName: "a:b"}).Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestNewConnParams(t *testing.T) {
	cp, err := NewConnParams("https://adp.aurin.org.au/geoserver/wfs", "", "u", "p")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cp.Version != DefaultVersion {
		t.Fatalf("version=%q want %q", cp.Version, DefaultVersion)
	}
	if !cp.HasCredentials() {
		t.Fatal("expected credentials")
	}
	if _, err := NewConnParams("", "2.0.0", "", ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewConnParams("http://x", "3.0.0", "", ""); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}
