// Package model defines core domain types shared across the client.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const DefaultVersion = "2.0.0"

// ConnParams holds what is needed to reach a WFS endpoint.
type ConnParams struct {
	BaseURL  string
	Version  string
	Username string
	Password string
}

func NewConnParams(baseURL, version, username, password string) (ConnParams, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ConnParams{}, errors.New("base url is required")
	}
	v := strings.TrimSpace(version)
	if v == "" {
		v = DefaultVersion
	}
	switch v {
	case "1.0.0", "1.1.0", "2.0.0":
	default:
		return ConnParams{}, fmt.Errorf("unsupported WFS version %q (want 1.0.0|1.1.0|2.0.0)", v)
	}
	return ConnParams{
		BaseURL:  baseURL,
		Version:  v,
		Username: username,
		Password: password,
	}, nil
}

// HasCredentials reports whether basic auth should be sent.
func (c ConnParams) HasCredentials() bool {
	return c.Username != ""
}

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs bbox format: minx,miny,maxx,maxy[,crs]
func (b BBox) String() string {
	parts := []string{
		formatCoord(b.X1),
		formatCoord(b.Y1),
		formatCoord(b.X2),
		formatCoord(b.Y2),
	}
	if srid := strings.TrimSpace(b.SRID); srid != "" {
		parts = append(parts, srid)
	}
	return strings.Join(parts, ",")
}

func (b BBox) Validate() error {
	for i, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("coordinate %d is not a finite number", i)
		}
	}
	if b.X1 > b.X2 || b.Y1 > b.Y2 {
		return errors.New("coordinates must satisfy minx<=maxx and miny<=maxy")
	}
	return nil
}

// Center returns the midpoint as (x, y).
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// ParseBBox accepts "minx,miny,maxx,maxy" with an optional trailing CRS.
func ParseBBox(raw string) (BBox, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 4 && len(parts) != 5 {
		return BBox{}, errors.New("expected 4 or 5 comma-separated values: minx,miny,maxx,maxy[,crs]")
	}
	names := [4]string{"minx", "miny", "maxx", "maxy"}
	var vals [4]float64
	for i := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%s: parse float: %w", names[i], err)
		}
		vals[i] = f
	}
	bb := BBox{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if len(parts) == 5 {
		bb.SRID = strings.TrimSpace(parts[4])
		if bb.SRID == "" {
			return BBox{}, errors.New("crs must not be empty when given")
		}
	}
	if err := bb.Validate(); err != nil {
		return BBox{}, err
	}
	return bb, nil
}

// FeatureQuery selects one dataset, optionally encoded and spatially filtered.
type FeatureQuery struct {
	TypeName     string
	OutputFormat string
	BBox         *BBox
}

func (q FeatureQuery) Validate() error {
	if strings.TrimSpace(q.TypeName) == "" {
		return errors.New("type name is required")
	}
	if q.BBox != nil {
		if err := q.BBox.Validate(); err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
