// Package ogc builds OGC WFS requests and reads the XML documents a WFS
// answers with (capabilities and exception reports).
package ogc

import (
	"net/url"
	"path"
	"strings"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
)

const (
	FormatGeoJSON = "application/json"
	FormatGML32   = "application/gml+xml; version=3.2"
)

// Endpoint returns the KVP endpoint for a server base url. A base that
// already points at a /wfs or /ows service, or carries its own query
// (MapServer map=...), is used as is.
func Endpoint(base string) string {
	base = strings.TrimSpace(base)
	u, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/")
	}
	if u.RawQuery != "" {
		return base
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	switch strings.ToLower(path.Base(u.Path)) {
	case "wfs", "ows":
		return u.String()
	}
	u.Path += "/ows"
	return u.String()
}

func BuildGetFeatureParams(version string, q model.FeatureQuery) url.Values {
	if version == "" {
		version = model.DefaultVersion
	}
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", version)
	params.Set("request", "GetFeature")
	// 2.0.0 renamed typeName to typeNames
	if version == "2.0.0" {
		params.Set("typeNames", strings.TrimSpace(q.TypeName))
	} else {
		params.Set("typeName", strings.TrimSpace(q.TypeName))
	}
	if q.BBox != nil {
		params.Set("bbox", q.BBox.String())
	}
	if of := strings.TrimSpace(q.OutputFormat); of != "" {
		params.Set("outputFormat", of)
	}
	return params
}

func BuildGetCapabilitiesParams(version string) url.Values {
	if version == "" {
		version = model.DefaultVersion
	}
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", version)
	params.Set("request", "GetCapabilities")
	return params
}

// IsJSONFormat reports whether an outputFormat value selects GeoJSON.
func IsJSONFormat(outputFormat string) bool {
	of := strings.ToLower(strings.TrimSpace(outputFormat))
	return of == "json" ||
		of == "geojson" ||
		strings.HasPrefix(of, "application/json") ||
		strings.HasPrefix(of, "application/geo+json")
}
