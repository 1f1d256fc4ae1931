// Package wfstest runs a small in-process WFS for tests. It answers
// GetCapabilities and GetFeature for a single point dataset in GML 3.2 or
// GeoJSON, honours bbox filters and can demand basic auth.
package wfstest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const DefaultTypeName = "datasource-VIC_Govt_DELWP-VIC_Govt_DELWP:datavic_VMFEAT_CFA_FIRE_STATION"

type Feature struct {
	ID       string
	Name     string
	Lon, Lat float64
}

// FireStations is the default dataset.
var FireStations = []Feature{
	{ID: "fs.1", Name: "BALLARAT CITY", Lon: 143.8503, Lat: -37.5622},
	{ID: "fs.2", Name: "BENDIGO", Lon: 144.2794, Lat: -36.7570},
	{ID: "fs.3", Name: "GEELONG CITY", Lon: 144.3607, Lat: -38.1499},
	{ID: "fs.4", Name: "MILDURA", Lon: 142.1586, Lat: -34.1855},
	{ID: "fs.5", Name: "WODONGA", Lon: 146.8878, Lat: -36.1218},
	{ID: "fs.6", Name: "WARRNAMBOOL", Lon: 142.4838, Lat: -38.3818},
}

type Option func(*Server)

func WithCredentials(user, pass string) Option {
	return func(s *Server) { s.username, s.password = user, pass }
}

func WithFeatures(typeName string, fs []Feature) Option {
	return func(s *Server) { s.typeName, s.features = typeName, fs }
}

// WithExceptionsOn200 reports unknown type names inside a 200 response, the
// way some servers do.
func WithExceptionsOn200() Option {
	return func(s *Server) { s.exceptionsOn200 = true }
}

type Server struct {
	*httptest.Server

	typeName        string
	features        []Feature
	username        string
	password        string
	exceptionsOn200 bool

	FeatureHits atomic.Int64
	CapsHits    atomic.Int64

	mu   sync.Mutex
	last *http.Request
}

func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{typeName: DefaultTypeName, features: FireStations}
	for _, o := range opts {
		o(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) TypeName() string { return s.typeName }

func (s *Server) Features() []Feature { return s.features }

// LastRequest is the most recent request the server received.
func (s *Server) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Within returns the features inside bb (minx,miny,maxx,maxy), edges included.
func (s *Server) Within(minx, miny, maxx, maxy float64) []Feature {
	var out []Feature
	for _, f := range s.features {
		if f.Lon >= minx && f.Lon <= maxx && f.Lat >= miny && f.Lat <= maxy {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()

	if s.username != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != s.username || p != s.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="GeoServer Realm"`)
			http.Error(w, "HTTP Status 401 - Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	q := lowerKeys(r.URL.Query())
	switch strings.ToLower(q.Get("request")) {
	case "getcapabilities":
		s.CapsHits.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(s.capabilities()))
	case "getfeature":
		s.FeatureHits.Add(1)
		s.getFeature(w, q)
	default:
		writeException(w, http.StatusBadRequest, "OperationNotSupported", "request",
			fmt.Sprintf("Unknown operation %q", q.Get("request")))
	}
}

func (s *Server) getFeature(w http.ResponseWriter, q url.Values) {
	tn := q.Get("typenames")
	if tn == "" {
		tn = q.Get("typename")
	}
	if tn != s.typeName {
		status := http.StatusBadRequest
		if s.exceptionsOn200 {
			status = http.StatusOK
		}
		writeException(w, status, "InvalidParameterValue", "typeName",
			fmt.Sprintf("Feature type %s unknown", tn))
		return
	}

	fs := s.features
	if raw := q.Get("bbox"); raw != "" {
		v, err := parseBBox(raw)
		if err != nil {
			writeException(w, http.StatusBadRequest, "InvalidParameterValue", "bbox", err.Error())
			return
		}
		fs = s.Within(v[0], v[1], v[2], v[3])
	}

	switch of := strings.ToLower(q.Get("outputformat")); {
	case of == "" || strings.Contains(of, "gml"):
		w.Header().Set("Content-Type", "application/gml+xml; version=3.2")
		_, _ = w.Write(s.gml(fs))
	case strings.HasPrefix(of, "application/json"):
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		_, _ = w.Write(s.geojson(fs))
	default:
		writeException(w, http.StatusBadRequest, "InvalidParameterValue", "outputFormat",
			fmt.Sprintf("Failed to find response for output format %s", q.Get("outputformat")))
	}
}

func (s *Server) localName() string {
	if i := strings.LastIndexByte(s.typeName, ':'); i >= 0 {
		return s.typeName[i+1:]
	}
	return s.typeName
}

// gml writes points lat-first as EPSG::4326 in urn form requires.
func (s *Server) gml(fs []Feature) []byte {
	var b bytes.Buffer
	n := strconv.Itoa(len(fs))
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:gml="http://www.opengis.net/gml/3.2" xmlns:ds="datasource-VIC_Govt_DELWP"`)
	b.WriteString(` numberMatched="` + n + `" numberReturned="` + n + `" timeStamp="2024-05-01T00:00:00Z">` + "\n")
	ln := s.localName()
	for _, f := range fs {
		b.WriteString("  <wfs:member>\n")
		fmt.Fprintf(&b, "    <ds:%s gml:id=%q>\n", ln, f.ID)
		b.WriteString("      <ds:name>")
		_ = xml.EscapeText(&b, []byte(f.Name))
		b.WriteString("</ds:name>\n")
		fmt.Fprintf(&b, "      <ds:geom><gml:Point gml:id=\"%s.geom\" srsName=\"urn:ogc:def:crs:EPSG::4326\" srsDimension=\"2\"><gml:pos>%s %s</gml:pos></gml:Point></ds:geom>\n",
			f.ID, ftoa(f.Lat), ftoa(f.Lon))
		fmt.Fprintf(&b, "    </ds:%s>\n", ln)
		b.WriteString("  </wfs:member>\n")
	}
	b.WriteString("</wfs:FeatureCollection>\n")
	return b.Bytes()
}

func (s *Server) geojson(fs []Feature) []byte {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		gf := geojson.NewFeature(orb.Point{f.Lon, f.Lat})
		gf.ID = f.ID
		gf.Properties["name"] = f.Name
		fc.Append(gf)
	}
	fc.ExtraMembers = geojson.Properties{
		"totalFeatures":  len(fs),
		"numberMatched":  len(fs),
		"numberReturned": len(fs),
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		panic(err)
	}
	return b
}

func (s *Server) capabilities() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<wfs:WFS_Capabilities version="2.0.0" xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:ows="http://www.opengis.net/ows/1.1">
  <ows:ServiceIdentification><ows:Title>Test WFS</ows:Title></ows:ServiceIdentification>
  <ows:OperationsMetadata>
    <ows:Operation name="GetCapabilities"/>
    <ows:Operation name="DescribeFeatureType"/>
    <ows:Operation name="GetFeature">
      <ows:Parameter name="outputFormat">
        <ows:AllowedValues>
          <ows:Value>application/gml+xml; version=3.2</ows:Value>
          <ows:Value>text/xml; subtype=gml/3.2</ows:Value>
          <ows:Value>application/json</ows:Value>
        </ows:AllowedValues>
      </ows:Parameter>
    </ows:Operation>
  </ows:OperationsMetadata>
  <wfs:FeatureTypeList>
    <wfs:FeatureType>
      <wfs:Name>%s</wfs:Name>
      <wfs:Title>Fire stations</wfs:Title>
      <wfs:DefaultCRS>urn:ogc:def:crs:EPSG::4326</wfs:DefaultCRS>
      <ows:WGS84BoundingBox>
        <ows:LowerCorner>140.96 -39.13</ows:LowerCorner>
        <ows:UpperCorner>149.97 -33.98</ows:UpperCorner>
      </ows:WGS84BoundingBox>
    </wfs:FeatureType>
  </wfs:FeatureTypeList>
</wfs:WFS_Capabilities>
`, s.typeName)
}

func writeException(w http.ResponseWriter, status int, code, locator, text string) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1" version="2.0.0">` + "\n")
	fmt.Fprintf(&b, "  <ows:Exception exceptionCode=%q locator=%q>\n    <ows:ExceptionText>", code, locator)
	_ = xml.EscapeText(&b, []byte(text))
	b.WriteString("</ows:ExceptionText>\n  </ows:Exception>\n</ows:ExceptionReport>\n")
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write(b.Bytes())
}

func parseBBox(raw string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(raw, ",")
	if len(parts) < 4 {
		return out, fmt.Errorf("bbox %q needs four values", raw)
	}
	for i := range out {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return out, fmt.Errorf("bbox value %q: %v", parts[i], err)
		}
		out[i] = v
	}
	return out, nil
}

func lowerKeys(v url.Values) url.Values {
	out := url.Values{}
	for k, vs := range v {
		lk := strings.ToLower(k)
		out[lk] = append(out[lk], vs...)
	}
	return out
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
