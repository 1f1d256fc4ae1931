package featureio_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/httpclient"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/ogc"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/wfsclient"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/wfsclient/wfstest"
	"github.com/mohammed-shakir/adp-wfs-client/internal/featureio"
)

func fetch(t *testing.T, srv *wfstest.Server, q model.FeatureQuery) []byte {
	t.Helper()
	conn, err := model.NewConnParams(srv.URL+"/geoserver/wfs", "", "", "")
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	c, err := wfsclient.New(slog.Default(), httpclient.NewOutbound(5*time.Second), conn)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	b, err := c.Fetch(context.Background(), q)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return b
}

func TestFetchedResponses_Decode(t *testing.T) {
	srv := wfstest.New(t)
	for _, of := range []string{"", ogc.FormatGeoJSON} {
		b := fetch(t, srv, model.FeatureQuery{TypeName: srv.TypeName(), OutputFormat: of})
		f, err := featureio.Decode(b)
		if err != nil {
			t.Fatalf("format %q: decode: %v", of, err)
		}
		if f.Len() != len(srv.Features()) {
			t.Fatalf("format %q: rows=%d want %d", of, f.Len(), len(srv.Features()))
		}
		bound, ok := f.Bound()
		if !ok || bound.Min[0] < 140 || bound.Max[0] > 150 {
			t.Fatalf("format %q: bound %v is not lon-first Victoria", of, bound)
		}
	}
}

func TestFetchedBBox_EveryFeatureIntersects(t *testing.T) {
	srv := wfstest.New(t)
	bb := model.BBox{X1: 143.5, Y1: -38.5, X2: 144.5, Y2: -36.5}

	for _, of := range []string{"", ogc.FormatGeoJSON} {
		b := fetch(t, srv, model.FeatureQuery{TypeName: srv.TypeName(), OutputFormat: of, BBox: &bb})
		f, err := featureio.Decode(b)
		if err != nil {
			t.Fatalf("format %q: decode: %v", of, err)
		}
		if f.Len() == 0 {
			t.Fatalf("format %q: expected features inside the bbox", of)
		}
		if got := f.Intersecting(bb).Len(); got != f.Len() {
			t.Fatalf("format %q: %d of %d features intersect the bbox", of, got, f.Len())
		}
	}
}

func TestFetched_SaveLoadRoundTrip(t *testing.T) {
	srv := wfstest.New(t)
	dir := t.TempDir()

	for _, of := range []string{"", ogc.FormatGeoJSON} {
		b := fetch(t, srv, model.FeatureQuery{TypeName: srv.TypeName(), OutputFormat: of})
		mem, err := featureio.Decode(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		path := filepath.Join(dir, "fire_station"+featureio.FileExt(of))
		if _, err := featureio.Save(path, bytes.NewReader(b)); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := featureio.Load(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.Len() != mem.Len() {
			t.Fatalf("format %q: loaded %d, decoded %d", of, loaded.Len(), mem.Len())
		}
	}
}
