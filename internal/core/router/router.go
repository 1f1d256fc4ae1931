// Package router exposes the feature request client over HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/observability"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/ogc"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/wfsclient"
	"github.com/mohammed-shakir/adp-wfs-client/internal/featureio"
)

// FeatureSource is the part of *wfsclient.Client the gateway needs.
type FeatureSource interface {
	Open(ctx context.Context, q model.FeatureQuery) (*wfsclient.Stream, error)
	Contents(ctx context.Context) ([]ogc.FeatureType, error)
}

var _ FeatureSource = (*wfsclient.Client)(nil)

// HandleFeatures streams a GetFeature response body verbatim.
func HandleFeatures(logger *slog.Logger, src FeatureSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/features", sw.code, time.Since(start).Seconds())
		}()

		q, err := ParseFeatureQuery(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		s, err := src.Open(r.Context(), q)
		if err != nil {
			writeError(r.Context(), logger, sw, err)
			return
		}
		defer func() { _ = s.Close() }()

		ct := s.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		sw.Header().Set("Content-Type", ct)
		sw.Header().Set("Content-Disposition",
			fmt.Sprintf("inline; filename=%q", fileName(q)))
		if s.FromCache {
			sw.Header().Set("X-Cache", "HIT")
		} else {
			sw.Header().Set("X-Cache", "MISS")
		}
		sw.WriteHeader(http.StatusOK)
		if _, err := io.Copy(sw, s); err != nil {
			// headers are gone; the client sees a truncated body
			logger.WarnContext(r.Context(), "stream features", "err", err)
		}
	}
}

// HandleCapabilities lists the advertised datasets as JSON.
func HandleCapabilities(logger *slog.Logger, src FeatureSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/capabilities", sw.code, time.Since(start).Seconds())
		}()

		fts, err := src.Contents(r.Context())
		if err != nil {
			writeError(r.Context(), logger, sw, err)
			return
		}
		sw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(sw).Encode(struct {
			FeatureTypes []ogc.FeatureType `json:"featureTypes"`
		}{fts})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseFeatureQuery reads typename (or typeNames), outputFormat and bbox.
// Parameter names match case-insensitively like a WFS does.
func ParseFeatureQuery(r *http.Request) (model.FeatureQuery, error) {
	params := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[strings.ToLower(k)] = strings.TrimSpace(vs[0])
		}
	}

	tn := params["typename"]
	if tn == "" {
		tn = params["typenames"]
	}
	if tn == "" {
		return model.FeatureQuery{}, errors.New("missing required parameter: typename")
	}
	q := model.FeatureQuery{TypeName: tn, OutputFormat: params["outputformat"]}

	if raw := params["bbox"]; raw != "" {
		bb, err := model.ParseBBox(raw)
		if err != nil {
			return model.FeatureQuery{}, fmt.Errorf("invalid bbox: %w", err)
		}
		q.BBox = &bb
	}
	return q, nil
}

// StatusFor maps a client error to the gateway's response status.
func StatusFor(err error) int {
	re, ok := wfsclient.AsRequestError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch re.Kind {
	case wfsclient.KindInvalidQuery:
		return http.StatusBadRequest
	case wfsclient.KindAuth, wfsclient.KindServer:
		return http.StatusBadGateway
	case wfsclient.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}
	if re, ok := wfsclient.AsRequestError(err); ok {
		body.Kind = re.Kind.String()
		body.UpstreamStatus = re.StatusCode
	}
	if status >= 500 {
		logger.WarnContext(ctx, "wfs request failed", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fileName(q model.FeatureQuery) string {
	name := q.TypeName
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	name = path.Base(strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name))
	return name + featureio.FileExt(q.OutputFormat)
}
