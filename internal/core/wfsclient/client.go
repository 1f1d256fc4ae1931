// Package wfsclient issues WFS GetFeature and GetCapabilities requests and
// hands back the server's bytes untouched.
package wfsclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/adp-wfs-client/internal/cache"
	"github.com/mohammed-shakir/adp-wfs-client/internal/cache/keys"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/observability"
	"github.com/mohammed-shakir/adp-wfs-client/internal/core/ogc"
	"github.com/mohammed-shakir/adp-wfs-client/internal/logger"
)

const (
	OpGetFeature      = "GetFeature"
	OpGetCapabilities = "GetCapabilities"

	upstreamLabel = "wfs"

	// bounds reads of bodies that are only parsed for an error message
	errBodyLimit = 64 << 10
	// capabilities documents of large catalogues run to tens of megabytes
	capsBodyLimit = 64 << 20
	sniffLen      = 1024
)

type Option func(*Client)

// WithCapabilitiesTTL sets how long a capabilities document is reused for
// output format checks and listings. Zero keeps it for the client lifetime.
func WithCapabilitiesTTL(d time.Duration) Option {
	return func(c *Client) { c.capsTTL = d }
}

// WithCache enables a read-through cache of complete GetFeature bodies.
func WithCache(store cache.Interface, ttl time.Duration) Option {
	return func(c *Client) {
		c.store = store
		c.cacheTTL = ttl
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

type Client struct {
	logger    *slog.Logger
	http      *http.Client
	conn      model.ConnParams
	endpoint  *url.URL
	userAgent string

	capsTTL time.Duration
	caps    *expirable.LRU[string, *ogc.Capabilities]

	store    cache.Interface
	cacheTTL time.Duration

	startNow func() time.Time // for tests
}

func New(log *slog.Logger, httpClient *http.Client, conn model.ConnParams, opts ...Option) (*Client, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u, err := url.Parse(ogc.Endpoint(conn.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse wfs url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("wfs url must be http or https, got %q", conn.BaseURL)
	}
	if conn.Version == "" {
		conn.Version = model.DefaultVersion
	}

	c := &Client{
		logger:    log,
		http:      httpClient,
		conn:      conn,
		endpoint:  u,
		userAgent: "adp-wfs-client",
		capsTTL:   10 * time.Minute,
		startNow:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.caps = expirable.NewLRU[string, *ogc.Capabilities](4, nil, c.capsTTL)
	return c, nil
}

// Endpoint is the resolved KVP endpoint.
func (c *Client) Endpoint() string { return c.endpoint.String() }

func (c *Client) Version() string { return c.conn.Version }

// Stream is an open GetFeature response that passed every error check.
// The caller must Close it.
type Stream struct {
	ContentType string
	Body        io.Reader
	FromCache   bool

	closer io.Closer
	n      int64
}

// Read fails with a KindNetwork RequestError when the body breaks off.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.Body.Read(p)
	s.n += int64(n)
	if err != nil && err != io.EOF {
		err = readError(err)
	}
	return n, err
}

func readError(err error) error {
	if _, ok := AsRequestError(err); ok {
		return err
	}
	observability.IncWFSRequest(OpGetFeature, KindNetwork.String())
	return &RequestError{Op: OpGetFeature, Kind: KindNetwork, Message: "read body: " + err.Error(), Err: err}
}

func (s *Stream) Close() error {
	observability.AddWFSResponseBytes(OpGetFeature, s.n)
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Fetch returns the complete GetFeature response body.
func (c *Client) Fetch(ctx context.Context, q model.FeatureQuery) ([]byte, error) {
	s, err := c.Open(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	b, err := io.ReadAll(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FetchTo streams the GetFeature response body verbatim into w.
func (c *Client) FetchTo(ctx context.Context, q model.FeatureQuery, w io.Writer) (int64, error) {
	s, err := c.Open(ctx, q)
	if err != nil {
		return 0, err
	}
	defer func() { _ = s.Close() }()

	n, err := io.Copy(w, s)
	if err != nil {
		if re, ok := AsRequestError(err); ok {
			return n, re
		}
		return n, c.fail(&RequestError{Op: OpGetFeature, Kind: KindNetwork, Message: "write body: " + err.Error(), Err: err})
	}
	return n, nil
}

// Open validates q, performs GetFeature and returns the response once the
// status and the head of the body show it is not an error.
func (c *Client) Open(ctx context.Context, q model.FeatureQuery) (*Stream, error) {
	ctx = logger.WithOperation(ctx, OpGetFeature)
	ctx = logger.WithTypeName(ctx, q.TypeName)

	if err := q.Validate(); err != nil {
		return nil, c.fail(invalidQuery(OpGetFeature, err))
	}
	if of := strings.TrimSpace(q.OutputFormat); of != "" {
		caps, err := c.Capabilities(ctx)
		if err != nil {
			return nil, err
		}
		if !caps.SupportsOutputFormat(of) {
			return nil, c.fail(invalidQuery(OpGetFeature,
				fmt.Errorf("output format %q is not advertised by the server (have: %s)",
					of, strings.Join(caps.OutputFormats(), ", "))))
		}
	}

	params := ogc.BuildGetFeatureParams(c.conn.Version, q)

	var key string
	if c.store != nil {
		key = keys.Key(c.endpoint.String(), params, keys.Principal(c.conn.Username, c.conn.Password))
		if s, ok := c.cached(ctx, key); ok {
			return s, nil
		}
	}

	resp, err := c.do(ctx, OpGetFeature, params, acceptFor(q.OutputFormat))
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(resp.Body, 4096)
	head, _ := br.Peek(sniffLen)
	if ogc.LooksLikeException(head) {
		b, _ := io.ReadAll(io.LimitReader(br, errBodyLimit))
		_ = resp.Body.Close()
		return nil, c.fail(serverError(OpGetFeature, resp.StatusCode, b))
	}
	observability.IncWFSRequest(OpGetFeature, "ok")

	ct := resp.Header.Get("Content-Type")
	if c.store == nil {
		return &Stream{ContentType: ct, Body: br, closer: resp.Body}, nil
	}

	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(br)
	if err != nil {
		return nil, readError(err)
	}
	if err := c.store.Set(ctx, key, encodeCached(ct, b), c.cacheTTL); err != nil {
		c.logger.WarnContext(ctx, "response cache set failed", "err", err)
	}
	return &Stream{ContentType: ct, Body: bytes.NewReader(b)}, nil
}

// Capabilities returns the parsed capabilities document, memoised per version.
func (c *Client) Capabilities(ctx context.Context) (*ogc.Capabilities, error) {
	ctx = logger.WithOperation(ctx, OpGetCapabilities)
	if caps, ok := c.caps.Get(c.conn.Version); ok {
		return caps, nil
	}

	resp, err := c.do(ctx, OpGetCapabilities, ogc.BuildGetCapabilitiesParams(c.conn.Version), "application/xml, text/xml")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, capsBodyLimit))
	if err != nil {
		return nil, c.fail(&RequestError{Op: OpGetCapabilities, Kind: KindNetwork, Message: "read body: " + err.Error(), Err: err})
	}
	observability.AddWFSResponseBytes(OpGetCapabilities, int64(len(b)))

	caps, err := ogc.ParseCapabilities(b)
	if err != nil {
		var rep *ogc.ExceptionReport
		if errors.As(err, &rep) {
			return nil, c.fail(&RequestError{Op: OpGetCapabilities, Kind: KindServer, StatusCode: resp.StatusCode, Message: rep.Error(), Err: rep})
		}
		return nil, c.fail(&RequestError{Op: OpGetCapabilities, Kind: KindServer, StatusCode: resp.StatusCode, Message: "malformed capabilities: " + err.Error(), Err: err})
	}
	observability.IncWFSRequest(OpGetCapabilities, "ok")
	c.caps.Add(c.conn.Version, caps)
	return caps, nil
}

// Operations lists the operation names the server advertises.
func (c *Client) Operations(ctx context.Context) ([]string, error) {
	caps, err := c.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	return caps.OperationNames(), nil
}

// Contents lists the datasets (feature types) the server advertises.
func (c *Client) Contents(ctx context.Context) ([]ogc.FeatureType, error) {
	caps, err := c.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	return caps.FeatureTypes, nil
}

// Ready reports whether the capabilities document can be obtained.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.Capabilities(ctx)
	return err
}

// do performs one GET and classifies transport and status failures. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op string, params url.Values, accept string) (*http.Response, error) {
	u := *c.endpoint
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, c.fail(&RequestError{Op: op, Kind: KindInvalidQuery, Message: "build request: " + err.Error(), Err: err})
	}
	if c.conn.HasCredentials() {
		req.SetBasicAuth(c.conn.Username, c.conn.Password)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.DebugContext(ctx, "wfs request", "endpoint", c.endpoint.String(), "params", params.Encode())

	start := c.startNow()
	resp, err := c.http.Do(req)
	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstreamLabel, op, dur.Seconds())
	if err != nil {
		return nil, c.fail(&RequestError{Op: op, Kind: KindNetwork, Message: err.Error(), Err: err})
	}

	c.logger.DebugContext(ctx, "wfs response",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"duration", dur.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			msg := strings.TrimSpace(http.StatusText(resp.StatusCode))
			if rep, ok := ogc.ParseExceptionReport(b); ok {
				msg = rep.Error()
			}
			return nil, c.fail(&RequestError{Op: op, Kind: KindAuth, StatusCode: resp.StatusCode, Message: msg})
		}
		return nil, c.fail(serverError(op, resp.StatusCode, b))
	}
	return resp, nil
}

func (c *Client) cached(ctx context.Context, key string) (*Stream, bool) {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "response cache get failed", "err", err)
		return nil, false
	}
	if !ok {
		observability.IncCacheMiss()
		return nil, false
	}
	ct, body, ok := decodeCached(b)
	if !ok {
		observability.IncCacheMiss()
		return nil, false
	}
	observability.IncCacheHit()
	c.logger.DebugContext(ctx, "response cache hit", "key", key, "bytes", len(body))
	return &Stream{ContentType: ct, Body: bytes.NewReader(body), FromCache: true}, true
}

func (c *Client) fail(e *RequestError) *RequestError {
	observability.IncWFSRequest(e.Op, e.Kind.String())
	return e
}

func serverError(op string, status int, body []byte) *RequestError {
	if rep, ok := ogc.ParseExceptionReport(body); ok {
		return &RequestError{Op: op, Kind: KindServer, StatusCode: status, Message: rep.Error(), Err: rep}
	}
	msg := strings.TrimSpace(string(body))
	const maxMsg = 512
	if len(msg) > maxMsg {
		msg = msg[:maxMsg] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RequestError{Op: op, Kind: KindServer, StatusCode: status, Message: msg}
}

func acceptFor(outputFormat string) string {
	if ogc.IsJSONFormat(outputFormat) {
		return "application/json, application/geo+json"
	}
	return "application/gml+xml, application/xml, text/xml, */*;q=0.1"
}

// cached values carry the content type on the first line
func encodeCached(contentType string, body []byte) []byte {
	out := make([]byte, 0, len(contentType)+1+len(body))
	out = append(out, contentType...)
	out = append(out, '\n')
	return append(out, body...)
}

func decodeCached(b []byte) (string, []byte, bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return "", nil, false
	}
	return string(b[:i]), b[i+1:], true
}
