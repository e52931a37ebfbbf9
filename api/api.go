// Package api is a small REST wrapper for services that have no full client
// library: URL joining, JSON bodies, error translation and basic CRUD.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	oscerrors "github.com/joona/osckit/errors"
)

// Requester executes one HTTP request. *session.Session satisfies it.
type Requester interface {
	Request(ctx context.Context, method, url string, body io.Reader, header http.Header) (*http.Response, error)
}

// Record is a decoded JSON object.
type Record map[string]any

// String returns r[key] formatted as a string, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (r Record) ID() string   { return r.String("id") }
func (r Record) Name() string { return r.String("name") }

// BaseAPI talks to one service endpoint.
type BaseAPI struct {
	ServiceType string
	Endpoint    string

	session   Requester
	logger    *slog.Logger
	requestID func() string
}

// Option configures a BaseAPI.
type Option func(*BaseAPI)

// WithLogger sets the logger request tracing is written to.
func WithLogger(l *slog.Logger) Option {
	return func(a *BaseAPI) { a.logger = l }
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(f func() string) Option {
	return func(a *BaseAPI) { a.requestID = f }
}

// New returns a wrapper for endpoint. A trailing "/" on endpoint is dropped
// since every path is joined with exactly one "/".
func New(sess Requester, serviceType, endpoint string, opts ...Option) *BaseAPI {
	a := &BaseAPI{
		ServiceType: serviceType,
		Endpoint:    strings.TrimRight(endpoint, "/"),
		session:     sess,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		requestID:   func() string { return "req-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type requestConfig struct {
	query  url.Values
	body   any
	header http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*requestConfig)

// WithQuery adds query parameters.
func WithQuery(q url.Values) RequestOption {
	return func(c *requestConfig) { c.query = q }
}

// WithJSON encodes body as the JSON request body.
func WithJSON(body any) RequestOption {
	return func(c *requestConfig) { c.body = body }
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) {
		if c.header == nil {
			c.header = http.Header{}
		}
		c.header.Add(key, value)
	}
}

// URL joins the endpoint and p. Without an endpoint p is used as is.
func (a *BaseAPI) URL(p string) string {
	if a.Endpoint == "" {
		return p
	}
	if p == "" {
		return a.Endpoint
	}
	return a.Endpoint + "/" + strings.TrimLeft(p, "/")
}

// Request executes method against p and translates non-2xx responses into
// *errors.HTTPError. The caller closes the returned body.
func (a *BaseAPI) Request(ctx context.Context, method, p string, opts ...RequestOption) (*http.Response, error) {
	var cfg requestConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	full := a.URL(p)
	if len(cfg.query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + cfg.query.Encode()
	}

	header := cfg.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	reqID := a.requestID()
	header.Set("X-Request-Id", reqID)

	var body io.Reader
	if cfg.body != nil {
		buf, err := json.Marshal(cfg.body)
		if err != nil {
			return nil, oscerrors.Commandf("encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
		header.Set("Content-Type", "application/json")
	}

	a.logger.DebugContext(ctx, "api request", "service", a.ServiceType, "method", method, "url", full, "request_id", reqID)
	resp, err := a.session.Request(ctx, method, full, body, header)
	if err != nil {
		if oscerrors.IsUserFacing(err) {
			return nil, err
		}
		return nil, oscerrors.Commandf("%s %s: %w", method, full, err)
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, &oscerrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(data),
			Method:     method,
			URL:        full,
			RequestID:  reqID,
		}
	}
	return resp, nil
}

// extractMessage pulls the service-provided message out of an error body.
// Services disagree on the shape, so the common layouts are tried in turn.
func extractMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, key := range []string{"message", "error_message", "description", "faultstring"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := body["error"].(string); ok && s != "" {
		return s
	}
	for _, v := range body {
		inner, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := inner["message"].(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(data))
}

// decode reads a JSON body into any. An empty body yields nil.
func decode(resp *http.Response) (any, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, oscerrors.Commandf("decoding response: %w", err)
	}
	return v, nil
}

func toRecord(v any) Record {
	if m, ok := v.(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// unwrapSingle strips an enclosing {"<kind>": {...}} wrapper.
func unwrapSingle(v any) Record {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if len(m) == 1 {
		for _, inner := range m {
			if obj, ok := inner.(map[string]any); ok {
				return Record(obj)
			}
		}
	}
	return Record(m)
}

// Create POSTs body to p and returns the decoded response.
func (a *BaseAPI) Create(ctx context.Context, p string, body any) (Record, error) {
	var opts []RequestOption
	if body != nil {
		opts = append(opts, WithJSON(body))
	}
	resp, err := a.Request(ctx, http.MethodPost, p, opts...)
	if err != nil {
		return nil, err
	}
	v, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return toRecord(v), nil
}

// Get fetches p/id and unwraps a single enclosing key.
func (a *BaseAPI) Get(ctx context.Context, p, id string) (Record, error) {
	resp, err := a.Request(ctx, http.MethodGet, joinPath(p, id))
	if err != nil {
		return nil, err
	}
	v, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return unwrapSingle(v), nil
}

// Update PUTs body to p/id and unwraps a single enclosing key.
func (a *BaseAPI) Update(ctx context.Context, p, id string, body any) (Record, error) {
	resp, err := a.Request(ctx, http.MethodPut, joinPath(p, id), WithJSON(body))
	if err != nil {
		return nil, err
	}
	v, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return unwrapSingle(v), nil
}

// Delete issues DELETE on p.
func (a *BaseAPI) Delete(ctx context.Context, p string) error {
	resp, err := a.Request(ctx, http.MethodDelete, p)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListOptions tune List.
type ListOptions struct {
	Query   url.Values
	Headers http.Header
	// Body switches the request to POST with this JSON payload.
	Body any
	// Detailed appends "/details" to the path.
	Detailed bool
	// Resource is the envelope key; it defaults to the last path segment.
	Resource string
}

// List returns the resources at p, unwrapping {"<resource>": [...]}.
func (a *BaseAPI) List(ctx context.Context, p string, opts ListOptions) ([]Record, error) {
	if opts.Detailed {
		p = strings.TrimRight(p, "/") + "/details"
	}
	reqOpts := []RequestOption{WithQuery(opts.Query)}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			reqOpts = append(reqOpts, WithHeader(k, v))
		}
	}
	method := http.MethodGet
	if opts.Body != nil {
		method = http.MethodPost
		reqOpts = append(reqOpts, WithJSON(opts.Body))
	}

	resp, err := a.Request(ctx, method, p, reqOpts...)
	if err != nil {
		return nil, err
	}
	v, err := decode(resp)
	if err != nil {
		return nil, err
	}

	resource := opts.Resource
	if resource == "" {
		resource = path.Base(strings.TrimSuffix(strings.TrimRight(p, "/"), "/details"))
	}
	return unwrapList(v, resource)
}

func unwrapList(v any, resource string) ([]Record, error) {
	switch body := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return toRecords(body), nil
	case map[string]any:
		if inner, ok := body[resource]; ok {
			switch inner := inner.(type) {
			case nil:
				return nil, nil
			case []any:
				return toRecords(inner), nil
			case map[string]any:
				return []Record{inner}, nil
			}
		}
		var lists [][]any
		for _, inner := range body {
			if items, ok := inner.([]any); ok {
				lists = append(lists, items)
			}
		}
		if len(lists) == 1 {
			return toRecords(lists[0]), nil
		}
		return []Record{body}, nil
	}
	return nil, oscerrors.Commandf("unexpected list response of type %T", v)
}

func toRecords(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func joinPath(p, id string) string {
	return strings.TrimRight(p, "/") + "/" + url.PathEscape(id)
}

// isLookupMiss reports whether err means "this lookup found nothing".
func isLookupMiss(err error) bool {
	if errors.Is(err, oscerrors.ErrNotFound) {
		return true
	}
	var httpErr *oscerrors.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest
}
