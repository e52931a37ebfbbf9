// Package session wraps an *http.Client with TLS settings, an auth plugin
// and optional per-request timing. It is the transport every API wrapper and
// client factory goes through.
package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	oscerrors "github.com/joona/osckit/errors"
)

const defaultUserAgent = "osckit"

// Config holds the resolved transport settings.
type Config struct {
	Verify    bool
	CACert    string
	Cert      string
	Key       string
	Timeout   time.Duration
	UserAgent string
	Timing    bool
}

// Session executes authenticated HTTP requests. Not safe for concurrent use.
type Session struct {
	client    *http.Client
	auth      AuthPlugin
	access    *AccessInfo
	userAgent string
	timing    *timingTransport
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTransport replaces the base round tripper, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) {
		if s.timing != nil {
			s.timing.next = rt
			return
		}
		s.client.Transport = rt
	}
}

// New builds a session. auth may be nil for unauthenticated use.
func New(cfg Config, auth AuthPlugin, opts ...Option) (*Session, error) {
	tlsConfig, err := configureTLS(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	s := &Session{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		auth:      auth,
		userAgent: cfg.UserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if s.userAgent == "" {
		s.userAgent = defaultUserAgent
	}
	if cfg.Timing {
		s.timing = &timingTransport{next: transport}
		s.client.Transport = s.timing
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// configureTLS maps the resolved verify/cacert pair and the client
// certificate onto a tls.Config.
func configureTLS(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !cfg.Verify, //nolint:gosec // explicit --insecure
	}

	if cfg.Verify && cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, oscerrors.Commandf("reading CA bundle %s: %w", cfg.CACert, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, oscerrors.Commandf("no certificates found in CA bundle %s", cfg.CACert)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.Cert != "" {
		key := cfg.Key
		if key == "" {
			key = cfg.Cert
		}
		cert, err := tls.LoadX509KeyPair(cfg.Cert, key)
		if err != nil {
			return nil, oscerrors.Commandf("loading client certificate %s: %w", cfg.Cert, err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// HTTPClient exposes the configured client for plugins that build their own
// service clients.
func (s *Session) HTTPClient() *http.Client { return s.client }

// Auth returns the auth plugin, or nil.
func (s *Session) Auth() AuthPlugin { return s.auth }

// Access authenticates on first use and returns the cached result.
func (s *Session) Access(ctx context.Context) (*AccessInfo, error) {
	if s.access != nil {
		return s.access, nil
	}
	if s.auth == nil {
		return &AccessInfo{}, nil
	}
	s.logger.DebugContext(ctx, "authenticating")
	access, err := s.auth.Authenticate(ctx, s.client)
	if err != nil {
		return nil, err
	}
	s.access = access
	return access, nil
}

// Request executes method against the absolute url. Non-2xx responses are
// returned as-is; status translation belongs to the caller.
func (s *Session) Request(ctx context.Context, method, url string, body io.Reader, header http.Header) (*http.Response, error) {
	access, err := s.Access(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", s.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if access.Token != "" {
		req.Header.Set("X-Auth-Token", access.Token)
	}

	s.logger.DebugContext(ctx, "request", "method", method, "url", url, "request_id", req.Header.Get("X-Request-Id"))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "response", "method", method, "url", url, "status", resp.StatusCode)
	return resp, nil
}

// Timings returns the recorded round trips; empty unless Config.Timing.
func (s *Session) Timings() []TimingRecord {
	if s.timing == nil {
		return nil
	}
	return append([]TimingRecord(nil), s.timing.records...)
}
