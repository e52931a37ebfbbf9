// Package clientmanager holds the resolved session/TLS configuration, the
// auth plugin and lazily constructed per-service client handles for a single
// CLI invocation.
package clientmanager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/session"
)

// Options are the raw values collected from flags, environment and cloud
// config before resolution.
type Options struct {
	Verify     *bool
	Insecure   *bool
	CACert     string
	Cert       string
	Key        string
	Interface  string
	RegionName string
	AuthType   string
	Auth       session.AuthOptions
	Timeout    time.Duration
	Timing     bool
}

// ClientConfig is the resolved, read-only transport configuration.
type ClientConfig struct {
	Verify     bool
	CACert     string
	Cert       string
	Key        string
	Interface  string
	RegionName string
}

// Factory constructs the client handle for one service. It may authenticate
// or look up the service catalog through the manager.
type Factory func(ctx context.Context, m *ClientManager) (any, error)

// ClientManager is the single point of access to named service clients.
// It is built once per invocation and is not safe for concurrent use.
type ClientManager struct {
	Config ClientConfig

	authType    string
	authOpts    session.AuthOptions
	timeout     time.Duration
	timing      bool
	userAgent   string
	prompt      func() (string, error)
	logger      *slog.Logger
	sessionOpts []session.Option

	authRequired  bool
	authSetupDone bool
	plugin        session.AuthPlugin
	session       *session.Session
	access        *session.AccessInfo

	factories map[string]Factory
	clients   map[string]any
}

// Option configures a ClientManager.
type Option func(*ClientManager)

// WithLogger sets the logger for client creation and auth messages.
func WithLogger(l *slog.Logger) Option {
	return func(m *ClientManager) { m.logger = l }
}

// WithPasswordPrompt sets the callback used when password auth is selected
// but no password was supplied.
func WithPasswordPrompt(f func() (string, error)) Option {
	return func(m *ClientManager) { m.prompt = f }
}

// WithUserAgent sets the application name and version sent with requests.
func WithUserAgent(appName, appVersion string) Option {
	return func(m *ClientManager) {
		m.userAgent = appName
		if appVersion != "" {
			m.userAgent += "/" + appVersion
		}
	}
}

// WithSessionOptions passes options through to session.New.
func WithSessionOptions(opts ...session.Option) Option {
	return func(m *ClientManager) { m.sessionOpts = append(m.sessionOpts, opts...) }
}

// WithFactory registers a service factory at construction time.
func WithFactory(service string, f Factory) Option {
	return func(m *ClientManager) { m.factories[service] = f }
}

// New resolves the TLS flags and returns a manager. No network access
// happens until a client or the session is requested.
func New(opts Options, o ...Option) *ClientManager {
	verify, cacert := ResolveTLS(opts.Verify, opts.Insecure, opts.CACert)
	m := &ClientManager{
		Config: ClientConfig{
			Verify:     verify,
			CACert:     cacert,
			Cert:       opts.Cert,
			Key:        opts.Key,
			Interface:  opts.Interface,
			RegionName: opts.RegionName,
		},
		authType:  opts.AuthType,
		authOpts:  opts.Auth,
		timeout:   opts.Timeout,
		timing:    opts.Timing,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		factories: make(map[string]Factory),
		clients:   make(map[string]any),
	}
	for _, opt := range o {
		opt(m)
	}
	return m
}

// Register adds or replaces the factory for service. A cached handle for
// service is dropped.
func (m *ClientManager) Register(service string, f Factory) {
	m.factories[service] = f
	delete(m.clients, service)
}

// Client returns the handle for service, constructing it on first access.
// Factory failures are returned unchanged and nothing is cached.
func (m *ClientManager) Client(ctx context.Context, service string) (any, error) {
	if handle, ok := m.clients[service]; ok {
		return handle, nil
	}
	factory, ok := m.factories[service]
	if !ok {
		return nil, oscerrors.Commandf("no client registered for service %q", service)
	}
	m.logger.DebugContext(ctx, "creating client", "service", service)
	handle, err := factory(ctx, m)
	if err != nil {
		return nil, err
	}
	m.clients[service] = handle
	return handle, nil
}

// Get is the typed form of ClientManager.Client.
func Get[T any](ctx context.Context, m *ClientManager, service string) (T, error) {
	var zero T
	handle, err := m.Client(ctx, service)
	if err != nil {
		return zero, err
	}
	typed, ok := handle.(T)
	if !ok {
		return zero, oscerrors.Commandf("client for service %q is %T, not %T", service, handle, zero)
	}
	return typed, nil
}

// SetAuthRequired records whether the running command needs a token.
func (m *ClientManager) SetAuthRequired(required bool) { m.authRequired = required }

// AuthType returns the selected auth plugin name; valid after SetupAuth.
func (m *ClientManager) AuthType() string { return m.authType }

// SetupAuth selects the auth plugin and builds the session. It runs once;
// later calls are no-ops.
func (m *ClientManager) SetupAuth(ctx context.Context) error {
	if m.authSetupDone {
		return nil
	}
	if m.authType == "" {
		m.authType = defaultAuthType(m.authOpts)
	}

	plugin, err := session.NewAuthPlugin(m.authType, m.authOpts)
	if err != nil {
		return err
	}
	if pw, ok := plugin.(*session.PasswordPlugin); ok && pw.NeedsPassword() {
		if m.prompt == nil {
			return oscerrors.Commandf("Set a password with --os-password, OS_PASSWORD or auth.password")
		}
		password, err := m.prompt()
		if err != nil {
			return err
		}
		pw.SetPassword(password)
	}
	m.logger.InfoContext(ctx, "using auth plugin", "auth_type", m.authType)

	sess, err := session.New(session.Config{
		Verify:    m.Config.Verify,
		CACert:    m.Config.CACert,
		Cert:      m.Config.Cert,
		Key:       m.Config.Key,
		Timeout:   m.timeout,
		UserAgent: m.userAgent,
		Timing:    m.timing,
	}, plugin, append([]session.Option{session.WithLogger(m.logger)}, m.sessionOpts...)...)
	if err != nil {
		return err
	}
	m.plugin = plugin
	m.session = sess
	m.authSetupDone = true
	return nil
}

// defaultAuthType picks a plugin from the supplied options when none was
// named explicitly.
func defaultAuthType(opts session.AuthOptions) string {
	switch {
	case opts.Token != "" && opts.Endpoint != "":
		return session.AuthTokenEndpoint
	case opts.Token != "":
		return session.AuthToken
	}
	return session.AuthPassword
}

// Session returns the authenticated session, setting up auth if needed.
func (m *ClientManager) Session(ctx context.Context) (*session.Session, error) {
	if err := m.SetupAuth(ctx); err != nil {
		return nil, err
	}
	return m.session, nil
}

// AuthRef authenticates on first use. It returns nil when the current
// command does not require auth or the auth type is "none".
func (m *ClientManager) AuthRef(ctx context.Context) (*session.AccessInfo, error) {
	if !m.authRequired || m.authType == session.AuthNone {
		return nil, nil
	}
	if m.access != nil {
		return m.access, nil
	}
	sess, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.DebugContext(ctx, "get auth ref")
	access, err := sess.Access(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.validateScope(access); err != nil {
		return nil, err
	}
	m.access = access
	return access, nil
}

func (m *ClientManager) validateScope(access *session.AccessInfo) error {
	if m.authType != session.AuthPassword && m.authType != session.AuthToken {
		return nil
	}
	if access.ProjectID != "" || access.DomainID != "" {
		return nil
	}
	if m.authOpts.ProjectID == "" && m.authOpts.ProjectName == "" {
		return oscerrors.Commandf("Set a scope, for example a project, with --os-project-name, OS_PROJECT_NAME or auth.project_name")
	}
	return nil
}

// IsServiceAvailable reports whether serviceType is in the catalog. known is
// false when there is no catalog to consult.
func (m *ClientManager) IsServiceAvailable(ctx context.Context, serviceType string) (available, known bool, err error) {
	access, err := m.AuthRef(ctx)
	if err != nil {
		return false, false, err
	}
	if access == nil || len(access.Catalog) == 0 {
		m.logger.DebugContext(ctx, "no service catalog")
		return false, false, nil
	}
	available = access.Catalog.Has(serviceType)
	m.logger.DebugContext(ctx, "service catalog lookup", "service_type", serviceType, "available", available)
	return available, true, nil
}

// EndpointFor returns the URL of serviceType. With a catalog it is looked up
// by region and interface ("public" by default); otherwise the auth plugin's
// fixed endpoint is used.
func (m *ClientManager) EndpointFor(ctx context.Context, serviceType, region, iface string) (string, error) {
	if iface == "" {
		iface = "public"
	}
	access, err := m.AuthRef(ctx)
	if err != nil {
		return "", err
	}
	if access != nil && len(access.Catalog) > 0 {
		return access.Catalog.URLFor(serviceType, region, iface)
	}
	if err := m.SetupAuth(ctx); err != nil {
		return "", err
	}
	if ep := m.plugin.Endpoint(); ep != "" {
		return ep, nil
	}
	return "", &oscerrors.AuthenticationError{
		Message: fmt.Sprintf("no endpoint for %s: no service catalog and no --os-endpoint", serviceType),
	}
}

// Timings returns the HTTP timing records collected so far.
func (m *ClientManager) Timings() []session.TimingRecord {
	if m.session == nil {
		return nil
	}
	return m.session.Timings()
}

// Configuration returns a fresh map of the effective configuration.
func (m *ClientManager) Configuration() map[string]any {
	return map[string]any{
		"verify":      m.Config.Verify,
		"cacert":      m.Config.CACert,
		"cert":        m.Config.Cert,
		"key":         m.Config.Key,
		"interface":   m.Config.Interface,
		"region_name": m.Config.RegionName,
		"auth_type":   m.authType,
		"api_timeout": m.timeout,
	}
}
