package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oscerrors "github.com/joona/osckit/errors"
)

// Auth types understood by NewAuthPlugin.
const (
	AuthPassword      = "password"
	AuthToken         = "token"
	AuthTokenEndpoint = "token_endpoint"
	AuthAdminToken    = "admin_token"
	AuthNone          = "none"
)

// AccessInfo is the result of a successful authentication.
type AccessInfo struct {
	Token     string
	UserID    string
	ProjectID string
	DomainID  string
	ExpiresAt time.Time
	Catalog   ServiceCatalog
}

// AuthPlugin produces tokens and, for identity backed plugins, a service
// catalog.
type AuthPlugin interface {
	Authenticate(ctx context.Context, client *http.Client) (*AccessInfo, error)
	// Endpoint is the fixed service endpoint for plugins without a catalog.
	Endpoint() string
}

// AuthOptions are the raw auth parameters collected from flags and cloud
// config.
type AuthOptions struct {
	AuthURL           string
	Username          string
	UserID            string
	Password          string
	UserDomainName    string
	ProjectName       string
	ProjectID         string
	ProjectDomainName string
	Token             string
	Endpoint          string
}

// NewAuthPlugin selects the plugin for authType.
func NewAuthPlugin(authType string, opts AuthOptions) (AuthPlugin, error) {
	switch authType {
	case AuthPassword:
		if opts.AuthURL == "" {
			return nil, oscerrors.Commandf("Set an authentication URL, with --os-auth-url, OS_AUTH_URL or auth.auth_url")
		}
		if opts.Username == "" && opts.UserID == "" {
			return nil, oscerrors.Commandf("Set a username with --os-username, OS_USERNAME, or auth.username")
		}
		return &PasswordPlugin{opts: opts}, nil
	case AuthToken:
		if opts.AuthURL == "" {
			return nil, oscerrors.Commandf("Set an authentication URL, with --os-auth-url, OS_AUTH_URL or auth.auth_url")
		}
		if opts.Token == "" {
			return nil, oscerrors.Commandf("Set a token with --os-token, OS_TOKEN or auth.token")
		}
		return &TokenPlugin{opts: opts}, nil
	case AuthTokenEndpoint, AuthAdminToken:
		if opts.Token == "" {
			return nil, oscerrors.Commandf("Set a token with --os-token, OS_TOKEN or auth.token")
		}
		if opts.Endpoint == "" {
			return nil, oscerrors.Commandf("Set a service endpoint with --os-endpoint, OS_ENDPOINT or auth.endpoint")
		}
		return &StaticTokenPlugin{Token: opts.Token, URL: opts.Endpoint}, nil
	case AuthNone:
		return &NoAuthPlugin{URL: opts.Endpoint}, nil
	}
	return nil, oscerrors.Commandf("unsupported auth type %q", authType)
}

// StaticTokenPlugin sends a pre-issued token to a fixed endpoint.
type StaticTokenPlugin struct {
	Token string
	URL   string
}

func (p *StaticTokenPlugin) Authenticate(context.Context, *http.Client) (*AccessInfo, error) {
	return &AccessInfo{Token: p.Token}, nil
}

func (p *StaticTokenPlugin) Endpoint() string { return p.URL }

// NoAuthPlugin sends no credentials at all.
type NoAuthPlugin struct {
	URL string
}

func (p *NoAuthPlugin) Authenticate(context.Context, *http.Client) (*AccessInfo, error) {
	return &AccessInfo{}, nil
}

func (p *NoAuthPlugin) Endpoint() string { return p.URL }

// PasswordPlugin authenticates against an identity v3 service.
type PasswordPlugin struct {
	opts AuthOptions
}

func (p *PasswordPlugin) Endpoint() string { return "" }

// SetPassword supplies a password obtained after construction, typically
// from an interactive prompt.
func (p *PasswordPlugin) SetPassword(password string) { p.opts.Password = password }

// NeedsPassword reports whether no password was configured.
func (p *PasswordPlugin) NeedsPassword() bool { return p.opts.Password == "" }

func (p *PasswordPlugin) Authenticate(ctx context.Context, client *http.Client) (*AccessInfo, error) {
	user := map[string]any{"password": p.opts.Password}
	if p.opts.UserID != "" {
		user["id"] = p.opts.UserID
	} else {
		user["name"] = p.opts.Username
		user["domain"] = map[string]string{"name": orDefault(p.opts.UserDomainName, "Default")}
	}
	identity := map[string]any{
		"methods":  []string{"password"},
		"password": map[string]any{"user": user},
	}
	return issueToken(ctx, client, p.opts, identity)
}

// TokenPlugin exchanges an existing token for a scoped one.
type TokenPlugin struct {
	opts AuthOptions
}

func (p *TokenPlugin) Endpoint() string { return "" }

func (p *TokenPlugin) Authenticate(ctx context.Context, client *http.Client) (*AccessInfo, error) {
	identity := map[string]any{
		"methods": []string{"token"},
		"token":   map[string]string{"id": p.opts.Token},
	}
	return issueToken(ctx, client, p.opts, identity)
}

type tokenResponse struct {
	Token struct {
		ExpiresAt time.Time `json:"expires_at"`
		User      struct {
			ID string `json:"id"`
		} `json:"user"`
		Project *struct {
			ID string `json:"id"`
		} `json:"project"`
		Domain *struct {
			ID string `json:"id"`
		} `json:"domain"`
		Catalog ServiceCatalog `json:"catalog"`
	} `json:"token"`
}

func issueToken(ctx context.Context, client *http.Client, opts AuthOptions, identity map[string]any) (*AccessInfo, error) {
	payload := map[string]any{"auth": map[string]any{"identity": identity}}
	if scope := projectScope(opts); scope != nil {
		payload["auth"].(map[string]any)["scope"] = scope
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokensURL(opts.AuthURL), bytes.NewReader(buf))
	if err != nil {
		return nil, &oscerrors.AuthenticationError{Message: "building token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &oscerrors.AuthenticationError{Message: "contacting identity service", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, &oscerrors.AuthenticationError{
			Message: fmt.Sprintf("identity service returned %d", resp.StatusCode),
			Err: &oscerrors.HTTPError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(data)),
				Method:     http.MethodPost,
				URL:        req.URL.String(),
			},
		}
	}

	var res tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, &oscerrors.AuthenticationError{Message: "decoding token response", Err: err}
	}
	access := &AccessInfo{
		Token:     resp.Header.Get("X-Subject-Token"),
		UserID:    res.Token.User.ID,
		ExpiresAt: res.Token.ExpiresAt,
		Catalog:   res.Token.Catalog,
	}
	if res.Token.Project != nil {
		access.ProjectID = res.Token.Project.ID
	}
	if res.Token.Domain != nil {
		access.DomainID = res.Token.Domain.ID
	}
	if access.Token == "" {
		return nil, &oscerrors.AuthenticationError{Message: "identity service returned no token"}
	}
	return access, nil
}

func projectScope(opts AuthOptions) map[string]any {
	switch {
	case opts.ProjectID != "":
		return map[string]any{"project": map[string]any{"id": opts.ProjectID}}
	case opts.ProjectName != "":
		return map[string]any{"project": map[string]any{
			"name":   opts.ProjectName,
			"domain": map[string]string{"name": orDefault(opts.ProjectDomainName, "Default")},
		}}
	}
	return nil
}

func tokensURL(authURL string) string {
	base := strings.TrimRight(authURL, "/")
	if !strings.HasSuffix(base, "/v3") {
		base += "/v3"
	}
	return base + "/auth/tokens"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
