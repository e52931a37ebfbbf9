package session_test

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/session"
)

const identityCatalog = `{
  "token": {
    "expires_at": "2030-01-01T00:00:00Z",
    "user": {"id": "u-1"},
    "project": {"id": "p-1"},
    "catalog": [
      {"type": "compute", "name": "nova", "endpoints": [
        {"interface": "public", "region": "RegionOne", "url": "https://compute.example/v2.1"},
        {"interface": "internal", "region": "RegionOne", "url": "http://compute.internal/v2.1"}
      ]},
      {"type": "network", "name": "neutron", "endpoints": [
        {"interface": "public", "region": "RegionTwo", "url": "https://network.example"}
      ]}
    ]
  }
}`

func newIdentityServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "/v3/auth/tokens", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		identity := body["auth"].(map[string]any)["identity"].(map[string]any)
		user := identity["password"].(map[string]any)["user"].(map[string]any)
		if user["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "bad creds"}}`))
			return
		}
		w.Header().Set("X-Subject-Token", "tok-123")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(identityCatalog))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPasswordPluginAuthenticates(t *testing.T) {
	calls := 0
	srv := newIdentityServer(t, &calls)

	plugin, err := session.NewAuthPlugin(session.AuthPassword, session.AuthOptions{
		AuthURL: srv.URL, Username: "demo", Password: "secret", ProjectName: "demo",
	})
	require.NoError(t, err)

	sess, err := session.New(session.Config{Verify: true}, plugin)
	require.NoError(t, err)

	access, err := sess.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", access.Token)
	assert.Equal(t, "p-1", access.ProjectID)
	assert.True(t, access.Catalog.Has("compute"))
	assert.False(t, access.Catalog.Has("image"))

	_, err = sess.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "token is cached after the first call")
}

func TestPasswordPluginRejectsBadCredentials(t *testing.T) {
	calls := 0
	srv := newIdentityServer(t, &calls)

	plugin, err := session.NewAuthPlugin(session.AuthPassword, session.AuthOptions{
		AuthURL: srv.URL + "/v3", Username: "demo", Password: "wrong",
	})
	require.NoError(t, err)
	sess, err := session.New(session.Config{Verify: true}, plugin)
	require.NoError(t, err)

	_, err = sess.Access(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, oscerrors.ErrAuthentication)
}

func TestNewAuthPluginValidatesOptions(t *testing.T) {
	_, err := session.NewAuthPlugin(session.AuthPassword, session.AuthOptions{Username: "demo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, oscerrors.ErrCommand)
	assert.Contains(t, err.Error(), "--os-auth-url")

	_, err = session.NewAuthPlugin(session.AuthTokenEndpoint, session.AuthOptions{Token: "t"})
	assert.ErrorContains(t, err, "--os-endpoint")

	_, err = session.NewAuthPlugin("kerberos", session.AuthOptions{})
	assert.ErrorContains(t, err, "unsupported auth type")

	p, err := session.NewAuthPlugin(session.AuthNone, session.AuthOptions{Endpoint: "http://svc"})
	require.NoError(t, err)
	assert.Equal(t, "http://svc", p.Endpoint())
}

func TestCatalogURLFor(t *testing.T) {
	var res struct {
		Token struct {
			Catalog session.ServiceCatalog `json:"catalog"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(identityCatalog), &res))
	catalog := res.Token.Catalog

	u, err := catalog.URLFor("compute", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://compute.example/v2.1", u)

	u, err = catalog.URLFor("compute", "RegionOne", "internal")
	require.NoError(t, err)
	assert.Equal(t, "http://compute.internal/v2.1", u)

	_, err = catalog.URLFor("network", "RegionOne", "public")
	assert.ErrorIs(t, err, oscerrors.ErrAuthentication)
}

func TestRequestSetsHeadersAndRecordsTiming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "static", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "osc-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "req-abc", r.Header.Get("X-Request-Id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sess, err := session.New(
		session.Config{Verify: true, UserAgent: "osc-test", Timing: true},
		&session.StaticTokenPlugin{Token: "static", URL: srv.URL},
	)
	require.NoError(t, err)

	resp, err := sess.Request(context.Background(), http.MethodDelete, srv.URL+"/things/1", nil,
		http.Header{"X-Request-Id": []string{"req-abc"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	timings := sess.Timings()
	require.Len(t, timings, 1)
	assert.Equal(t, http.MethodDelete, timings[0].Method)
	assert.Equal(t, srv.URL+"/things/1", timings[0].URL)
}

func TestTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	ctx := context.Background()

	strict, err := session.New(session.Config{Verify: true}, nil)
	require.NoError(t, err)
	_, err = strict.Request(ctx, http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err, "self-signed certificate must be rejected")

	insecure, err := session.New(session.Config{Verify: false}, nil)
	require.NoError(t, err)
	resp, err := insecure.Request(ctx, http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, block, 0o600))

	pinned, err := session.New(session.Config{Verify: true, CACert: bundle}, nil)
	require.NoError(t, err)
	resp, err = pinned.Request(ctx, http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestMissingCABundle(t *testing.T) {
	_, err := session.New(session.Config{Verify: true, CACert: "/nonexistent/ca.pem"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, oscerrors.ErrCommand)
}
