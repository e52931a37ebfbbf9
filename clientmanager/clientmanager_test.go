package clientmanager_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joona/osckit/clientmanager"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/session"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveTLS(t *testing.T) {
	cases := []struct {
		name       string
		verify     *bool
		insecure   *bool
		cacert     string
		wantVerify bool
		wantCACert string
	}{
		{"all unset", nil, nil, "", true, ""},
		{"verify true", boolPtr(true), nil, "", true, ""},
		{"verify false", boolPtr(false), nil, "", false, ""},
		{"cacert", nil, nil, "cafile", true, "cafile"},
		{"insecure", nil, boolPtr(true), "", false, ""},
		{"insecure overrides cacert", nil, boolPtr(true), "cafile", false, ""},
		{"insecure overrides verify", boolPtr(true), boolPtr(true), "", false, ""},
		{"insecure false with cacert", nil, boolPtr(false), "cafile", true, "cafile"},
		{"insecure false", nil, boolPtr(false), "", true, ""},
		{"cacert wins over verify false", boolPtr(false), nil, "cafile", true, "cafile"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verify, cacert := clientmanager.ResolveTLS(tc.verify, tc.insecure, tc.cacert)
			assert.Equal(t, tc.wantVerify, verify)
			assert.Equal(t, tc.wantCACert, cacert)
		})
	}
}

func TestNewResolvesConfig(t *testing.T) {
	m := clientmanager.New(clientmanager.Options{
		Insecure:   boolPtr(true),
		CACert:     "cafile",
		Cert:       "client.pem",
		Key:        "client.key",
		Interface:  "internal",
		RegionName: "RegionOne",
	})

	assert.False(t, m.Config.Verify)
	assert.Empty(t, m.Config.CACert)
	assert.Equal(t, "client.pem", m.Config.Cert)
	assert.Equal(t, "client.key", m.Config.Key)
	assert.Equal(t, "internal", m.Config.Interface)
	assert.Equal(t, "RegionOne", m.Config.RegionName)

	cfg := m.Configuration()
	assert.Equal(t, false, cfg["verify"])
	cfg["verify"] = true
	assert.Equal(t, false, m.Configuration()["verify"], "configuration is a copy")
}

type computeClient struct{ endpoint string }

func TestClientIsCreatedOnce(t *testing.T) {
	calls := 0
	m := clientmanager.New(clientmanager.Options{})
	m.Register("compute", func(ctx context.Context, m *clientmanager.ClientManager) (any, error) {
		calls++
		return &computeClient{endpoint: "http://compute"}, nil
	})
	ctx := context.Background()

	first, err := m.Client(ctx, "compute")
	require.NoError(t, err)
	second, err := m.Client(ctx, "compute")
	require.NoError(t, err)

	assert.Same(t, first.(*computeClient), second.(*computeClient))
	assert.Equal(t, 1, calls)

	typed, err := clientmanager.Get[*computeClient](ctx, m, "compute")
	require.NoError(t, err)
	assert.Same(t, first.(*computeClient), typed)
	assert.Equal(t, 1, calls)
}

func TestClientFactoryErrorIsNotCached(t *testing.T) {
	boom := errors.New("catalog unavailable")
	calls := 0
	m := clientmanager.New(clientmanager.Options{},
		clientmanager.WithFactory("image", func(context.Context, *clientmanager.ClientManager) (any, error) {
			calls++
			if calls == 1 {
				return nil, boom
			}
			return "image-client", nil
		}))
	ctx := context.Background()

	_, err := m.Client(ctx, "image")
	assert.ErrorIs(t, err, boom)

	handle, err := m.Client(ctx, "image")
	require.NoError(t, err)
	assert.Equal(t, "image-client", handle)
	assert.Equal(t, 2, calls)
}

func TestClientUnknownServiceAndWrongType(t *testing.T) {
	m := clientmanager.New(clientmanager.Options{})
	ctx := context.Background()

	_, err := m.Client(ctx, "volume")
	assert.ErrorIs(t, err, oscerrors.ErrCommand)

	m.Register("volume", func(context.Context, *clientmanager.ClientManager) (any, error) { return 42, nil })
	_, err = clientmanager.Get[string](ctx, m, "volume")
	assert.ErrorIs(t, err, oscerrors.ErrCommand)
}

func TestSetupAuthPromptsForPassword(t *testing.T) {
	prompts := 0
	m := clientmanager.New(clientmanager.Options{
		Auth: session.AuthOptions{AuthURL: "http://identity", Username: "demo"},
	}, clientmanager.WithPasswordPrompt(func() (string, error) {
		prompts++
		return "secret", nil
	}))
	ctx := context.Background()

	require.NoError(t, m.SetupAuth(ctx))
	require.NoError(t, m.SetupAuth(ctx))
	assert.Equal(t, 1, prompts)
	assert.Equal(t, session.AuthPassword, m.AuthType())
}

func TestSetupAuthWithoutPasswordOrPrompt(t *testing.T) {
	m := clientmanager.New(clientmanager.Options{
		Auth: session.AuthOptions{AuthURL: "http://identity", Username: "demo"},
	})
	err := m.SetupAuth(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--os-password")
}

func TestEndpointFromCatalog(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject-Token", "tok")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token": {"project": {"id": "p1"}, "catalog": [
			{"type": "network", "endpoints": [
				{"interface": "public", "region": "RegionOne", "url": "https://net.example"},
				{"interface": "admin", "region": "RegionOne", "url": "https://net-admin.example"}
			]}]}}`))
	}))
	defer identity.Close()

	m := clientmanager.New(clientmanager.Options{
		AuthType: session.AuthPassword,
		Auth: session.AuthOptions{
			AuthURL: identity.URL, Username: "demo", Password: "secret", ProjectName: "demo",
		},
	})
	m.SetAuthRequired(true)
	ctx := context.Background()

	ep, err := m.EndpointFor(ctx, "network", "RegionOne", "")
	require.NoError(t, err)
	assert.Equal(t, "https://net.example", ep)

	ep, err = m.EndpointFor(ctx, "network", "", "admin")
	require.NoError(t, err)
	assert.Equal(t, "https://net-admin.example", ep)

	available, known, err := m.IsServiceAvailable(ctx, "network")
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, available)

	available, known, err = m.IsServiceAvailable(ctx, "dns")
	require.NoError(t, err)
	assert.True(t, known)
	assert.False(t, available)
}

func TestEndpointOverrideWithoutCatalog(t *testing.T) {
	m := clientmanager.New(clientmanager.Options{
		Auth: session.AuthOptions{Token: "admin", Endpoint: "http://svc.example"},
	})
	m.SetAuthRequired(true)
	ctx := context.Background()

	ep, err := m.EndpointFor(ctx, "anything", "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://svc.example", ep)
	assert.Equal(t, session.AuthTokenEndpoint, m.AuthType())

	_, known, err := m.IsServiceAvailable(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestAuthRefSkippedWhenNotRequired(t *testing.T) {
	m := clientmanager.New(clientmanager.Options{AuthType: session.AuthNone})
	access, err := m.AuthRef(context.Background())
	require.NoError(t, err)
	assert.Nil(t, access)
}
