package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joona/osckit/api"
	oscerrors "github.com/joona/osckit/errors"
)

// plainRequester sends requests with the default client and no auth.
type plainRequester struct{}

func (plainRequester) Request(ctx context.Context, method, u string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header = header
	return http.DefaultClient.Do(req)
}

func newAPI(t *testing.T, h http.HandlerFunc) *api.BaseAPI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return api.New(plainRequester{}, "widget", srv.URL+"/v1/", api.WithRequestIDs(func() string { return "req-fixed" }))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestURLJoin(t *testing.T) {
	a := api.New(plainRequester{}, "widget", "http://svc.example/v1/")
	assert.Equal(t, "http://svc.example/v1/widgets", a.URL("/widgets"))
	assert.Equal(t, "http://svc.example/v1/widgets", a.URL("widgets"))
	assert.Equal(t, "http://svc.example/v1", a.URL(""))

	bare := api.New(plainRequester{}, "widget", "")
	assert.Equal(t, "http://other/x", bare.URL("http://other/x"))
}

func TestRequestSendsRequestIDAndQuery(t *testing.T) {
	a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-fixed", r.Header.Get("X-Request-Id"))
		assert.Equal(t, "/v1/widgets", r.URL.Path)
		assert.Equal(t, "red", r.URL.Query().Get("color"))
		writeJSON(w, http.StatusOK, map[string]any{"widgets": []any{}})
	})

	items, err := a.List(context.Background(), "widgets", api.ListOptions{Query: url.Values{"color": {"red"}}})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRequestErrorCarriesServiceMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"top level message", 409, `{"message": "widget busy"}`, "widget busy"},
		{"wrapped message", 400, `{"badRequest": {"message": "bad size", "code": 400}}`, "bad size"},
		{"error_message", 500, `{"error_message": "db down"}`, "db down"},
		{"plain text", 503, "maintenance", "maintenance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := a.Get(context.Background(), "widgets", "w1")
			require.Error(t, err)

			var httpErr *oscerrors.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.status, httpErr.StatusCode)
			assert.Equal(t, tc.want, httpErr.Message)
			assert.Equal(t, "req-fixed", httpErr.RequestID)
			assert.Contains(t, err.Error(), "req-fixed")
		})
	}
}

func TestCRUD(t *testing.T) {
	a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/widgets":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusCreated, map[string]any{"widget": map[string]any{"id": "w1", "name": body["widget"].(map[string]any)["name"]}})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/widgets/w1":
			writeJSON(w, http.StatusOK, map[string]any{"widget": map[string]any{"id": "w1", "name": "foo"}})
		case r.Method == http.MethodPut && r.URL.Path == "/v1/widgets/w1":
			writeJSON(w, http.StatusOK, map[string]any{"widget": map[string]any{"id": "w1", "name": "bar"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/widgets/w1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	created, err := a.Create(ctx, "widgets", map[string]any{"widget": map[string]any{"name": "foo"}})
	require.NoError(t, err)
	assert.Contains(t, created, "widget")

	got, err := a.Get(ctx, "widgets", "w1")
	require.NoError(t, err)
	assert.Equal(t, "foo", got.Name())

	updated, err := a.Update(ctx, "widgets", "w1", map[string]any{"widget": map[string]any{"name": "bar"}})
	require.NoError(t, err)
	assert.Equal(t, "bar", updated.Name())

	require.NoError(t, a.Delete(ctx, "widgets/w1"))

	_, err = a.Get(ctx, "widgets", "missing")
	assert.ErrorIs(t, err, oscerrors.ErrNotFound)
}

func TestListShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		opts api.ListOptions
		path string
		want int
	}{
		{"bare array", `[{"id": "a"}, {"id": "b"}]`, api.ListOptions{}, "widgets", 2},
		{"enveloped", `{"widgets": [{"id": "a"}], "links": {}}`, api.ListOptions{}, "widgets", 1},
		{"custom key", `{"items": [{"id": "a"}, {"id": "b"}, {"id": "c"}]}`, api.ListOptions{Resource: "items"}, "widgets", 3},
		{"detailed", `{"widgets": [{"id": "a"}]}`, api.ListOptions{Detailed: true}, "widgets", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
				if tc.opts.Detailed {
					assert.True(t, strings.HasSuffix(r.URL.Path, "/details"))
				}
				_, _ = w.Write([]byte(tc.body))
			})
			items, err := a.List(context.Background(), tc.path, tc.opts)
			require.NoError(t, err)
			assert.Len(t, items, tc.want)
		})
	}
}

func TestListWithBodyUsesPost(t *testing.T) {
	a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Filter"))
		writeJSON(w, http.StatusOK, map[string]any{"widgets": []any{map[string]any{"id": "a"}}})
	})
	items, err := a.List(context.Background(), "widgets", api.ListOptions{
		Body:    map[string]any{"filter": "all"},
		Headers: http.Header{"X-Filter": {"yes"}},
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

var fleet = []any{
	map[string]any{"id": "w1", "name": "foo", "size": 1},
	map[string]any{"id": "w2", "name": "foo", "size": 2},
	map[string]any{"id": "w3", "name": "bar", "size": 2},
}

// fleetServer serves the fleet, filtering on name/id query parameters the
// way most services do server side.
func fleetServer(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/v1/widgets/") {
		id := strings.TrimPrefix(r.URL.Path, "/v1/widgets/")
		for _, item := range fleet {
			if item.(map[string]any)["id"] == id {
				writeJSON(w, http.StatusOK, map[string]any{"widget": item})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"itemNotFound": map[string]any{"message": "no such widget"}})
		return
	}
	var out []any
	for _, item := range fleet {
		m := item.(map[string]any)
		if n := r.URL.Query().Get("name"); n != "" && m["name"] != n {
			continue
		}
		if id := r.URL.Query().Get("id"); id != "" && m["id"] != id {
			continue
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": out})
}

func TestFindAttr(t *testing.T) {
	a := newAPI(t, fleetServer)
	ctx := context.Background()

	rec, err := a.FindAttr(ctx, "widgets", "bar", "", "")
	require.NoError(t, err)
	assert.Equal(t, "w3", rec.ID())

	rec, err = a.FindAttr(ctx, "widgets", "w2", "", "")
	require.NoError(t, err)
	assert.Equal(t, "w2", rec.ID())

	_, err = a.FindAttr(ctx, "widgets", "foo", "", "")
	var amb *oscerrors.AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.ElementsMatch(t, []string{"w1", "w2"}, amb.IDs)

	_, err = a.FindAttr(ctx, "widgets", "nope", "", "")
	assert.ErrorIs(t, err, oscerrors.ErrNotFound)
}

func TestFindBulkAndFindOne(t *testing.T) {
	a := newAPI(t, fleetServer)
	ctx := context.Background()

	items, err := a.FindBulk(ctx, "widgets", map[string]string{"size": "2"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = a.FindBulk(ctx, "widgets", map[string]string{"color": "red"})
	require.NoError(t, err)
	assert.Empty(t, items)

	rec, err := a.FindOne(ctx, "widgets", map[string]string{"name": "foo", "size": "1"})
	require.NoError(t, err)
	assert.Equal(t, "w1", rec.ID())

	_, err = a.FindOne(ctx, "widgets", map[string]string{"size": "2"})
	assert.ErrorIs(t, err, oscerrors.ErrAmbiguousMatch)

	_, err = a.FindOne(ctx, "widgets", map[string]string{"size": "9"})
	assert.ErrorIs(t, err, oscerrors.ErrNotFound)
}

func TestFind(t *testing.T) {
	a := newAPI(t, fleetServer)
	ctx := context.Background()

	rec, err := a.Find(ctx, "widgets", "w1", "")
	require.NoError(t, err)
	assert.Equal(t, "foo", rec.Name())

	rec, err = a.Find(ctx, "widgets", "bar", "name")
	require.NoError(t, err)
	assert.Equal(t, "w3", rec.ID())

	_, err = a.Find(ctx, "widgets", "bar", "")
	assert.ErrorIs(t, err, oscerrors.ErrNotFound)

	_, err = a.Find(ctx, "widgets", "foo", "name")
	assert.ErrorIs(t, err, oscerrors.ErrAmbiguousMatch)
}

func TestFindPropagatesServerErrors(t *testing.T) {
	a := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
	})
	_, err := a.Find(context.Background(), "widgets", "w1", "name")
	require.Error(t, err)
	assert.NotErrorIs(t, err, oscerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "boom")
}
