package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/config"
)

type staticHeaders struct{}

func (staticHeaders) Headers(context.Context) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer test-token")
	h.Set("x-hasura-owner-id", "owner-1")
	return h
}

func newTestClient(serverURL string) *Client {
	cfg := config.APIConfig{
		GraphURL:       serverURL,
		AppURL:         "https://app.example.com",
		UserAgent:      "test-agent",
		TimeoutSeconds: 5,
	}
	return NewClient(cfg, staticHeaders{}, zap.NewNop())
}

func TestDoSendsAuthAndBrowserHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := newTestClient(srv.URL).Do(context.Background(), "query { ok }", map[string]any{"a": 1}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)

	require.Equal(t, "Bearer test-token", got.Get("Authorization"))
	require.Equal(t, "owner-1", got.Get("x-hasura-owner-id"))
	require.Equal(t, "https://app.example.com", got.Get("Origin"))
	require.Equal(t, "https://app.example.com/", got.Get("Referer"))
	require.Equal(t, "cors", got.Get("Sec-Fetch-Mode"))
	require.Equal(t, "test-agent", got.Get("User-Agent"))

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	require.Equal(t, "query { ok }", req["query"])
	require.Equal(t, map[string]any{"a": float64(1)}, req["variables"])
}

func TestDoSurfacesGraphQLErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"field not found"}]}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Do(context.Background(), "query {}", nil, nil)
	require.ErrorContains(t, err, "field not found")
}

func TestDoSurfacesHTTPStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Do(context.Background(), "query {}", nil, nil)
	require.ErrorContains(t, err, "403")
}

func TestListOrigins(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"origin":[
			{"id":"o1","name":"Lista Geral","group_id":"g1","group":{"id":"g1","name":"Vendas"}},
			{"id":"o2","name":"Sem Grupo","group_id":null,"group":null}
		]}}`))
	}))
	defer srv.Close()

	origins, err := newTestClient(srv.URL).ListOrigins(context.Background())
	require.NoError(t, err)
	require.Len(t, origins, 2)
	require.Equal(t, "Vendas", origins[0].GroupName())
	require.Empty(t, origins[1].GroupName())
}

func TestGroupOrigins(t *testing.T) {
	t.Parallel()

	g1 := &GroupRef{ID: "g1", Name: "Vendas"}
	g2 := &GroupRef{ID: "g2", Name: "Parcerias"}
	origins := []Origin{
		{ID: "o1", Name: "A", Group: g1},
		{ID: "o2", Name: "B", Group: g2},
		{ID: "o3", Name: "C", Group: g1},
		{ID: "o4", Name: "D"},
	}

	groups, ungrouped := GroupOrigins(origins)
	require.Len(t, groups, 2)
	require.Equal(t, "Vendas", groups[0].Name)
	require.Len(t, groups[0].Origins, 2)
	require.Equal(t, "C", groups[0].Origins[1].Name)
	require.Equal(t, "Parcerias", groups[1].Name)
	require.Len(t, ungrouped, 1)
	require.Equal(t, "o4", ungrouped[0].ID)
}
