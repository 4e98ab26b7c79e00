package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shortmidia/clint-exporter/internal/config"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"jwt bearer", "Bearer " + tokenTopLevelOwner, tokenTopLevelOwner, true},
		{"trailing space", "Bearer " + tokenNestedOwner + " ", tokenNestedOwner, true},
		{"no prefix", tokenTopLevelOwner, "", false},
		{"lowercase scheme", "bearer " + tokenTopLevelOwner, "", false},
		{"non-jwt value", "Bearer opaque-session-id", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := bearerToken(tc.header)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestHeaderValue(t *testing.T) {
	t.Parallel()

	headers := map[string]any{
		"Authorization":     "Bearer abc",
		"X-Hasura-Owner-Id": "owner-1",
		"Content-Length":    1234,
	}
	// Lookup is case-insensitive; CDP reports header casing inconsistently.
	require.Equal(t, "Bearer abc", headerValue(headers, "authorization"))
	require.Equal(t, "Bearer abc", headerValue(headers, "Authorization"))
	require.Equal(t, "owner-1", headerValue(headers, "x-hasura-owner-id"))
	// Non-string values and absent keys yield "".
	require.Empty(t, headerValue(headers, "content-length"))
	require.Empty(t, headerValue(headers, "cookie"))
	require.Empty(t, headerValue(nil, "authorization"))
}

func TestNewBrowserSessionRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := config.BrowserConfig{}
	_, err := newBrowserSession(cfg, "", "secret", "https://graph.clint.digital/v1/graphql")
	require.Error(t, err)
	_, err = newBrowserSession(cfg, "ops@example.com", "", "https://graph.clint.digital/v1/graphql")
	require.Error(t, err)

	session, err := newBrowserSession(cfg, "ops@example.com", "secret", "https://graph.clint.digital/v1/graphql")
	require.NoError(t, err)
	require.Equal(t, "graph.clint.digital", session.graphHost)
}
