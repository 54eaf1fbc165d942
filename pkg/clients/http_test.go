package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			w.Write([]byte(`{"value":"pong"}`))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, strings.Repeat("e", 1000), http.StatusBadGateway)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	var out struct {
		Value string `json:"value"`
	}
	err := DoJSON(ctx, nil, http.MethodPost, server.URL+"/ok", map[string]string{"x-api-key": "secret"}, map[string]string{"q": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pong", out.Value)

	require.NoError(t, DoJSON(ctx, nil, http.MethodDelete, server.URL+"/empty", nil, nil, &out))

	err = DoJSON(ctx, nil, http.MethodGet, server.URL+"/fail", nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Less(t, len(err.Error()), 600)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 4))
}
