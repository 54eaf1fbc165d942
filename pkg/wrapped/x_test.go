package wrapped

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXClientLookupPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer x-token", r.Header.Get("Authorization"))
		assert.Equal(t, "author_id", r.URL.Query().Get("expansions"))

		switch r.URL.Path {
		case "/2/tweets/42":
			w.Write([]byte(`{
				"data": {
					"id": "42",
					"text": "hello world",
					"author_id": "u1",
					"created_at": "2025-03-04T05:06:07.000Z",
					"public_metrics": {"like_count": 10, "retweet_count": 2, "reply_count": 3, "quote_count": 1}
				},
				"includes": {"users": [{"id": "u1", "username": "alice"}]}
			}`))
		case "/2/tweets/404":
			w.Write([]byte(`{"errors": [{"detail": "Could not find tweet"}]}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	c := NewXClient("x-token")
	c.BaseURL = server.URL
	ctx := context.Background()

	p, err := c.LookupPost(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "hello world", p.Text)
	assert.Equal(t, "alice", p.AuthorUsername)
	assert.Equal(t, "https://x.com/alice/status/42", p.URL)
	assert.Equal(t, time.March, p.CreatedAt.Month())
	assert.Equal(t, 15, p.Popularity())

	_, err = c.LookupPost(ctx, "404")
	assert.ErrorContains(t, err, "not found")

	_, err = c.LookupPost(ctx, "500")
	assert.ErrorContains(t, err, "429")

	_, err = NewXClient("").LookupPost(ctx, "42")
	assert.ErrorContains(t, err, "X_BEARER_TOKEN")
}
