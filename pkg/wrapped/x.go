package wrapped

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
)

const DefaultXAPIURL = "https://api.x.com"

// XClient resolves post ids through the X API v2.
type XClient struct {
	BearerToken string
	BaseURL     string
	HTTP        *http.Client
}

func NewXClient(bearerToken string) *XClient {
	return &XClient{
		BearerToken: bearerToken,
		BaseURL:     DefaultXAPIURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

type tweetResponse struct {
	Data struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		AuthorID      string    `json:"author_id"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

func (c *XClient) LookupPost(ctx context.Context, id string) (*Post, error) {
	if c.BearerToken == "" {
		return nil, fmt.Errorf("X_BEARER_TOKEN is not set")
	}
	params := url.Values{}
	params.Set("expansions", "author_id")
	params.Set("tweet.fields", "created_at,public_metrics,author_id")
	params.Set("user.fields", "username")
	endpoint := fmt.Sprintf("%s/2/tweets/%s?%s", c.BaseURL, url.PathEscape(id), params.Encode())

	var resp tweetResponse
	headers := map[string]string{"Authorization": "Bearer " + c.BearerToken}
	if err := clients.DoJSON(ctx, c.HTTP, http.MethodGet, endpoint, headers, nil, &resp); err != nil {
		return nil, fmt.Errorf("lookup post %s: %w", id, err)
	}
	if resp.Data.ID == "" {
		return nil, fmt.Errorf("lookup post %s: not found", id)
	}

	var username string
	for _, u := range resp.Includes.Users {
		if u.ID == resp.Data.AuthorID {
			username = u.Username
			break
		}
	}

	return &Post{
		ID:             resp.Data.ID,
		Text:           resp.Data.Text,
		URL:            fmt.Sprintf("https://x.com/%s/status/%s", username, resp.Data.ID),
		AuthorUsername: username,
		CreatedAt:      resp.Data.CreatedAt.UTC(),
		Likes:          resp.Data.PublicMetrics.LikeCount,
		Reposts:        resp.Data.PublicMetrics.RetweetCount,
		Replies:        resp.Data.PublicMetrics.ReplyCount,
	}, nil
}
