// Package wrapped builds a yearly summary of a user's posts on X from a fixed
// sequence of searches and one structured-extraction call.
package wrapped

import (
	"errors"
	"time"
)

// ErrNoSearchResults is returned when every step of the search plan failed.
var ErrNoSearchResults = errors.New("no search step succeeded")

type Topic struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Sentiment is a distribution in whole percent. It sums to 100, or is all zero.
type Sentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Post is a resolved post with its public engagement counts.
type Post struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	URL            string    `json:"url"`
	AuthorUsername string    `json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
	Likes          int       `json:"likes"`
	Reposts        int       `json:"reposts"`
	Replies        int       `json:"replies"`
}

// Popularity ranks highlights.
func (p Post) Popularity() int {
	return p.Likes + p.Reposts + p.Replies
}

// Summary is the cached result for one (username, year).
type Summary struct {
	Username        string    `json:"username"`
	Year            int       `json:"year"`
	TotalPosts      int       `json:"totalPosts"`
	TopTopics       []Topic   `json:"topTopics"`
	Sentiment       Sentiment `json:"sentiment"`
	WritingStyle    string    `json:"writingStyle"`
	Summary         string    `json:"summary"`
	Highlights      []Post    `json:"highlights"`
	MostActiveMonth string    `json:"mostActiveMonth"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// SearchRequest is one step of the plan, scoped to a handle and date range.
type SearchRequest struct {
	Query  string
	Handle string
	From   time.Time
	To     time.Time
}

// SessionResult is the text and the cited URLs of one search step.
type SessionResult struct {
	Text      string
	Citations []string
}
