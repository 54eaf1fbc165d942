package wrapped

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const (
	maxPosts          = 60
	lookupConcurrency = 8
	maxHighlights     = 5
	maxExtractPosts   = 120
	maxSessionChars   = 20000
)

const extractionSystemPrompt = `You analyse one year of posts on X by @%s (%d).
Base every statement strictly on the posts provided. The search notes are auxiliary context only.

- topics: up to 5 recurring topics with the share of posts (percent) each covers.
- sentiment: percentages of positive, neutral and negative posts; they should sum to 100.
- writingStyle: one or two sentences describing tone, length and format.
- summary: a short, friendly recap of the year written in the second person.`

// Cache is the subset of the TTL cache the builder needs.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type SessionSearcher interface {
	SearchPosts(ctx context.Context, req SearchRequest) (*SessionResult, error)
}

type PostLookup interface {
	LookupPost(ctx context.Context, id string) (*Post, error)
}

type extraction struct {
	Topics    []Topic `json:"topics" jsonschema:"maxItems=5"`
	Sentiment struct {
		Positive float64 `json:"positive" jsonschema:"minimum=0,maximum=100"`
		Neutral  float64 `json:"neutral" jsonschema:"minimum=0,maximum=100"`
		Negative float64 `json:"negative" jsonschema:"minimum=0,maximum=100"`
	} `json:"sentiment"`
	WritingStyle string `json:"writingStyle"`
	Summary      string `json:"summary"`
}

// Builder computes and caches yearly summaries.
type Builder struct {
	Cache  Cache
	Search SessionSearcher
	Posts  PostLookup
	LLM    llms.Model
	Logger *slog.Logger

	// OnCacheLookup, if set, is called with the outcome of every cache read.
	OnCacheLookup func(hit bool)
	Now           func() time.Time
}

func NewBuilder(cache Cache, search SessionSearcher, posts PostLookup, llm llms.Model) *Builder {
	return &Builder{
		Cache:  cache,
		Search: search,
		Posts:  posts,
		LLM:    llm,
		Logger: slog.Default(),
		Now:    time.Now,
	}
}

// CacheKey expects a normalized username.
func CacheKey(username string, year int) string {
	return fmt.Sprintf("x-wrapped:%s:%d", username, year)
}

// Build returns the cached summary for (username, year) or computes and
// caches a new one.
func (b *Builder) Build(ctx context.Context, username string, year int) (*Summary, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if year == 0 {
		year = b.Now().Year()
	}
	key := CacheKey(username, year)

	var cached Summary
	hit, err := b.Cache.Get(ctx, key, &cached)
	if err != nil {
		b.Logger.Warn("Cache read failed, recomputing", "key", key, "error", err)
	}
	if b.OnCacheLookup != nil {
		b.OnCacheLookup(hit)
	}
	if hit {
		b.Logger.Info("Cache hit", "key", key)
		return &cached, nil
	}

	sessionText, citations, err := b.runPlan(ctx, username, year)
	if err != nil {
		return nil, err
	}

	ids := ExtractPostIDs(citations, maxPosts)
	posts := b.resolvePosts(ctx, ids)
	authored := filterAuthored(posts, username)
	b.Logger.Info("Posts resolved", "username", username, "ids", len(ids), "resolved", len(posts), "authored", len(authored))

	var summary *Summary
	if len(authored) == 0 {
		summary = emptySummary(username, year, b.Now())
	} else {
		summary, err = b.summarize(ctx, username, year, authored, sessionText)
		if err != nil {
			return nil, err
		}
	}

	if err := b.Cache.Set(ctx, key, summary); err != nil {
		b.Logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return summary, nil
}

// runPlan executes the fixed plan in order. Failed steps are skipped.
func (b *Builder) runPlan(ctx context.Context, username string, year int) (string, []string, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var (
		texts     []string
		citations []string
		failed    int
	)
	steps := Plan(username, year)
	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		res, err := b.Search.SearchPosts(ctx, SearchRequest{Query: step.Query, Handle: username, From: from, To: to})
		if err != nil {
			failed++
			b.Logger.Warn("Search step failed", "step", step.Name, "index", i+1, "error", err)
			continue
		}
		b.Logger.Info("Search step completed", "step", step.Name, "index", i+1, "citations", len(res.Citations))
		if res.Text != "" {
			texts = append(texts, fmt.Sprintf("## %s\n%s", step.Name, res.Text))
		}
		citations = append(citations, res.Citations...)
	}

	if failed == len(steps) {
		return "", nil, fmt.Errorf("%w: all %d steps failed", ErrNoSearchResults, failed)
	}
	return strings.Join(texts, "\n\n"), citations, nil
}

// resolvePosts looks up posts concurrently; failed lookups are dropped and
// the result keeps id order.
func (b *Builder) resolvePosts(ctx context.Context, ids []string) []Post {
	slots := make([]*Post, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			post, err := b.Posts.LookupPost(gctx, id)
			if err != nil {
				b.Logger.Warn("Post lookup failed", "post_id", id, "error", err)
				return nil
			}
			slots[i] = post
			return nil
		})
	}
	_ = g.Wait()

	posts := make([]Post, 0, len(ids))
	for _, p := range slots {
		if p != nil {
			posts = append(posts, *p)
		}
	}
	return posts
}

func filterAuthored(posts []Post, username string) []Post {
	var out []Post
	for _, p := range posts {
		if strings.EqualFold(NormalizeUsername(p.AuthorUsername), username) {
			out = append(out, p)
		}
	}
	return out
}

func emptySummary(username string, year int, now time.Time) *Summary {
	return &Summary{
		Username:        username,
		Year:            year,
		TotalPosts:      0,
		TopTopics:       []Topic{},
		Sentiment:       Sentiment{},
		Summary:         fmt.Sprintf("We couldn't find any posts by @%s in %d.", username, year),
		Highlights:      []Post{},
		MostActiveMonth: "Unknown",
		GeneratedAt:     now.UTC(),
	}
}

func (b *Builder) summarize(ctx context.Context, username string, year int, posts []Post, sessionText string) (*Summary, error) {
	ranked := make([]Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity() > ranked[j].Popularity()
	})

	ext, err := b.extract(ctx, username, year, ranked, sessionText)
	if err != nil {
		return nil, err
	}

	topics := ext.Topics
	if topics == nil {
		topics = []Topic{}
	}
	return &Summary{
		Username:        username,
		Year:            year,
		TotalPosts:      len(ranked),
		TopTopics:       topics,
		Sentiment:       NormalizeSentiment(ext.Sentiment.Positive, ext.Sentiment.Neutral, ext.Sentiment.Negative),
		WritingStyle:    ext.WritingStyle,
		Summary:         ext.Summary,
		Highlights:      ranked[:min(maxHighlights, len(ranked))],
		MostActiveMonth: mostActiveMonth(ranked),
		GeneratedAt:     b.Now().UTC(),
	}, nil
}

// mostActiveMonth returns the month with the most posts. Ties go to the
// month that appeared first in posts.
func mostActiveMonth(posts []Post) string {
	counts := make(map[time.Month]int)
	var order []time.Month
	for _, p := range posts {
		if p.CreatedAt.IsZero() {
			continue
		}
		m := p.CreatedAt.UTC().Month()
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	best, bestCount := "Unknown", 0
	for _, m := range order {
		if counts[m] > bestCount {
			best, bestCount = m.String(), counts[m]
		}
	}
	return best
}

func (b *Builder) extract(ctx context.Context, username string, year int, posts []Post, sessionText string) (*extraction, error) {
	var sb strings.Builder
	sb.WriteString("# Posts\n")
	for i, p := range posts {
		if i >= maxExtractPosts {
			break
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", p.CreatedAt.Format("2006-01-02"), strings.ReplaceAll(p.Text, "\n", " "))
	}
	if sessionText != "" {
		sb.WriteString("\n# Search notes\n")
		sb.WriteString(clients.Truncate(sessionText, maxSessionChars))
	}

	systemPrompt := fmt.Sprintf(extractionSystemPrompt, username, year) +
		"\n\n# Response Format:\nReturn only a JSON object matching this schema:\n" + research.SchemaJSON(extraction{})

	resp, err := b.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, sb.String()),
	}, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction failed: llm returned no choices")
	}

	var ext extraction
	if err := json.Unmarshal([]byte(research.ExtractJSON(resp.Choices[0].Content)), &ext); err != nil {
		return nil, fmt.Errorf("failed to parse extraction: %w", err)
	}
	return &ext, nil
}
