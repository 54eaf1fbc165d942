package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const maxPageBytes = 5 << 20

// PageFetcher downloads pages directly and extracts their main text.
type PageFetcher struct {
	HTTP        *http.Client
	UserAgent   string
	Concurrency int
	Logger      *slog.Logger
}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		HTTP:        &http.Client{Timeout: 20 * time.Second},
		UserAgent:   "Mozilla/5.0 (compatible; scira/1.0)",
		Concurrency: 4,
		Logger:      slog.Default(),
	}
}

// Fetch reads all URLs concurrently. Pages that fail to download or yield no
// text are dropped; results keep the input order.
func (f *PageFetcher) Fetch(ctx context.Context, urls []string) ([]research.Content, error) {
	slots := make([]*research.Content, len(urls))
	var (
		mu      sync.Mutex
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Concurrency, 1))
	for i, u := range urls {
		g.Go(func() error {
			c, err := f.fetchOne(gctx, u)
			if err != nil {
				f.Logger.Warn("Page fetch failed", "url", u, "error", err)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			slots[i] = c
			return nil
		})
	}
	_ = g.Wait()

	var contents []research.Content
	for _, c := range slots {
		if c != nil {
			contents = append(contents, *c)
		}
	}
	if len(contents) == 0 && lastErr != nil {
		return nil, fmt.Errorf("no pages could be read: %w", lastErr)
	}
	return contents, nil
}

func (f *PageFetcher) fetchOne(ctx context.Context, rawURL string) (*research.Content, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	title, text := extractMainText(raw, pageURL)
	if text == "" {
		return nil, fmt.Errorf("no readable text")
	}
	return &research.Content{Title: title, URL: rawURL, Text: clients.Truncate(text, maxContentChars)}, nil
}

// extractMainText runs readability first and falls back to the whole body.
func extractMainText(raw []byte, pageURL *url.URL) (title, text string) {
	article, err := readability.NewParser().Parse(bytes.NewReader(raw), pageURL)
	if err == nil {
		title = normalizeText(article.Title)
		text = blockText(article.Content)
	}
	if text != "" {
		return title, text
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return title, ""
	}
	doc.Find("script,style,noscript,nav,header,footer").Remove()
	if title == "" {
		title = normalizeText(doc.Find("title").First().Text())
	}
	return title, normalizeText(doc.Find("body").Text())
}

const blockSelector = "h1,h2,h3,h4,p,li,pre,blockquote"

// blockText joins the text of content-bearing elements, one per line.
func blockText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are already part of their outermost block's text.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if t := normalizeText(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		return normalizeText(doc.Text())
	}
	return strings.Join(lines, "\n")
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
