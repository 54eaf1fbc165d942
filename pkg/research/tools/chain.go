package tools

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zaidmukaddam/scira/pkg/research"
)

// FetchChain routes PDF URLs to the PDF fetcher and the rest to Primary. URLs
// the primary could not return are retried one by one through Fallback.
type FetchChain struct {
	Primary     research.ContentFetcher
	Fallback    research.ContentFetcher
	PDF         research.ContentFetcher
	Concurrency int
	Logger      *slog.Logger
}

func (c *FetchChain) Fetch(ctx context.Context, urls []string) ([]research.Content, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var pdfs, pages []string
	for _, u := range urls {
		if c.PDF != nil && IsPDF(u) {
			pdfs = append(pdfs, u)
		} else {
			pages = append(pages, u)
		}
	}

	got := make(map[string]research.Content, len(urls))
	var (
		order  []string
		errs   []error
		stages int
	)
	collect := func(contents []research.Content) {
		for _, ct := range contents {
			if _, ok := got[ct.URL]; !ok {
				got[ct.URL] = ct
				order = append(order, ct.URL)
			}
		}
	}

	if len(pdfs) > 0 {
		stages++
		contents, err := c.PDF.Fetch(ctx, pdfs)
		if err != nil {
			logger.Warn("PDF fetch failed", "urls", len(pdfs), "error", err)
			errs = append(errs, err)
		}
		collect(contents)
	}

	missing := pages
	if len(pages) > 0 && c.Primary != nil {
		stages++
		contents, err := c.Primary.Fetch(ctx, pages)
		if err != nil {
			logger.Warn("Primary content fetch failed", "urls", len(pages), "error", err)
			errs = append(errs, err)
		}
		collect(contents)

		missing = nil
		for _, u := range pages {
			if _, ok := got[u]; !ok {
				missing = append(missing, u)
			}
		}
	}

	if len(missing) > 0 && c.Fallback != nil {
		stages++
		contents, err := c.fallback(ctx, missing)
		if err != nil {
			logger.Warn("Fallback content fetch failed", "urls", len(missing), "error", err)
			errs = append(errs, err)
		}
		collect(contents)
	}

	// input order first, then anything returned under a rewritten URL
	out := make([]research.Content, 0, len(got))
	for _, u := range slices.Concat(urls, order) {
		if ct, ok := got[u]; ok {
			out = append(out, ct)
			delete(got, u)
		}
	}
	if len(out) == 0 && stages > 0 && len(errs) == stages {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// fallback fetches each URL separately so one bad page cannot sink the batch.
func (c *FetchChain) fallback(ctx context.Context, urls []string) ([]research.Content, error) {
	limit := c.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu       sync.Mutex
		contents []research.Content
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, u := range urls {
		g.Go(func() error {
			res, err := c.Fallback.Fetch(gctx, []string{u})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return nil
			}
			contents = append(contents, res...)
			return nil
		})
	}
	_ = g.Wait()

	if len(contents) == 0 && len(failures) == len(urls) {
		return nil, errors.Join(failures...)
	}
	return contents, nil
}
