// Package crawler walks a site breadth-first from seed URLs, recording
// every discovered PDF link as it is found. Crawl state (visited set,
// artifact dedup set, frontier) lives on the Crawler instance so
// concurrent crawls never share state.
package crawler

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/fetch"
	"github.com/graphloom/graphloom/internal/model"
	"github.com/graphloom/graphloom/internal/urlutil"
)

// Fetcher is the page-fetch boundary: one call per crawl level, one
// settled result per URL.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []fetch.PageResult
}

// Sink receives each PDF link exactly once, at discovery time.
type Sink interface {
	Record(link model.PDFLink) error
}

// PageSink optionally receives every successfully fetched page, so crawled
// HTML can feed the same preprocessing pipeline as PDF text.
type PageSink interface {
	Capture(res fetch.PageResult) error
}

// Config controls one crawl run.
type Config struct {
	MaxDepth int
	Pages    PageSink // nil disables page capture
}

// Stats summarizes a finished crawl.
type Stats struct {
	PagesFetched int
	PagesFailed  int
	PDFsFound    int
	Depths       int // Levels actually walked
}

// Crawler holds the state of one breadth-first walk.
type Crawler struct {
	fetcher  Fetcher
	sink     Sink
	pages    PageSink
	maxDepth int
	visited  map[string]struct{}
	pdfSeen  map[string]struct{}
	logger   *zap.Logger
}

// New creates a crawler. The same instance must not be reused across runs:
// visited state accumulates for the lifetime of the crawler.
func New(fetcher Fetcher, sink Sink, cfg Config, logger *zap.Logger) *Crawler {
	return &Crawler{
		fetcher:  fetcher,
		sink:     sink,
		pages:    cfg.Pages,
		maxDepth: cfg.MaxDepth,
		visited:  make(map[string]struct{}),
		pdfSeen:  make(map[string]struct{}),
		logger:   logger,
	}
}

// Run walks up to MaxDepth levels from the seeds. Each level is fetched as
// one batch and fully settled before its links decide the next frontier.
// Run ends early when a level has nothing left to crawl.
func (c *Crawler) Run(ctx context.Context, seeds []string) (*Stats, error) {
	frontier := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		frontier[urlutil.Normalize(s)] = struct{}{}
	}

	stats := &Stats{}
	for depth := 0; depth < c.maxDepth; depth++ {
		toCrawl := c.selectFromFrontier(frontier)
		if len(toCrawl) == 0 {
			c.logger.Info("Frontier empty, ending crawl", zap.Int("depth", depth))
			break
		}
		c.logger.Info("Crawling level",
			zap.Int("depth", depth),
			zap.Int("urls", len(toCrawl)))

		results := c.fetcher.FetchAll(ctx, toCrawl)
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Depths = depth + 1
		frontier = c.processLevel(results, stats)
	}
	return stats, nil
}

// selectFromFrontier filters the frontier down to URLs worth fetching.
// Sorted so crawl order is reproducible across runs.
func (c *Crawler) selectFromFrontier(frontier map[string]struct{}) []string {
	toCrawl := make([]string, 0, len(frontier))
	for u := range frontier {
		if _, seen := c.visited[u]; seen {
			continue
		}
		if !urlutil.IsCrawlable(u) {
			continue
		}
		toCrawl = append(toCrawl, u)
	}
	sort.Strings(toCrawl)
	return toCrawl
}

// processLevel marks results visited, records PDF artifacts and builds the
// next frontier. Runs strictly between level fetches, so state mutation is
// single-threaded.
func (c *Crawler) processLevel(results []fetch.PageResult, stats *Stats) map[string]struct{} {
	next := make(map[string]struct{})
	for _, res := range results {
		// Failed pages are marked visited too: a URL that failed once is
		// not retried at deeper levels.
		c.visited[urlutil.Normalize(res.URL)] = struct{}{}

		if !res.Success {
			stats.PagesFailed++
			c.logger.Warn("Page fetch failed",
				zap.String("url", res.URL),
				zap.String("error", res.Error))
			continue
		}
		stats.PagesFetched++

		if c.pages != nil {
			if err := c.pages.Capture(res); err != nil {
				c.logger.Warn("Page capture failed", zap.String("url", res.URL), zap.Error(err))
			}
		}

		for _, link := range res.Internal {
			c.followLink(res.URL, link, next, stats)
		}
		for _, link := range res.External {
			c.followLink(res.URL, link, next, stats)
		}
	}
	return next
}

// followLink resolves one href and routes it: PDFs to the artifact sink,
// unseen pages into the next frontier.
func (c *Crawler) followLink(pageURL string, link fetch.Link, next map[string]struct{}, stats *Stats) {
	if link.Href == "" {
		return
	}
	full := urlutil.Normalize(urlutil.Resolve(pageURL, link.Href))

	if urlutil.IsPDF(full) {
		if _, seen := c.pdfSeen[full]; seen {
			return
		}
		c.pdfSeen[full] = struct{}{}
		stats.PDFsFound++
		c.logger.Info("PDF link found",
			zap.String("pdf_url", full),
			zap.String("source_page", pageURL))
		if err := c.sink.Record(model.PDFLink{PDFURL: full, SourcePage: pageURL}); err != nil {
			// Discovery continues; the link is lost from the artifact file
			// but the crawl is not aborted.
			c.logger.Error("Record PDF link failed", zap.String("pdf_url", full), zap.Error(err))
		}
		return
	}

	if _, seen := c.visited[full]; !seen {
		next[full] = struct{}{}
	}
}
