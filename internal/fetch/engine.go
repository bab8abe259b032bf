// Package fetch implements the batch page-fetch boundary the crawler
// builds on: give it a level's worth of URLs, get back one tagged result
// per URL with outbound links and a markdown rendering of the page.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/graphloom/graphloom/internal/cache"
	"github.com/graphloom/graphloom/internal/worker"
)

// Config controls one Engine.
type Config struct {
	MaxConcurrent       int           // Parallel fetches; also the admission gate width
	MemoryThresholdPct  float64       // Hold new fetches while system memory usage is above this
	MemoryCheckInterval time.Duration // Recheck cadence while holding
	Timeout             time.Duration // Per-request timeout
	UserAgent           string
	MaxBodyBytes        int64
	RespectRobots       bool
	RequestsPerSecond   float64 // Per-host politeness rate
	BurstSize           int
	Cache               cache.Cache   // nil bypasses caching entirely
	CacheTTL            time.Duration // Lifetime for cached page results
}

// Engine fetches batches of pages with bounded concurrency. Each fetch
// passes three gates in order: the concurrency slot, the system-memory
// check, and the per-host rate limit.
type Engine struct {
	cfg       Config
	client    *http.Client
	converter *md.Converter
	robots    *RobotsChecker
	limiter   *worker.Limiter
	logger    *zap.Logger
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MemoryCheckInterval <= 0 {
		cfg.MemoryCheckInterval = time.Second
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	e := &Engine{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		converter: converter,
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		logger:    logger,
	}
	if cfg.RespectRobots {
		e.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return e
}

// FetchAll fetches every URL and blocks until the whole batch has
// settled. The returned slice has one entry per input URL, in input
// order; failures are embedded in the results, never returned as an
// error.
func (e *Engine) FetchAll(ctx context.Context, urls []string) []PageResult {
	results := make([]PageResult, len(urls))
	slots := make(chan struct{}, e.cfg.MaxConcurrent)
	done := make(chan int)

	for i, u := range urls {
		go func(i int, u string) {
			defer func() { done <- i }()

			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
			case <-ctx.Done():
				results[i] = failed(u, ctx.Err())
				return
			}

			if err := e.admit(ctx); err != nil {
				results[i] = failed(u, err)
				return
			}
			results[i] = e.fetchPage(ctx, u)
		}(i, u)
	}
	for range urls {
		<-done
	}
	return results
}

// admit blocks while the system is above the memory threshold, polling at
// the configured interval. A threshold of 0 disables the gate.
func (e *Engine) admit(ctx context.Context) error {
	if e.cfg.MemoryThresholdPct <= 0 {
		return nil
	}
	for {
		vm, err := mem.VirtualMemory()
		if err != nil || vm.UsedPercent < e.cfg.MemoryThresholdPct {
			return nil
		}
		e.logger.Debug("holding fetch for memory pressure",
			zap.Float64("used_pct", vm.UsedPercent),
			zap.Float64("threshold_pct", e.cfg.MemoryThresholdPct))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.MemoryCheckInterval):
		}
	}
}

// fetchPage runs the cache, robots and rate-limit gates around one GET.
// Only successful results are cached; failures stay retryable.
func (e *Engine) fetchPage(ctx context.Context, rawURL string) PageResult {
	if e.cfg.Cache != nil {
		if data, ok := e.cfg.Cache.Get(cache.Key(rawURL)); ok {
			var cached PageResult
			if err := json.Unmarshal(data, &cached); err == nil {
				e.logger.Debug("fetch cache hit", zap.String("url", rawURL))
				return cached
			}
		}
	}

	if e.robots != nil {
		allowed, delay, err := e.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return failed(rawURL, err)
		}
		if !allowed {
			return failed(rawURL, fmt.Errorf("blocked by robots.txt"))
		}
		if err := e.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return failed(rawURL, err)
		}
	} else if err := e.limiter.Wait(ctx, rawURL); err != nil {
		return failed(rawURL, err)
	}

	result := e.doFetch(ctx, rawURL)

	if e.cfg.Cache != nil && result.Success {
		if data, err := json.Marshal(result); err == nil {
			if err := e.cfg.Cache.Set(cache.Key(rawURL), data, e.cfg.CacheTTL); err != nil {
				e.logger.Debug("fetch cache write failed", zap.String("url", rawURL), zap.Error(err))
			}
		}
	}
	return result
}

// doFetch performs the GET and turns the body into a PageResult.
func (e *Engine) doFetch(ctx context.Context, rawURL string) PageResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(rawURL, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return failed(rawURL, fmt.Errorf("fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(rawURL, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
	if err != nil {
		return failed(rawURL, fmt.Errorf("read body: %w", err))
	}

	finalURL := resp.Request.URL.String()

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return failed(finalURL, fmt.Errorf("parse html: %w", err))
	}

	title := pageTitle(doc)
	internal, external := categorizeLinks(finalURL, collectLinks(doc))

	removeInvisible(doc)
	markdown, err := e.converter.ConvertString(renderHTML(doc))
	if err != nil {
		// A page whose markdown rendering fails is still useful for link
		// discovery.
		e.logger.Debug("markdown conversion failed", zap.String("url", finalURL), zap.Error(err))
		markdown = ""
	}

	return PageResult{
		URL:      finalURL,
		Success:  true,
		Title:    title,
		Markdown: markdown,
		Internal: internal,
		External: external,
	}
}
