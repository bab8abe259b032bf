package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphloom/graphloom/internal/cache"
	"github.com/graphloom/graphloom/internal/crawler"
	"github.com/graphloom/graphloom/internal/fetch"
	"github.com/graphloom/graphloom/internal/tokenizer"
)

var (
	crawlSeedFile string
	crawlDepth    int
	crawlWorkers  int
	crawlOut      string
	crawlPagesOut string
	crawlTimeout  time.Duration
	crawlCache    bool
	crawlNoRobots bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl [seed-url...]",
	Short: "Discover PDF links by crawling seed URLs breadth-first",
	Long: `Crawl walks pages level by level from the seeds, following links on
the same host and recording every PDF link it sees. Links are appended
to the output JSONL as {"pdf_url", "source_page"} the moment they are
discovered, so an interrupted crawl keeps everything found so far.

Example:
  graphloom crawl https://mosdac.gov.in
  graphloom crawl --seeds seeds.txt --depth 4 --out pdf-links.jsonl
  graphloom crawl https://example.com --pages-out pages.jsonl --cache`,
	Args: cobra.ArbitraryArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlSeedFile, "seeds", "", "file with one seed URL per line")
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", 3, "number of levels to walk from the seeds")
	crawlCmd.Flags().IntVar(&crawlWorkers, "concurrency", 10, "parallel page fetches per level")
	crawlCmd.Flags().StringVar(&crawlOut, "out", "pdf-links.jsonl", "output JSONL for discovered PDF links")
	crawlCmd.Flags().StringVar(&crawlPagesOut, "pages-out", "", "also record crawled page text to this JSONL")
	crawlCmd.Flags().DurationVar(&crawlTimeout, "timeout", 0, "overall crawl timeout (0 = no limit)")
	crawlCmd.Flags().BoolVar(&crawlCache, "cache", false, "cache fetched pages on disk")
	crawlCmd.Flags().BoolVar(&crawlNoRobots, "no-robots", false, "ignore robots.txt (not recommended)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	seeds := args
	if crawlSeedFile != "" {
		fromFile, err := crawler.ReadSeeds(crawlSeedFile)
		if err != nil {
			return fmt.Errorf("read seeds: %w", err)
		}
		seeds = append(seeds, fromFile...)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seed URLs: pass them as arguments or via --seeds")
	}

	ctx := context.Background()
	if crawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, crawlTimeout)
		defer cancel()
	}

	// Build configuration from flags
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Crawl.MaxDepth = crawlDepth
	cfg.Crawl.MaxConcurrent = crawlWorkers
	if crawlNoRobots {
		cfg.Crawl.RespectRobots = false
	}
	if crawlCache {
		cfg.Cache.Enabled = true
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		pageCache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	engine := fetch.NewEngine(fetch.Config{
		MaxConcurrent:       cfg.Crawl.MaxConcurrent,
		MemoryThresholdPct:  cfg.Crawl.MemoryThresholdPct,
		MemoryCheckInterval: cfg.Crawl.MemoryCheckInterval,
		Timeout:             time.Duration(cfg.HTTP.Timeout) * time.Second,
		UserAgent:           cfg.HTTP.UserAgent,
		MaxBodyBytes:        cfg.HTTP.MaxBodyBytes,
		RespectRobots:       cfg.Crawl.RespectRobots,
		RequestsPerSecond:   cfg.RateLimit.RequestsPerSecond,
		BurstSize:           cfg.RateLimit.BurstSize,
		Cache:               pageCache,
		CacheTTL:            cfg.Cache.TTL,
	}, logger)

	crawlCfg := crawler.Config{MaxDepth: cfg.Crawl.MaxDepth}
	if crawlPagesOut != "" {
		tok, err := tokenizer.ForEncoding(tokenizer.EncodingCL100K)
		if err != nil {
			return fmt.Errorf("load tokenizer: %w", err)
		}
		pages, err := crawler.NewPageCapture(crawlPagesOut, tok)
		if err != nil {
			return fmt.Errorf("open pages output: %w", err)
		}
		defer func() { _ = pages.Close() }()
		crawlCfg.Pages = pages
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Seeds: %d\n", len(seeds))
		fmt.Fprintf(os.Stderr, "Depth: %d\n", cfg.Crawl.MaxDepth)
		fmt.Fprintf(os.Stderr, "Robots: %v\n", cfg.Crawl.RespectRobots)
		fmt.Fprintln(os.Stderr)
	}

	c := crawler.New(engine, crawler.NewJSONLSink(crawlOut), crawlCfg, logger)
	stats, err := c.Run(ctx, seeds)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Crawled %d pages over %d levels (%d failed)\n",
		stats.PagesFetched, stats.Depths, stats.PagesFailed)
	fmt.Fprintf(os.Stderr, "✓ Recorded %d PDF links to %s\n", stats.PDFsFound, crawlOut)
	return nil
}
