package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphloom/graphloom/internal/cache"
	"github.com/graphloom/graphloom/internal/crawler"
	"github.com/graphloom/graphloom/internal/extract"
	"github.com/graphloom/graphloom/internal/fetch"
	"github.com/graphloom/graphloom/internal/graph"
	"github.com/graphloom/graphloom/internal/llm"
	"github.com/graphloom/graphloom/internal/pdftext"
	"github.com/graphloom/graphloom/internal/pipeline"
	"github.com/graphloom/graphloom/internal/preprocess"
	"github.com/graphloom/graphloom/internal/tokenizer"
	"github.com/graphloom/graphloom/internal/worker"
)

var (
	pipeSeedFile     string
	pipeWorkDir      string
	pipeDepth        int
	pipeCrawlWorkers int
	pipePDFWorkers   int
	pipeTargetTokens int
	pipeConcurrency  int
	pipeProvider     string
	pipeModel        string
	pipeHTTPProxy    string
	pipeHTTPSProxy   string
	pipeWipe         bool
	pipeCache        bool
	pipeNoRobots     bool
	pipeTimeout      time.Duration
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline [seed-url...]",
	Short: "Run crawl, download, preprocess and ingest in sequence",
	Long: `Pipeline runs the whole flow end to end: crawl the seeds for PDF
links, download and extract the PDFs, pack the text into chunks, then
extract atomic facts and import the graph. Intermediate JSONL
artifacts land in the work directory, so any stage can be rerun
standalone afterwards.

The LLM provider and the graph connection are checked before the
crawl starts, so a bad key fails in seconds rather than after a long
crawl.

Example:
  graphloom pipeline https://mosdac.gov.in
  graphloom pipeline --seeds seeds.txt --depth 4 --llm-provider anthropic
  graphloom pipeline https://example.com --work-dir ./run --wipe`,
	Args: cobra.ArbitraryArgs,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringVar(&pipeSeedFile, "seeds", "", "file with one seed URL per line")
	pipelineCmd.Flags().StringVar(&pipeWorkDir, "work-dir", "graphloom-run", "directory for intermediate artifacts")
	pipelineCmd.Flags().IntVar(&pipeDepth, "depth", 3, "number of levels to walk from the seeds")
	pipelineCmd.Flags().IntVar(&pipeCrawlWorkers, "concurrency", 10, "parallel page fetches per level")
	pipelineCmd.Flags().IntVar(&pipePDFWorkers, "workers", 1, "concurrent PDF downloads")
	pipelineCmd.Flags().IntVar(&pipeTargetTokens, "target-tokens", 512, "token budget per chunk")
	pipelineCmd.Flags().IntVar(&pipeConcurrency, "llm-concurrency", 8, "parallel LLM calls per document")
	pipelineCmd.Flags().StringVar(&pipeProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	pipelineCmd.Flags().StringVar(&pipeModel, "llm-model", "", "LLM model name (empty = provider default)")
	pipelineCmd.Flags().StringVar(&pipeHTTPProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	pipelineCmd.Flags().StringVar(&pipeHTTPSProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	pipelineCmd.Flags().BoolVar(&pipeWipe, "wipe", false, "delete the entire graph before importing")
	pipelineCmd.Flags().BoolVar(&pipeCache, "cache", false, "cache fetched pages on disk")
	pipelineCmd.Flags().BoolVar(&pipeNoRobots, "no-robots", false, "ignore robots.txt (not recommended)")
	pipelineCmd.Flags().DurationVar(&pipeTimeout, "timeout", 0, "overall pipeline timeout (0 = no limit)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	seeds := args
	if pipeSeedFile != "" {
		fromFile, err := crawler.ReadSeeds(pipeSeedFile)
		if err != nil {
			return fmt.Errorf("read seeds: %w", err)
		}
		seeds = append(seeds, fromFile...)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("no seed URLs: pass them as arguments or via --seeds")
	}

	ctx := context.Background()
	if pipeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pipeTimeout)
		defer cancel()
	}

	// Build configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Crawl.MaxDepth = pipeDepth
	cfg.Crawl.MaxConcurrent = pipeCrawlWorkers
	cfg.PDF.Workers = pipePDFWorkers
	cfg.PDF.StoreDir = filepath.Join(pipeWorkDir, "downloaded_pdfs")
	cfg.Preprocess.TargetTokens = pipeTargetTokens
	cfg.Extraction.Concurrency = pipeConcurrency
	cfg.LLM.Provider = pipeProvider
	if pipeModel != "" {
		cfg.LLM.Model = pipeModel
	}
	if pipeHTTPProxy != "" {
		cfg.HTTP.HTTPProxy = pipeHTTPProxy
	}
	if pipeHTTPSProxy != "" {
		cfg.HTTP.HTTPSProxy = pipeHTTPSProxy
	}
	if pipeNoRobots {
		cfg.Crawl.RespectRobots = false
	}
	if pipeCache {
		cfg.Cache.Enabled = true
	}
	if err := resolveLLMKey(cfg); err != nil {
		return err
	}
	graphCredentials(cfg)

	linksPath := filepath.Join(pipeWorkDir, "pdf-links.jsonl")
	textPath := filepath.Join(pipeWorkDir, "pdf-text.jsonl")
	chunksPath := filepath.Join(pipeWorkDir, "llm-ready.jsonl")

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Graphloom Pipeline\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Seeds:        %d\n", len(seeds))
	fmt.Fprintf(os.Stderr, "  Depth:        %d\n", cfg.Crawl.MaxDepth)
	fmt.Fprintf(os.Stderr, "  Work dir:     %s\n", pipeWorkDir)
	fmt.Fprintf(os.Stderr, "  LLM:          %s\n", cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  Graph:        %s\n", cfg.Graph.URI)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(pipeWorkDir, 0755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Preflight the expensive dependencies before crawling anything
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return err
	}
	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("LLM provider %s is not reachable: check credentials and connectivity", provider.Name())
	}
	store, err := graph.Connect(ctx, cfg.Graph, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()
	fmt.Fprintf(os.Stderr, "✓ LLM provider %s ready\n", provider.Name())
	fmt.Fprintf(os.Stderr, "✓ Graph connection ready\n")
	fmt.Fprintf(os.Stderr, "\n")

	countTok, err := tokenizer.ForEncoding(tokenizer.EncodingCL100K)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	chunkTok, err := tokenizer.ForModel(tokenizer.ModelGPT35)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	// Stage 1: crawl
	fmt.Fprintf(os.Stderr, "⚙️  Crawling %d seed(s) to depth %d...\n", len(seeds), cfg.Crawl.MaxDepth)

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

	c := crawler.New(engine, crawler.NewJSONLSink(linksPath), crawler.Config{MaxDepth: cfg.Crawl.MaxDepth}, logger)
	crawlStats, err := c.Run(ctx, seeds)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Crawled %d pages, found %d PDF links\n", crawlStats.PagesFetched, crawlStats.PDFsFound)
	if crawlStats.PDFsFound == 0 {
		fmt.Fprintf(os.Stderr, "✗ Nothing to download; stopping\n")
		return nil
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Stage 2: download and extract PDF text
	fmt.Fprintf(os.Stderr, "⚙️  Downloading PDFs with %d worker(s)...\n", cfg.PDF.Workers)

	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	dl := pdftext.NewDownloader(cfg.PDF.StoreDir,
		time.Duration(cfg.PDF.Timeout)*time.Second, cfg.HTTP.UserAgent, limiter)
	proc := pdftext.NewProcessor(pdftext.Config{
		LinksPath: linksPath,
		OutPath:   textPath,
		StoreDir:  cfg.PDF.StoreDir,
		Workers:   cfg.PDF.Workers,
	}, dl, countTok, logger)

	pdfStats, err := proc.Run(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Extracted text from %d of %d PDFs (%d failed)\n",
		pdfStats.Processed, pdfStats.Links, pdfStats.Failed)
	fmt.Fprintf(os.Stderr, "\n")

	// Stage 3: preprocess into LLM-ready chunks
	fmt.Fprintf(os.Stderr, "⚙️  Packing text into %d-token chunks...\n", cfg.Preprocess.TargetTokens)

	pre := preprocess.New(preprocess.Config{
		InPath:       textPath,
		OutPath:      chunksPath,
		TargetTokens: cfg.Preprocess.TargetTokens,
		Overshoot:    cfg.Preprocess.LegacyOvershoot,
	}, chunkTok, logger)

	preStats, err := pre.Run()
	if err != nil {
		return fmt.Errorf("preprocess failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Packed %d documents into %d chunks\n", preStats.Documents, preStats.Chunks)
	fmt.Fprintf(os.Stderr, "\n")

	// Stage 4: extract facts and import the graph
	fmt.Fprintf(os.Stderr, "⚙️  Extracting atomic facts with %s...\n", provider.Name())

	if pipeWipe {
		if err := store.Wipe(ctx); err != nil {
			return fmt.Errorf("wipe graph: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Graph wiped\n")
	}

	splitter, err := extract.NewSplitter(countTok, cfg.Extraction.ChunkSize, cfg.Extraction.ChunkOverlap)
	if err != nil {
		return err
	}
	extractor := extract.NewExtractor(provider, splitter, cfg.Extraction.Concurrency, logger)
	ing := pipeline.NewIngestor(extractor, store, logger)

	ingStats, err := ing.IngestFile(ctx, chunksPath)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Pipeline Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Pages crawled:      %d\n", crawlStats.PagesFetched)
	fmt.Fprintf(os.Stderr, "  PDFs processed:     %d\n", pdfStats.Processed)
	fmt.Fprintf(os.Stderr, "  Chunks packed:      %d\n", preStats.Chunks)
	fmt.Fprintf(os.Stderr, "  Documents in graph: %d\n", ingStats.Documents)
	if ingStats.Failed > 0 {
		fmt.Fprintf(os.Stderr, "  Failed documents:   %d\n", ingStats.Failed)
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Artifacts kept in %s\n", pipeWorkDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
