package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphloom/graphloom/internal/extract"
	"github.com/graphloom/graphloom/internal/graph"
	"github.com/graphloom/graphloom/internal/llm"
	"github.com/graphloom/graphloom/internal/model"
	"github.com/graphloom/graphloom/internal/pipeline"
	"github.com/graphloom/graphloom/internal/tokenizer"
)

var (
	ingestText        string
	ingestName        string
	ingestChunkSize   int
	ingestOverlap     int
	ingestConcurrency int
	ingestProvider    string
	ingestModel       string
	ingestHTTPProxy   string
	ingestHTTPSProxy  string
	ingestWipe        bool
	ingestTimeout     time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [file.jsonl]",
	Short: "Extract atomic facts with an LLM and import them into Neo4j",
	Long: `Ingest splits each document into token windows, extracts the atomic
facts of every window with the configured LLM, and merges documents,
chunks, facts and key elements into the graph. A document is imported
all-or-nothing: if any of its windows fails extraction, nothing of
that document reaches the graph and the batch moves on.

Graph credentials come from NEO4J_URI, NEO4J_USERNAME and
NEO4J_PASSWORD (or the config file).

Example:
  graphloom ingest llm-ready.jsonl
  graphloom ingest llm-ready.jsonl --llm-provider anthropic --wipe
  graphloom ingest --text "INSAT-3D carries a six channel imager." --name insat-3d`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this text instead of a file")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name for --text")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 2000, "tokens per extraction window")
	ingestCmd.Flags().IntVar(&ingestOverlap, "chunk-overlap", 200, "token overlap between windows")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 8, "parallel LLM calls per document")
	ingestCmd.Flags().StringVar(&ingestProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	ingestCmd.Flags().StringVar(&ingestModel, "llm-model", "", "LLM model name (empty = provider default)")
	ingestCmd.Flags().StringVar(&ingestHTTPProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	ingestCmd.Flags().StringVar(&ingestHTTPSProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	ingestCmd.Flags().BoolVar(&ingestWipe, "wipe", false, "delete the entire graph before importing")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 0, "overall ingestion timeout (0 = no limit)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	var file string
	if len(args) == 1 {
		file = args[0]
	}
	if file == "" && ingestText == "" {
		return fmt.Errorf("nothing to ingest: pass a chunk JSONL file or --text")
	}
	if ingestText != "" && ingestName == "" {
		return fmt.Errorf("--text needs --name to identify the document")
	}

	ctx := context.Background()
	if ingestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ingestTimeout)
		defer cancel()
	}

	// Build configuration from flags
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Extraction.ChunkSize = ingestChunkSize
	cfg.Extraction.ChunkOverlap = ingestOverlap
	cfg.Extraction.Concurrency = ingestConcurrency
	cfg.LLM.Provider = ingestProvider
	if ingestModel != "" {
		cfg.LLM.Model = ingestModel
	}
	if ingestHTTPProxy != "" {
		cfg.HTTP.HTTPProxy = ingestHTTPProxy
	}
	if ingestHTTPSProxy != "" {
		cfg.HTTP.HTTPSProxy = ingestHTTPSProxy
	}
	if err := resolveLLMKey(cfg); err != nil {
		return err
	}
	graphCredentials(cfg)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return err
	}
	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("LLM provider %s is not reachable: check credentials and connectivity", provider.Name())
	}

	tok, err := tokenizer.ForEncoding(tokenizer.EncodingCL100K)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	splitter, err := extract.NewSplitter(tok, cfg.Extraction.ChunkSize, cfg.Extraction.ChunkOverlap)
	if err != nil {
		return err
	}
	extractor := extract.NewExtractor(provider, splitter, cfg.Extraction.Concurrency, logger)

	store, err := graph.Connect(ctx, cfg.Graph, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(ctx) }()

	if ingestWipe {
		if err := store.Wipe(ctx); err != nil {
			return fmt.Errorf("wipe graph: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Graph wiped\n")
	}

	ing := pipeline.NewIngestor(extractor, store, logger)

	if file == "" {
		if err := ing.IngestDocument(ctx, ingestText, ingestName); err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Ingested document %s\n", ingestName)
		return nil
	}

	stats, err := ing.IngestFile(ctx, file)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Ingested %d documents from %s\n", stats.Documents, file)
	if stats.Failed > 0 {
		fmt.Fprintf(os.Stderr, "✗ %d records failed or were skipped\n", stats.Failed)
	}
	return nil
}

// resolveLLMKey pulls the provider API key from the environment when the
// config file leaves it unset.
func resolveLLMKey(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

// graphCredentials fills graph connection settings from the conventional
// NEO4J_* environment variables when the config file leaves them unset.
func graphCredentials(cfg *model.Config) {
	if cfg.Graph.URI == "" {
		cfg.Graph.URI = os.Getenv("NEO4J_URI")
	}
	if cfg.Graph.Username == "" {
		cfg.Graph.Username = os.Getenv("NEO4J_USERNAME")
	}
	if cfg.Graph.Password == "" {
		cfg.Graph.Password = os.Getenv("NEO4J_PASSWORD")
	}
	if cfg.Graph.Database == "" {
		cfg.Graph.Database = os.Getenv("NEO4J_DATABASE")
	}
}
