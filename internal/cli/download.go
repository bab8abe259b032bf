package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphloom/graphloom/internal/pdftext"
	"github.com/graphloom/graphloom/internal/tokenizer"
	"github.com/graphloom/graphloom/internal/worker"
)

var (
	downloadLinks   string
	downloadOut     string
	downloadStore   string
	downloadWorkers int
	downloadTimeout time.Duration
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download discovered PDFs and extract their text",
	Long: `Download fetches every PDF link in the crawl artifact, extracts the
text of each document and counts its tokens, writing one raw-text
record per PDF. Files are stored under a name derived from the URL, so
a rerun skips PDFs that are already on disk.

Example:
  graphloom download --links pdf-links.jsonl --out pdf-text.jsonl
  graphloom download --links pdf-links.jsonl --store ./pdfs --workers 4`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadLinks, "links", "pdf-links.jsonl", "crawl artifact JSONL with PDF links")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "pdf-text.jsonl", "output JSONL for raw-text records")
	downloadCmd.Flags().StringVar(&downloadStore, "store", "downloaded_pdfs", "directory for downloaded PDFs")
	downloadCmd.Flags().IntVar(&downloadWorkers, "workers", 1, "concurrent downloads")
	downloadCmd.Flags().DurationVar(&downloadTimeout, "timeout", 0, "overall batch timeout (0 = no limit)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, downloadTimeout)
		defer cancel()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.PDF.StoreDir = downloadStore
	cfg.PDF.Workers = downloadWorkers

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tok, err := tokenizer.ForEncoding(tokenizer.EncodingCL100K)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	dl := pdftext.NewDownloader(cfg.PDF.StoreDir,
		time.Duration(cfg.PDF.Timeout)*time.Second, cfg.HTTP.UserAgent, limiter)

	proc := pdftext.NewProcessor(pdftext.Config{
		LinksPath: downloadLinks,
		OutPath:   downloadOut,
		StoreDir:  cfg.PDF.StoreDir,
		Workers:   cfg.PDF.Workers,
	}, dl, tok, logger)

	stats, err := proc.Run(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d of %d PDFs (%d failed)\n",
		stats.Processed, stats.Links, stats.Failed)
	fmt.Fprintf(os.Stderr, "✓ Raw text written to %s\n", downloadOut)
	return nil
}
