// Package pdftext turns crawl artifacts into raw-text records: it downloads
// the discovered PDFs, extracts their text and counts tokens.
package pdftext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/graphloom/graphloom/internal/ids"
	"github.com/graphloom/graphloom/internal/worker"
)

// baseName is the last path segment of the URL, or a placeholder when the
// URL has no usable one.
func baseName(pdfURL string) string {
	base := "document.pdf"
	if u, err := url.Parse(pdfURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			base = b
		}
	}
	return base
}

// LocalName derives the store filename for a PDF URL: the md5 of the full
// URL joined to the URL's base name. Hashing the whole URL keeps two
// documents both named report.pdf under different paths from colliding.
func LocalName(pdfURL string) string {
	return ids.Content(pdfURL) + "_" + baseName(pdfURL)
}

// Downloader fetches PDFs into a local store directory.
type Downloader struct {
	dir     string
	client  *http.Client
	limiter *worker.Limiter
	agent   string
}

// NewDownloader creates a downloader writing into dir. limiter may be nil
// to download unthrottled.
func NewDownloader(dir string, timeout time.Duration, agent string, limiter *worker.Limiter) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Downloader{
		dir:     dir,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		agent:   agent,
	}
}

// Fetch downloads the PDF to its store path unless a previous run already
// left it there. Returns the local path.
func (d *Downloader) Fetch(ctx context.Context, pdfURL string) (string, error) {
	dest := filepath.Join(d.dir, LocalName(pdfURL))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, pdfURL); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.agent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		// A partial file would be mistaken for a finished download next run.
		os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}
