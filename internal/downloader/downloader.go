package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hqlauncher/hq-installer/internal/logging"
)

// UserAgent is sent with every request; Thunderstore rejects some anonymous clients.
const UserAgent = "hq-launcher/0.1"

// Download is one file fetched by Run.
type Download struct {
	URL      string
	Filename string
	// Package organizes the cache into per-package subdirectories.
	Package string
}

type Result struct {
	Download Download
	Err      error
}

type Progress struct {
	Completed int64
	Total     int64
}

// Client performs downloads. A zero Client uses http.DefaultClient.
type Client struct {
	HTTPClient *http.Client
	// CacheDir, when set, keeps a copy of every Run download and serves
	// later requests for the same package file from it.
	CacheDir string
	// RetryDelay is the base backoff between attempts.
	RetryDelay time.Duration
	// Verify, when set, checks every Run download. A file that fails is
	// never cached, and a cached copy that fails is evicted and fetched again.
	Verify func(path string) error
}

const maxRetries = 3

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return 2 * time.Second
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// Stream downloads url to destPath in a single attempt, calling onChunk
// after every chunk written. total is -1 when the server sends no length.
func (c *Client) Stream(ctx context.Context, url, destPath string, onChunk func(downloaded, total int64)) error {
	logging.Debugf("Verbose: stream start url=%s dest=%s\n", url, destPath)
	resp, err := c.get(ctx, url)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", destPath, err)
			}
			downloaded += int64(n)
			if onChunk != nil {
				onChunk(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			return fmt.Errorf("reading %s: %w", url, readErr)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", destPath, err)
	}
	logging.Debugf("Verbose: stream complete bytes=%d dest=%s\n", downloaded, destPath)
	return nil
}

// Run downloads files concurrently to destDir with the given concurrency.
// It calls onProgress after each completed download.
func (c *Client) Run(ctx context.Context, downloads []Download, destDir string, concurrency int, onProgress func(Progress)) []Result {
	if concurrency < 1 {
		concurrency = 6
	}

	total := int64(len(downloads))
	var completed atomic.Int64

	results := make([]Result, len(downloads))
	work := make(chan int, len(downloads))

	for i := range downloads {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				dl := downloads[i]
				err := c.downloadFileWithRetry(ctx, dl, destDir)
				results[i] = Result{Download: dl, Err: err}

				n := completed.Add(1)
				if onProgress != nil {
					onProgress(Progress{Completed: n, Total: total})
				}
			}
		}()
	}

	wg.Wait()
	return results
}

func (c *Client) downloadFileWithRetry(ctx context.Context, dl Download, destDir string) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logging.Debugf("Verbose: retrying download %s attempt=%d/%d\n", dl.Filename, attempt+1, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay()):
			}
		}

		lastErr = c.downloadFile(ctx, dl, destDir)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) downloadFile(ctx context.Context, dl Download, destDir string) error {
	destPath := filepath.Join(destDir, dl.Filename)
	logging.Debugf("Verbose: download start package=%s filename=%s url=%s\n", dl.Package, dl.Filename, dl.URL)

	cachePath := ""
	if c.CacheDir != "" {
		cachePath = filepath.Join(c.CacheDir, dl.Package, dl.Filename)
		if _, err := os.Stat(cachePath); err == nil {
			if c.verify(cachePath) == nil {
				logging.Debugf("Verbose: cache hit package=%s file=%s\n", dl.Package, dl.Filename)
				return copyFile(cachePath, destPath)
			}
			logging.Debugf("Verbose: evicting invalid cache entry %s\n", cachePath)
			if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("evicting %s: %w", cachePath, err)
			}
		} else {
			logging.Debugf("Verbose: cache miss package=%s file=%s\n", dl.Package, dl.Filename)
		}
	}

	resp, err := c.get(ctx, dl.URL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", dl.Filename, err)
	}
	defer resp.Body.Close()

	if err := writeAtomic(destPath, resp.Body); err != nil {
		return fmt.Errorf("saving %s: %w", dl.Filename, err)
	}
	if err := c.verify(destPath); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("verifying %s: %w", dl.Filename, err)
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return fmt.Errorf("creating cache dir for %s: %w", dl.Package, err)
		}
		if err := copyFile(destPath, cachePath); err != nil {
			return fmt.Errorf("caching %s: %w", dl.Filename, err)
		}
	}
	logging.Debugf("Verbose: download complete file=%s\n", dl.Filename)
	return nil
}

func (c *Client) verify(path string) error {
	if c.Verify == nil {
		return nil
	}
	return c.Verify(path)
}

// writeAtomic writes r to path.tmp and renames it into place.
func writeAtomic(path string, r io.Reader) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}

	_, err = io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

// copyFile copies src to dst using an atomic write.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	return writeAtomic(dst, in)
}
