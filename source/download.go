package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultTimeout bounds a single dataset download.
const DefaultTimeout = 60 * time.Second

// httpClient is shared by downloads that do not bring their own client.
var httpClient = &http.Client{
	Timeout: DefaultTimeout,
}

// Download fetches url into path unless path already exists. A failed or
// interrupted transfer never leaves a partial file behind.
func Download(ctx context.Context, url, path string) error {
	return DownloadWith(ctx, httpClient, url, path)
}

// DownloadWith is Download with a caller-supplied HTTP client.
func DownloadWith(ctx context.Context, client *http.Client, url, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	// Write next to the target and rename so readers never see a partial file.
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", tmp, err)
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing file %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	success = true
	return nil
}
