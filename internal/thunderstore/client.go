// Package thunderstore resolves and installs Thunderstore packages.
package thunderstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hqlauncher/hq-installer/internal/downloader"
	"github.com/hqlauncher/hq-installer/internal/manifest"
)

const BaseURL = "https://thunderstore.io"

// Client talks to the Thunderstore package API. A zero Client uses BaseURL
// and http.DefaultClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

type packageInfo struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Latest    struct {
		VersionNumber string `json:"version_number"`
		DownloadURL   string `json:"download_url"`
	} `json:"latest"`
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return BaseURL
}

// DownloadURL returns the package download URL for an exact version.
func (c *Client) DownloadURL(id manifest.PackageID, version string) string {
	return fmt.Sprintf("%s/package/download/%s/%s/%s/",
		c.base(), url.PathEscape(id.Dev), url.PathEscape(id.Name), url.PathEscape(version))
}

// LatestVersion returns the latest published version of a package.
func (c *Client) LatestVersion(ctx context.Context, id manifest.PackageID) (string, error) {
	endpoint := fmt.Sprintf("%s/api/experimental/package/%s/%s/",
		c.base(), url.PathEscape(id.Dev), url.PathEscape(id.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", downloader.UserAgent)
	req.Header.Set("Accept", "application/json")

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("looking up %s: HTTP %d", id, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s metadata: %w", id, err)
	}

	var info packageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("parsing %s metadata: %w", id, err)
	}
	if info.Latest.VersionNumber == "" {
		return "", fmt.Errorf("%s has no published version", id)
	}
	return info.Latest.VersionNumber, nil
}
