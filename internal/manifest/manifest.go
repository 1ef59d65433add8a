package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hqlauncher/hq-installer/internal/logging"
)

const ManifestURL = "https://f.asta.rs/hq-launcher/manifest.json"

// Remote is the normalized form of the published manifest.
type Remote struct {
	// ManifestVersion is a server-assigned counter bumped on every publish.
	ManifestVersion uint32
	// Depots maps a game version to its depot manifest id.
	Depots map[uint32]string
	// ChainConfig is load-order data passed through untouched.
	ChainConfig [][]string
	Mods        ModsConfig
}

// DepotFor returns the depot manifest id for a game version.
func (r *Remote) DepotFor(gameVersion uint32) (string, bool) {
	id, ok := r.Depots[gameVersion]
	return id, ok && id != ""
}

type wireManifest struct {
	Version     uint32            `json:"version"`
	Manifests   map[string]string `json:"manifests"`
	ChainConfig [][]string        `json:"chain_config"`
	Mods        []ModEntry        `json:"mods"`
}

// Parse decodes manifest JSON. Game-version keys must be numeric.
func Parse(data []byte) (*Remote, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	depots, err := parseVersionKeys(w.Manifests)
	if err != nil {
		return nil, fmt.Errorf("manifests: %w", err)
	}

	return &Remote{
		ManifestVersion: w.Version,
		Depots:          depots,
		ChainConfig:     w.ChainConfig,
		Mods:            ModsConfig{Mods: w.Mods},
	}, nil
}

func parseVersionKeys(in map[string]string) (map[uint32]string, error) {
	out := make(map[uint32]string, len(in))
	for k, v := range in {
		n, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid game version key %q", k)
		}
		out[uint32(n)] = v
	}
	return out, nil
}

// Client fetches the remote manifest. A zero Client uses ManifestURL,
// http.DefaultClient and the built-in alias table.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Aliases    []Alias
}

// Fetch performs a single GET of the manifest. It never retries; callers
// decide whether to run again.
func (c *Client) Fetch(ctx context.Context) (*Remote, error) {
	url := c.URL
	if url == "" {
		url = ManifestURL
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	aliases := c.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}

	logging.Debugf("Verbose: fetching manifest url=%s\n", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching manifest: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Mods.NormalizeAliases(aliases) {
		logging.Debugf("Verbose: manifest aliases rewritten\n")
	}
	for _, bad := range m.Mods.InvalidPins() {
		logging.Debugf("Verbose: non-semver pin %s\n", bad)
	}
	logging.Debugf(
		"Verbose: fetched manifest version=%d mods=%d depots=%d chains=%d\n",
		m.ManifestVersion,
		len(m.Mods.Mods),
		len(m.Depots),
		len(m.ChainConfig),
	)
	return m, nil
}
