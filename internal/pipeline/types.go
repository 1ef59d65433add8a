// Package pipeline runs the install and sync workflows for a game version.
package pipeline

import (
	"context"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/configlink"
	"github.com/hqlauncher/hq-installer/internal/depot"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/progress"
)

const (
	LoaderVersion = "5.4.2304"
	LoaderURL     = "https://thunderstore.io/package/download/BepInEx/BepInExPack/" + LoaderVersion + "/"
	ConfigURL     = "https://f.asta.rs/hq-launcher/default_config.zip"
)

var (
	InstallSteps = []string{"Login Check", "Download Game", "Install BepInEx", "Install Config", "Install Mods"}
	SyncSteps    = []string{"Sync Config", "Sync Mods"}
)

// Depot fetches game files.
type Depot interface {
	LoginState(ctx context.Context) depot.LoginState
	DownloadDepot(ctx context.Context, manifestID, destDir string) error
}

// Extractor unpacks zip archives.
type Extractor interface {
	ExtractPackage(ctx context.Context, zipPath, destDir string, onProgress archive.ProgressFunc) error
	ExtractAddOnly(ctx context.Context, zipPath, destDir string, onProgress archive.ProgressFunc) error
}

// ModInstaller places mods into a game root. Implementations must be
// idempotent, since a failed sync is retried in full.
type ModInstaller interface {
	InstallMods(ctx context.Context, root string, gameVersion uint32, mods []manifest.ResolvedMod, onProgress func(done, total int, detail string)) error
	PluginsDir(root string) string
}

// ManifestFetcher loads the remote manifest.
type ManifestFetcher interface {
	Fetch(ctx context.Context) (*manifest.Remote, error)
}

// Streamer downloads one file, reporting every chunk.
type Streamer interface {
	Stream(ctx context.Context, url, destPath string, onChunk func(downloaded, total int64)) error
}

// ConfigLinker points a game root's config directory at the shared one.
type ConfigLinker interface {
	EnsureLink(gameRoot string) (configlink.Result, error)
}

// Pipeline holds the collaborators shared by Install and Sync. Runs against
// the same data directory are not serialized; callers must not overlap them.
type Pipeline struct {
	Layout    config.Layout
	Manifest  ManifestFetcher
	Depot     Depot
	Extractor Extractor
	Mods      ModInstaller
	Download  Streamer
	Linker    ConfigLinker
	Sink      progress.Sink

	// LoaderURL and ConfigURL override the package locations.
	LoaderURL string
	ConfigURL string
}

type InstallOptions struct {
	// Practice adds the practice tooling mods to the manifest's set.
	Practice bool
}

type SyncOptions struct {
	// Force applies the manifest even when its version was already synced.
	Force bool
}

// SyncResult describes a completed or skipped sync.
type SyncResult struct {
	GameVersion     uint32
	ManifestVersion uint32
	// Skipped is set when nothing was done; Reason says why.
	Skipped bool
	Reason  string
}

func (p *Pipeline) loaderURL() string {
	if p.LoaderURL != "" {
		return p.LoaderURL
	}
	return LoaderURL
}

func (p *Pipeline) configURL() string {
	if p.ConfigURL != "" {
		return p.ConfigURL
	}
	return ConfigURL
}
