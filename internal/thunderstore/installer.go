package thunderstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/diff"
	"github.com/hqlauncher/hq-installer/internal/downloader"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/manifest"
)

// MarkerFile records which package version a plugin directory holds.
const MarkerFile = ".hq-package.json"

type marker struct {
	Dev     string `json:"dev"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Installer places packages under BepInEx/plugins/<dev>-<name>/.
//
// It is idempotent: a package whose marker already matches the wanted
// version is neither downloaded nor touched. A package at a different
// version has its own directory replaced; nothing else under plugins is
// removed.
type Installer struct {
	API         *Client
	Downloads   *downloader.Client
	Concurrency int
}

// NewInstaller returns an Installer with default clients.
func NewInstaller(concurrency int, cacheDir string) *Installer {
	return &Installer{
		API:         &Client{},
		Downloads:   &downloader.Client{CacheDir: cacheDir, Verify: archive.RequireZip},
		Concurrency: concurrency,
	}
}

func (in *Installer) concurrency() int {
	if in.Concurrency < 1 {
		return 6
	}
	return in.Concurrency
}

func (in *Installer) PluginsDir(root string) string {
	return config.PluginsDir(root)
}

// ResolveVersions fills in the latest version of every unpinned mod.
func (in *Installer) ResolveVersions(ctx context.Context, mods []manifest.ResolvedMod) ([]manifest.ResolvedMod, error) {
	out := slices.Clone(mods)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency())
	for i := range out {
		if out[i].Version != "" {
			continue
		}
		g.Go(func() error {
			v, err := in.API.LatestVersion(gctx, out[i].ID())
			if err != nil {
				return err
			}
			logging.Debugf("Verbose: resolved latest %s=%s\n", out[i].ID(), v)
			out[i].Version = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Installed reads the package markers under pluginsDir. A missing
// directory yields an empty map.
func Installed(pluginsDir string) (map[manifest.PackageID]string, error) {
	out := make(map[manifest.PackageID]string)
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("reading %s: %w", pluginsDir, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(pluginsDir, e.Name(), MarkerFile))
		if err != nil {
			continue
		}
		var m marker
		if err := json.Unmarshal(data, &m); err != nil || m.Dev == "" || m.Name == "" {
			logging.Debugf("Verbose: ignoring unreadable marker in %s\n", e.Name())
			continue
		}
		out[manifest.PackageID{Dev: m.Dev, Name: m.Name}] = m.Version
	}
	return out, nil
}

// InstallMods installs mods into root's plugins directory and reports one
// progress tick per package. Failed packages do not stop the others; their
// errors are joined into the result.
func (in *Installer) InstallMods(ctx context.Context, root string, gameVersion uint32, mods []manifest.ResolvedMod, onProgress func(done, total int, detail string)) error {
	var mu sync.Mutex
	report := func(done, total int, detail string) {
		if onProgress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onProgress(done, total, detail)
	}

	plugins := in.PluginsDir(root)
	if err := os.MkdirAll(plugins, 0o755); err != nil {
		return fmt.Errorf("creating plugins dir: %w", err)
	}

	resolved, err := in.ResolveVersions(ctx, mods)
	if err != nil {
		return fmt.Errorf("resolving mod versions: %w", err)
	}
	installed, err := Installed(plugins)
	if err != nil {
		return err
	}

	total := len(resolved)
	done := 0
	var pending []manifest.ResolvedMod
	changes := diff.Compute(installed, resolved)
	for i, m := range resolved {
		if changes[i].Type == diff.Unchanged {
			done++
			report(done, total, m.String()+" up to date")
			continue
		}
		pending = append(pending, m)
	}
	logging.Debugf("Verbose: mods for v%d total=%d pending=%d\n", gameVersion, total, len(pending))
	if len(pending) == 0 {
		return nil
	}

	tmp := filepath.Join(root, ".hq-launcher", "tmp", "mods")
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	defer os.RemoveAll(tmp)

	downloads := make([]downloader.Download, len(pending))
	for i, m := range pending {
		downloads[i] = downloader.Download{
			URL:      in.API.DownloadURL(m.ID(), m.Version),
			Filename: m.ID().String() + "-" + m.Version + ".zip",
			Package:  m.ID().String(),
		}
	}

	// Packages that are not zips must never reach the download cache.
	dl := *in.Downloads
	if dl.Verify == nil {
		dl.Verify = archive.RequireZip
	}
	results := dl.Run(ctx, downloads, tmp, in.concurrency(), func(p downloader.Progress) {
		report(done, total, fmt.Sprintf("Downloaded %d/%d packages", p.Completed, p.Total))
	})

	var errs []error
	for i, r := range results {
		m := pending[i]
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, r.Err))
			continue
		}
		if err := installPackage(ctx, filepath.Join(tmp, r.Download.Filename), plugins, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
			continue
		}
		done++
		report(done, total, "Installed "+m.String())
	}
	return errors.Join(errs...)
}

func installPackage(ctx context.Context, zipPath, pluginsDir string, m manifest.ResolvedMod) error {
	if err := archive.RequireZip(zipPath); err != nil {
		return err
	}
	defer os.Remove(zipPath)

	dir := filepath.Join(pluginsDir, m.ID().String())
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing previous version: %w", err)
	}
	if err := archive.ExtractAll(ctx, zipPath, dir, nil); err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	data, err := json.MarshalIndent(marker{Dev: m.Dev, Name: m.Name, Version: m.Version}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling marker: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), data, 0o644); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	return nil
}
