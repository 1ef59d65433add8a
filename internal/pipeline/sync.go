package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/configlink"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/progress"
)

// Sync applies the remote manifest additively to the latest installed
// version. It is a silent no-op when nothing is installed or when the
// remote manifest version was already applied. The stored manifest version
// changes only after both steps succeed.
func (p *Pipeline) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	version, ok, err := p.Layout.LatestInstalled()
	if err != nil {
		return SyncResult{}, wrap(ErrFilesystem, "scanning installed versions", err)
	}
	if !ok {
		logging.Debugf("Verbose: sync skipped, no installed version\n")
		return SyncResult{Skipped: true, Reason: "no installed version"}, nil
	}

	res := SyncResult{GameVersion: version}
	tr := progress.NewTracker(p.Sink, version, SyncSteps)
	fail := func(err error) (SyncResult, error) {
		logging.Debugf("Verbose: sync failed run=%s: %v\n", tr.RunID(), err)
		tr.Fail(err)
		return res, err
	}

	remote, err := p.Manifest.Fetch(ctx)
	if err != nil {
		return fail(wrap(ErrManifest, "fetching manifest", err))
	}
	res.ManifestVersion = remote.ManifestVersion

	statePath := p.Layout.StatePath()
	state, err := config.LoadManifestState(statePath)
	if err != nil {
		return fail(wrap(ErrFilesystem, "reading manifest state", err))
	}

	if !opts.Force && state.ManifestVersion == remote.ManifestVersion {
		logging.Debugf("Verbose: manifest up to date version=%d\n", remote.ManifestVersion)
		res.Skipped, res.Reason = true, "manifest up to date"
		return res, nil
	}
	logging.Infof("Manifest changed: local=%d remote=%d, applying additive updates to v%d\n",
		state.ManifestVersion, remote.ManifestVersion, version)

	root := p.Layout.VersionDir(version)
	if err := p.sync(ctx, tr, root, remote); err != nil {
		return fail(err)
	}

	state.ManifestVersion = remote.ManifestVersion
	if err := state.Save(statePath); err != nil {
		return fail(wrap(ErrFilesystem, "saving manifest state", err))
	}

	tr.Finish(root)
	return res, nil
}

func (p *Pipeline) sync(ctx context.Context, tr *progress.Tracker, root string, remote *manifest.Remote) error {
	version := tr.Version()

	// Step 1: Sync Config
	tr.Step(1, 0, progress.Detail{Text: "Downloading default_config.zip..."})
	tmpDir := filepath.Join(root, ".hq-launcher", "tmp", "config")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return wrap(ErrFilesystem, "creating temp directory", err)
	}
	zipPath := filepath.Join(tmpDir, "default_config.zip")
	if err := p.fetchZip(ctx, tr, 1, p.configURL(), zipPath, "default config"); err != nil {
		return err
	}

	link, err := p.Linker.EnsureLink(root)
	if err != nil {
		return linkError(err)
	}
	if link.Degraded {
		tr.Step(1, 0.5, progress.Detail{Text: linkDetail(true)})
	}

	err = p.extractZip(tr, 1, zipPath, "default config", func(onProgress archive.ProgressFunc) error {
		return p.Extractor.ExtractAddOnly(ctx, zipPath, link.SharedDir, onProgress)
	})
	if err != nil {
		return err
	}
	if link.Degraded {
		if _, err := configlink.CopyDirAddOnly(link.SharedDir, config.GameConfigDir(root)); err != nil {
			return wrap(ErrFilesystem, "copying config into unlinked version", err)
		}
	}
	tr.Step(1, 1, progress.Detail{Text: "Config synced"})

	// Step 2: Sync Mods
	tr.Step(2, 0, progress.Detail{Text: "Applying manifest..."})
	if err := p.installMods(ctx, tr, 2, root, version, remote.Mods); err != nil {
		return err
	}
	tr.Step(2, 1, progress.Detail{Text: "Sync complete"})
	return nil
}
