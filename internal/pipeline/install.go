package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/progress"
)

// Install performs a fresh install of gameVersion into its version
// directory and returns that directory. Exactly one terminal event is
// emitted. Files written before a failure are left in place.
func (p *Pipeline) Install(ctx context.Context, gameVersion uint32, opts InstallOptions) (string, error) {
	tr := progress.NewTracker(p.Sink, gameVersion, InstallSteps)
	root := p.Layout.VersionDir(gameVersion)
	logging.Debugf("Verbose: install start run=%s version=%d root=%s practice=%t\n", tr.RunID(), gameVersion, root, opts.Practice)

	if err := p.install(ctx, tr, root, opts); err != nil {
		logging.Debugf("Verbose: install failed run=%s: %v\n", tr.RunID(), err)
		tr.Fail(err)
		return "", err
	}

	tr.Finish(root)
	return root, nil
}

func (p *Pipeline) install(ctx context.Context, tr *progress.Tracker, root string, opts InstallOptions) error {
	version := tr.Version()

	// Step 1: Login Check
	tr.Step(1, 0, progress.Detail{Text: "Checking Steam login..."})
	login := p.Depot.LoginState(ctx)
	if !login.LoggedIn {
		return wrap(ErrAuth, "not logged in to Steam, set a username and log in with DepotDownloader first", nil)
	}
	tr.Step(1, 1, progress.Detail{Text: "Logged in as " + login.Username})

	remote, err := p.Manifest.Fetch(ctx)
	if err != nil {
		return wrap(ErrManifest, "fetching manifest", err)
	}

	// Step 2: Download Game
	tr.Step(2, 0, progress.Bytes("Starting download...", 0, 0))
	depotID, ok := remote.DepotFor(version)
	if !ok {
		return wrap(ErrManifest, fmt.Sprintf("no depot manifest id for game version %d", version), nil)
	}
	if err := os.RemoveAll(root); err != nil {
		return wrap(ErrFilesystem, "removing previous install", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return wrap(ErrFilesystem, "creating version directory", err)
	}
	logging.Infof("Downloading Lethal Company v%d to %s\n", version, root)
	if err := p.Depot.DownloadDepot(ctx, depotID, root); err != nil {
		return wrap(ErrDownload, "downloading game", err)
	}
	tr.Step(2, 1, progress.Detail{Text: "Download complete"})

	// Step 3: Install BepInEx
	tr.Step(3, 0, progress.Bytes("Downloading BepInEx...", 0, 0))
	if err := os.MkdirAll(p.Layout.TempDir(), 0o755); err != nil {
		return wrap(ErrFilesystem, "creating temp directory", err)
	}
	zipPath := filepath.Join(p.Layout.TempDir(), "bepinexpack_"+LoaderVersion+".zip")
	if err := p.fetchZip(ctx, tr, 3, p.loaderURL(), zipPath, "BepInExPack"); err != nil {
		return err
	}
	err = p.extractZip(tr, 3, zipPath, "BepInExPack", func(onProgress archive.ProgressFunc) error {
		return p.Extractor.ExtractPackage(ctx, zipPath, root, onProgress)
	})
	if err != nil {
		return err
	}
	tr.Step(3, 1, progress.Detail{Text: "BepInExPack " + LoaderVersion + " installed"})

	// Step 4: Install Config
	tr.Step(4, 0, progress.Detail{Text: "Setting up config..."})
	link, err := p.Linker.EnsureLink(root)
	if err != nil {
		return linkError(err)
	}
	tr.Step(4, 1, progress.Detail{Text: linkDetail(link.Degraded)})

	// Step 5: Install Mods
	tr.Step(5, 0, progress.Detail{Text: "Installing mods..."})
	if err := os.MkdirAll(p.Mods.PluginsDir(root), 0o755); err != nil {
		return wrap(ErrFilesystem, "creating plugins directory", err)
	}
	mods := manifest.ModsConfig{Mods: slices.Clone(remote.Mods.Mods)}
	if opts.Practice {
		added := mods.Merge(manifest.PracticeMods())
		logging.Debugf("Verbose: practice mods added=%d\n", added)
	}
	if err := p.installMods(ctx, tr, 5, root, version, mods); err != nil {
		return err
	}
	tr.Step(5, 1, progress.Detail{Text: "Mods installed"})
	return nil
}

func linkDetail(degraded bool) string {
	if degraded {
		return "Config installed without a shared link (links unsupported)"
	}
	return "Config linked to shared directory"
}
