package cmd

import (
	"fmt"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/configlink"
	"github.com/hqlauncher/hq-installer/internal/depot"
	"github.com/hqlauncher/hq-installer/internal/downloader"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/pipeline"
	"github.com/hqlauncher/hq-installer/internal/progress"
	"github.com/hqlauncher/hq-installer/internal/thunderstore"
)

func layout() config.Layout {
	return config.Layout{Root: dataDir}
}

// newManifestClient returns a manifest client using the built-in alias
// table plus any rules in <data>/config/aliases.toml.
func newManifestClient() (*manifest.Client, error) {
	aliases, err := manifest.LoadAliases(layout().AliasesPath())
	if err != nil {
		return nil, err
	}
	return &manifest.Client{Aliases: aliases}, nil
}

func newPipeline(sink progress.Sink) (*pipeline.Pipeline, error) {
	l := layout()
	mc, err := newManifestClient()
	if err != nil {
		return nil, fmt.Errorf("loading manifest aliases: %w", err)
	}
	return &pipeline.Pipeline{
		Layout:    l,
		Manifest:  mc,
		Depot:     depot.New(depotTool, username),
		Extractor: archive.Zip{},
		Mods:      thunderstore.NewInstaller(concurrency, modCacheDir()),
		Download:  &downloader.Client{},
		Linker:    configlink.New(l.SharedConfigDir()),
		Sink:      sink,
	}, nil
}
