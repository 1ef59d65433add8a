package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/hqlauncher/hq-installer/internal/archive"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/progress"
)

// fraction returns done/total, treating an empty total as complete.
func fraction[T int | int64](done, total T) float64 {
	if total <= 0 {
		return 1
	}
	return min(max(float64(done)/float64(total), 0), 1)
}

// runWorker runs fn on its own goroutine and waits for it.
func runWorker(fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	return <-done
}

// fetchZip streams url to dest and checks the zip signature, reporting
// download progress in the first half of step.
func (p *Pipeline) fetchZip(ctx context.Context, tr *progress.Tracker, step int, url, dest, label string) error {
	err := p.Download.Stream(ctx, url, dest, func(downloaded, total int64) {
		sp := 0.0
		if total > 0 {
			sp = fraction(downloaded, total)
		}
		tr.Step(step, sp*0.5, progress.Bytes(
			fmt.Sprintf("Downloading %s... %d MB", label, downloaded/1024/1024), downloaded, total))
	})
	if err != nil {
		os.Remove(dest)
		return wrap(ErrDownload, "downloading "+label, err)
	}
	if err := archive.RequireZip(dest); err != nil {
		return wrap(ErrDownload, label+" download is not a valid zip, please retry", err)
	}
	return nil
}

// extractZip runs extract on a worker, reporting progress in the second half
// of step, and removes the archive afterwards.
func (p *Pipeline) extractZip(tr *progress.Tracker, step int, zipPath, label string, extract func(archive.ProgressFunc) error) error {
	err := runWorker(func() error {
		return extract(func(done, total int, name string) {
			tr.Step(step, 0.5+fraction(done, total)*0.5,
				progress.Files(fmt.Sprintf("Extracting %s... %s", label, name), done, total))
		})
	})
	if err != nil {
		return wrap(ErrExtraction, "extracting "+label, err)
	}
	if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		logging.Debugf("Verbose: removing %s: %v\n", zipPath, err)
	}
	return nil
}

// installMods hands the resolved mod set to the installer, reporting
// done/total as step progress.
func (p *Pipeline) installMods(ctx context.Context, tr *progress.Tracker, step int, root string, version uint32, mods manifest.ModsConfig) error {
	resolved := mods.Resolve(version)
	logging.Debugf("Verbose: v%d resolved mods=%d of %d\n", version, len(resolved), len(mods.Mods))

	err := p.Mods.InstallMods(ctx, root, version, resolved, func(done, total int, detail string) {
		tr.Step(step, fraction(done, total), progress.Files(detail, done, total))
	})
	if err != nil {
		return wrap(ErrDownload, "installing mods", err)
	}
	return nil
}
