// Package configlink points every installed game version's config directory
// at one shared directory.
package configlink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/logging"
)

var (
	// ErrLinkUnsupported is returned by a DirectoryLinker when the platform or
	// filesystem cannot create directory links.
	ErrLinkUnsupported = errors.New("directory links are not supported")
	// ErrCreateLink wraps failures of the link creation itself, as opposed
	// to the filesystem work around it.
	ErrCreateLink = errors.New("creating config link")
)

// DirectoryLinker creates and detects directory links.
type DirectoryLinker interface {
	CreateLink(link, target string) error
	IsLink(path string) (bool, error)
}

// Result describes the outcome of EnsureLink.
type Result struct {
	SharedDir string
	// Degraded is set when a plain directory was created instead of a link.
	// It is seeded with a copy of the shared directory and does not track
	// later changes to it.
	Degraded bool
}

// Linker maintains links from game config directories to SharedDir.
type Linker struct {
	SharedDir string
	Links     DirectoryLinker
}

// New returns a Linker using the platform's native links.
func New(sharedDir string) *Linker {
	return &Linker{SharedDir: sharedDir, Links: NativeLinker{}}
}

// EnsureLink makes gameRoot's config directory a link to the shared
// directory. It is idempotent. Files already present in a real config
// directory are merged into the shared directory without overwriting
// anything before the directory is replaced.
func (l *Linker) EnsureLink(gameRoot string) (Result, error) {
	res := Result{SharedDir: l.SharedDir}
	if err := os.MkdirAll(l.SharedDir, 0o755); err != nil {
		return res, fmt.Errorf("creating shared config dir: %w", err)
	}

	cfgPath := config.GameConfigDir(gameRoot)
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return res, fmt.Errorf("creating %s: %w", filepath.Dir(cfgPath), err)
	}

	if samePath(cfgPath, l.SharedDir) {
		logging.Debugf("Verbose: config already linked path=%s\n", cfgPath)
		return res, nil
	}

	if err := l.clear(cfgPath); err != nil {
		return res, err
	}

	err := l.Links.CreateLink(cfgPath, l.SharedDir)
	switch {
	case err == nil:
		logging.Debugf("Verbose: linked %s -> %s\n", cfgPath, l.SharedDir)
		return res, nil
	case errors.Is(err, ErrLinkUnsupported):
		if err := os.MkdirAll(cfgPath, 0o755); err != nil {
			return res, fmt.Errorf("creating %s: %w", cfgPath, err)
		}
		if _, err := CopyDirAddOnly(l.SharedDir, cfgPath); err != nil {
			return res, fmt.Errorf("seeding %s: %w", cfgPath, err)
		}
		logging.Warnf("directory links unavailable, %s is a plain directory and will not share config\n", cfgPath)
		res.Degraded = true
		return res, nil
	default:
		return res, fmt.Errorf("%w %s -> %s: %w", ErrCreateLink, cfgPath, l.SharedDir, err)
	}
}

// clear empties the config path so a link can be created there.
func (l *Linker) clear(cfgPath string) error {
	info, err := os.Lstat(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("inspecting %s: %w", cfgPath, err)
	}

	isLink, err := l.Links.IsLink(cfgPath)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", cfgPath, err)
	}

	switch {
	case isLink:
		// Only the link goes; its target is left alone.
		if err := os.Remove(cfgPath); err != nil {
			return fmt.Errorf("removing stale link %s: %w", cfgPath, err)
		}
	case info.IsDir():
		copied, err := CopyDirAddOnly(cfgPath, l.SharedDir)
		if err != nil {
			return fmt.Errorf("migrating %s: %w", cfgPath, err)
		}
		logging.Debugf("Verbose: migrated config files=%d from=%s\n", copied, cfgPath)
		if err := os.RemoveAll(cfgPath); err != nil {
			return fmt.Errorf("removing %s: %w", cfgPath, err)
		}
	default:
		if err := os.Remove(cfgPath); err != nil {
			return fmt.Errorf("removing %s: %w", cfgPath, err)
		}
	}
	return nil
}

// samePath reports whether a and b resolve to the same location.
func samePath(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		return false
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		return false
	}
	if ra == rb {
		return true
	}
	ia, errA := os.Stat(ra)
	ib, errB := os.Stat(rb)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}
