package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Layout resolves every path under the launcher data directory.
//
//	<root>/versions/v<N>/          one game install per version
//	<root>/config/shared/          config shared by all versions
//	<root>/config/manifest_state.json
//	<root>/config/aliases.toml
//	<root>/temp/
type Layout struct {
	Root string
}

func (l Layout) VersionsDir() string {
	return filepath.Join(l.Root, "versions")
}

func (l Layout) VersionDir(gameVersion uint32) string {
	return filepath.Join(l.VersionsDir(), "v"+strconv.FormatUint(uint64(gameVersion), 10))
}

func (l Layout) ConfigDir() string {
	return filepath.Join(l.Root, "config")
}

func (l Layout) SharedConfigDir() string {
	return filepath.Join(l.ConfigDir(), "shared")
}

func (l Layout) StatePath() string {
	return filepath.Join(l.ConfigDir(), StateFile)
}

func (l Layout) AliasesPath() string {
	return filepath.Join(l.ConfigDir(), "aliases.toml")
}

func (l Layout) TempDir() string {
	return filepath.Join(l.Root, "temp")
}

// GameConfigDir is where the mod loader reads its config inside a game root.
func GameConfigDir(gameRoot string) string {
	return filepath.Join(gameRoot, "BepInEx", "config")
}

// PluginsDir is where mods are placed inside a game root.
func PluginsDir(gameRoot string) string {
	return filepath.Join(gameRoot, "BepInEx", "plugins")
}

// DefaultRoot returns $XDG_DATA_HOME/hq-launcher, falling back to
// ~/.local/share/hq-launcher.
func DefaultRoot() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "hq-launcher")
}

// ParseVersionDir returns N for a directory named v<N>.
func ParseVersionDir(name string) (uint32, bool) {
	digits, ok := strings.CutPrefix(name, "v")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// InstalledVersions scans the versions directory and returns installed game
// versions in ascending order. A missing directory yields no versions.
func (l Layout) InstalledVersions() ([]uint32, error) {
	entries, err := os.ReadDir(l.VersionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading versions directory: %w", err)
	}

	var versions []uint32
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, ok := ParseVersionDir(e.Name()); ok {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// LatestInstalled returns the greatest installed game version.
func (l Layout) LatestInstalled() (uint32, bool, error) {
	versions, err := l.InstalledVersions()
	if err != nil || len(versions) == 0 {
		return 0, false, err
	}
	return versions[len(versions)-1], true, nil
}
