package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile holds saveable CLI options. All fields are pointers so we can
// distinguish "not set" from zero values.
type Profile struct {
	DataDir         *string `toml:"data-dir,omitempty"`
	Username        *string `toml:"username,omitempty"`
	DepotDownloader *string `toml:"depot-downloader,omitempty"`
	Concurrency     *int    `toml:"concurrency,omitempty"`
	CacheDir        *string `toml:"cache-dir,omitempty"`
	NoCache         *bool   `toml:"no-cache,omitempty"`
	Practice        *bool   `toml:"practice,omitempty"`
	Verbose         *bool   `toml:"verbose,omitempty"`
	LogFile         *string `toml:"log-file,omitempty"`
}

// ErrInvalidName is returned for names that would escape the profiles directory.
var ErrInvalidName = errors.New("invalid profile name")

// Dir returns the profiles directory, using XDG_CONFIG_HOME with a fallback
// to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "hq-launcher", "profiles")
}

func profilePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(Dir(), name+".toml"), nil
}

// Load reads a named profile from the profiles directory.
func Load(name string) (*Profile, error) {
	path, err := profilePath(name)
	if err != nil {
		return nil, err
	}
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("loading profile %q: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("loading profile %q: unknown keys %v", name, undecoded)
	}
	if p.Concurrency != nil && *p.Concurrency < 1 {
		return nil, fmt.Errorf("loading profile %q: concurrency must be at least 1", name)
	}
	return &p, nil
}

// Save writes a profile to the profiles directory, creating it if needed.
func Save(name string, p *Profile) error {
	path, err := profilePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating profiles directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating profile file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return nil
}

// List returns the names of all saved profiles.
func List() ([]string, error) {
	dir := Dir()

	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		if strings.HasSuffix(d.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(d.Name(), ".toml"))
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	return names, err
}

// Delete removes a named profile.
func Delete(name string) error {
	path, err := profilePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	return nil
}
