package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// LatestSentinel is the pin value that means "no pin, use latest".
const LatestSentinel = "0.0.0"

// ModEntry is one Thunderstore package in the curated set.
type ModEntry struct {
	// Dev is the Thunderstore namespace.
	Dev     string
	Name    string
	Enabled bool
	// LowCap and HighCap are inclusive game-version bounds; nil means unbounded.
	LowCap  *uint32
	HighCap *uint32
	// VersionConfig maps a game-version threshold to a pinned package version.
	// {56: "1.0.1", 73: "1.1.1"} pins 1.0.1 for 56..72 and 1.1.1 from 73 on.
	VersionConfig map[uint32]string
}

// ID returns the package identifier of the entry.
func (m ModEntry) ID() PackageID {
	return PackageID{Dev: m.Dev, Name: m.Name}
}

func (m *ModEntry) UnmarshalJSON(data []byte) error {
	var w struct {
		Name          string            `json:"name"`
		Dev           string            `json:"dev"`
		Enabled       *bool             `json:"enabled"`
		LowCap        *uint32           `json:"low_cap"`
		HighCap       *uint32           `json:"high_cap"`
		VersionConfig map[string]string `json:"version_config"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	pins, err := parseVersionKeys(w.VersionConfig)
	if err != nil {
		return fmt.Errorf("mod %s-%s version_config: %w", w.Dev, w.Name, err)
	}

	*m = ModEntry{
		Dev:           w.Dev,
		Name:          w.Name,
		Enabled:       w.Enabled == nil || *w.Enabled,
		LowCap:        w.LowCap,
		HighCap:       w.HighCap,
		VersionConfig: pins,
	}
	return nil
}

func (m ModEntry) MarshalJSON() ([]byte, error) {
	pins := make(map[string]string, len(m.VersionConfig))
	for k, v := range m.VersionConfig {
		pins[strconv.FormatUint(uint64(k), 10)] = v
	}
	return json.Marshal(struct {
		Name          string            `json:"name"`
		Dev           string            `json:"dev"`
		Enabled       bool              `json:"enabled"`
		LowCap        *uint32           `json:"low_cap,omitempty"`
		HighCap       *uint32           `json:"high_cap,omitempty"`
		VersionConfig map[string]string `json:"version_config,omitempty"`
	}{m.Name, m.Dev, m.Enabled, m.LowCap, m.HighCap, pins})
}

// IsCompatible reports whether the entry installs on gameVersion.
func (m ModEntry) IsCompatible(gameVersion uint32) bool {
	if !m.Enabled {
		return false
	}
	if m.LowCap != nil && gameVersion < *m.LowCap {
		return false
	}
	if m.HighCap != nil && gameVersion > *m.HighCap {
		return false
	}
	return true
}

// PinnedVersionFor picks the value of the greatest threshold <= gameVersion.
// ok is false when no threshold matches or the match is LatestSentinel.
func (m ModEntry) PinnedVersionFor(gameVersion uint32) (version string, ok bool) {
	var (
		best  uint32
		found bool
	)
	for _, k := range slices.Sorted(maps.Keys(m.VersionConfig)) {
		if k > gameVersion {
			break
		}
		best, found = k, true
	}
	if !found {
		return "", false
	}
	v := strings.TrimSpace(m.VersionConfig[best])
	if v == LatestSentinel {
		return "", false
	}
	return v, true
}

// ModsConfig is the ordered mod list. Order is install order.
type ModsConfig struct {
	Mods []ModEntry
}

// ResolvedMod is a compatible entry with its pin applied.
// An empty Version means the latest published version.
type ResolvedMod struct {
	Dev     string
	Name    string
	Version string
}

func (r ResolvedMod) ID() PackageID {
	return PackageID{Dev: r.Dev, Name: r.Name}
}

func (r ResolvedMod) String() string {
	v := r.Version
	if v == "" {
		v = "latest"
	}
	return r.Dev + "-" + r.Name + "@" + v
}

// Resolve returns the entries compatible with gameVersion, in config order,
// with version pins applied.
func (c ModsConfig) Resolve(gameVersion uint32) []ResolvedMod {
	var out []ResolvedMod
	for _, m := range c.Mods {
		if !m.IsCompatible(gameVersion) {
			continue
		}
		pin, _ := m.PinnedVersionFor(gameVersion)
		out = append(out, ResolvedMod{Dev: m.Dev, Name: m.Name, Version: pin})
	}
	return out
}

// Merge appends entries whose package id is not already present.
func (c *ModsConfig) Merge(extra []ModEntry) int {
	seen := make(map[PackageID]bool, len(c.Mods))
	for _, m := range c.Mods {
		seen[m.ID()] = true
	}
	added := 0
	for _, m := range extra {
		if seen[m.ID()] {
			continue
		}
		seen[m.ID()] = true
		c.Mods = append(c.Mods, m)
		added++
	}
	return added
}

// InvalidPins lists "dev-name@threshold=value" for pins that are neither the
// latest sentinel nor a parseable semantic version.
func (c ModsConfig) InvalidPins() []string {
	var bad []string
	for _, m := range c.Mods {
		for _, k := range slices.Sorted(maps.Keys(m.VersionConfig)) {
			v := strings.TrimSpace(m.VersionConfig[k])
			if v == LatestSentinel {
				continue
			}
			if _, err := semver.StrictNewVersion(v); err != nil {
				bad = append(bad, fmt.Sprintf("%s-%s@%d=%q", m.Dev, m.Name, k, v))
			}
		}
	}
	return bad
}
