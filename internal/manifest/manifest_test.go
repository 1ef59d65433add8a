package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func u32(v uint32) *uint32 { return &v }

func TestIsCompatible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  ModEntry
		game uint32
		want bool
	}{
		{name: "enabled unbounded", mod: ModEntry{Enabled: true}, game: 40, want: true},
		{name: "disabled unbounded", mod: ModEntry{Enabled: false}, game: 40, want: false},
		{name: "disabled within bounds", mod: ModEntry{Enabled: false, LowCap: u32(10), HighCap: u32(90)}, game: 50, want: false},
		{name: "below low cap", mod: ModEntry{Enabled: true, LowCap: u32(56)}, game: 55, want: false},
		{name: "at low cap", mod: ModEntry{Enabled: true, LowCap: u32(56)}, game: 56, want: true},
		{name: "at high cap", mod: ModEntry{Enabled: true, HighCap: u32(64)}, game: 64, want: true},
		{name: "above high cap", mod: ModEntry{Enabled: true, HighCap: u32(64)}, game: 65, want: false},
		{name: "inside both caps", mod: ModEntry{Enabled: true, LowCap: u32(49), HighCap: u32(64)}, game: 50, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.mod.IsCompatible(tt.game); got != tt.want {
				t.Fatalf("IsCompatible(%d) = %t, want %t", tt.game, got, tt.want)
			}
		})
	}
}

func TestIsCompatibleMatchesBoundsFormula(t *testing.T) {
	t.Parallel()

	bounds := []*uint32{nil, u32(0), u32(45), u32(56), u32(73)}
	for _, enabled := range []bool{true, false} {
		for _, lo := range bounds {
			for _, hi := range bounds {
				m := ModEntry{Enabled: enabled, LowCap: lo, HighCap: hi}
				for v := uint32(0); v <= 80; v++ {
					want := enabled && (lo == nil || v >= *lo) && (hi == nil || v <= *hi)
					if got := m.IsCompatible(v); got != want {
						t.Fatalf("IsCompatible(%d) with %+v = %t, want %t", v, m, got, want)
					}
				}
			}
		}
	}
}

func TestPinnedVersionFor(t *testing.T) {
	t.Parallel()

	m := ModEntry{Enabled: true, VersionConfig: map[uint32]string{56: "1.0.1", 73: "1.1.1"}}
	tests := []struct {
		game   uint32
		want   string
		wantOK bool
	}{
		{game: 55},
		{game: 56, want: "1.0.1", wantOK: true},
		{game: 72, want: "1.0.1", wantOK: true},
		{game: 73, want: "1.1.1", wantOK: true},
		{game: 999, want: "1.1.1", wantOK: true},
	}
	for _, tt := range tests {
		got, ok := m.PinnedVersionFor(tt.game)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("PinnedVersionFor(%d) = (%q, %t), want (%q, %t)", tt.game, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPinnedVersionForLatestSentinel(t *testing.T) {
	t.Parallel()

	m := ModEntry{Enabled: true, VersionConfig: map[uint32]string{40: "2.0.0", 60: " 0.0.0 "}}
	if got, ok := m.PinnedVersionFor(61); ok {
		t.Fatalf("PinnedVersionFor(61) = %q, want no pin for sentinel", got)
	}
	if got, ok := m.PinnedVersionFor(50); !ok || got != "2.0.0" {
		t.Fatalf("PinnedVersionFor(50) = (%q, %t), want 2.0.0", got, ok)
	}
	if _, ok := (ModEntry{}).PinnedVersionFor(50); ok {
		t.Fatalf("empty version config should not pin")
	}
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"version": 7,
		"manifests": {"49": "111", "73": "222"},
		"chain_config": [["a", "b"], ["c"]],
		"mods": [
			{"dev": "Hardy", "name": "LCMaxSoundFix"},
			{"dev": "x", "name": "Off", "enabled": false, "low_cap": 50, "high_cap": 60,
			 "version_config": {"56": "1.0.1"}}
		]
	}`)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.ManifestVersion != 7 {
		t.Fatalf("ManifestVersion = %d, want 7", m.ManifestVersion)
	}
	if id, ok := m.DepotFor(73); !ok || id != "222" {
		t.Fatalf("DepotFor(73) = (%q, %t)", id, ok)
	}
	if _, ok := m.DepotFor(50); ok {
		t.Fatalf("DepotFor(50) should be absent")
	}
	if len(m.ChainConfig) != 2 || m.ChainConfig[0][1] != "b" {
		t.Fatalf("chain config not passed through: %v", m.ChainConfig)
	}
	if len(m.Mods.Mods) != 2 {
		t.Fatalf("mods = %d, want 2", len(m.Mods.Mods))
	}
	if !m.Mods.Mods[0].Enabled {
		t.Fatalf("enabled should default to true")
	}
	off := m.Mods.Mods[1]
	if off.Enabled || *off.LowCap != 50 || *off.HighCap != 60 || off.VersionConfig[56] != "1.0.1" {
		t.Fatalf("unexpected second mod: %+v", off)
	}
}

func TestParseManifestRejectsNonNumericKeys(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"version":1,"manifests":{"v49":"1"},"chain_config":[],"mods":[]}`)); err == nil {
		t.Fatalf("expected error for non-numeric depot key")
	}
	if _, err := Parse([]byte(`{"version":1,"chain_config":[],"mods":[{"dev":"a","name":"b","version_config":{"x":"1.0.0"}}]}`)); err == nil {
		t.Fatalf("expected error for non-numeric version_config key")
	}
}

func TestNormalizeAliasesIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := ModsConfig{Mods: []ModEntry{
		{Dev: "Hardy", Name: "LCMaxSoundFix", Enabled: true},
		{Dev: "Other", Name: "Thing", Enabled: true},
	}}
	if !cfg.NormalizeAliases(DefaultAliases) {
		t.Fatalf("first normalization should report a change")
	}
	if cfg.Mods[0].Name != "LCMaxSoundsFix" || cfg.Mods[0].Dev != "Hardy" {
		t.Fatalf("alias not applied: %+v", cfg.Mods[0])
	}
	if cfg.NormalizeAliases(DefaultAliases) {
		t.Fatalf("second normalization should be a no-op")
	}
	if cfg.Mods[1].Name != "Thing" {
		t.Fatalf("unrelated entry rewritten: %+v", cfg.Mods[1])
	}
}

func TestNormalizeAliasesFollowsChains(t *testing.T) {
	t.Parallel()

	a, b, c := PackageID{"A", "x"}, PackageID{"B", "x"}, PackageID{"C", "x"}
	tests := []struct {
		name  string
		table []Alias
		want  PackageID
	}{
		{name: "chain", table: []Alias{{From: a, To: b}, {From: b, To: c}}, want: c},
		{name: "chain reversed", table: []Alias{{From: b, To: c}, {From: a, To: b}}, want: c},
		{name: "cycle", table: []Alias{{From: a, To: b}, {From: b, To: a}}, want: a},
		{name: "into cycle", table: []Alias{{From: a, To: b}, {From: b, To: c}, {From: c, To: b}}, want: a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ModsConfig{Mods: []ModEntry{{Dev: a.Dev, Name: a.Name, Enabled: true}}}
			cfg.NormalizeAliases(tt.table)
			if got := cfg.Mods[0].ID(); got != tt.want {
				t.Fatalf("after first call = %v, want %v", got, tt.want)
			}
			if cfg.NormalizeAliases(tt.table) {
				t.Fatalf("second call reported a change")
			}
			if got := cfg.Mods[0].ID(); got != tt.want {
				t.Fatalf("after second call = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadAliasesRejectsCycles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "aliases.toml")
	content := "[[alias]]\nfrom_dev = \"A\"\nfrom_name = \"x\"\nto_dev = \"B\"\nto_name = \"x\"\n" +
		"[[alias]]\nfrom_dev = \"B\"\nfrom_name = \"x\"\nto_dev = \"A\"\nto_name = \"x\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadAliases(path); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("LoadAliases error = %v, want cycle error", err)
	}
}

func TestLoadAliases(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.toml")
	content := "[[alias]]\nfrom_dev = \"Old\"\nfrom_name = \"Name\"\nto_dev = \"New\"\nto_name = \"Name\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	table, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases failed: %v", err)
	}
	if len(table) != len(DefaultAliases)+1 {
		t.Fatalf("table length = %d, want %d", len(table), len(DefaultAliases)+1)
	}

	missing, err := LoadAliases(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadAliases(missing) failed: %v", err)
	}
	if len(missing) != len(DefaultAliases) {
		t.Fatalf("missing file should yield defaults, got %d rules", len(missing))
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[[alias]]\nfrom_dev = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadAliases(bad); err == nil {
		t.Fatalf("expected error for incomplete alias")
	}
}

func TestResolveAndMerge(t *testing.T) {
	t.Parallel()

	cfg := ModsConfig{Mods: []ModEntry{
		{Dev: "a", Name: "Pinned", Enabled: true, VersionConfig: map[uint32]string{50: "1.2.3"}},
		{Dev: "b", Name: "Disabled", Enabled: false},
		{Dev: "c", Name: "Latest", Enabled: true},
		{Dev: "d", Name: "TooNew", Enabled: true, LowCap: u32(70)},
	}}

	got := cfg.Resolve(60)
	want := []ResolvedMod{{Dev: "a", Name: "Pinned", Version: "1.2.3"}, {Dev: "c", Name: "Latest"}}
	if len(got) != len(want) {
		t.Fatalf("Resolve = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Resolve[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	added := cfg.Merge([]ModEntry{{Dev: "c", Name: "Latest", Enabled: true}, {Dev: "e", Name: "New", Enabled: true}})
	if added != 1 || len(cfg.Mods) != 5 {
		t.Fatalf("Merge added=%d len=%d, want 1 and 5", added, len(cfg.Mods))
	}
}

func TestPracticeModsMergeAtVersion(t *testing.T) {
	t.Parallel()

	cfg := ModsConfig{}
	cfg.Merge(PracticeMods())
	if got := len(cfg.Resolve(50)); got != 4 {
		t.Fatalf("Resolve(50) = %d mods, want 4 (cruiser practice needs v56)", got)
	}
	if got := len(cfg.Resolve(56)); got != 5 {
		t.Fatalf("Resolve(56) = %d mods, want 5", got)
	}
}

func TestInvalidPins(t *testing.T) {
	t.Parallel()

	cfg := ModsConfig{Mods: []ModEntry{
		{Dev: "a", Name: "b", VersionConfig: map[uint32]string{1: "1.0.0", 2: "0.0.0", 3: "latest"}},
	}}
	bad := cfg.InvalidPins()
	if len(bad) != 1 {
		t.Fatalf("InvalidPins = %v, want one entry", bad)
	}
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manifest.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":3,"manifests":{"73":"abc"},"chain_config":[],"mods":[{"dev":"Hardy","name":"LCMaxSoundFix"}]}`))
	}))
	defer server.Close()

	c := &Client{URL: server.URL + "/manifest.json", HTTPClient: server.Client()}
	m, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if m.ManifestVersion != 3 {
		t.Fatalf("ManifestVersion = %d, want 3", m.ManifestVersion)
	}
	if m.Mods.Mods[0].Name != "LCMaxSoundsFix" {
		t.Fatalf("aliases not applied on fetch: %+v", m.Mods.Mods[0])
	}
}

func TestClientFetchErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken.json":
			_, _ = w.Write([]byte(`<html>oops</html>`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	for _, path := range []string{"/down.json", "/broken.json"} {
		c := &Client{URL: server.URL + path, HTTPClient: server.Client()}
		if _, err := c.Fetch(context.Background()); err == nil {
			t.Fatalf("Fetch(%s) expected error", path)
		}
	}
}
