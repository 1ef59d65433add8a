package manifest

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// PackageID identifies a Thunderstore package.
type PackageID struct {
	Dev  string
	Name string
}

func (p PackageID) String() string {
	return p.Dev + "-" + p.Name
}

// Alias rewrites a historical identifier to its current form.
type Alias struct {
	From PackageID
	To   PackageID
}

// DefaultAliases holds identifier corrections known to appear in published manifests.
var DefaultAliases = []Alias{
	{From: PackageID{"Hardy", "LCMaxSoundFix"}, To: PackageID{"Hardy", "LCMaxSoundsFix"}},
}

// NormalizeAliases applies the table to every entry and reports whether
// anything changed. Chained rules (A to B, B to C) are followed to their
// final target, so a second call is always a no-op. Entries caught in a
// cycle are left alone.
func (c *ModsConfig) NormalizeAliases(table []Alias) bool {
	if len(table) == 0 {
		return false
	}
	index := aliasIndex(table)

	changed := false
	for i := range c.Mods {
		to, ok := resolveAlias(index, c.Mods[i].ID())
		if !ok {
			continue
		}
		c.Mods[i].Dev = to.Dev
		c.Mods[i].Name = to.Name
		changed = true
	}
	return changed
}

// aliasIndex maps each source id to its target. The first rule for a
// source wins; self-rules are dropped.
func aliasIndex(table []Alias) map[PackageID]PackageID {
	index := make(map[PackageID]PackageID, len(table))
	for _, a := range table {
		if a.From == a.To {
			continue
		}
		if _, dup := index[a.From]; !dup {
			index[a.From] = a.To
		}
	}
	return index
}

// resolveAlias follows id through index. It reports false when id has no
// rule or its chain loops.
func resolveAlias(index map[PackageID]PackageID, id PackageID) (PackageID, bool) {
	cur, ok := index[id]
	if !ok {
		return id, false
	}
	seen := map[PackageID]bool{id: true}
	for {
		if seen[cur] {
			return id, false
		}
		seen[cur] = true
		next, ok := index[cur]
		if !ok {
			return cur, true
		}
		cur = next
	}
}

type aliasFile struct {
	Alias []struct {
		FromDev  string `toml:"from_dev"`
		FromName string `toml:"from_name"`
		ToDev    string `toml:"to_dev"`
		ToName   string `toml:"to_name"`
	} `toml:"alias"`
}

// LoadAliases reads extra alias rules from a TOML file and appends them to
// DefaultAliases. A missing file yields DefaultAliases.
//
//	[[alias]]
//	from_dev = "Hardy"
//	from_name = "LCMaxSoundFix"
//	to_dev = "Hardy"
//	to_name = "LCMaxSoundsFix"
func LoadAliases(path string) ([]Alias, error) {
	table := append([]Alias(nil), DefaultAliases...)
	if path == "" {
		return table, nil
	}

	var f aliasFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("loading aliases %s: %w", path, err)
	}

	for i, a := range f.Alias {
		if a.FromDev == "" || a.FromName == "" || a.ToDev == "" || a.ToName == "" {
			return nil, fmt.Errorf("loading aliases %s: entry %d is incomplete", path, i+1)
		}
		table = append(table, Alias{
			From: PackageID{Dev: a.FromDev, Name: a.FromName},
			To:   PackageID{Dev: a.ToDev, Name: a.ToName},
		})
	}

	index := aliasIndex(table)
	for from := range index {
		if _, ok := resolveAlias(index, from); !ok {
			return nil, fmt.Errorf("loading aliases %s: rule for %s is part of a cycle", path, from)
		}
	}
	return table, nil
}
