package diff

import (
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/hqlauncher/hq-installer/internal/manifest"
)

type ChangeType int

const (
	Added ChangeType = iota
	Updated
	Unchanged
	// Untracked marks an installed package that is not in the plan. Nothing
	// removes it; it is only reported.
	Untracked
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "add"
	case Updated:
		return "update"
	case Unchanged:
		return "ok"
	case Untracked:
		return "untracked"
	}
	return "unknown"
}

type ModChange struct {
	ID         manifest.PackageID
	Type       ChangeType
	OldVersion string
	NewVersion string
}

// SameVersion compares two package versions, semantically when both parse
// and textually otherwise.
func SameVersion(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Equal(vb)
	}
	return a == b
}

// Compute compares the wanted mod set against installed package versions
// keyed by PackageID. Wanted entries keep plan order; untracked ones follow,
// sorted by id.
func Compute(installed map[manifest.PackageID]string, wanted []manifest.ResolvedMod) []ModChange {
	var changes []ModChange
	planned := make(map[manifest.PackageID]bool, len(wanted))

	for _, m := range wanted {
		id := m.ID()
		planned[id] = true

		old, exists := installed[id]
		switch {
		case !exists:
			changes = append(changes, ModChange{ID: id, Type: Added, NewVersion: m.Version})
		case m.Version == "" || !SameVersion(old, m.Version):
			changes = append(changes, ModChange{ID: id, Type: Updated, OldVersion: old, NewVersion: m.Version})
		default:
			changes = append(changes, ModChange{ID: id, Type: Unchanged, OldVersion: old, NewVersion: m.Version})
		}
	}

	ids := slices.SortedFunc(maps.Keys(installed), func(a, b manifest.PackageID) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, id := range ids {
		if planned[id] {
			continue
		}
		changes = append(changes, ModChange{ID: id, Type: Untracked, OldVersion: installed[id]})
	}

	return changes
}

// Summary returns counts by change type.
func Summary(changes []ModChange) (added, updated, unchanged, untracked int) {
	for _, c := range changes {
		switch c.Type {
		case Added:
			added++
		case Updated:
			updated++
		case Unchanged:
			unchanged++
		case Untracked:
			untracked++
		}
	}
	return
}
