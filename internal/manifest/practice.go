package manifest

// PracticeMods returns the tooling used for practice runs. None of these are
// pinned or capped except CruiserJumpPractice, which needs the cruiser (v56+).
func PracticeMods() []ModEntry {
	cruiser := uint32(56)
	return []ModEntry{
		{Dev: "megumin", Name: "LethalDevMode", Enabled: true},
		{Dev: "giosuel", Name: "Imperium", Enabled: true},
		{Dev: "Lordfirespeed", Name: "OdinSerializer", Enabled: true},
		{Dev: "xilophor", Name: "LethalNetworkAPI", Enabled: true},
		{Dev: "aoirint", Name: "CruiserJumpPractice", Enabled: true, LowCap: &cruiser},
	}
}
