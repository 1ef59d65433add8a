package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/hqlauncher/hq-installer/internal/diff"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/manifest"
	"github.com/hqlauncher/hq-installer/internal/thunderstore"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var modsLatest bool

var modsCmd = &cobra.Command{
	Use:   "mods <version>",
	Short: "Compare the manifest's mod set with an installed version",
	Long: `Resolves the manifest's mod set for the given game version (compatibility
ranges and version pins applied) and compares it with the packages installed
under BepInEx/plugins.

With --latest, unpinned mods are looked up on Thunderstore so updates can be
detected; otherwise they are listed as "latest".`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseGameVersion(args[0])
		if err != nil {
			return err
		}
		mc, err := newManifestClient()
		if err != nil {
			return err
		}
		remote, err := mc.Fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching manifest: %w", err)
		}

		mods := manifest.ModsConfig{Mods: slices.Clone(remote.Mods.Mods)}
		if practice {
			mods.Merge(manifest.PracticeMods())
		}
		wanted := mods.Resolve(version)

		inst := thunderstore.NewInstaller(concurrency, "")
		if modsLatest {
			wanted, err = inst.ResolveVersions(cmd.Context(), wanted)
			if err != nil {
				return fmt.Errorf("resolving latest versions: %w", err)
			}
		}

		installed, err := thunderstore.Installed(inst.PluginsDir(layout().VersionDir(version)))
		if err != nil {
			return err
		}
		changes := diff.Compute(installed, wanted)

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Package", "Installed", "Wanted", "Status"})
		for _, c := range changes {
			t.AppendRow(table.Row{c.ID.String(), orDash(c.OldVersion), wantedLabel(c), c.Type.String()})
		}
		t.Render()

		added, updated, unchanged, untracked := diff.Summary(changes)
		logging.Infof("v%d: %d to add, %d to update, %d up to date, %d not in manifest\n",
			version, added, updated, unchanged, untracked)
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func wantedLabel(c diff.ModChange) string {
	switch {
	case c.Type == diff.Untracked:
		return "-"
	case c.NewVersion == "":
		return "latest"
	default:
		return c.NewVersion
	}
}

func init() {
	modsCmd.Flags().BoolVar(&modsLatest, "latest", false, "Look up the latest version of unpinned mods")
	modsCmd.Flags().BoolVar(&practice, "practice", false, "Include the practice tooling mods")
	rootCmd.AddCommand(modsCmd)
}
