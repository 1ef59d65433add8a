package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var versionsRemote bool

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List installed game versions",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := layout()
		installed, err := l.InstalledVersions()
		if err != nil {
			return fmt.Errorf("scanning installed versions: %w", err)
		}

		depots := map[uint32]string{}
		if versionsRemote {
			mc, err := newManifestClient()
			if err != nil {
				return err
			}
			remote, err := mc.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching manifest: %w", err)
			}
			depots = remote.Depots
		}

		all := slices.Clone(installed)
		for v := range depots {
			if !slices.Contains(all, v) {
				all = append(all, v)
			}
		}
		slices.Sort(all)

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.SetOutputMirror(os.Stdout)
		header := table.Row{"Version", "Installed", "Path"}
		if versionsRemote {
			header = append(header, "Depot manifest")
		}
		t.AppendHeader(header)
		for _, v := range all {
			isInstalled := slices.Contains(installed, v)
			path := ""
			if isInstalled {
				path = l.VersionDir(v)
			}
			row := table.Row{fmt.Sprintf("v%d", v), yesNo(isInstalled), path}
			if versionsRemote {
				row = append(row, depots[v])
			}
			t.AppendRow(row)
		}
		t.Render()
		return nil
	},
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsRemote, "remote", false, "Include versions available in the manifest")
	rootCmd.AddCommand(versionsCmd)
}
