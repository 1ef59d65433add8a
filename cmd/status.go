package cmd

import (
	"fmt"
	"os"

	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusOffline bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed versions and whether a sync is pending",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := layout()
		installed, err := l.InstalledVersions()
		if err != nil {
			return fmt.Errorf("scanning installed versions: %w", err)
		}
		state, err := config.LoadManifestState(l.StatePath())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"Data directory", l.Root})
		t.AppendRow(table.Row{"Installed versions", formatVersions(installed)})
		t.AppendRow(table.Row{"Synced manifest", state.ManifestVersion})

		if !statusOffline {
			mc, err := newManifestClient()
			if err != nil {
				return err
			}
			remote, err := mc.Fetch(cmd.Context())
			if err != nil {
				logging.Warnf("could not fetch manifest: %v", err)
			} else {
				pending := len(installed) > 0 && remote.ManifestVersion != state.ManifestVersion
				t.AppendRow(table.Row{"Remote manifest", remote.ManifestVersion})
				t.AppendRow(table.Row{"Sync pending", yesNo(pending)})
			}
		}
		t.Render()
		return nil
	},
}

func formatVersions(vs []uint32) string {
	if len(vs) == 0 {
		return "none"
	}
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("v%d", v)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	statusCmd.Flags().BoolVar(&statusOffline, "offline", false, "Do not fetch the remote manifest")
	rootCmd.AddCommand(statusCmd)
}
