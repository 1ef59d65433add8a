package cmd

import (
	"os"

	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/pipeline"
	"github.com/spf13/cobra"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply manifest changes to the latest installed version",
	Long: `Checks the published manifest and, when its version differs from the last
one applied, adds new default config files to the shared config directory
(existing files are never overwritten) and installs the current mod set into
the latest installed game version.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(newProgressSink(os.Stderr))
		if err != nil {
			return err
		}

		res, err := p.Sync(cmd.Context(), pipeline.SyncOptions{Force: syncForce})
		if err != nil {
			return err
		}
		switch {
		case res.Skipped && res.GameVersion == 0:
			logging.Infoln("No installed version, nothing to sync.")
		case res.Skipped:
			logging.Infof("v%d is up to date with manifest %d.\n", res.GameVersion, res.ManifestVersion)
		default:
			logging.Infof("\nSynced manifest %d into v%d\n", res.ManifestVersion, res.GameVersion)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Apply the manifest even if it was already synced")
	rootCmd.AddCommand(syncCmd)
}
