package cmd

import (
	"os"

	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/pipeline"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <version>",
	Short: "Install a game version with BepInEx, shared config and mods",
	Long: `Downloads the given Lethal Company version from Steam with DepotDownloader,
installs BepInExPack, links BepInEx/config to the shared config directory and
installs every compatible mod from the manifest.

An existing install of the same version is removed first. DepotDownloader must
already hold a remembered login for --username.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseGameVersion(args[0])
		if err != nil {
			return err
		}
		p, err := newPipeline(newProgressSink(os.Stderr))
		if err != nil {
			return err
		}

		root, err := p.Install(cmd.Context(), version, pipeline.InstallOptions{Practice: practice})
		if err != nil {
			return err
		}
		logging.Infof("\nInstalled Lethal Company v%d to %s\n", version, root)
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&practice, "practice", false, "Also install the practice tooling mods")
	rootCmd.AddCommand(installCmd)
}
