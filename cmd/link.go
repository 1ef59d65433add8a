package cmd

import (
	"fmt"
	"os"

	"github.com/hqlauncher/hq-installer/internal/configlink"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <version>",
	Short: "Repair the shared config link of an installed version",
	Long: `Points BepInEx/config of the given installed version at the shared config
directory. Files found in a real config directory are first copied into the
shared directory without overwriting anything.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseGameVersion(args[0])
		if err != nil {
			return err
		}
		l := layout()
		root := l.VersionDir(version)
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("v%d is not installed in %s", version, l.VersionsDir())
		}

		res, err := configlink.New(l.SharedConfigDir()).EnsureLink(root)
		if err != nil {
			return err
		}
		if res.Degraded {
			logging.Infof("v%d keeps its own config directory\n", version)
			return nil
		}
		logging.Infof("v%d config linked to %s\n", version, res.SharedDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
