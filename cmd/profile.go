package cmd

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/profile"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved option profiles",
}

// Flags for profile create
var (
	profPractice *bool
)

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile from the given flags",
	Long: `Saves every flag passed on this command line into a named profile.
Flags that are not passed are left out, so they keep falling back to the
environment and defaults when the profile is loaded.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := profileFromFlags(cmd.Flags().Changed)
		if cmd.Flags().Changed("practice") {
			p.Practice = profPractice
		}

		if err := profile.Save(args[0], p); err != nil {
			return err
		}
		logging.Infof("Profile %q saved to %s\n", args[0], profile.Dir())
		return nil
	},
}

// profileFromFlags captures the explicitly set global flags.
func profileFromFlags(changed func(string) bool) *profile.Profile {
	p := &profile.Profile{}
	str := func(flag, v string) *string {
		if !changed(flag) {
			return nil
		}
		return &v
	}
	p.DataDir = str("data-dir", dataDir)
	p.Username = str("username", username)
	p.DepotDownloader = str("depot-downloader", depotTool)
	p.CacheDir = str("cache-dir", cacheDir)
	p.LogFile = str("log-file", logFile)
	if changed("concurrency") {
		v := concurrency
		p.Concurrency = &v
	}
	if changed("no-cache") {
		v := noCache
		p.NoCache = &v
	}
	if changed("verbose") {
		v := verbose
		p.Verbose = &v
	}
	return p
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			logging.Infoln("No profiles saved.")
			return nil
		}
		for _, n := range names {
			logging.Infoln(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return err
		}
		logging.Infof("%s", buf.String())
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Delete(args[0]); err != nil {
			return err
		}
		logging.Infof("Profile %q deleted.\n", args[0])
		return nil
	},
}

func init() {
	profPractice = profileCreateCmd.Flags().Bool("practice", false, "Install the practice tooling mods by default")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
