package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hqlauncher/hq-installer/internal/config"
	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/pipeline"
	"github.com/hqlauncher/hq-installer/internal/profile"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	profileName string
	verbose     bool
	logFile     string
	concurrency int
	cacheDir    string
	noCache     bool
	username    string
	depotTool   string
	practice    bool
)

var rootCmd = &cobra.Command{
	Use:           "hq-installer",
	Short:         "Installer for Lethal Company HQ setups",
	Long:          "Install pinned Lethal Company versions from Steam with BepInEx, a shared config directory and the curated HQ mod set, and keep them in sync with the published manifest.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var p *profile.Profile
		if profileName != "" {
			loaded, err := profile.Load(profileName)
			if err != nil {
				return err
			}
			p = loaded
		}
		env, err := config.ParseEnv()
		if err != nil {
			return err
		}
		applyDefaults(cmd.Flags().Changed, p, env)

		if concurrency < 1 {
			return wrapUsageError(fmt.Errorf("--concurrency must be at least 1"))
		}

		logging.SetVerbose(verbose)
		if err := logging.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("opening log file %q: %w", logFile, err)
		}
		logging.Debugf("Verbose: data-dir=%s cache=%q concurrency=%d\n", dataDir, modCacheDir(), concurrency)
		return nil
	},
}

// applyDefaults fills every flag the user did not set, first from the
// profile and then from the environment.
func applyDefaults(changed func(string) bool, p *profile.Profile, env config.Env) {
	if p == nil {
		p = &profile.Profile{}
	}
	setString := func(flag string, dst *string, fromProfile *string, fromEnv string) {
		if changed(flag) {
			return
		}
		if fromProfile != nil {
			*dst = *fromProfile
		} else if fromEnv != "" {
			*dst = fromEnv
		}
	}
	setString("data-dir", &dataDir, p.DataDir, env.DataDir)
	setString("username", &username, p.Username, env.SteamUsername)
	setString("depot-downloader", &depotTool, p.DepotDownloader, env.DepotDownloader)
	setString("cache-dir", &cacheDir, p.CacheDir, env.CacheDir)
	setString("log-file", &logFile, p.LogFile, "")

	if p.Concurrency != nil && !changed("concurrency") {
		concurrency = *p.Concurrency
	}
	if p.NoCache != nil && !changed("no-cache") {
		noCache = *p.NoCache
	}
	if p.Practice != nil && !changed("practice") {
		practice = *p.Practice
	}
	if p.Verbose != nil && !changed("verbose") {
		verbose = *p.Verbose
	}

	if dataDir == "" {
		dataDir = config.DefaultRoot()
	}
}

// modCacheDir returns the download cache for mod packages, or "" when
// caching is disabled.
func modCacheDir() string {
	if noCache {
		return ""
	}
	if cacheDir != "" {
		return cacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "hq-launcher", "mods")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeErr := logging.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := failureHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		if isUsageError(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

// failureHint suggests the next step for a failed install or sync.
func failureHint(err error) string {
	switch pipeline.Kind(err) {
	case pipeline.ErrAuth:
		return "Hint: log in once with DepotDownloader (-username <name> -remember-password), then pass the same name with --username or HQ_STEAM_USERNAME."
	case pipeline.ErrManifest:
		return "Hint: the release manifest could not be read; check your connection and run the command again."
	case pipeline.ErrLink:
		return "Hint: run `hq-installer link <version>` to repair the shared config link."
	}
	return ""
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return wrapUsageError(err)
	})

	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Launcher data directory (default: $XDG_DATA_HOME/hq-launcher, also reads HQ_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Load a saved option profile by name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write command output to a log file")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 6, "Number of concurrent mod downloads")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Directory for caching downloaded mods (default: ~/.cache/hq-launcher/mods/, also reads HQ_CACHE_DIR)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable download caching")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Steam username used by DepotDownloader (also reads HQ_STEAM_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&depotTool, "depot-downloader", "", "Path to the DepotDownloader binary (default: from PATH, also reads HQ_DEPOTDOWNLOADER)")
}

// parseGameVersion accepts "73" or "v73".
func parseGameVersion(arg string) (uint32, error) {
	s := strings.TrimPrefix(strings.TrimSpace(arg), "v")
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0, wrapUsageError(fmt.Errorf("invalid game version %q", arg))
	}
	return uint32(v), nil
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func wrapUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return wrapUsageError(err)
		}
		return nil
	}
}

func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ")
}
