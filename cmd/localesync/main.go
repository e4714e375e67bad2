// cmd/localesync/main.go
package main

import (
	"fmt"
	"os"

	"localesync/internal/config"
	"localesync/internal/logging"
	"localesync/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	logger  = logging.Nop()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "localesync",
	Short: "Keep locale JSON files in sync",
	Long: `localesync watches the locale files of a project. When a string is added to
one locale it is machine translated into every other locale that does not have
it yet. Existing translations are never overwritten.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// loadConfig finds the workspace root, loads the config and builds the
// logger for every command
func loadConfig(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if root, _ := flags.GetString("root"); root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		root = cwd
		if found, err := workspace.FindRoot(cwd, config.FileName); err == nil {
			root = found
		}
		if err := flags.Set("root", root); err != nil {
			return err
		}
	}

	var err error
	cfg, err = config.Load(cfgFile, flags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err = logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default: <root>/"+config.FileName+")")
	flags.String("root", "", "Workspace root (default: nearest directory holding "+config.FileName+")")
	flags.String("provider", "", "Translation provider (libre, claude)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")
	flags.String("addr", "", "Address of the status API")
	flags.String("cache-dir", "", "Directory of the translation cache")

	rootCmd.AddCommand(
		newInitCmd(),
		newWatchCmd(),
		newSyncCmd(),
		newMissingCmd(),
		newStatusCmd(),
		newGetCmd(),
		newPauseCmd(true),
		newPauseCmd(false),
		newCacheCmd(),
	)
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
