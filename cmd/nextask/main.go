package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fentz26/nextask/internal/config"
	"github.com/fentz26/nextask/internal/controlplane"
	"github.com/fentz26/nextask/internal/logger"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "nextask",
	Short: "nextask - pick the next task to work on",
	Long: `nextask keeps task lists per tag and answers one question: which task should be
worked on next. Use --skip to look past the first candidates.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of nextask",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nextask version %s\n", version)
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Go version: %s\n", runtime.Version())
	},
}

var (
	apiAddr    string
	configPath string
	tagFlag    string
	verbose    bool
	quiet      bool
	jsonLogs   bool

	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiAddr, "api", "", "API server address (default from config, http://127.0.0.1:7466)")
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.nextask/config.yaml)")
	flags.StringVarP(&tagFlag, "tag", "t", "", "Task tag (default from config, master)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	flags.BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(decisionsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromHome()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("api") {
		cfg.API = apiAddr
	}
	if cmd.Flags().Changed("tag") {
		cfg.DefaultTag = tagFlag
	}

	format := cfg.Log.Format
	if jsonLogs {
		format = "json"
	}
	logger.Setup(logger.Options{
		Level:   cfg.Log.Level,
		Format:  format,
		Verbose: verbose,
		Quiet:   quiet,
	})

	controlplane.Version = version
	return nil
}

// currentTag is the tag commands operate on.
func currentTag() string {
	return cfg.DefaultTag
}

func apiClient() *controlplane.Client {
	return controlplane.NewClient(cfg.API)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
