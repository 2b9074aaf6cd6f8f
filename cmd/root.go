package cmd

import (
	"fmt"
	"os"

	"github.com/comet-ml/opik-sub003/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	storagePath string
	statePath   string
	configPath  string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opik-cursor-collector",
	Short: "Collect Cursor IDE chat sessions as Opik traces",
	Long: `A background collector that turns Cursor IDE chat sessions into Opik traces.

The collector periodically reads Cursor's local chat storage, reassembles
message fragments into conversational turns, and uploads each completed turn
as a trace with reasoning, tool-call, and completion spans. Per-session
cursors guarantee each turn is uploaded exactly once even across restarts.

Quick Start:
  opik-cursor-collector once             # Run a single collection cycle
  opik-cursor-collector run              # Run continuously on an interval
  opik-cursor-collector status           # Show sync state per session

Configuration comes from ~/.opik.config and OPIK_* environment variables.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Custom storage location (path to Cursor's state.vscdb)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Custom collector state file location")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Custom config file location (default ~/.opik.config)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig resolves the effective configuration with command-line overrides
// applied on top of the file and environment layers.
func loadConfig() (*internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if storagePath != "" {
		cfg.StoragePath = storagePath
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	return cfg, nil
}

// buildCollector wires the collector from configuration and loads persisted
// state. With dryRun the uploader is replaced by one that only logs.
func buildCollector(cfg *internal.Config, dryRun bool) (*internal.Collector, *internal.StateStore, error) {
	state := internal.NewStateStore(cfg.StatePath)
	if err := state.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load collector state: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}
	git := internal.DetectGitInfo(workDir)
	if git != nil {
		internal.LogDebug("detected git context: repository=%s branch=%s", git.Repository, git.Branch)
	}

	builder := internal.NewTraceBuilder(cfg.ProjectName, cfg.FreshnessWindow, git)
	var uploader internal.RecordUploader = internal.NewUploader(cfg, nil)
	if dryRun {
		uploader = internal.DryRunUploader{}
	}
	collector := internal.NewCollector(cfg, state, builder, uploader, nil)
	return collector, state, nil
}
