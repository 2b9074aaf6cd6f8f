package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/comet-ml/opik-sub003/internal"
	"github.com/spf13/cobra"
)

var (
	onceDryRun bool
)

// onceCmd represents the once command
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single collection cycle",
	Long: `Run exactly one collection cycle and exit.

Useful for cron-driven setups and for verifying configuration. With --dry-run
the records that would be uploaded are logged instead of sent; cursors still
advance in the state file, so point --state somewhere disposable when
rehearsing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			internal.LogInfo("collection is disabled (track_disable), nothing to do")
			return nil
		}
		if !onceDryRun {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		collector, _, err := buildCollector(cfg, onceDryRun)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := collector.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("collection cycle failed: %w", err)
		}

		fmt.Println(summarizeCycle(result))
		if result.FailedBatches > 0 {
			return fmt.Errorf("%d batch(es) failed to upload", result.FailedBatches)
		}
		return nil
	},
}

func init() {
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "Build records but log instead of uploading")
	rootCmd.AddCommand(onceCmd)
}
