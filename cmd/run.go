package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comet-ml/opik-sub003/internal"
	"github.com/spf13/cobra"
)

var (
	runInterval time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collector continuously",
	Long: `Run collection cycles on a fixed interval until interrupted.

Each cycle reads sessions updated since the previous cycle, uploads their
newly completed turns, and advances the per-session cursors. A cycle that is
still running when the next tick fires is never overlapped; the tick is
skipped instead.

On SIGINT or SIGTERM the in-flight batch finishes, state is persisted, and
the collector exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			internal.LogInfo("collection is disabled (track_disable), exiting")
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if runInterval > 0 {
			cfg.Interval = runInterval
		}

		collector, _, err := buildCollector(cfg, false)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		internal.LogInfo("collector started (interval %s, storage %s)", cfg.Interval, cfg.StoragePath)

		runCycle(ctx, collector)

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				internal.LogInfo("shutting down")
				return nil
			case <-ticker.C:
				runCycle(ctx, collector)
			}
		}
	},
}

func runCycle(ctx context.Context, collector *internal.Collector) {
	result, err := collector.RunCycle(ctx)
	if err != nil {
		internal.LogError("collection cycle failed: %v", err)
		return
	}
	if result.Skipped {
		return
	}
	internal.LogInfo("cycle complete: %s", summarizeCycle(result))
}

func summarizeCycle(result *internal.CycleResult) string {
	s := fmt.Sprintf("%d session(s) seen, %d record(s) uploaded", result.SessionsSeen, result.RecordsUploaded)
	if result.SessionsSkipped > 0 {
		s += fmt.Sprintf(", %d up to date", result.SessionsSkipped)
	}
	if result.DroppedTurns > 0 {
		s += fmt.Sprintf(", %d empty turn(s) dropped", result.DroppedTurns)
	}
	if result.SessionsUnprocessed > 0 {
		s += fmt.Sprintf(", %d session(s) unprocessed (will retry)", result.SessionsUnprocessed)
	}
	if result.FailedBatches > 0 {
		s += fmt.Sprintf(", %d batch(es) FAILED (will retry)", result.FailedBatches)
	}
	return s
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Override the collection interval (e.g. 30s, 5m)")
	rootCmd.AddCommand(runCmd)
}
