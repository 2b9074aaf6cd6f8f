package cmd

import (
	"fmt"

	"github.com/comet-ml/opik-sub003/internal"
	"github.com/spf13/cobra"
)

var (
	resetAll bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [session-id]",
	Short: "Reset sync cursors",
	Long: `Reset the sync cursor for one session, or all state with --all.

After a reset the affected sessions upload from the beginning on the next
cycle. The backend will receive those turns again; use this only when traces
were lost server-side or the state file is known to be wrong.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		state := internal.NewStateStore(cfg.StatePath)
		if err := state.Load(); err != nil {
			return fmt.Errorf("failed to load collector state: %w", err)
		}

		switch {
		case resetAll:
			state.ResetAll()
			fmt.Println("All cursors and the window boundary were reset.")
		case len(args) == 1:
			if _, ok := state.GetCursor(args[0]); !ok {
				return fmt.Errorf("no cursor for session %s", args[0])
			}
			state.ResetCursor(args[0])
			fmt.Printf("Cursor for session %s was reset.\n", args[0])
		default:
			return fmt.Errorf("specify a session id or --all")
		}

		if err := state.Save(); err != nil {
			return fmt.Errorf("failed to persist collector state: %w", err)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Reset every cursor and the window boundary")
	rootCmd.AddCommand(resetCmd)
}
