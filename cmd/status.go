package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/comet-ml/opik-sub003/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	statusHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				Padding(0, 1)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	statusIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collector configuration and sync state",
	Long: `Show the resolved configuration and the per-session sync cursors.

The cursor table lists every session the collector has uploaded from, with
the timestamp of the last fragment that made it to the backend. Sessions
without a cursor have never been collected and will upload in full on the
next cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		state := internal.NewStateStore(cfg.StatePath)
		if err := state.Load(); err != nil {
			return fmt.Errorf("failed to load collector state: %w", err)
		}

		fmt.Println(statusHeaderStyle.Render("Configuration"))
		printField("Backend", cfg.BaseURL)
		printField("Workspace", cfg.Workspace)
		printField("Project", cfg.ProjectName)
		printField("Storage", cfg.StoragePath)
		printField("State file", cfg.StatePath)
		printField("Interval", cfg.Interval.String())
		if cfg.Enabled {
			fmt.Printf("  %s %s\n", statusLabelStyle.Render("Collection:"), statusOKStyle.Render("enabled"))
		} else {
			fmt.Printf("  %s %s\n", statusLabelStyle.Render("Collection:"), statusWarnStyle.Render("disabled"))
		}
		if cfg.APIKey == "" {
			fmt.Printf("  %s %s\n", statusLabelStyle.Render("API key:"), statusWarnStyle.Render("not set"))
		}

		fmt.Println()
		fmt.Println(statusHeaderStyle.Render("Sync State"))
		printField("Installation", state.InstallationID())
		if end := state.LastWindowEnd(); !end.IsZero() {
			printField("Last window end", end.Local().Format(time.RFC3339))
		} else {
			printField("Last window end", "never")
		}

		cursors := state.Cursors()
		if len(cursors) == 0 {
			fmt.Println(statusLabelStyle.Render("  No session cursors yet."))
			return nil
		}

		ids := make([]string, 0, len(cursors))
		for id := range cursors {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return cursors[ids[i]].LastFragmentTime.After(cursors[ids[j]].LastFragmentTime)
		})

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  SESSION\tLAST SYNCED\tFRAGMENT")
		for _, id := range ids {
			cursor := cursors[id]
			fmt.Fprintf(w, "  %s\t%s\t%s\n",
				id,
				cursor.LastFragmentTime.Local().Format("2006-01-02 15:04:05"),
				statusIDStyle.Render(truncateID(cursor.LastFragmentID)))
		}
		w.Flush()
		fmt.Printf("\n%s\n", statusValueStyle.Render(fmt.Sprintf("%d session(s) tracked", len(cursors))))
		return nil
	},
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", statusLabelStyle.Render(label+":"), value)
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12] + "…"
	}
	return id
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
