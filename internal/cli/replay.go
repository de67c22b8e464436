package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/audit"
)

var (
	replayLog    string
	replayLab    string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayLog, "log", "l", "", "Path to audit log (default: audit_log from config)")
	replayCmd.Flags().StringVar(&replayLab, "lab", "", "Only entries for this lab")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var replayCmd = &cobra.Command{
	Use:   "replay [session-id]",
	Short: "Replay lab activity from the audit log",
	Long:  "Reads the audit log, filters by session, lab and time range, and\nrenders a timeline of classifications with a summary.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	var filter audit.ReplayFilter
	if len(args) == 1 {
		filter.SessionID = args[0]
	}
	filter.Category = replayLab

	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}
	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	path := replayLog
	if path == "" {
		var err error
		if path, err = auditPath(nil); err != nil {
			return err
		}
	}

	result, err := audit.Replay(path, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch replayFormat {
	case "json":
		js, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	default:
		fmt.Fprint(out, audit.FormatTimeline(result))
	}
	return nil
}
