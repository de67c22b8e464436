package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	scanMode   string
	scanQuiet  bool
	scanFormat string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanMode, "mode", "m", "quick", "Scan depth (quick|full)")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Do not draw the progress bar")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "text", "Output format (text|json)")
}

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Run the simulated vulnerability scanner",
	Long: "Runs the scanner lab against a training target with live progress.\n" +
		"The target is never contacted; findings are derived from the target string.",
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	env, err := openEnv(envOptions{withAudit: true})
	if err != nil {
		return err
	}
	defer env.Close()

	sess, err := env.svc.Sessions().Create(model.Scanner, model.Mode(scanMode))
	if err != nil {
		return err
	}
	defer env.svc.Sessions().Delete(sess.ID())
	sess.SetInput(args[0])

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	type outcome struct {
		res model.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := env.svc.Submit(ctx, sess.ID())
		done <- outcome{res, err}
	}()

	tick := env.svc.Config().ScannerTick
	if tick <= 0 {
		tick = 150 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	stderr := cmd.ErrOrStderr()
	var o outcome
wait:
	for {
		select {
		case o = <-done:
			break wait
		case <-ticker.C:
			if !scanQuiet {
				drawProgress(stderr, args[0], sess.Snapshot().Progress)
			}
		}
	}
	if o.err != nil {
		if !scanQuiet {
			fmt.Fprintln(stderr)
		}
		return o.err
	}
	if !scanQuiet {
		drawProgress(stderr, args[0], 100)
		fmt.Fprintln(stderr)
	}

	if scanFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), o.res)
	}
	printResult(cmd.OutOrStdout(), o.res)
	return nil
}

const progressWidth = 30

func drawProgress(w io.Writer, target string, percent int) {
	filled := progressWidth * percent / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", progressWidth-filled)
	fmt.Fprintf(w, "\rScanning %s [%s] %3d%%", target, bar, percent)
}
