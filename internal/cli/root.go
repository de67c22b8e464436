package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// errChecksFailed ends a run whose results were already printed; Execute
// turns it into exit status 1 without another message.
var errChecksFailed = errors.New("checks failed")

var rootCmd = &cobra.Command{
	Use:   "cyberlab",
	Short: "Simulated web security training labs",
	Long: "Interactive labs for XSS, SQL injection, CORS, clickjacking, JWT tampering,\n" +
		"upload bypass, open redirect, command injection and scanning.\n" +
		"Every outcome is simulated. Nothing is executed, queried or fetched.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.cyberlab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (console|json)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
