package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/certify"
)

var (
	certifySuite  string
	certifyFormat string
)

func init() {
	rootCmd.AddCommand(certifyCmd)
	certifyCmd.Flags().StringVar(&certifySuite, "suite", "hardened", "Certification suite ("+strings.Join(certify.ListSuites(), "|")+")")
	certifyCmd.Flags().StringVarP(&certifyFormat, "format", "f", "text", "Output format (text|json)")
}

var certifyCmd = &cobra.Command{
	Use:   "certify",
	Short: "Check the configured lab fixtures against a certification suite",
	Long: "Runs a curated set of lab cases against the active configuration and\n" +
		"reports pass/fail per lab. The catalog suite replays every example\n" +
		"payload and asserts the outcome it documents.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n\n" +
		"Available suites: " + strings.Join(certify.ListSuites(), ", "),
	Args: cobra.NoArgs,
	RunE: runCertify,
}

func runCertify(cmd *cobra.Command, args []string) error {
	env, err := openEnv(envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	suite, err := certify.Resolve(certifySuite, env.svc.Catalog())
	if err != nil {
		return err
	}

	result := certify.Run(suite, env.svc.Config().Env())
	result.ConfigHash = env.svc.ConfigHash()

	out := cmd.OutOrStdout()
	switch certifyFormat {
	case "json":
		js, err := certify.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	default:
		fmt.Fprint(out, certify.FormatText(result))
	}

	if result.Failed > 0 {
		return errChecksFailed
	}
	return nil
}
