package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/client"
	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	labsFormat     string
	labsRemote     string
	payloadsFormat string
	payloadsRemote string
)

func init() {
	rootCmd.AddCommand(labsCmd)
	rootCmd.AddCommand(payloadsCmd)
	labsCmd.Flags().StringVarP(&labsFormat, "format", "f", "text", "Output format (text|json)")
	labsCmd.Flags().StringVar(&labsRemote, "remote", "", "Query a running server over gRPC (host:port)")
	payloadsCmd.Flags().StringVarP(&payloadsFormat, "format", "f", "text", "Output format (text|json)")
	payloadsCmd.Flags().StringVar(&payloadsRemote, "remote", "", "Query a running server over gRPC (host:port)")
}

var labsCmd = &cobra.Command{
	Use:   "labs",
	Short: "List the training labs",
	Long:  "Lists every lab with its modes, default mode, simulated latency and\nnumber of example payloads.",
	Args:  cobra.NoArgs,
	RunE:  runLabs,
}

var payloadsCmd = &cobra.Command{
	Use:   "payloads <lab>",
	Short: "List a lab's example payloads",
	Args:  cobra.ExactArgs(1),
	RunE:  runPayloads,
}

func runLabs(cmd *cobra.Command, args []string) error {
	var list []labs.Info
	if labsRemote != "" {
		err := withClient(cmd.Context(), labsRemote, func(ctx context.Context, c *client.Client) error {
			var err error
			list, err = c.Labs(ctx)
			return err
		})
		if err != nil {
			return err
		}
	} else {
		env, err := openEnv(envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()
		list = env.svc.Labs()
	}

	out := cmd.OutOrStdout()
	if labsFormat == "json" {
		return writeJSON(out, list)
	}
	for _, l := range list {
		modes := make([]string, len(l.Modes))
		for i, m := range l.Modes {
			modes[i] = string(m)
			if m == l.DefaultMode {
				modes[i] += "*"
			}
		}
		fmt.Fprintf(out, "%-13s %s\n", l.ID, titleStyle.Render(l.Title))
		fmt.Fprintf(out, "              %s\n", mutedStyle.Render(l.Summary))
		fmt.Fprintf(out, "              modes: %s  delay: %dms  payloads: %d\n",
			strings.Join(modes, ", "), l.DelayMS, l.Payloads)
	}
	return nil
}

func runPayloads(cmd *cobra.Command, args []string) error {
	var list []model.Payload
	if payloadsRemote != "" {
		err := withClient(cmd.Context(), payloadsRemote, func(ctx context.Context, c *client.Client) error {
			var err error
			list, err = c.Payloads(ctx, args[0])
			return err
		})
		if err != nil {
			return err
		}
	} else {
		env, err := openEnv(envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()
		if list, err = env.svc.Payloads(args[0]); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if payloadsFormat == "json" {
		return writeJSON(out, list)
	}
	for _, p := range list {
		fmt.Fprintf(out, "%s\n  %s\n", titleStyle.Render(p.Name), p.Payload)
		if p.Description != "" {
			fmt.Fprintf(out, "  %s\n", mutedStyle.Render(p.Description))
		}
	}
	return nil
}

// withClient dials a remote server, runs fn with a bounded context and
// closes the connection.
func withClient(parent context.Context, addr string, fn func(context.Context, *client.Client) error) error {
	if parent == nil {
		parent = context.Background()
	}
	c, err := client.New(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(parent, client.DefaultTimeout)
	defer cancel()
	return fn(ctx, c)
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
