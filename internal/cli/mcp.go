package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	labmcp "github.com/ppiankov/cyberlab/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for agent integration",
	Long: "Runs cyberlab as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: cyberlab_labs, cyberlab_payloads, cyberlab_classify, cyberlab_jwt_token.\n" +
		"Logs go to stderr; stdout carries the protocol.",
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	env, err := openEnv(envOptions{withAudit: true})
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			env.log.Info("shutting down MCP server")
			cancel()
		case <-ctx.Done():
		}
	}()

	go env.svc.Run(ctx)

	env.log.Info("cyberlab MCP server running on stdio")
	return labmcp.New(env.svc, version, env.log).Run(ctx)
}
