package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/server"
	"github.com/ppiankov/cyberlab/internal/web"
)

var (
	serveHTTPAddr string
	serveGRPCPort int
	serveNoGRPC   bool
	serveNoReload bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP listen address (default from config)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC listen port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoGRPC, "no-grpc", false, "Do not start the gRPC listener")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "Disable hot-reload of config and catalog files")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lab HTTP API and gRPC server",
	Long: "Serves the labs over HTTP (JSON API, /metrics, /healthz) and gRPC.\n" +
		"Config and catalog override files are hot-reloaded; new sessions pick\n" +
		"up reloaded delays, running sessions keep theirs.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := openEnv(envOptions{withAudit: true, withMetrics: true})
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.log
	cfg := env.svc.Config()

	httpAddr := cfg.Server.HTTPAddr
	if serveHTTPAddr != "" {
		httpAddr = serveHTTPAddr
	}
	grpcPort := cfg.Server.GRPCPort
	if serveGRPCPort != 0 {
		grpcPort = serveGRPCPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !serveNoReload {
		reloader, err := config.NewReloader(env.svc.WatchPaths(), env.svc.Reload, log)
		if err != nil {
			log.Warn("hot-reload disabled", zap.Error(err))
		} else {
			log.Info("hot-reload enabled", zap.Strings("paths", reloader.Paths()))
			go reloader.Run(ctx)
		}
	}
	go env.svc.Run(ctx)

	errCh := make(chan error, 2)

	var grpcSrv *server.Server
	if !serveNoGRPC {
		grpcSrv = server.New(env.svc, grpcPort, log)
		go func() {
			if err := grpcSrv.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	httpSrv := web.New(env.svc, env.metrics, version, log)
	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		if err := httpSrv.ListenAndServe(ctx, httpAddr); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	if env.audit != nil {
		log.Info("audit log enabled", zap.String("path", env.audit.Path()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		log.Error("listener failed", zap.Error(runErr))
	}

	cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	<-httpDone
	return runErr
}
