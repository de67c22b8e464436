package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/cyberlab/internal/audit"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/logging"
	"github.com/ppiankov/cyberlab/internal/metrics"
)

// runtimeEnv is what a command needs to talk to the labs in-process.
type runtimeEnv struct {
	log     *zap.Logger
	svc     *labs.Service
	audit   *audit.Log
	metrics *metrics.Metrics
}

type envOptions struct {
	// withAudit opens the configured audit log, if any.
	withAudit bool
	// withMetrics builds a Prometheus registry for the service.
	withMetrics bool
}

// newLogger builds the logger from the config file, with flag overrides.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(level, format)
}

// openEnv loads config, builds the logger and the lab service.
func openEnv(opts envOptions) (*runtimeEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{log: log}
	if opts.withMetrics {
		m, err := metrics.New()
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		env.metrics = m
	}
	if opts.withAudit && cfg.AuditLog != "" {
		al, err := audit.Open(cfg.AuditLog)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		env.audit = al
	}

	svc, err := labs.New(labs.Options{
		ConfigPath: configPath,
		Logger:     log,
		Metrics:    env.metrics,
		Audit:      env.audit,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.svc = svc
	return env, nil
}

// Close flushes the audit log and the logger.
func (e *runtimeEnv) Close() {
	if e.audit != nil {
		if err := e.audit.Close(); err != nil {
			e.log.Warn("close audit log", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}
