// Package labs ties the classifier, catalog, sessions, audit log and
// metrics together behind the API every transport uses.
package labs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cyberlab/internal/audit"
	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/jwtlab"
	"github.com/ppiankov/cyberlab/internal/metrics"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/session"
)

// Info describes a lab for listings.
type Info struct {
	ID          model.Category `json:"id"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Modes       []model.Mode   `json:"modes"`
	DefaultMode model.Mode     `json:"default_mode"`
	DelayMS     int64          `json:"delay_ms"`
	Payloads    int            `json:"payloads"`
}

var descriptions = map[model.Category][2]string{
	model.XSS:          {"Cross-Site Scripting", "Inject markup into a comment box and see which filters stop it."},
	model.SQLi:         {"SQL Injection", "Rewrite a login or search query through unescaped input."},
	model.CORS:         {"CORS Misconfiguration", "Read another origin's API responses through a permissive policy."},
	model.Clickjacking: {"Clickjacking", "Frame the lab page from another origin and hijack a click."},
	model.JWT:          {"JWT Tampering", "Edit token claims and see which validators notice."},
	model.Upload:       {"File Upload Bypass", "Get a server-side script past upload validation."},
	model.Redirect:     {"Open Redirect", "Send users off-site through a redirect parameter."},
	model.CmdI:         {"Command Injection", "Chain shell commands onto a ping utility."},
	model.Scanner:      {"Vulnerability Scanner", "Run a simulated scan against a training target."},
}

// Source names the transport a classification came from, for audit.
type Source string

const (
	SourceHTTP Source = "http"
	SourceGRPC Source = "grpc"
	SourceMCP  Source = "mcp"
	SourceCLI  Source = "cli"

	// SourceSession marks submits that went through a lab session.
	SourceSession Source = "session"
)

// Options configures a Service.
type Options struct {
	ConfigPath string
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	// Audit, if set, receives a record of every classification.
	Audit *audit.Log
	// Now is the clock token expiry is judged against. Defaults to time.Now.
	Now func() time.Time
}

// Service is the shared lab backend.
type Service struct {
	configPath string
	log        *zap.Logger
	metrics    *metrics.Metrics
	audit      *audit.Log
	now        func() time.Time

	mu      sync.RWMutex
	cfg     *config.Config
	cfgHash string
	catalog *catalog.Catalog

	sessions *session.Manager
}

// New loads configuration and the payload catalog and builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		configPath: opts.ConfigPath,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		now:        opts.Now,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	s.sessions = s.newManager(s.Config())
	return s, nil
}

// NewWithConfig builds a Service from an already loaded config, without
// reading any files. Used by tests and one-shot CLI commands.
func NewWithConfig(cfg *config.Config, cat *catalog.Catalog, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if cat == nil {
		cat = catalog.NewDefault()
	}
	s := &Service{
		log:     opts.Logger,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		now:     opts.Now,
		cfg:     cfg,
		cfgHash: "sha256:inline",
		catalog: cat,
	}
	s.sessions = s.newManager(cfg)
	return s
}

// newManager builds the session manager. A session's delay is fixed when
// it is created, so reloaded delays apply to new sessions only.
func (s *Service) newManager(cfg *config.Config) *session.Manager {
	return session.NewManager(session.ManagerOptions{
		LogCap:       cfg.Session.LogCap,
		IdleTTL:      cfg.Session.IdleTTL,
		SubmitRate:   cfg.SubmitLimit(),
		SubmitBurst:  cfg.Session.SubmitBurst,
		DelayFor:     s.DelayFor,
		ProgressTick: cfg.ScannerTick,
		Classify: func(ctx context.Context, id string, sub model.Submission) (model.Result, error) {
			return s.Classify(ctx, SourceSession, id, sub)
		},
		OnCount: s.metrics.SessionsActive,
	})
}

// Reload re-reads the config file and the catalog overrides it names and
// swaps them in. On error the previous state is kept.
func (s *Service) Reload() error {
	cfg, hash, err := config.LoadWithHash(s.configPath)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.cfgHash = hash
	s.catalog = cat
	s.mu.Unlock()

	s.log.Debug("configuration loaded",
		zap.String("config_hash", hash),
		zap.Int("payloads", cat.Len()))
	return nil
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ConfigHash returns the hash of the active config file.
func (s *Service) ConfigHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfgHash
}

// WatchPaths returns the files whose changes should trigger Reload.
func (s *Service) WatchPaths() []string {
	cfg := s.Config()
	path := s.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return []string{path, cfg.CatalogPath}
}

// Catalog returns the active payload catalog.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Sessions returns the session manager.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// DelayFor returns the current simulated latency of a lab.
func (s *Service) DelayFor(cat model.Category) time.Duration {
	return s.Config().DelayFor(cat)
}

// Labs lists every lab in display order.
func (s *Service) Labs() []Info {
	cat := s.Catalog()
	out := make([]Info, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		d := descriptions[c]
		out = append(out, Info{
			ID:          c,
			Title:       d[0],
			Summary:     d[1],
			Modes:       c.Modes(),
			DefaultMode: c.DefaultMode(),
			DelayMS:     s.DelayFor(c).Milliseconds(),
			Payloads:    len(cat.Payloads(c)),
		})
	}
	return out
}

// Lab returns one lab's description.
func (s *Service) Lab(name string) (Info, error) {
	c, err := model.ParseCategory(name)
	if err != nil {
		return Info{}, err
	}
	for _, info := range s.Labs() {
		if info.ID == c {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %q", model.ErrUnknownCategory, name)
}

// Payloads returns a lab's example payloads.
func (s *Service) Payloads(name string) ([]model.Payload, error) {
	c, err := model.ParseCategory(name)
	if err != nil {
		return nil, err
	}
	return s.Catalog().Payloads(c), nil
}

// Classify runs the classifier with the current fixtures and records the
// outcome. It applies no delay; sessions add that.
func (s *Service) Classify(_ context.Context, src Source, sessionID string, sub model.Submission) (model.Result, error) {
	mode, err := model.ValidateMode(sub.Category, sub.Mode)
	if err != nil {
		s.metrics.Rejected("invalid")
		return model.Result{}, err
	}
	sub.Mode = mode

	env := s.Config().Env()
	env.Now = s.now()
	res, err := classify.Classify(sub, env)
	if err != nil {
		s.metrics.Rejected("invalid")
		return model.Result{}, err
	}

	s.metrics.Classified(sub.Category, res)
	s.log.Debug("classified",
		zap.String("source", string(src)),
		zap.String("session", sessionID),
		zap.String("category", string(sub.Category)),
		zap.String("mode", string(sub.Mode)),
		zap.String("kind", string(res.Kind)),
		zap.String("severity", string(res.Severity)))

	if s.audit != nil {
		if err := s.audit.Record(auditEntry(src, sessionID, sub, res, s.ConfigHash())); err != nil {
			s.log.Warn("audit record failed", zap.Error(err))
		}
	}
	return res, nil
}

// Submit runs a session submit and counts refusals.
func (s *Service) Submit(ctx context.Context, sessionID string) (model.Result, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return model.Result{}, err
	}
	res, err := s.sessions.Submit(ctx, sessionID)
	switch {
	case err == nil:
		s.metrics.Delay(sess.Category(), s.DelayFor(sess.Category()))
	case errors.Is(err, session.ErrInFlight):
		s.metrics.Rejected("in_flight")
	case errors.Is(err, session.ErrRateLimited):
		s.metrics.Rejected("rate_limited")
	case errors.Is(err, session.ErrCancelled):
		s.metrics.Rejected("cancelled")
	}
	return res, err
}

// IssueToken signs claims with the lab secret.
func (s *Service) IssueToken(claims map[string]any) (string, error) {
	if claims == nil {
		claims = map[string]any{}
	}
	return jwtlab.Generate(claims, s.Config().Fixtures.JWTSecret)
}

// TamperToken edits a token's claims without re-signing it.
func (s *Service) TamperToken(token string, changes map[string]any) (string, error) {
	return jwtlab.Tamper(token, changes)
}

// Run sweeps idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := s.Config().Session.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	s.sessions.Run(ctx, interval)
}

func auditEntry(src Source, sessionID string, sub model.Submission, res model.Result, hash string) audit.AuditEntry {
	e := audit.AuditEntry{
		SessionID: sessionID,
		Source:    string(src),
		Submission: audit.AuditSubmission{
			Category:    string(sub.Category),
			Mode:        string(sub.Mode),
			InputDigest: audit.Digest(sub.Input),
			Credentials: sub.Credentials,
		},
		Kind:       string(res.Kind),
		Severity:   string(res.Severity),
		ConfigHash: hash,
	}
	if sub.File != nil {
		e.Submission.File = sub.File.Name
	}
	return e
}
