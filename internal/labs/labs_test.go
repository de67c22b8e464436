package labs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/cyberlab/internal/audit"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/jwtlab"
	"github.com/ppiankov/cyberlab/internal/metrics"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/session"
)

func testService(t *testing.T, opts Options) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.DefaultDelay = 0
	cfg.Delays = nil
	cfg.Session.SubmitRate = 0
	return NewWithConfig(cfg, nil, opts)
}

func TestLabsListsEveryCategory(t *testing.T) {
	s := testService(t, Options{})
	labs := s.Labs()
	if len(labs) != len(model.Categories()) {
		t.Fatalf("labs = %d, want %d", len(labs), len(model.Categories()))
	}
	for _, l := range labs {
		if l.Title == "" || len(l.Modes) == 0 || l.Payloads == 0 {
			t.Errorf("incomplete lab info: %+v", l)
		}
		if l.DefaultMode != l.Modes[0] {
			t.Errorf("%s default mode %s is not first", l.ID, l.DefaultMode)
		}
	}
}

func TestLabLookup(t *testing.T) {
	s := testService(t, Options{})
	info, err := s.Lab("CORS")
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != model.CORS {
		t.Errorf("id = %s", info.ID)
	}
	if _, err := s.Lab("ldap"); !errors.Is(err, model.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestClassifyRecordsAuditAndMetrics(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	al, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s := testService(t, Options{Metrics: m, Audit: al})

	res, err := s.Classify(context.Background(), SourceCLI, "", model.Submission{
		Category: model.SQLi, Mode: model.ModeLogin, Input: "' OR '1'='1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != "auth_bypass" {
		t.Errorf("kind = %s", res.Kind)
	}
	al.Close()

	v := audit.Verify(path)
	if !v.Valid || v.Lines != 1 {
		t.Fatalf("audit = %+v", v)
	}
	replay, err := audit.Replay(path, audit.ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}
	e := replay.Entries[0]
	if e.Source != "cli" || e.Kind != "auth_bypass" || e.Submission.InputDigest != audit.Digest("' OR '1'='1") {
		t.Errorf("entry = %+v", e)
	}

	n := testutil.CollectAndCount(m.Registry(), "cyberlab_classifications_total")
	if n != 1 {
		t.Errorf("classification series = %d, want 1", n)
	}
}

func TestClassifyRejectsBadMode(t *testing.T) {
	s := testService(t, Options{})
	_, err := s.Classify(context.Background(), SourceHTTP, "", model.Submission{Category: model.JWT, Mode: "union", Input: "x"})
	if !errors.Is(err, model.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestSessionSubmitThroughService(t *testing.T) {
	s := testService(t, Options{})
	sess, err := s.Sessions().Create(model.Upload, model.ModeBasic)
	if err != nil {
		t.Fatal(err)
	}
	sess.SetFile(&model.FileInfo{Name: "shell.php.jpg", Size: 100, MIME: "image/jpeg"})

	res, err := s.Submit(context.Background(), sess.ID())
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != "uploaded" {
		t.Errorf("kind = %s", res.Kind)
	}
	if _, err := s.Submit(context.Background(), "missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTokenHelpersUseLabSecret(t *testing.T) {
	s := testService(t, Options{})
	token, err := s.IssueToken(map[string]any{"role": "user"})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwtlab.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if !jwtlab.Verify(tok, s.Config().Fixtures.JWTSecret) {
		t.Error("issued token does not verify with the lab secret")
	}

	tampered, err := s.TamperToken(token, map[string]any{"role": "admin"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Classify(context.Background(), SourceHTTP, "", model.Submission{Category: model.JWT, Mode: model.ModeStrict, Input: tampered})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != "rejected" {
		t.Errorf("kind = %s", res.Kind)
	}
}

func TestStrictModeHonorsTokenExpiry(t *testing.T) {
	issued, err := testService(t, Options{}).IssueToken(map[string]any{"role": "user", "exp": 1000})
	if err != nil {
		t.Fatal(err)
	}
	sub := model.Submission{Category: model.JWT, Mode: model.ModeStrict, Input: issued}

	// Default clock: the token expired in 1970.
	res, err := testService(t, Options{}).Classify(context.Background(), SourceHTTP, "", sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != "rejected" || !strings.Contains(res.Message, "expired") {
		t.Errorf("wall clock: got %s %q", res.Kind, res.Message)
	}

	pinned := testService(t, Options{Now: func() time.Time { return time.Unix(500, 0) }})
	res, err = pinned.Classify(context.Background(), SourceHTTP, "", sub)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != "accepted" {
		t.Errorf("before exp: got %s %q", res.Kind, res.Message)
	}
}

func TestReloadSwapsCatalogAndDelays(t *testing.T) {
	dir := t.TempDir()
	catPath := filepath.Join(dir, "payloads.yaml")
	cfgPath := filepath.Join(dir, "config.yaml")
	os.WriteFile(catPath, []byte("payloads:\n  xss:\n    - name: Extra\n      payload: \"<b>x</b>\"\n      expect: html_injection\n"), 0644)
	os.WriteFile(cfgPath, []byte("catalog: "+catPath+"\ndefault_delay: 10ms\n"), 0644)

	s, err := New(Options{ConfigPath: cfgPath})
	if err != nil {
		t.Fatal(err)
	}
	before := len(s.Catalog().Payloads(model.XSS))
	if _, ok := s.Catalog().Find(model.XSS, "Extra"); !ok {
		t.Fatal("override not loaded")
	}
	if s.DelayFor(model.CORS) != 10*time.Millisecond {
		t.Errorf("delay = %s", s.DelayFor(model.CORS))
	}
	firstHash := s.ConfigHash()

	os.WriteFile(cfgPath, []byte("default_delay: 20ms\n"), 0644)
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if len(s.Catalog().Payloads(model.XSS)) != before-1 {
		t.Error("catalog override should be gone after reload")
	}
	if s.DelayFor(model.CORS) != 20*time.Millisecond {
		t.Errorf("delay after reload = %s", s.DelayFor(model.CORS))
	}
	if s.ConfigHash() == firstHash {
		t.Error("config hash did not change")
	}

	os.WriteFile(cfgPath, []byte("session: ["), 0644)
	if err := s.Reload(); err == nil {
		t.Fatal("expected reload error for bad yaml")
	}
	if s.DelayFor(model.CORS) != 20*time.Millisecond {
		t.Error("failed reload replaced the active config")
	}
}
