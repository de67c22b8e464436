package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/jwtlab"
	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/server"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	return cmd, &buf
}

// useTestConfig points --config at a file without delays or rate limits.
func useTestConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "default_delay: 0s\n" +
		"delays:\n  sqli: 0s\n  scanner: 0s\n" +
		"scanner_tick: 5ms\n" +
		"session:\n  submit_rate: 0\n" +
		"log:\n  level: error\n" + extra
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = path
	t.Cleanup(func() { configPath = "" })
	return path
}

func resetClassifyFlags() {
	classifyMode = ""
	classifyCredentials = false
	classifyFile = ""
	classifySize = 24 * 1024
	classifyMIME = ""
	classifyPayload = ""
	classifyDelay = false
	classifyRemote = ""
	classifyFormat = "text"
}

func classifyJSON(t *testing.T, args ...string) model.Result {
	t.Helper()
	classifyFormat = "json"
	cmd, out := newTestCmd()
	if err := runClassify(cmd, args); err != nil {
		t.Fatalf("classify %v: %v", args, err)
	}
	var res model.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return res
}

func TestClassifyText(t *testing.T) {
	useTestConfig(t, "")
	resetClassifyFlags()
	defer resetClassifyFlags()

	classifyMode = "union"
	cmd, out := newTestCmd()
	if err := runClassify(cmd, []string{"sqli", "' UNION SELECT 1,username,password,role FROM users--"}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"HIGH", "union", "USERNAME", "admin"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClassifyUploadFile(t *testing.T) {
	useTestConfig(t, "")
	resetClassifyFlags()
	defer resetClassifyFlags()

	classifyMode = "basic"
	classifyFile = "shell.php.jpg"
	res := classifyJSON(t, "upload")
	if res.Kind != "uploaded" || !strings.Contains(res.Message, "possible bypass attempt") {
		t.Errorf("result = %+v", res)
	}
	if res.Data.Upload.File.MIME != "image/jpeg" {
		t.Errorf("mime = %q", res.Data.Upload.File.MIME)
	}
}

func TestClassifyCatalogPayload(t *testing.T) {
	useTestConfig(t, "")
	resetClassifyFlags()
	defer resetClassifyFlags()

	e := catalog.NewDefault().Entries(model.SQLi)[0]
	classifyPayload = e.Name
	res := classifyJSON(t, "sqli")
	if res.Kind != e.Expect {
		t.Errorf("kind = %s, want %s", res.Kind, e.Expect)
	}

	classifyPayload = "no such payload"
	cmd, _ := newTestCmd()
	if err := runClassify(cmd, []string{"sqli"}); err == nil {
		t.Error("expected error for unknown payload")
	}
}

func TestClassifyThroughSessionDelay(t *testing.T) {
	useTestConfig(t, "")
	resetClassifyFlags()
	defer resetClassifyFlags()

	classifyDelay = true
	classifyMode = "wildcard"
	classifyCredentials = true
	res := classifyJSON(t, "cors", "https://evil.example")
	if res.Kind != "impossible" {
		t.Errorf("kind = %s", res.Kind)
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	useTestConfig(t, "")
	resetClassifyFlags()
	defer resetClassifyFlags()

	cmd, _ := newTestCmd()
	if err := runClassify(cmd, []string{"ldap", "x"}); !errors.Is(err, model.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	classifyMode = "union"
	if err := runClassify(cmd, []string{"cors", "x"}); !errors.Is(err, model.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestClassifyRemote(t *testing.T) {
	resetClassifyFlags()
	defer resetClassifyFlags()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(labs.NewWithConfig(config.Default(), nil, labs.Options{}), 0, nil)
	go srv.ServeOn(lis)
	defer srv.GracefulStop()

	classifyRemote = lis.Addr().String()
	classifyMode = "strict"
	res := classifyJSON(t, "redirect", "https://evil.example")
	if res.Kind != "blocked" {
		t.Errorf("kind = %s", res.Kind)
	}

	classifyPayload = "anything"
	cmd, _ := newTestCmd()
	if err := runClassify(cmd, []string{"redirect"}); err == nil {
		t.Error("--payload with --remote should fail")
	}
}

func TestLabsAndPayloads(t *testing.T) {
	useTestConfig(t, "")
	defer func() { labsFormat, payloadsFormat = "text", "text" }()

	labsFormat = "json"
	cmd, out := newTestCmd()
	if err := runLabs(cmd, nil); err != nil {
		t.Fatal(err)
	}
	var list []labs.Info
	if err := json.Unmarshal(out.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != len(model.Categories()) {
		t.Errorf("labs = %d", len(list))
	}

	labsFormat = "text"
	cmd, out = newTestCmd()
	if err := runLabs(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Cross-Site Scripting") || !strings.Contains(out.String(), "login*") {
		t.Errorf("labs text:\n%s", out)
	}

	first := catalog.NewDefault().Payloads(model.XSS)[0]
	cmd, out = newTestCmd()
	if err := runPayloads(cmd, []string{"xss"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), first.Name) {
		t.Errorf("payloads missing %q:\n%s", first.Name, out)
	}

	if err := runPayloads(cmd, []string{"ldap"}); !errors.Is(err, model.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestScan(t *testing.T) {
	useTestConfig(t, "")
	scanMode, scanQuiet, scanFormat = "full", true, "json"
	defer func() { scanMode, scanQuiet, scanFormat = "quick", false, "text" }()

	cmd, out := newTestCmd()
	if err := runScan(cmd, []string{"target.lab.local"}); err != nil {
		t.Fatal(err)
	}
	var res model.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Data == nil || res.Data.Scan == nil || res.Data.Scan.Target != "https://target.lab.local" {
		t.Errorf("result = %+v", res)
	}

	scanMode = "union"
	if err := runScan(cmd, []string{"target.lab.local"}); !errors.Is(err, model.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestDrawProgress(t *testing.T) {
	var buf bytes.Buffer
	drawProgress(&buf, "t", 50)
	if !strings.Contains(buf.String(), "["+strings.Repeat("#", 15)+strings.Repeat(" ", 15)+"]  50%") {
		t.Errorf("bar = %q", buf.String())
	}
}

func TestJWTCommands(t *testing.T) {
	path := useTestConfig(t, "")
	defer func() { jwtClaims, jwtFormat = nil, "text" }()

	jwtClaims = []string{"sub=alice", "role=user", "level=3"}
	cmd, out := newTestCmd()
	if err := runJWTToken(cmd, nil); err != nil {
		t.Fatal(err)
	}
	token := strings.TrimSpace(out.String())

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwtlab.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if !jwtlab.Verify(tok, cfg.Fixtures.JWTSecret) {
		t.Error("issued token does not verify")
	}
	if tok.Claims["level"] != float64(3) {
		t.Errorf("level claim = %#v", tok.Claims["level"])
	}

	jwtClaims = []string{"role=admin"}
	cmd, out = newTestCmd()
	if err := runJWTTamper(cmd, []string{token}); err != nil {
		t.Fatal(err)
	}
	tampered := strings.TrimSpace(out.String())

	jwtFormat = "json"
	cmd, out = newTestCmd()
	if err := runJWTDecode(cmd, []string{tampered}); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Claims   map[string]any `json:"claims"`
		Verified bool           `json:"signature_verified"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Verified || decoded.Claims["role"] != "admin" {
		t.Errorf("decoded = %+v", decoded)
	}

	jwtClaims = nil
	if err := runJWTTamper(cmd, []string{token}); err == nil {
		t.Error("tamper without claims should fail")
	}
}

func TestParseClaims(t *testing.T) {
	claims, err := parseClaims([]string{"admin=true", "n=42", "name=bob", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if claims["admin"] != true || claims["n"] != 42 || claims["name"] != "bob" || claims["empty"] != "" {
		t.Errorf("claims = %#v", claims)
	}
	if _, err := parseClaims([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestCheckCommand(t *testing.T) {
	useTestConfig(t, "")
	defer func() { checkScenario, checkFormat = "", "text" }()

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "pass.yaml"), []byte(`
name: pass
cases:
  - {category: cors, mode: safe, input: "https://evil.example", expect: {kind: blocked}}
`), 0o644)

	checkScenario = filepath.Join(dir, "*.yaml")
	cmd, out := newTestCmd()
	if err := runCheck(cmd, nil); err != nil {
		t.Fatalf("passing scenario: %v\n%s", err, out)
	}

	os.WriteFile(filepath.Join(dir, "fail.yaml"), []byte(`
name: fail
cases:
  - {category: xss, input: hello, expect: {kind: script_injection}}
`), 0o644)
	cmd, out = newTestCmd()
	if err := runCheck(cmd, nil); !errors.Is(err, errChecksFailed) {
		t.Errorf("expected errChecksFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "FAIL  fail") {
		t.Errorf("output:\n%s", out)
	}

	checkScenario = filepath.Join(dir, "*.none")
	if err := runCheck(cmd, nil); err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestCertifyCommand(t *testing.T) {
	useTestConfig(t, "")
	defer func() { certifySuite, certifyFormat = "hardened", "text" }()

	for _, suite := range []string{"hardened", "exploitable", "catalog"} {
		certifySuite = suite
		cmd, out := newTestCmd()
		if err := runCertify(cmd, nil); err != nil {
			t.Errorf("suite %s: %v\n%s", suite, err, out)
		}
	}

	certifySuite = "bogus"
	cmd, _ := newTestCmd()
	if err := runCertify(cmd, nil); err == nil {
		t.Error("expected error for unknown suite")
	}
}

func TestCertifyFailsOnWeakFixtures(t *testing.T) {
	useTestConfig(t, "fixtures:\n  frame_ancestors: [\"*\"]\n")
	certifySuite = "hardened"

	cmd, out := newTestCmd()
	if err := runCertify(cmd, nil); !errors.Is(err, errChecksFailed) {
		t.Errorf("expected errChecksFailed, got %v\n%s", err, out)
	}
}

func TestAuditVerifyAndReplay(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	useTestConfig(t, "audit_log: "+logPath+"\n")
	resetClassifyFlags()
	defer resetClassifyFlags()
	defer func() { auditFormat, replayFormat, replayLab = "text", "text", "" }()

	classifyMode = "union"
	classifyJSON(t, "sqli", "' UNION SELECT 1,username,password,role FROM users--")
	classifyMode = "safe"
	classifyJSON(t, "cors", "https://evil.example")

	cmd, out := newTestCmd()
	if err := runAuditVerify(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "OK: 2 entries") {
		t.Errorf("verify output: %s", out)
	}

	replayLab = "sqli"
	cmd, out = newTestCmd()
	if err := runReplay(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "sqli/union") || strings.Contains(out.String(), "cors/safe") {
		t.Errorf("replay output:\n%s", out)
	}

	tailLines = 1
	cmd, out = newTestCmd()
	if err := runAuditTail(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"category": "cors"`) || strings.Contains(out.String(), `"category": "sqli"`) {
		t.Errorf("tail output:\n%s", out)
	}

	data, _ := os.ReadFile(logPath)
	os.WriteFile(logPath, bytes.Replace(data, []byte(`"high"`), []byte(`"info"`), 1), 0o644)
	// The first line changed, so the second line's prev_hash no longer matches.
	cmd, _ = newTestCmd()
	if err := runAuditVerify(cmd, nil); !errors.Is(err, errChecksFailed) {
		t.Errorf("expected errChecksFailed after tampering, got %v", err)
	}
}

func TestAuditPathRequiresConfig(t *testing.T) {
	useTestConfig(t, "")
	if _, err := auditPath(nil); err == nil {
		t.Error("expected error without audit_log")
	}
	if p, err := auditPath([]string{"x.jsonl"}); err != nil || p != "x.jsonl" {
		t.Errorf("explicit path = %q, %v", p, err)
	}
}

func TestDoctor(t *testing.T) {
	useTestConfig(t, "")
	cmd, out := newTestCmd()
	if err := runDoctor(cmd, nil); err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "All checks passed.") {
		t.Errorf("output:\n%s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("session: ["), 0o644)
	configPath = bad
	cmd, out = newTestCmd()
	if err := runDoctor(cmd, nil); !errors.Is(err, errChecksFailed) {
		t.Errorf("expected errChecksFailed for bad config, got %v\n%s", err, out)
	}
}

func TestVersion(t *testing.T) {
	cmd, out := newTestCmd()
	if err := versionCmd.RunE(cmd, nil); err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["name"] != "cyberlab" || info["version"] != version {
		t.Errorf("info = %v", info)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"audit", "certify", "check", "classify", "doctor", "init", "jwt", "labs", "mcp", "payloads", "replay", "scan", "serve", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}
