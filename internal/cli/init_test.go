package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/scenario"
)

func resetInitFlags() {
	initMode = "user"
	initInstallSystemd = false
	initForce = false
}

func TestRunInit_UserMode(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	resetInitFlags()

	cmd, out := newTestCmd()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	configDir := filepath.Join(tmpDir, ".cyberlab")

	cfgPath := filepath.Join(configDir, "config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Server.HTTPAddr != config.Default().Server.HTTPAddr {
		t.Errorf("http addr = %q", cfg.Server.HTTPAddr)
	}

	cat, err := catalog.Load(filepath.Join(configDir, "payloads.yaml"))
	if err != nil {
		t.Fatalf("payloads template does not load: %v", err)
	}
	if cat.Len() != catalog.NewDefault().Len() {
		t.Errorf("payloads template added entries: %d", cat.Len())
	}

	r, err := scenario.LoadAndRun(filepath.Join(configDir, "scenarios", "example.yaml"), cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if r.Total != 3 || r.Failed != 0 {
		t.Errorf("example scenario: %+v", r.Cases)
	}

	if !strings.Contains(out.String(), "Created:") || !strings.Contains(out.String(), cfgPath) {
		t.Errorf("summary missing created files:\n%s", out)
	}
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	resetInitFlags()

	configDir := filepath.Join(tmpDir, ".cyberlab")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd, _ := newTestCmd()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	data, _ := os.ReadFile(cfgPath)
	if string(data) != sentinel {
		t.Error("config.yaml was overwritten without --force")
	}

	initForce = true
	defer func() { initForce = false }()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit --force failed: %v", err)
	}
	data, _ = os.ReadFile(cfgPath)
	if string(data) == sentinel {
		t.Error("config.yaml was not overwritten with --force")
	}
}

func TestRunInit_AllFilesExist(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	resetInitFlags()

	cmd, _ := newTestCmd()
	if err := runInit(cmd, nil); err != nil {
		t.Fatal(err)
	}
	cmd, out := newTestCmd()
	if err := runInit(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "All files already exist") {
		t.Errorf("second run output:\n%s", out)
	}
}

func TestInitConfigDir(t *testing.T) {
	defer resetInitFlags()

	initMode = "system"
	dir, err := initConfigDir()
	if err != nil || dir != "/etc/cyberlab" {
		t.Errorf("system dir = %q, err = %v", dir, err)
	}

	initMode = "bogus"
	if _, err := initConfigDir(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestWriteIfMissing_CreatesParentDirs(t *testing.T) {
	resetInitFlags()
	path := filepath.Join(t.TempDir(), "a", "b", "c.yaml")
	wrote, err := writeIfMissing(path, "x: 1\n")
	if err != nil || !wrote {
		t.Fatalf("wrote=%v err=%v", wrote, err)
	}
	wrote, err = writeIfMissing(path, "x: 2\n")
	if err != nil || wrote {
		t.Errorf("second write: wrote=%v err=%v", wrote, err)
	}
}
