package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/audit"
	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/certify"
	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/systemd"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, catalog, audit log and service install",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	if execPath, err := os.Executable(); err == nil {
		checks = append(checks, checkResult{label: "cyberlab binary", ok: true, detail: fmt.Sprintf("%s (v%s)", execPath, version)})
	} else {
		checks = append(checks, checkResult{label: "cyberlab binary", detail: "cannot determine executable path"})
	}

	// 2. Config file.
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, hash, err := config.LoadWithHash(configPath)
	switch {
	case err != nil:
		checks = append(checks, checkResult{label: "config", detail: err.Error(), fix: "fix " + path})
	case fileExists(path):
		checks = append(checks, checkResult{label: "config", ok: true, detail: fmt.Sprintf("%s (%s)", path, shortDigest(hash))})
	default:
		checks = append(checks, checkResult{label: "config", ok: true, detail: "built-in defaults (no file)", fix: "cyberlab init"})
	}
	if cfg == nil {
		cfg = config.Default()
	}

	// 3. Payload catalog.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		checks = append(checks, checkResult{label: "payload catalog", detail: err.Error(), fix: "fix " + cfg.CatalogPath})
		cat = catalog.NewDefault()
	} else {
		checks = append(checks, checkResult{label: "payload catalog", ok: true, detail: fmt.Sprintf("%d payloads", cat.Len())})
	}

	// 4. Every catalog payload still demonstrates its documented outcome.
	cert := certify.Run(certify.CatalogSuite(cat), cfg.Env())
	if cert.Failed == 0 {
		checks = append(checks, checkResult{label: "payload outcomes", ok: true, detail: fmt.Sprintf("%d/%d as documented", cert.Passed, cert.Total)})
	} else {
		checks = append(checks, checkResult{
			label:  "payload outcomes",
			detail: fmt.Sprintf("%d of %d differ from their documented outcome", cert.Failed, cert.Total),
			fix:    "cyberlab certify --suite " + certify.CatalogSuiteName,
		})
	}

	// 5. Audit log chain.
	if cfg.AuditLog != "" {
		if !fileExists(cfg.AuditLog) {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: "not written yet"})
		} else if v := audit.Verify(cfg.AuditLog); v.Valid {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%d entries, chain intact", v.Lines)})
		} else {
			checks = append(checks, checkResult{
				label:  "audit log",
				detail: fmt.Sprintf("chain broken at line %d", v.ErrorLine),
				fix:    "cyberlab audit verify " + cfg.AuditLog,
			})
		}
	}

	// 6. systemd unit (Linux only).
	if runtime.GOOS == "linux" && fileExists(systemd.UnitFilePath) {
		hashPath := filepath.Join(filepath.Dir(path), unitHashFile)
		if warn := systemd.CheckUnitFileIntegrity(systemd.UnitFilePath, hashPath); warn != "" {
			checks = append(checks, checkResult{label: "systemd unit", detail: warn, fix: "sudo cyberlab init --install-systemd --force"})
		} else {
			checks = append(checks, checkResult{label: "systemd unit", ok: true, detail: systemd.UnitFilePath})
		}
	}

	out := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	if hasFailures {
		fmt.Fprintln(out, "Some checks failed. Run the suggested commands to fix.")
		return errChecksFailed
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func shortDigest(h string) string {
	const prefix = "sha256:"
	if len(h) > len(prefix)+12 {
		return h[:len(prefix)+12]
	}
	return h
}
