package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cyberlab/internal/config"
	"github.com/ppiankov/cyberlab/internal/systemd"
)

var (
	initMode           string
	initInstallSystemd bool
	initForce          bool
)

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "user", "Config location: user (~/.cyberlab) or system (/etc/cyberlab)")
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install a systemd unit running cyberlab serve (requires root)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap cyberlab configuration and optional systemd integration",
	Long: `Creates the config directory with a commented config.yaml, a payload
catalog extension template and an example scenario.

User mode (default):  writes to ~/.cyberlab/
System mode:          writes to /etc/cyberlab/ (requires root)

With --install-systemd: installs cyberlab.service and records its hash
so "cyberlab doctor" can detect later edits.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

// unitHashFile is the install-time baseline of the systemd unit, kept in
// the config directory.
const unitHashFile = "unit.sha256"

const payloadsTemplate = `# Extra payloads appended to the built-in catalog.
# Enable with "catalog: <path to this file>" in config.yaml.
#
# payloads:
#   xss:
#     - name: SVG onload
#       payload: "<svg onload=alert(1)>"
#       description: Event handler on an inline SVG element.
#       mode: basic
#       expect: script_injection
payloads: {}
`

const scenarioTemplate = `# Run with: cyberlab check --scenario "<dir>/scenarios/*.yaml"
name: example
cases:
  - category: cors
    mode: safe
    input: https://evil.example
    expect: {kind: blocked}
  - category: sqli
    mode: union
    input: "' UNION SELECT 1,username,password,role FROM users--"
    expect: {kind: union, severity: high}
  - category: upload
    mode: basic
    file: {name: shell.php.jpg, mime: image/jpeg}
    expect: {kind: uploaded, contains: possible bypass attempt}
`

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	var created []string
	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(configDir, "config.yaml"), config.DefaultYAML()},
		{filepath.Join(configDir, "payloads.yaml"), payloadsTemplate},
		{filepath.Join(configDir, "scenarios", "example.yaml"), scenarioTemplate},
	}
	for _, f := range files {
		wrote, err := writeIfMissing(f.path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, f.path)
		}
	}

	if initInstallSystemd {
		unitPath, err := installUnit(configDir)
		if err != nil {
			return err
		}
		created = append(created, unitPath)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "cyberlab init complete.")
	fmt.Fprintln(out)
	if len(created) > 0 {
		fmt.Fprintln(out, "Created:")
		for _, path := range created {
			fmt.Fprintf(out, "  %s\n", path)
		}
	} else {
		fmt.Fprintln(out, "All files already exist (use --force to overwrite).")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Verify:")
	fmt.Fprintln(out, "  cyberlab doctor")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Start the labs:")
	fmt.Fprintln(out, "  cyberlab serve")
	if initInstallSystemd {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Enable the service:")
		fmt.Fprintf(out, "  sudo systemctl enable --now %s\n", systemd.UnitName)
	}
	return nil
}

func installUnit(configDir string) (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("--install-systemd is only supported on Linux")
	}
	if os.Geteuid() != 0 {
		return "", fmt.Errorf("--install-systemd requires root; run with sudo")
	}

	binary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate cyberlab binary: %w", err)
	}
	unitPath := systemd.UnitFilePath
	content := systemd.ServiceUnit(binary, filepath.Join(configDir, "config.yaml"))
	if err := os.WriteFile(unitPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write systemd unit: %w", err)
	}
	if err := systemd.RecordUnitFileHash(unitPath, filepath.Join(configDir, unitHashFile)); err != nil {
		return "", err
	}

	if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: systemctl daemon-reload failed: %v\n", err)
	}
	return unitPath, nil
}

// initConfigDir returns the configuration directory based on mode.
func initConfigDir() (string, error) {
	switch initMode {
	case "system":
		return "/etc/cyberlab", nil
	case "user", "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".cyberlab"), nil
	default:
		return "", fmt.Errorf("unknown mode %q: use 'user' or 'system'", initMode)
	}
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
