package systemd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// UnitFilePath is where `cyberlab init --install-systemd` writes the unit.
var UnitFilePath = "/etc/systemd/system/" + UnitName

// CheckUnitFileIntegrity compares the unit file hash against the hash
// recorded at install time. Returns a warning message if the unit file
// has been modified, or empty string if integrity is confirmed or
// checking is not applicable (no unit file or no stored hash).
func CheckUnitFileIntegrity(unitPath, hashPath string) string {
	data, err := os.ReadFile(unitPath)
	if err != nil {
		return "" // not installed
	}

	stored, err := os.ReadFile(hashPath)
	if err != nil {
		return "" // no baseline recorded
	}
	expectedHash := strings.TrimSpace(string(stored))
	if len(expectedHash) != 64 {
		return ""
	}

	actualHash := hashBytes(data)
	if actualHash == expectedHash {
		return ""
	}

	return fmt.Sprintf("systemd unit file %s has been modified since installation (expected %s, got %s)",
		unitPath, expectedHash[:16], actualHash[:16])
}

// RecordUnitFileHash writes the SHA-256 of unitPath to hashPath as the
// install-time baseline.
func RecordUnitFileHash(unitPath, hashPath string) error {
	data, err := os.ReadFile(unitPath)
	if err != nil {
		return fmt.Errorf("read unit file: %w", err)
	}
	return os.WriteFile(hashPath, []byte(hashBytes(data)+"\n"), 0600)
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
