package certify

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatText renders a certification result as human-readable text.
func FormatText(r *CertResult) string {
	var b strings.Builder

	header := fmt.Sprintf("Certification: %s v%s", r.Suite, r.Version)
	if r.ConfigHash != "" {
		header += " (config " + shortHash(r.ConfigHash) + ")"
	}
	fmt.Fprintln(&b, header)
	fmt.Fprintln(&b, strings.Repeat("═", utf8.RuneCountInString(header)))

	for _, cat := range r.Categories {
		status := "PASS"
		if cat.Failed > 0 {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  %-30s %d/%-4d %s\n", cat.Name, cat.Passed, cat.Total, status)

		if cat.Failed > 0 {
			for _, c := range cat.Cases {
				if !c.Passed {
					input := []rune(c.Input)
					if len(input) > 40 {
						input = append(input[:37], []rune("...")...)
					}
					fmt.Fprintf(&b, "    FAIL  case %d: %-12s %-40s expected %s, got %s\n",
						c.Index, c.Mode, string(input), c.Expected, c.Actual)
				}
			}
		}
	}

	fmt.Fprintln(&b, strings.Repeat("─", utf8.RuneCountInString(header)))

	status := "PASS"
	if r.Failed > 0 {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "Result: %s (%d/%d)\n", status, r.Passed, r.Total)

	return b.String()
}

func shortHash(h string) string {
	h = strings.TrimPrefix(h, "sha256:")
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// FormatJSON renders a certification result as JSON.
func FormatJSON(r *CertResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cert result: %w", err)
	}
	return string(data), nil
}
