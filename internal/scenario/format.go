package scenario

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

// FormatText renders run results as text: one line per scenario file with
// its failed cases, then a per-lab tally and the outcomes seen by severity.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Checking %d scenario %s...\n\n", len(results), plural(len(results), "file", "files"))

	var tally labTally
	passed, total, failedFiles := 0, 0, 0
	for _, r := range results {
		passed += r.Passed
		total += r.Total

		status := "PASS"
		if r.Failed > 0 {
			status = "FAIL"
			failedFiles++
		}
		fmt.Fprintf(&b, "  %s  %s (%d/%d)\n", status, r.Name, r.Passed, r.Total)

		for _, c := range r.Cases {
			tally.add(c)
			if !c.Passed {
				fmt.Fprintf(&b, "    FAIL  case %d: %-20s %-40s expected %s, got %s\n",
					c.Index, c.Category+"/"+c.Mode, clip(c.Input, 40), c.Expected, c.Actual)
			}
		}
	}

	if len(tally.labs) > 0 {
		b.WriteString("\nBy lab:\n")
		for _, name := range tally.order() {
			l := tally.labs[name]
			fmt.Fprintf(&b, "  %-13s %d/%d\n", name, l.passed, l.total)
		}
		b.WriteString("\nOutcomes by severity:")
		for _, sev := range severityOrder {
			if n := tally.severity[sev]; n > 0 {
				fmt.Fprintf(&b, " %s %d", sev, n)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", passed, total)
	if failedFiles > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedFiles, len(results))
	}
	b.WriteString("\n")

	return b.String()
}

var severityOrder = []model.Severity{model.SevCritical, model.SevHigh, model.SevMedium, model.SevLow, model.SevInfo}

type labCount struct{ passed, total int }

// labTally groups case outcomes by lab and counts the severity each
// classification actually produced.
type labTally struct {
	labs     map[string]*labCount
	severity map[model.Severity]int
}

func (t *labTally) add(c CaseResult) {
	if t.labs == nil {
		t.labs = make(map[string]*labCount)
		t.severity = make(map[model.Severity]int)
	}
	l := t.labs[c.Category]
	if l == nil {
		l = &labCount{}
		t.labs[c.Category] = l
	}
	l.total++
	if c.Passed {
		l.passed++
	}
	// Actual is kind/severity, or "error" when classification failed.
	if _, sev, ok := strings.Cut(c.Actual, "/"); ok {
		t.severity[model.Severity(sev)]++
	}
}

// order lists labs in catalog order, then any unknown names as written.
func (t *labTally) order() []string {
	seen := make(map[string]bool, len(t.labs))
	var out []string
	for _, cat := range model.Categories() {
		if _, ok := t.labs[string(cat)]; ok {
			out = append(out, string(cat))
			seen[string(cat)] = true
		}
	}
	var rest []string
	for name := range t.labs {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
