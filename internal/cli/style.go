package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	colorCritical = lipgloss.Color("#FF0000")
	colorHigh     = lipgloss.Color("#FF6B6B")
	colorMedium   = lipgloss.Color("#FFD93D")
	colorLow      = lipgloss.Color("#6BCB77")
	colorInfo     = lipgloss.Color("#4D96FF")
	colorMuted    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

var severityStyles = map[model.Severity]lipgloss.Style{
	model.SevCritical: lipgloss.NewStyle().Bold(true).Foreground(colorCritical),
	model.SevHigh:     lipgloss.NewStyle().Bold(true).Foreground(colorHigh),
	model.SevMedium:   lipgloss.NewStyle().Foreground(colorMedium),
	model.SevLow:      lipgloss.NewStyle().Foreground(colorLow),
	model.SevInfo:     lipgloss.NewStyle().Foreground(colorInfo),
}

// severityBadge renders a severity in upper case with its color.
func severityBadge(s model.Severity) string {
	label := strings.ToUpper(string(s))
	if st, ok := severityStyles[s]; ok {
		return st.Render(label)
	}
	return label
}

// printResult writes a verdict and the mock material that came with it.
func printResult(w io.Writer, res model.Result) {
	fmt.Fprintf(w, "%s  %s\n", severityBadge(res.Severity), titleStyle.Render(string(res.Kind)))
	fmt.Fprintf(w, "  %s\n", res.Message)
	printData(w, res.Data)
}

func printData(w io.Writer, d *model.Data) {
	switch d.Variant() {
	case "users":
		fmt.Fprintf(w, "\n  %-4s %-10s %-14s %s\n", "ID", "USERNAME", "PASSWORD", "ROLE")
		for _, u := range d.Users {
			fmt.Fprintf(w, "  %-4d %-10s %-14s %s\n", u.ID, u.Username, u.Password, u.Role)
		}
	case "claims":
		c := d.Claims
		fmt.Fprintf(w, "\n  alg: %s  signature verified: %v\n", c.Algorithm, c.SignatureVerified)
		keys := make([]string, 0, len(c.Claims))
		for k := range c.Claims {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, c.Claims[k])
		}
	case "upload":
		u := d.Upload
		fmt.Fprintf(w, "\n  file: %s (%s, %d bytes)\n", u.File.Name, u.File.MIME, u.File.Size)
		if u.Stored {
			fmt.Fprintf(w, "  stored at: %s\n", u.Path)
		}
		for _, f := range u.Flags {
			fmt.Fprintf(w, "  flag: %s\n", f)
		}
	case "cors":
		c := d.CORS
		fmt.Fprintf(w, "\n  origin: %s  credentials: %v  readable: %v\n", c.Origin, c.Credentials, c.BrowserReadAllow)
		printMap(w, "  < ", c.ResponseHeaders)
		printMap(w, "  leaked ", c.LeakedAccount)
	case "framing":
		f := d.Framing
		fmt.Fprintf(w, "\n  framed by: %s  rendered: %v\n", f.FramingOrigin, f.Rendered)
		if f.XFrameOptions != "" {
			fmt.Fprintf(w, "  X-Frame-Options: %s\n", f.XFrameOptions)
		}
		if f.FrameAncestors != "" {
			fmt.Fprintf(w, "  Content-Security-Policy: frame-ancestors %s\n", f.FrameAncestors)
		}
	case "redirect":
		r := d.Redirect
		fmt.Fprintf(w, "\n  target: %s  external: %v\n", r.Target, r.External)
	case "command":
		fmt.Fprintf(w, "\n  $ %s\n", d.Command.Command)
		for _, line := range strings.Split(strings.TrimRight(d.Command.Output, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", mutedStyle.Render(line))
		}
	case "scan":
		s := d.Scan
		fmt.Fprintf(w, "\n  target: %s  findings: %d\n", s.Target, s.Findings)
		for _, c := range s.Checks {
			mark := "ok  "
			if c.Vulnerable {
				mark = "VULN"
			}
			fmt.Fprintf(w, "  %s %-8s %-30s %s\n", mark, severityBadge(c.Severity), c.Title, mutedStyle.Render(c.Detail))
		}
	}
}

func printMap(w io.Writer, prefix string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s: %s\n", prefix, k, m[k])
	}
}
