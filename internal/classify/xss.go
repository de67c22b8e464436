package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	eventHandlerRe = regexp.MustCompile(`<[^>]*\bon[a-z]+\s*=`)
	htmlTagRe      = regexp.MustCompile(`<[a-z!/][^>]*>`)
	keyListenerRe  = regexp.MustCompile(`addeventlistener\(\s*['"]key|\bonkey(down|up|press)\s*=`)
)

// hasScriptVector reports whether the markup can run script at all.
func hasScriptVector(lower string) bool {
	return strings.Contains(lower, "<script") ||
		eventHandlerRe.MatchString(lower) ||
		strings.Contains(lower, "javascript:")
}

var xssRules = []rule{
	{
		kind: "cookie_theft", severity: model.SevCritical,
		match: func(s string) bool {
			return hasScriptVector(s) && strings.Contains(s, "document.cookie")
		},
		message: "Script read document.cookie and sent it off-site. The attacker can now hijack the session.",
	},
	{
		kind: "keylogger", severity: model.SevCritical,
		match: func(s string) bool {
			return hasScriptVector(s) && keyListenerRe.MatchString(s)
		},
		message: "A key listener was installed. Everything typed on this page is captured.",
	},
	{
		kind: "script_injection", severity: model.SevHigh,
		match:   contains("<script"),
		message: "Injected <script> element executed in the victim's browser.",
	},
	{
		kind: "event_handler", severity: model.SevHigh,
		match:   eventHandlerRe.MatchString,
		message: "Inline event handler attribute executed without a script tag.",
	},
	{
		kind: "javascript_uri", severity: model.SevMedium,
		match:   contains("javascript:"),
		message: "javascript: URI runs script when the victim follows the link.",
	},
	{
		kind: "html_injection", severity: model.SevLow,
		match:   htmlTagRe.MatchString,
		message: "Markup was rendered. No script ran, but the page content can be defaced.",
	},
}

// basicXSSFilter strips only exact lowercase script tags, the classic
// incomplete blacklist.
func basicXSSFilter(input string) string {
	out := strings.ReplaceAll(input, "<script>", "")
	return strings.ReplaceAll(out, "</script>", "")
}

func classifyXSS(sub model.Submission) model.Result {
	input := strings.TrimSpace(sub.Input)
	if input == "" {
		return noInput("a comment")
	}

	original, matched := firstMatch(xssRules, strings.ToLower(input))

	switch sub.Mode {
	case model.ModeStrict:
		if matched {
			return model.Result{
				Kind:     model.KindBlocked,
				Severity: model.SevInfo,
				Message:  "Output was HTML-encoded; the " + string(original.kind) + " payload rendered as inert text.",
			}
		}

	case model.ModeBasic:
		filtered := basicXSSFilter(input)
		r, ok := firstMatch(xssRules, strings.ToLower(filtered))
		if ok {
			return result(r, r.message+" The basic <script> filter was bypassed.")
		}
		if matched {
			return model.Result{
				Kind:     model.KindBlocked,
				Severity: model.SevInfo,
				Message:  "The basic filter removed the script tags before rendering.",
			}
		}

	default:
		if matched {
			return result(original, "")
		}
	}

	return model.Result{
		Kind:     model.KindSafe,
		Severity: model.SevInfo,
		Message:  "Comment rendered as plain text.",
	}
}
