// Package classify maps a lab submission to its canned verdict.
//
// Every lab follows the same evaluation order:
//  1. Required input check (no_input / no_file)
//  2. Mode policy, which may short-circuit the scan entirely
//  3. Ordered predicate scan, most dangerous first (first match wins)
//  4. Fallback outcome
//
// Classify is pure: the same submission and Env always yield the same
// Result. Nothing is executed, sent or stored.
package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/cyberlab/internal/model"
)

// Env holds the lab fixtures that are configuration rather than input.
type Env struct {
	// LabOrigin is the origin the lab pages are served from.
	LabOrigin string
	// TrustedOrigin is the only origin the CORS lab's safe policy allows.
	TrustedOrigin string
	// FrameAncestors is the CSP frame-ancestors list for the clickjacking lab.
	FrameAncestors []string
	// JWTSecret signs and verifies lab tokens.
	JWTSecret string
	// UploadMaxBytes caps file size under strict upload validation.
	UploadMaxBytes int64
	// RedirectHost is the host the redirect lab considers its own.
	RedirectHost string
	// Now pins the clock for token expiry checks. Zero uses the wall clock.
	Now time.Time
}

// DefaultEnv returns the fixtures the labs ship with.
func DefaultEnv() Env {
	return Env{
		LabOrigin:      "https://lab.cybersec.local",
		TrustedOrigin:  "https://app.cybersec.local",
		FrameAncestors: []string{"'self'", "https://partner.cybersec.local"},
		JWTSecret:      "cybersec-lab-secret",
		UploadMaxBytes: 5 << 20,
		RedirectHost:   "app.cybersec.local",
	}
}

// Classify returns the verdict for one submission. An unknown lab or mode
// is a caller bug and the only error case; everything the user can type
// maps to a Result.
func Classify(sub model.Submission, env Env) (model.Result, error) {
	mode, err := model.ValidateMode(sub.Category, sub.Mode)
	if err != nil {
		return model.Result{}, err
	}
	sub.Mode = mode

	switch sub.Category {
	case model.XSS:
		return classifyXSS(sub), nil
	case model.SQLi:
		return classifySQLi(sub), nil
	case model.CORS:
		return classifyCORS(sub, env), nil
	case model.Clickjacking:
		return classifyClickjacking(sub, env), nil
	case model.JWT:
		return classifyJWT(sub, env), nil
	case model.Upload:
		return classifyUpload(sub, env), nil
	case model.Redirect:
		return classifyRedirect(sub, env), nil
	case model.CmdI:
		return classifyCmdI(sub), nil
	case model.Scanner:
		return classifyScanner(sub), nil
	}
	return model.Result{}, fmt.Errorf("%w: %q", model.ErrUnknownCategory, sub.Category)
}

// rule is one ordered predicate in a lab table.
type rule struct {
	kind     model.Kind
	severity model.Severity
	match    func(lower string) bool
	message  string
}

// firstMatch evaluates rules top to bottom against the lowercased input.
func firstMatch(rules []rule, lower string) (rule, bool) {
	for _, r := range rules {
		if r.match(lower) {
			return r, true
		}
	}
	return rule{}, false
}

func contains(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

func noInput(what string) model.Result {
	return model.Result{
		Kind:     model.KindNoInput,
		Severity: model.SevInfo,
		Message:  fmt.Sprintf("Enter %s to run the simulation.", what),
	}
}

func result(r rule, message string) model.Result {
	if message == "" {
		message = r.message
	}
	return model.Result{Kind: r.kind, Severity: r.severity, Message: message}
}

// Echo trims input for display in logs and messages.
func Echo(input string) string {
	const limit = 120
	runes := []rune(strings.TrimSpace(input))
	if len(runes) > limit {
		return string(runes[:limit-3]) + "..."
	}
	return string(runes)
}
