package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programming mistakes at the classifier boundary.
// Lab failures the user can trigger are Result kinds, never errors.
var (
	ErrUnknownCategory = errors.New("model: unknown lab category")
	ErrUnknownMode     = errors.New("model: unknown mode for lab")
)

// Category identifies one lab.
type Category string

const (
	XSS          Category = "xss"
	SQLi         Category = "sqli"
	CORS         Category = "cors"
	Clickjacking Category = "clickjacking"
	JWT          Category = "jwt"
	Upload       Category = "upload"
	Redirect     Category = "redirect"
	CmdI         Category = "cmdi"
	Scanner      Category = "scanner"
)

// Mode is a lab-specific configuration value selected by the user.
type Mode string

// Modes by lab. Values are shared across labs where the wording matches
// (none/basic/strict); validity is always checked per category.
const (
	ModeVulnerable Mode = "vulnerable"
	ModeNone       Mode = "none"
	ModeBasic      Mode = "basic"
	ModeStrict     Mode = "strict"

	ModeLogin Mode = "login"
	ModeUnion Mode = "union"
	ModeBlind Mode = "blind"
	ModeError Mode = "error"

	ModeSafe     Mode = "safe"
	ModeUnsafe   Mode = "unsafe"
	ModeWildcard Mode = "wildcard"

	ModeDeny       Mode = "deny"
	ModeSameOrigin Mode = "sameorigin"
	ModeCSP        Mode = "csp"

	ModeQuick Mode = "quick"
	ModeFull  Mode = "full"
)

// categoryModes lists valid modes per lab. The first entry is the default.
var categoryModes = map[Category][]Mode{
	XSS:          {ModeVulnerable, ModeBasic, ModeStrict},
	SQLi:         {ModeLogin, ModeUnion, ModeBlind, ModeError},
	CORS:         {ModeUnsafe, ModeSafe, ModeWildcard},
	Clickjacking: {ModeNone, ModeDeny, ModeSameOrigin, ModeCSP},
	JWT:          {ModeNone, ModeBasic, ModeStrict},
	Upload:       {ModeNone, ModeBasic, ModeStrict},
	Redirect:     {ModeNone, ModeBasic, ModeStrict},
	CmdI:         {ModeNone, ModeBasic, ModeStrict},
	Scanner:      {ModeQuick, ModeFull},
}

// Categories returns every lab in display order.
func Categories() []Category {
	return []Category{XSS, SQLi, CORS, Clickjacking, JWT, Upload, Redirect, CmdI, Scanner}
}

// ParseCategory normalizes s and checks it names a lab.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryModes[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Modes returns the valid modes for a lab, default first.
func (c Category) Modes() []Mode {
	modes := categoryModes[c]
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

// DefaultMode returns the mode a fresh session starts in.
func (c Category) DefaultMode() Mode {
	if modes := categoryModes[c]; len(modes) > 0 {
		return modes[0]
	}
	return ""
}

// ValidateMode reports whether m is one of the lab's enumerated modes.
// An empty mode resolves to the lab default.
func ValidateMode(c Category, m Mode) (Mode, error) {
	modes, ok := categoryModes[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if m == "" {
		return modes[0], nil
	}
	m = Mode(strings.ToLower(string(m)))
	for _, valid := range modes {
		if m == valid {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w %s: %q", ErrUnknownMode, c, m)
}

// Severity ranks how bad a classified outcome is.
type Severity string

const (
	SevInfo     Severity = "info"
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// Score returns a comparable rank. Unknown severities score 0.
func (s Severity) Score() int {
	switch s {
	case SevCritical:
		return 5
	case SevHigh:
		return 4
	case SevMedium:
		return 3
	case SevLow:
		return 2
	case SevInfo:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if other.Score() > s.Score() {
		return other
	}
	return s
}

// Kind labels a classification outcome.
type Kind string

// Outcome kinds shared by every lab.
const (
	KindNoInput     Kind = "no_input"
	KindNoFile      Kind = "no_file"
	KindDecodeError Kind = "decode_error"
	KindInvalidURL  Kind = "invalid_url"
	KindSafe        Kind = "safe"
	KindBlocked     Kind = "blocked"
)

// Payload is an immutable example attack string from the catalog.
type Payload struct {
	Name        string `json:"name" yaml:"name"`
	Payload     string `json:"payload" yaml:"payload"`
	Description string `json:"description" yaml:"description"`
}

// FileInfo is the client-side metadata of a selected upload.
type FileInfo struct {
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size" yaml:"size"`
	MIME string `json:"mime" yaml:"mime"`
}

// Submission is everything the classifier needs for one request.
type Submission struct {
	Category    Category  `json:"category"`
	Mode        Mode      `json:"mode"`
	Input       string    `json:"input"`
	Credentials bool      `json:"credentials,omitempty"`
	File        *FileInfo `json:"file,omitempty"`
}

// Result is the canned verdict for one submission.
type Result struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Data     *Data    `json:"data,omitempty"`
}

// Success reports whether the simulated attack went through.
func (r Result) Success() bool {
	switch r.Kind {
	case KindNoInput, KindNoFile, KindDecodeError, KindInvalidURL, KindSafe, KindBlocked:
		return false
	}
	return r.Severity.Score() >= SevMedium.Score()
}
