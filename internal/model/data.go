package model

// Data carries the mock material a lab surfaces alongside its verdict.
// Exactly one field is set; Variant names it.
type Data struct {
	Users    []UserRow      `json:"users,omitempty"`
	Claims   *TokenClaims   `json:"claims,omitempty"`
	Upload   *UploadReport  `json:"upload,omitempty"`
	CORS     *CORSExchange  `json:"cors,omitempty"`
	Framing  *FramingReport `json:"framing,omitempty"`
	Redirect *RedirectPlan  `json:"redirect,omitempty"`
	Command  *CommandOutput `json:"command,omitempty"`
	Scan     *ScanReport    `json:"scan,omitempty"`
}

// Variant returns the name of the populated arm, or "" for an empty Data.
func (d *Data) Variant() string {
	switch {
	case d == nil:
		return ""
	case d.Users != nil:
		return "users"
	case d.Claims != nil:
		return "claims"
	case d.Upload != nil:
		return "upload"
	case d.CORS != nil:
		return "cors"
	case d.Framing != nil:
		return "framing"
	case d.Redirect != nil:
		return "redirect"
	case d.Command != nil:
		return "command"
	case d.Scan != nil:
		return "scan"
	default:
		return ""
	}
}

// UserRow is one row of the SQL lab's fixture users table.
type UserRow struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// TokenClaims is the decoded view of a lab JWT.
type TokenClaims struct {
	Algorithm         string         `json:"alg"`
	Claims            map[string]any `json:"claims"`
	Role              string         `json:"role,omitempty"`
	SignatureVerified bool           `json:"signature_verified"`
}

// UploadReport describes how the upload lab treated a file.
type UploadReport struct {
	File      FileInfo `json:"file"`
	Extension string   `json:"extension"`
	Stored    bool     `json:"stored"`
	Path      string   `json:"path,omitempty"`
	Flags     []string `json:"flags,omitempty"`
}

// CORSExchange is the simulated preflight/response pair.
type CORSExchange struct {
	Origin           string            `json:"origin"`
	Credentials      bool              `json:"credentials"`
	ResponseHeaders  map[string]string `json:"response_headers"`
	LeakedAccount    map[string]string `json:"leaked_account,omitempty"`
	BrowserReadAllow bool              `json:"browser_read_allowed"`
}

// FramingReport lists the anti-framing headers the lab page sent.
type FramingReport struct {
	FramingOrigin  string `json:"framing_origin"`
	XFrameOptions  string `json:"x_frame_options,omitempty"`
	FrameAncestors string `json:"frame_ancestors,omitempty"`
	Rendered       bool   `json:"rendered"`
}

// RedirectPlan is the parsed redirect target.
type RedirectPlan struct {
	Target   string `json:"target"`
	Scheme   string `json:"scheme,omitempty"`
	Host     string `json:"host,omitempty"`
	External bool   `json:"external"`
}

// CommandOutput is the simulated shell transcript.
type CommandOutput struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// ScanReport is the simulated scanner's per-check verdict.
type ScanReport struct {
	Target   string        `json:"target"`
	Checks   []ScanFinding `json:"checks"`
	Findings int           `json:"findings"`
}

// ScanFinding is one scanner check.
type ScanFinding struct {
	Check      string   `json:"check"`
	Title      string   `json:"title"`
	Vulnerable bool     `json:"vulnerable"`
	Severity   Severity `json:"severity"`
	Detail     string   `json:"detail"`
}
