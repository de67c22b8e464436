package audit

// AuditSubmission is the flattened submission recorded in each entry. The
// raw input is never stored, only its digest.
type AuditSubmission struct {
	Category    string `json:"category"`
	Mode        string `json:"mode"`
	InputDigest string `json:"input_digest"`
	Credentials bool   `json:"credentials,omitempty"`
	File        string `json:"file,omitempty"`
}

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp  string          `json:"ts"`
	SessionID  string          `json:"session_id"`
	Source     string          `json:"source"`
	Submission AuditSubmission `json:"submission"`
	Kind       string          `json:"kind"`
	Severity   string          `json:"severity"`
	ConfigHash string          `json:"config_hash"`
	PrevHash   string          `json:"prev_hash"`
}
