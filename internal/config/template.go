package config

// DefaultYAML returns a commented config file matching Default. Written by
// `cyberlab init`.
func DefaultYAML() string {
	return `# cyberlab configuration.
# Every field is optional; omitted fields keep their built-in default.
# Changes are picked up by a running "cyberlab serve" without restart.

server:
  http_addr: 127.0.0.1:8380
  grpc_port: 8381

log:
  level: info       # debug, info, warn, error
  format: console   # console or json

session:
  log_cap: 10          # results kept per session, newest first
  idle_ttl: 30m        # idle sessions are discarded after this
  sweep_interval: 1m
  submit_rate: 2       # submits per second per session, 0 disables the limit
  submit_burst: 5

# Simulated response latency.
default_delay: 800ms
delays:
  sqli: 1200ms
  scanner: 3s
scanner_tick: 150ms    # progress bar update interval

# Values the labs treat as server configuration.
fixtures:
  lab_origin: https://lab.cybersec.local
  trusted_origin: https://app.cybersec.local
  frame_ancestors: ["'self'", "https://partner.cybersec.local"]
  jwt_secret: cybersec-lab-secret
  upload_max_bytes: 5242880
  redirect_host: app.cybersec.local

# Extra payloads appended to the built-in catalog.
# catalog: ~/.cyberlab/payloads.yaml

# Hash-chained JSONL record of every classification.
# audit_log: ~/.cyberlab/audit.jsonl
`
}
