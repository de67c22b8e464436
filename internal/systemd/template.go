package systemd

import "fmt"

// UnitName is the installed unit file name.
const UnitName = "cyberlab.service"

// ServiceUnit returns a systemd unit that runs `cyberlab serve` with the
// given binary and config file.
func ServiceUnit(binary, configPath string) string {
	return fmt.Sprintf(`[Unit]
Description=CyberSec Lab training server
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s serve --config %s --log-format json
Restart=on-failure
RestartSec=2
DynamicUser=true
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=read-only

[Install]
WantedBy=multi-user.target
`, binary, configPath)
}
