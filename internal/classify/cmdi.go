package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	shellSeparatorRe = regexp.MustCompile("[;|&`\n]|\\$\\(")
	hostOnlyRe       = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]*$`)
)

// cmdiRules in priority order. The first two are judged on content alone;
// the rest only apply once a separator lets a second command run, since
// without one the string is just a strange host name.
var cmdiRules = []rule{
	{
		kind: "rce_destructive", severity: model.SevCritical,
		match:   contains("rm -rf", "mkfs", "dd if=", ":(){"),
		message: "Injected command destroyed data on the server.",
	},
	{
		kind: "reverse_shell", severity: model.SevCritical,
		match:   contains("/dev/tcp/", "nc -e", "ncat -e", "bash -i", "sh -i"),
		message: "Reverse shell connected back to the attacker. Full interactive access.",
	},
	{
		kind: "sensitive_read", severity: model.SevHigh,
		match:   contains("/etc/passwd", "/etc/shadow", ".ssh/id_", ".env"),
		message: "Injected command read a sensitive file and returned it in the page.",
	},
	{
		kind: "command_injection", severity: model.SevHigh,
		match:   func(string) bool { return true },
		message: "Second command executed with the web server's privileges.",
	},
}

// cmdiPayloadRules flag payloads that are dangerous wherever they appear.
var cmdiPayloadRules = cmdiRules[:2]

// basicCmdFilter removes semicolons only.
func basicCmdFilter(input string) string {
	return strings.ReplaceAll(input, ";", "")
}

func classifyCmdI(sub model.Submission) model.Result {
	input := strings.TrimSpace(sub.Input)
	if input == "" {
		return noInput("a host to ping")
	}
	lower := strings.ToLower(input)
	cmd := "ping -c 4 " + input

	switch sub.Mode {
	case model.ModeStrict:
		if !hostOnlyRe.MatchString(lower) {
			return model.Result{
				Kind:     model.KindBlocked,
				Severity: model.SevInfo,
				Message:  "Input rejected: only host names and IP addresses are allowed.",
			}
		}

	case model.ModeBasic:
		cmd = "ping -c 4 " + basicCmdFilter(input)
		filtered := strings.ToLower(basicCmdFilter(input))
		if r, ok := firstMatch(cmdiPayloadRules, filtered); ok {
			return cmdiResult(r, cmd, r.message+" The semicolon filter never looks at the command itself.")
		}
		if shellSeparatorRe.MatchString(filtered) {
			r, _ := firstMatch(cmdiRules, filtered)
			return cmdiResult(r, cmd, r.message+" The semicolon filter did not stop other separators.")
		}
		if shellSeparatorRe.MatchString(lower) {
			return model.Result{
				Kind:     model.KindBlocked,
				Severity: model.SevInfo,
				Message:  "The filter stripped ';' and the remaining input was treated as a host name.",
				Data:     commandData(cmd, model.KindBlocked),
			}
		}

	default:
		if r, ok := firstMatch(cmdiPayloadRules, lower); ok {
			return cmdiResult(r, cmd, "")
		}
		if shellSeparatorRe.MatchString(lower) {
			r, _ := firstMatch(cmdiRules, lower)
			return cmdiResult(r, cmd, "")
		}
	}

	return model.Result{
		Kind:     model.KindSafe,
		Severity: model.SevInfo,
		Message:  "Ping ran against " + input + ".",
		Data:     commandData(cmd, model.KindSafe),
	}
}

func cmdiResult(r rule, cmd, message string) model.Result {
	res := result(r, message)
	res.Data = commandData(cmd, r.kind)
	return res
}

// commandData fabricates the transcript shown for an outcome.
func commandData(cmd string, kind model.Kind) *model.Data {
	var out string
	switch kind {
	case "rce_destructive":
		out = "rm: removing '/var/www/html'...\nrm: removing '/etc'...\n"
	case "reverse_shell":
		out = "(no output: shell detached)\n"
	case "sensitive_read":
		out = "root:x:0:0:root:/root:/bin/bash\nwww-data:x:33:33:www-data:/var/www:/usr/sbin/nologin\n"
	case "command_injection":
		out = "uid=33(www-data) gid=33(www-data) groups=33(www-data)\n"
	case model.KindBlocked:
		out = "ping: unknown host\n"
	default:
		out = "PING host: 56 data bytes\n4 packets transmitted, 4 received, 0% packet loss\n"
	}
	return &model.Data{Command: &model.CommandOutput{Command: cmd, Output: out}}
}
