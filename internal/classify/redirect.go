package classify

import (
	"net/url"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

func classifyRedirect(sub model.Submission, env Env) model.Result {
	raw := strings.TrimSpace(sub.Input)
	if raw == "" {
		return noInput("a redirect target")
	}

	target := browserURL(raw)
	u, err := url.Parse(target)
	if err != nil {
		return model.Result{
			Kind:     model.KindInvalidURL,
			Severity: model.SevInfo,
			Message:  "Redirect blocked: target is not a valid URL.",
		}
	}

	plan := &model.RedirectPlan{Target: raw, Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Hostname())}
	res := model.Result{Data: &model.Data{Redirect: plan}}

	// Relative paths stay on site in every mode.
	if plan.Scheme == "" && u.Host == "" && !strings.HasPrefix(target, "//") {
		res.Kind = model.KindSafe
		res.Severity = model.SevInfo
		res.Message = "Relative redirect to " + raw + " stays on this site."
		return res
	}

	if plan.Scheme == "javascript" || plan.Scheme == "data" || plan.Scheme == "vbscript" {
		if sub.Mode == model.ModeStrict || (sub.Mode == model.ModeBasic && !strings.Contains(strings.ToLower(raw), env.RedirectHost)) {
			return blockedRedirect(res, "Redirect blocked: "+plan.Scheme+": targets are not allowed.")
		}
		res.Kind = "script_redirect"
		res.Severity = model.SevCritical
		res.Message = "Location set to a " + plan.Scheme + ": URI. Script runs in the site's origin."
		return res
	}

	if plan.Scheme != "" && plan.Scheme != "http" && plan.Scheme != "https" {
		return blockedRedirect(res, "Redirect blocked: unsupported scheme "+plan.Scheme+".")
	}
	if plan.Host == "" {
		return model.Result{
			Kind:     model.KindInvalidURL,
			Severity: model.SevInfo,
			Message:  "Redirect blocked: absolute URL has no host.",
			Data:     res.Data,
		}
	}
	plan.External = plan.Host != strings.ToLower(env.RedirectHost)

	switch sub.Mode {
	case model.ModeStrict:
		if plan.Scheme != "https" || plan.External {
			return blockedRedirect(res, "Redirect blocked: only https://"+env.RedirectHost+" is allowed.")
		}

	case model.ModeBasic:
		if !strings.Contains(strings.ToLower(raw), env.RedirectHost) {
			return blockedRedirect(res, "Redirect blocked: target does not mention "+env.RedirectHost+".")
		}
		if plan.External {
			res.Kind = "open_redirect"
			res.Severity = model.SevHigh
			res.Message = "Substring check passed but the real host is " + plan.Host + ". Victims land on the attacker's page."
			return res
		}

	default:
		if plan.External {
			res.Kind = "open_redirect"
			res.Severity = model.SevHigh
			res.Message = "Redirected to external host " + plan.Host + " without validation."
			return res
		}
	}

	res.Kind = model.KindSafe
	res.Severity = model.SevInfo
	res.Message = "Redirect stays on " + env.RedirectHost + "."
	return res
}

// browserURL reads a Location value the way a browser does: tabs and
// newlines are dropped and backslashes count as slashes, so /\host and
// \\host are protocol-relative.
func browserURL(raw string) string {
	return strings.NewReplacer("\t", "", "\n", "", "\r", "", "\\", "/").Replace(raw)
}

func blockedRedirect(res model.Result, msg string) model.Result {
	res.Kind = model.KindBlocked
	res.Severity = model.SevInfo
	res.Message = msg
	return res
}
