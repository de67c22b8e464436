package classify

import (
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

func classifyClickjacking(sub model.Submission, env Env) model.Result {
	framer := strings.TrimRight(strings.TrimSpace(sub.Input), "/")
	if framer == "" {
		return noInput("the origin of the framing page")
	}

	report := &model.FramingReport{FramingOrigin: framer}
	res := model.Result{Data: &model.Data{Framing: report}}
	sameOrigin := strings.EqualFold(framer, env.LabOrigin)

	switch sub.Mode {
	case model.ModeDeny:
		report.XFrameOptions = "DENY"
		return blockedFrame(res, "X-Frame-Options: DENY. The browser refused to render the page in any frame.")

	case model.ModeSameOrigin:
		report.XFrameOptions = "SAMEORIGIN"
		if sameOrigin {
			report.Rendered = true
			res.Kind = "same_origin"
			res.Severity = model.SevInfo
			res.Message = "Framed by the lab's own origin, which SAMEORIGIN permits."
			return res
		}
		return blockedFrame(res, "X-Frame-Options: SAMEORIGIN. "+framer+" is a different origin.")

	case model.ModeCSP:
		report.FrameAncestors = strings.Join(env.FrameAncestors, " ")
		if ancestorAllowed(framer, env) {
			report.Rendered = true
			res.Kind = "allowed_ancestor"
			res.Severity = model.SevInfo
			res.Message = framer + " is listed in frame-ancestors and may embed the page."
			return res
		}
		return blockedFrame(res, "Content-Security-Policy frame-ancestors does not list "+framer+".")
	}

	report.Rendered = true
	if sameOrigin {
		res.Kind = "same_origin"
		res.Severity = model.SevInfo
		res.Message = "No anti-framing headers, but the framer is the lab itself."
		return res
	}
	res.Kind = "framed"
	res.Severity = model.SevHigh
	res.Message = "No X-Frame-Options or frame-ancestors. " + framer + " rendered the page in a transparent iframe and hijacked the click."
	return res
}

func ancestorAllowed(framer string, env Env) bool {
	for _, a := range env.FrameAncestors {
		switch {
		case a == "'self'":
			if strings.EqualFold(framer, env.LabOrigin) {
				return true
			}
		case a == "*":
			return true
		case strings.EqualFold(strings.TrimRight(a, "/"), framer):
			return true
		}
	}
	return false
}

func blockedFrame(res model.Result, msg string) model.Result {
	res.Kind = model.KindBlocked
	res.Severity = model.SevInfo
	res.Message = msg
	return res
}
