package classify

import (
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

// leakedAccount is the profile the CORS lab's /api/account returns.
var leakedAccount = map[string]string{
	"username": "alice",
	"email":    "alice@cybersec.local",
	"api_key":  "sk_live_lab_4f9a2c",
	"balance":  "$12,480.00",
}

func classifyCORS(sub model.Submission, env Env) model.Result {
	origin := strings.TrimSpace(sub.Input)
	if origin == "" {
		return noInput("an Origin header value")
	}

	exchange := &model.CORSExchange{
		Origin:          origin,
		Credentials:     sub.Credentials,
		ResponseHeaders: map[string]string{},
	}
	res := model.Result{Data: &model.Data{CORS: exchange}}

	// Mode policy first: it decides regardless of what the origin is.
	switch sub.Mode {
	case model.ModeSafe:
		exchange.ResponseHeaders["Access-Control-Allow-Origin"] = env.TrustedOrigin
		exchange.ResponseHeaders["Vary"] = "Origin"
		res.Kind = model.KindBlocked
		res.Severity = model.SevInfo
		res.Message = "Server only allows " + env.TrustedOrigin + ". The browser blocked the cross-origin read."
		return res

	case model.ModeWildcard:
		exchange.ResponseHeaders["Access-Control-Allow-Origin"] = "*"
		if sub.Credentials {
			res.Kind = "impossible"
			res.Severity = model.SevInfo
			res.Message = "Browsers refuse credentialed requests when Access-Control-Allow-Origin is *. The response is never exposed."
			return res
		}
	}

	if strings.EqualFold(strings.TrimRight(origin, "/"), env.TrustedOrigin) {
		exchange.BrowserReadAllow = true
		res.Kind = "same_origin"
		res.Severity = model.SevInfo
		res.Message = "Request came from the trusted front-end. This is the intended use."
		if sub.Mode == model.ModeUnsafe {
			exchange.ResponseHeaders["Access-Control-Allow-Origin"] = origin
		}
		return res
	}

	exchange.BrowserReadAllow = true
	if sub.Mode == model.ModeWildcard {
		res.Kind = "public_read"
		res.Severity = model.SevLow
		res.Message = "Wildcard policy exposes anonymous responses to " + origin + ". No cookies were sent, so only public data is readable."
		return res
	}

	// unsafe: the server reflects whatever Origin it receives
	exchange.ResponseHeaders["Access-Control-Allow-Origin"] = origin
	if sub.Credentials {
		exchange.ResponseHeaders["Access-Control-Allow-Credentials"] = "true"
		exchange.LeakedAccount = make(map[string]string, len(leakedAccount))
		for k, v := range leakedAccount {
			exchange.LeakedAccount[k] = v
		}
		res.Kind = "credential_theft"
		res.Severity = model.SevCritical
		res.Message = "Origin " + origin + " was reflected with Allow-Credentials: true. The victim's account data was read cross-origin."
		return res
	}

	res.Kind = "data_read"
	res.Severity = model.SevMedium
	res.Message = "Origin " + origin + " was reflected. Unauthenticated responses are readable cross-origin."
	return res
}
