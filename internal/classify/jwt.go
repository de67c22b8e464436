package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ppiankov/cyberlab/internal/jwtlab"
	"github.com/ppiankov/cyberlab/internal/model"
)

func classifyJWT(sub model.Submission, env Env) model.Result {
	raw := strings.TrimSpace(sub.Input)
	if raw == "" {
		return noInput("a token")
	}

	tok, err := jwtlab.Decode(raw)
	if err != nil {
		return model.Result{
			Kind:     model.KindDecodeError,
			Severity: model.SevInfo,
			Message:  "Could not decode token: " + err.Error(),
		}
	}

	alg := tok.Alg()
	verified := jwtlab.Verify(tok, env.JWTSecret)
	role := tok.Role()
	if role == "" {
		role = "(none)"
	}

	claims := &model.TokenClaims{
		Algorithm:         alg,
		Claims:            tok.Claims,
		Role:              tok.Role(),
		SignatureVerified: verified,
	}
	res := model.Result{Data: &model.Data{Claims: claims}}

	switch sub.Mode {
	case model.ModeBasic:
		if isNoneAlg(alg) {
			return rejected(res, "alg \"none\" is not allowed")
		}

	case model.ModeStrict:
		if alg != jwtlab.Algorithm {
			return rejected(res, fmt.Sprintf("unexpected algorithm %q, only HS256 is accepted", alg))
		}
		if err := jwtlab.Validate(raw, env.JWTSecret, env.Now); err != nil {
			return rejected(res, strictReason(err))
		}
	}

	res.Kind = "accepted"
	res.Severity = model.SevInfo
	res.Message = fmt.Sprintf("ACCEPTED: server trusted the token, role = %s", role)
	if !verified {
		res.Message += " (signature was not verified)"
		if tok.Role() == "admin" {
			res.Severity = model.SevCritical
			res.Message += ". Privilege escalation to admin succeeded."
		} else {
			res.Severity = model.SevMedium
		}
	}
	return res
}

func rejected(res model.Result, reason string) model.Result {
	res.Kind = "rejected"
	res.Severity = model.SevInfo
	res.Message = "REJECTED: " + reason
	return res
}

func isNoneAlg(alg string) bool {
	a := strings.ToLower(strings.TrimSpace(alg))
	return a == "none" || a == ""
}

func strictReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature does not match the token contents"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token has expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "token is not valid yet"
	default:
		return "token failed validation: " + err.Error()
	}
}
