// Package jwtlab builds and takes apart the HS256 tokens used by the JWT
// lab. Tokens are signed with the lab's fixture secret; nothing here is
// meant to authenticate anyone.
package jwtlab

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only signing method the lab issues and strict mode accepts.
const Algorithm = "HS256"

// ErrMalformed is returned when a token cannot be decoded.
var ErrMalformed = errors.New("jwtlab: malformed token")

// Token is a decoded, unverified token.
type Token struct {
	Raw       string
	Header    map[string]any
	Claims    map[string]any
	Signature string
}

// Alg returns the header's alg value, or "" if absent.
func (t *Token) Alg() string {
	s, _ := t.Header["alg"].(string)
	return s
}

// Role returns the role claim, or "" if absent.
func (t *Token) Role() string {
	s, _ := t.Claims["role"].(string)
	return s
}

// lenient reads tokens the way a careless server does: padded segments
// are tolerated and nothing is verified.
var lenient = jwt.NewParser(jwt.WithPaddingAllowed())

// Generate signs claims with HS256.
func Generate(claims map[string]any, secret string) (string, error) {
	if claims == nil {
		claims = map[string]any{}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Tamper merges changes into the token's claims and re-encodes the
// payload while keeping the original header and signature, which is
// exactly what an attacker editing a token by hand produces.
func Tamper(token string, changes map[string]any) (string, error) {
	tok, err := Decode(token)
	if err != nil {
		return "", err
	}
	for k, v := range changes {
		tok.Claims[k] = v
	}
	payload, err := json.Marshal(tok.Claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	header, _, _ := strings.Cut(tok.Raw, ".")
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + "." + tok.Signature, nil
}

// Decode splits and decodes a token without verifying it. Tokens with a
// missing or unknown alg still decode; judging them is the caller's job.
func Decode(token string) (*Token, error) {
	token = strings.TrimSpace(token)
	if n := strings.Count(token, ".") + 1; n != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, n)
	}

	claims := jwt.MapClaims{}
	parsed, parts, err := lenient.ParseUnverified(token, claims)
	if err != nil && !(errors.Is(err, jwt.ErrTokenUnverifiable) && parsed != nil) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if parsed.Header == nil {
		return nil, fmt.Errorf("%w: header is not an object", ErrMalformed)
	}

	return &Token{
		Raw:       token,
		Header:    parsed.Header,
		Claims:    claims,
		Signature: parts[2],
	}, nil
}

// Verify reports whether the token carries a valid HS256 signature made
// with secret. Claims such as exp are not looked at.
func Verify(tok *Token, secret string) bool {
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithPaddingAllowed(),
		jwt.WithoutClaimsValidation(),
	)
	_, err := p.Parse(tok.Raw, keyFunc(secret))
	return err == nil
}

// Validate checks a token the way a hardened server does: HS256 only, a
// signature made with secret, and exp/nbf honored at now. A zero now
// uses the wall clock. The returned error wraps the jwt package's
// sentinels (jwt.ErrTokenExpired, jwt.ErrTokenSignatureInvalid, ...).
func Validate(token, secret string, now time.Time) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithPaddingAllowed(),
	}
	if !now.IsZero() {
		opts = append(opts, jwt.WithTimeFunc(func() time.Time { return now }))
	}
	_, err := jwt.NewParser(opts...).Parse(strings.TrimSpace(token), keyFunc(secret))
	return err
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}
}
