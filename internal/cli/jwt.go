package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cyberlab/internal/jwtlab"
)

var (
	jwtClaims []string
	jwtFormat string
)

func init() {
	rootCmd.AddCommand(jwtCmd)
	jwtCmd.AddCommand(jwtTokenCmd)
	jwtCmd.AddCommand(jwtTamperCmd)
	jwtCmd.AddCommand(jwtDecodeCmd)
	jwtCmd.PersistentFlags().StringArrayVarP(&jwtClaims, "claim", "c", nil, "Claim as key=value (repeatable)")
	jwtDecodeCmd.Flags().StringVarP(&jwtFormat, "format", "f", "text", "Output format (text|json)")
}

var jwtCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Issue, tamper with and decode lab tokens",
}

var jwtTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an HS256 token signed with the lab secret",
	Long:  "Signs the given claims with the configured lab secret.\nWithout claims the token carries sub=guest and role=user.",
	Args:  cobra.NoArgs,
	RunE:  runJWTToken,
}

var jwtTamperCmd = &cobra.Command{
	Use:   "tamper <token>",
	Short: "Rewrite a token's claims without re-signing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runJWTTamper,
}

var jwtDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Decode a token and check its signature against the lab secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runJWTDecode,
}

func runJWTToken(cmd *cobra.Command, args []string) error {
	claims, err := parseClaims(jwtClaims)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		claims = map[string]any{"sub": "guest", "role": "user"}
	}

	env, err := openEnv(envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	token, err := env.svc.IssueToken(claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runJWTTamper(cmd *cobra.Command, args []string) error {
	changes, err := parseClaims(jwtClaims)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return fmt.Errorf("nothing to change: pass at least one --claim")
	}
	token, err := jwtlab.Tamper(args[0], changes)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runJWTDecode(cmd *cobra.Command, args []string) error {
	tok, err := jwtlab.Decode(args[0])
	if err != nil {
		return err
	}

	env, err := openEnv(envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()
	verified := jwtlab.Verify(tok, env.svc.Config().Fixtures.JWTSecret)

	out := cmd.OutOrStdout()
	if jwtFormat == "json" {
		return writeJSON(out, map[string]any{
			"header":             tok.Header,
			"claims":             tok.Claims,
			"signature_verified": verified,
		})
	}
	fmt.Fprintf(out, "alg: %s\n", tok.Alg())
	if verified {
		fmt.Fprintln(out, "signature: valid")
	} else {
		fmt.Fprintln(out, severityBadge("high")+" signature does not match the lab secret")
	}
	return writeJSON(out, tok.Claims)
}

// parseClaims turns key=value pairs into claims. Values are read as YAML
// scalars so numbers and booleans keep their type.
func parseClaims(pairs []string) (map[string]any, error) {
	claims := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid claim %q: want key=value", p)
		}
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		claims[k] = val
	}
	return claims, nil
}
