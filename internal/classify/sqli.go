package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/cyberlab/internal/model"
)

// FixtureUsers is the users table behind the SQL lab. UNION payloads
// "leak" exactly these rows.
var FixtureUsers = []model.UserRow{
	{ID: 1, Username: "admin", Password: "admin123", Role: "admin"},
	{ID: 2, Username: "alice", Password: "password1", Role: "user"},
	{ID: 3, Username: "bob", Password: "qwerty", Role: "user"},
	{ID: 4, Username: "carol", Password: "letmein", Role: "editor"},
}

// fixtureDBVersion is what error-based payloads extract.
const fixtureDBVersion = "8.0.36-lab"

var (
	stackedWriteRe = regexp.MustCompile(`;\s*(drop|delete|truncate|alter|update|insert)\b`)
	tautologyRe    = regexp.MustCompile(`'\s*or\s+'?\w+'?\s*=\s*'?\w+`)
	commentOutRe   = regexp.MustCompile(`'\s*(--|#|/\*)`)
	unionSelectRe  = regexp.MustCompile(`\bunion\s+(all\s+)?select\b`)
	timeDelayRe    = regexp.MustCompile(`\b(sleep|pg_sleep|benchmark)\s*\(|waitfor\s+delay`)
	booleanProbeRe = regexp.MustCompile(`\band\s+'?(\d+)'?\s*=\s*'?(\d+)'?`)
	errorFuncRe    = regexp.MustCompile(`\b(extractvalue|updatexml|convert|cast)\s*\(`)
)

var destructiveRule = rule{
	kind: "destructive", severity: model.SevCritical,
	match:   stackedWriteRe.MatchString,
	message: "Stacked query executed a write statement. The users table is gone.",
}

var syntaxErrorRule = rule{
	kind: "syntax_error", severity: model.SevMedium,
	match:   contains("'"),
	message: "Database error leaked: You have an error in your SQL syntax near ''' at line 1.",
}

var sqliRules = map[model.Mode][]rule{
	model.ModeLogin: {
		destructiveRule,
		{
			kind: "auth_bypass", severity: model.SevCritical,
			match: func(s string) bool {
				return tautologyRe.MatchString(s) || commentOutRe.MatchString(s)
			},
			message: "Logged in as admin without a valid password. The WHERE clause was rewritten.",
		},
		syntaxErrorRule,
	},
	model.ModeUnion: {
		destructiveRule,
		{
			kind: "union", severity: model.SevHigh,
			match:   unionSelectRe.MatchString,
			message: "UNION SELECT appended the users table to the product search results.",
		},
		syntaxErrorRule,
	},
	model.ModeBlind: {
		destructiveRule,
		{
			kind: "time_blind", severity: model.SevMedium,
			match:   timeDelayRe.MatchString,
			message: "Response was delayed by the injected sleep. Data can be inferred one bit at a time.",
		},
		{
			kind: "boolean_blind", severity: model.SevMedium,
			match:   booleanProbeRe.MatchString,
			message: "Injected condition changes the page. Data can be inferred from true/false responses.",
		},
	},
	model.ModeError: {
		destructiveRule,
		{
			kind: "error_based", severity: model.SevHigh,
			match:   errorFuncRe.MatchString,
			message: "XPATH syntax error: '~" + fixtureDBVersion + "'. The database version leaked through the error.",
		},
		syntaxErrorRule,
	},
}

var sqliNoMatch = map[model.Mode]string{
	model.ModeLogin: "Invalid username or password.",
	model.ModeUnion: "No products found.",
	model.ModeBlind: "Page rendered normally.",
	model.ModeError: "Query returned no rows.",
}

func classifySQLi(sub model.Submission) model.Result {
	input := strings.TrimSpace(sub.Input)
	if input == "" {
		return noInput("a username or search term")
	}
	lower := strings.ToLower(input)

	r, ok := firstMatch(sqliRules[sub.Mode], lower)
	if !ok {
		return model.Result{Kind: "no_match", Severity: model.SevInfo, Message: sqliNoMatch[sub.Mode]}
	}

	res := result(r, "")
	switch r.kind {
	case "union":
		res.Data = &model.Data{Users: append([]model.UserRow(nil), FixtureUsers...)}
	case "auth_bypass":
		res.Data = &model.Data{Users: []model.UserRow{FixtureUsers[0]}}
	case "boolean_blind":
		m := booleanProbeRe.FindStringSubmatch(lower)
		if m[1] == m[2] {
			res.Message += " Condition evaluated TRUE."
		} else {
			res.Message += " Condition evaluated FALSE."
		}
	}
	res.Message = fmt.Sprintf("%s Query: SELECT * FROM %s WHERE %s = '%s'", res.Message, sqliTable(sub.Mode), sqliColumn(sub.Mode), input)
	return res
}

func sqliTable(mode model.Mode) string {
	if mode == model.ModeLogin {
		return "users"
	}
	return "products"
}

func sqliColumn(mode model.Mode) string {
	if mode == model.ModeLogin {
		return "username"
	}
	return "name"
}
