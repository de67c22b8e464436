package certify

import (
	"strings"
	"testing"

	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/model"
)

func reportFailures(t *testing.T, result *CertResult) {
	t.Helper()
	for _, cat := range result.Categories {
		for _, c := range cat.Cases {
			if !c.Passed {
				t.Errorf("[%s] case %d: %s/%s %q: expected %s, got %s (%s)",
					cat.Name, c.Index, c.Category, c.Mode, c.Input, c.Expected, c.Actual, c.Message)
			}
		}
	}
}

func TestLoadSuiteHardened(t *testing.T) {
	s, err := LoadSuite("hardened")
	if err != nil {
		t.Fatalf("LoadSuite(hardened): %v", err)
	}
	if s.Name != "hardened" {
		t.Errorf("name = %q, want hardened", s.Name)
	}
	if len(s.Categories) == 0 {
		t.Fatal("expected categories, got none")
	}
}

func TestListSuites(t *testing.T) {
	suites := ListSuites()
	want := []string{"catalog", "exploitable", "hardened"}
	if len(suites) != len(want) {
		t.Fatalf("ListSuites() = %v, want %v", suites, want)
	}
	for i := range want {
		if suites[i] != want[i] {
			t.Errorf("ListSuites() = %v, want %v", suites, want)
		}
	}
}

func TestLoadSuiteUnknown(t *testing.T) {
	_, err := LoadSuite("nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown suite")
	}
	if !strings.Contains(err.Error(), "unknown certification suite") {
		t.Errorf("error = %q, want 'unknown certification suite'", err.Error())
	}
}

func TestBuiltinSuitesPassWithDefaultFixtures(t *testing.T) {
	for _, name := range []string{"hardened", "exploitable"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadSuite(name)
			if err != nil {
				t.Fatal(err)
			}
			result := Run(s, classify.DefaultEnv())
			if result.Total == 0 {
				t.Fatal("suite has no cases")
			}
			reportFailures(t, result)
		})
	}
}

func TestSuitesCoverEveryLab(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range []string{"hardened", "exploitable"} {
		s, _ := LoadSuite(name)
		for _, cat := range s.Categories {
			for _, c := range cat.Cases {
				seen[c.Category] = true
			}
		}
	}
	for _, c := range model.Categories() {
		if !seen[string(c)] {
			t.Errorf("no certification case for %s", c)
		}
	}
}

func TestCatalogSuiteMatchesIntents(t *testing.T) {
	cat := catalog.NewDefault()
	s, err := Resolve(CatalogSuiteName, cat)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Categories) != len(model.Categories()) {
		t.Errorf("categories = %d, want one per lab", len(s.Categories))
	}

	result := Run(s, classify.DefaultEnv())
	if result.Total != cat.Len() {
		t.Errorf("total = %d, want %d", result.Total, cat.Len())
	}
	reportFailures(t, result)
}

func TestChangedFixturesBreakCertification(t *testing.T) {
	s, _ := LoadSuite("hardened")
	env := classify.DefaultEnv()
	env.FrameAncestors = []string{"*"}

	result := Run(s, env)
	if result.Failed == 0 {
		t.Error("wildcard frame-ancestors should fail the framing category")
	}
}

func TestCategoryResultFields(t *testing.T) {
	s, _ := LoadSuite("exploitable")
	result := Run(s, classify.DefaultEnv())

	for _, cat := range result.Categories {
		if cat.Name == "" {
			t.Error("category name is empty")
		}
		if cat.Passed+cat.Failed != cat.Total {
			t.Errorf("category %q: passed(%d) + failed(%d) != total(%d)",
				cat.Name, cat.Passed, cat.Failed, cat.Total)
		}
		if len(cat.Cases) != cat.Total {
			t.Errorf("category %q: len(Cases)=%d != total=%d", cat.Name, len(cat.Cases), cat.Total)
		}
	}
}

func TestFormatText(t *testing.T) {
	s, _ := LoadSuite("hardened")
	result := Run(s, classify.DefaultEnv())
	result.ConfigHash = "sha256:0123456789abcdef0123"

	text := FormatText(result)
	for _, want := range []string{"Certification: hardened v1", "config 0123456789ab", "PASS", "Result: PASS"} {
		if !strings.Contains(text, want) {
			t.Errorf("FormatText output missing %q:\n%s", want, text)
		}
	}

	result.Failed = 1
	result.Categories[0].Failed = 1
	result.Categories[0].Cases[0].Passed = false
	text = FormatText(result)
	if !strings.Contains(text, "Result: FAIL") || !strings.Contains(text, "FAIL  case 1") {
		t.Errorf("failure not rendered:\n%s", text)
	}
}

func TestFormatJSON(t *testing.T) {
	s, _ := LoadSuite("hardened")
	out, err := FormatJSON(Run(s, classify.DefaultEnv()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"suite": "hardened"`) {
		t.Errorf("json missing suite name: %s", out)
	}
}
