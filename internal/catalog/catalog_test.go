package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ppiankov/cyberlab/internal/model"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payloads.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEveryLabHasPayloads(t *testing.T) {
	c := NewDefault()
	for _, cat := range model.Categories() {
		if len(c.Payloads(cat)) == 0 {
			t.Errorf("%s has no payloads", cat)
		}
	}
}

func TestPayloadsRestartable(t *testing.T) {
	c := NewDefault()
	first := c.Payloads(model.SQLi)
	first[0].Payload = "mutated"
	second := c.Payloads(model.SQLi)
	if second[0].Payload == "mutated" {
		t.Fatal("Payloads returned shared backing storage")
	}
	if !reflect.DeepEqual(second, c.Payloads(model.SQLi)) {
		t.Error("two calls returned different lists")
	}
}

func TestEntryModesAreValid(t *testing.T) {
	for cat, list := range DefaultEntries {
		for _, e := range list {
			if _, err := model.ValidateMode(cat, e.Mode); err != nil {
				t.Errorf("%s %q: %v", cat, e.Name, err)
			}
			if e.Expect == "" {
				t.Errorf("%s %q: no documented intent", cat, e.Name)
			}
		}
	}
}

func TestUnknownCategoryEmpty(t *testing.T) {
	if got := NewDefault().Payloads("ldap"); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	e, ok := NewDefault().Find(model.Upload, "double EXTENSION")
	if !ok {
		t.Fatal("entry not found")
	}
	if e.Payload.Payload != "shell.php.jpg" {
		t.Errorf("payload = %q", e.Payload.Payload)
	}
}

func TestUploadSubmissionBuildsFile(t *testing.T) {
	e, _ := NewDefault().Find(model.Upload, "MIME spoof")
	sub := e.Submission(model.Upload)
	if sub.File == nil {
		t.Fatal("upload submission has no file")
	}
	if sub.File.MIME != "application/x-php" || sub.File.Name != "avatar.png" {
		t.Errorf("file = %+v", sub.File)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != NewDefault().Len() {
		t.Errorf("len = %d, want %d", c.Len(), NewDefault().Len())
	}
}

func TestLoadAppendsOverrides(t *testing.T) {
	path := writeOverrides(t, `
payloads:
  xss:
    - name: Details toggle
      payload: "<details open ontoggle=alert(1)>"
      description: Fires without user interaction
      expect: event_handler
  CORS:
    - name: Localhost origin
      payload: "http://localhost:3000"
      mode: unsafe
      expect: data_read
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	xss := c.Entries(model.XSS)
	last := xss[len(xss)-1]
	if last.Name != "Details toggle" {
		t.Errorf("override not appended last: %q", last.Name)
	}
	if last.Mode != model.ModeVulnerable {
		t.Errorf("empty mode should resolve to default, got %q", last.Mode)
	}
	if _, ok := c.Find(model.CORS, "localhost origin"); !ok {
		t.Error("cors override missing")
	}
	if len(NewDefault().Entries(model.XSS)) != len(xss)-1 {
		t.Error("override leaked into built-ins")
	}
}

func TestLoadRejectsBadOverrides(t *testing.T) {
	cases := map[string]string{
		"unknown lab":  "payloads:\n  ldap:\n    - name: x\n      payload: y\n",
		"bad mode":     "payloads:\n  cors:\n    - name: x\n      payload: y\n      mode: strict\n",
		"missing name": "payloads:\n  xss:\n    - payload: y\n",
		"bad yaml":     "payloads: [unclosed",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeOverrides(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
