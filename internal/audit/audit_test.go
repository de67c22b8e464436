package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	return l, path
}

func testEntry(session, kind, severity string) AuditEntry {
	return AuditEntry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		SessionID: session,
		Source:    "http",
		Submission: AuditSubmission{
			Category:    "sqli",
			Mode:        "union",
			InputDigest: Digest("' UNION SELECT 1--"),
		},
		Kind:       kind,
		Severity:   severity,
		ConfigHash: "sha256:abc123",
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)
	for i := 0; i < 5; i++ {
		if err := l.Record(testEntry("s-1", "union", "high")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 || result.Sessions != 1 {
		t.Fatalf("lines=%d sessions=%d", result.Lines, result.Sessions)
	}
	if !strings.HasPrefix(result.TailHash, "sha256:") {
		t.Errorf("tail hash = %q", result.TailHash)
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)
	for i := 0; i < 3; i++ {
		l.Record(testEntry("s-1", "union", "high"))
	}
	l.Close()

	// Downgrade the severity of line 2
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"high"`, `"info"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)
	for i := 0; i < 3; i++ {
		l.Record(testEntry("s-1", "union", "high"))
	}
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	os.WriteFile(path, []byte(lines[0]+"\n"+lines[2]+"\n"), 0644)

	result := Verify(path)
	if result.Valid || result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got valid=%v line=%d", result.Valid, result.ErrorLine)
	}
}

func TestVerifyDetectsForgedGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forged.jsonl")
	e := testEntry("s-1", "union", "high")
	e.PrevHash = "sha256:fake"
	line, _ := json.Marshal(e)
	os.WriteFile(path, append(line, '\n'), 0644)

	result := Verify(path)
	if result.Valid || result.ErrorLine != 1 {
		t.Fatalf("expected error at line 1, got %+v", result)
	}
}

func TestEmptyLogPassesVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, []byte{}, 0644)

	result := Verify(path)
	if !result.Valid || result.Lines != 0 {
		t.Fatalf("expected valid empty log, got %+v", result)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	if result := Verify(filepath.Join(t.TempDir(), "nope.jsonl")); result.Valid {
		t.Fatal("missing file should not verify")
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(testEntry("s-1", "union", "high"))
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid || result.Lines != 50 {
		t.Fatalf("expected 50 valid lines, got %+v", result)
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		l1.Record(testEntry("s-1", "union", "high"))
	}
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		l2.Record(testEntry("s-2", "blocked", "info"))
	}
	l2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after reopen, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 || result.Sessions != 2 {
		t.Fatalf("lines=%d sessions=%d", result.Lines, result.Sessions)
	}
}

func TestRecordFillsTimestamp(t *testing.T) {
	l, path := newTestLog(t)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	e := testEntry("s-1", "union", "high")
	e.Timestamp = ""
	l.Record(e)
	l.Close()

	data, _ := os.ReadFile(path)
	var got AuditEntry
	json.Unmarshal([]byte(strings.TrimSpace(string(data))), &got)
	if got.Timestamp != "2026-03-01T09:30:00.000Z" {
		t.Errorf("timestamp = %q", got.Timestamp)
	}
	if got.PrevHash != GenesisHash {
		t.Errorf("prev hash = %q", got.PrevHash)
	}
}

func TestDigestHidesInput(t *testing.T) {
	d := Digest("admin' OR '1'='1")
	if strings.Contains(d, "admin") || len(d) != len("sha256:")+64 {
		t.Errorf("digest = %q", d)
	}
	if d == Digest("admin' OR '1'='2") {
		t.Error("different inputs produced the same digest")
	}
}

func TestReplayFiltersAndSummarizes(t *testing.T) {
	l, path := newTestLog(t)
	l.Record(testEntry("s-1", "union", "high"))
	l.Record(testEntry("s-2", "blocked", "info"))
	l.Record(testEntry("s-1", "destructive", "critical"))
	l.Record(testEntry("s-1", "no_match", "info"))
	l.Close()

	result, err := Replay(path, ReplayFilter{SessionID: "s-1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Total != 3 {
		t.Fatalf("total = %d, want 3", result.Summary.Total)
	}
	if result.Summary.Successful != 2 {
		t.Errorf("successful = %d, want 2", result.Summary.Successful)
	}
	if result.Summary.MaxSeverity != "critical" {
		t.Errorf("max severity = %s", result.Summary.MaxSeverity)
	}

	all, err := Replay(path, ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Summary.Total != 4 {
		t.Errorf("unfiltered total = %d", all.Summary.Total)
	}

	none, err := Replay(path, ReplayFilter{Category: "xss"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none.Entries) != 0 {
		t.Errorf("category filter kept %d entries", len(none.Entries))
	}
}

func TestReplayTimeRange(t *testing.T) {
	l, path := newTestLog(t)
	early := testEntry("s-1", "union", "high")
	early.Timestamp = "2026-01-01T10:00:00.000Z"
	late := testEntry("s-1", "union", "high")
	late.Timestamp = "2026-01-01T12:00:00.000Z"
	l.Record(early)
	l.Record(late)
	l.Close()

	result, err := Replay(path, ReplayFilter{From: time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Timestamp != late.Timestamp {
		t.Errorf("entries = %+v", result.Entries)
	}
}

func TestFormatTimeline(t *testing.T) {
	l, path := newTestLog(t)
	l.Record(testEntry("s-1", "union", "high"))
	l.Close()

	result, _ := Replay(path, ReplayFilter{SessionID: "s-1"})
	out := FormatTimeline(result)
	for _, want := range []string{"Session: s-1", "sqli/union", "HIGH", "union", "1 successful attacks"} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}

	empty := FormatTimeline(&ReplayResult{})
	if !strings.Contains(empty, "No entries found") {
		t.Errorf("empty timeline = %q", empty)
	}

	js, err := FormatJSON(result)
	if err != nil || !strings.Contains(js, `"session_id": "s-1"`) {
		t.Errorf("json = %s, err = %v", js, err)
	}
}
