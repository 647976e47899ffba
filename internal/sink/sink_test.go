package sink

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/solguard-dev/solguard/internal/findings"
)

func testRecord() *RunRecord {
	return &RunRecord{
		RunID:     "run-abc",
		Profile:   "standard",
		State:     "completed",
		Framework: "foundry",
		EngineVersions: map[string]string{
			"slither": "0.10.0",
		},
		Stages: []StageSummary{
			{Name: "static_analysis", Engines: []string{"slither"}, Status: "completed", Attempts: 1},
		},
		Findings: []findings.Finding{
			{
				ID:         "f-1",
				Engines:    []string{"slither"},
				Severity:   findings.SeverityHigh,
				Category:   findings.CategoryReentrancy,
				Title:      "Reentrancy in withdraw",
				Span:       findings.CodeSpan{FilePath: "contracts/Token.sol", StartLine: 10, EndLine: 15},
				Confidence: 0.8,
			},
		},
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
}

func TestFileSinkWritesReport(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(hclog.NewNullLogger(), dir)

	if err := s.Deliver(testRecord()); err != nil {
		t.Fatal(err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "solguard-report-run-abc-*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one report file, got %v (%v)", matches, err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatal(err)
	}
	if record.RunID != "run-abc" || len(record.Findings) != 1 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestHTTPSinkPostsReport(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var record RunRecord
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewHTTPSink(hclog.NewNullLogger(), nil, srv.URL, "secret")
	if err := s.Deliver(testRecord()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotPath, "run-abc") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestHTTPSinkRejectedReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewHTTPSink(hclog.NewNullLogger(), nil, srv.URL, "")
	if err := s.Deliver(testRecord()); err == nil {
		t.Fatal("expected error for rejected report")
	}
}

func TestSarifSinkProducesValidReport(t *testing.T) {
	dir := t.TempDir()
	s := NewSarifSink(hclog.NewNullLogger(), dir)

	if err := s.Deliver(testRecord()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "solguard-report-run-abc.sarif"))
	if err != nil {
		t.Fatal(err)
	}
	report, err := sarif.FromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Runs) != 1 || len(report.Runs[0].Results) != 1 {
		t.Fatalf("unexpected SARIF structure: %d runs", len(report.Runs))
	}
	result := report.Runs[0].Results[0]
	if result.Level == nil || *result.Level != "error" {
		t.Fatalf("high severity must map to error level")
	}
}

type failingSink struct{}

func (failingSink) Deliver(*RunRecord) error { return goerrors.New("boom") }

func TestMultiSinkContinuesPastFailure(t *testing.T) {
	dir := t.TempDir()
	m := NewMultiSink(hclog.NewNullLogger(), failingSink{}, NewFileSink(hclog.NewNullLogger(), dir))

	err := m.Deliver(testRecord())
	if err == nil {
		t.Fatal("expected first error to surface")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(matches) != 1 {
		t.Fatal("remaining sinks must still deliver")
	}
}
