package cli

import (
	"strings"
	"testing"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/testutil"
)

func resetApplyFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		applyFormat = ""
		applyJobs = 1
		applyContinueOnError = false
		applyQuiet = false
	}
	reset()
	t.Cleanup(reset)
}

func writeActions(t *testing.T, name, content string) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), name, content)
}

func TestRunApply_YAML(t *testing.T) {
	app := createTestApp(t, domain.VariantFull)
	resetApplyFlags(t)
	cmd, buf := newTestCmd()

	path := writeActions(t, "changes.yaml", `
- action: updateRequirementStatus
  id: req-3
  status: in-progress
- action: updateTechnologyProgress
  id: tech-2
  progress: 35
`)
	if err := runApply(app, cmd, []string{path}); err != nil {
		t.Fatalf("runApply failed: %v\n%s", err, buf.String())
	}

	out := buf.String()
	if !strings.Contains(out, "✓ All 2 operations succeeded") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "#1 updateRequirementStatus: success") {
		t.Errorf("missing per-item log:\n%s", out)
	}
	if got := findRecord(records(t, app, domain.TableRequirements), "req-3").String("status"); got != "in-progress" {
		t.Errorf("req-3 status = %q, want in-progress", got)
	}
	if got := findRecord(records(t, app, domain.TableTechnologies), "tech-2").Number("progress"); got != 35 {
		t.Errorf("tech-2 progress = %v, want 35", got)
	}
}

func TestRunApply_StopsOnFirstError(t *testing.T) {
	app := createTestApp(t, domain.VariantFull)
	resetApplyFlags(t)
	applyQuiet = true
	cmd, buf := newTestCmd()

	path := writeActions(t, "changes.ndjson",
		`{"action":"updateRequirementStatus","id":"req-3","status":"done"}`+"\n"+
			`{"action":"bogus"}`+"\n"+
			`{"action":"updateRequirementStatus","id":"req-4","status":"blocked"}`+"\n")
	err := runApply(app, cmd, []string{path})
	if code := exitCode(err); code != 5 {
		t.Fatalf("expected exit code 5, got %d (%v)", code, err)
	}

	out := buf.String()
	if !strings.Contains(out, "#2 bogus: Invalid action") {
		t.Errorf("missing error line:\n%s", out)
	}
	if strings.Contains(out, ": success") {
		t.Errorf("quiet mode printed item lines:\n%s", out)
	}
	reqs := records(t, app, domain.TableRequirements)
	if got := findRecord(reqs, "req-3").String("status"); got != "done" {
		t.Errorf("req-3 status = %q, want done", got)
	}
	if got := findRecord(reqs, "req-4").String("status"); got != "done" {
		t.Errorf("req-4 should be untouched, got %q", got)
	}
}

func TestRunApply_ContinueOnError(t *testing.T) {
	app := createTestApp(t, domain.VariantFull)
	resetApplyFlags(t)
	applyContinueOnError = true
	cmd, _ := newTestCmd()

	path := writeActions(t, "changes.json", `[
		{"action": "bogus"},
		{"action": "updateRequirementStatus", "id": "req-4", "status": "blocked"}
	]`)
	if code := exitCode(runApply(app, cmd, []string{path})); code != 5 {
		t.Fatalf("expected exit code 5, got %d", code)
	}
	if got := findRecord(records(t, app, domain.TableRequirements), "req-4").String("status"); got != "blocked" {
		t.Errorf("req-4 status = %q, want blocked", got)
	}
}

func TestRunApply_BadInput(t *testing.T) {
	app := createTestApp(t, domain.VariantFull)
	resetApplyFlags(t)
	cmd, _ := newTestCmd()

	path := writeActions(t, "changes.json", `[{"id": "req-1"}]`)
	if code := exitCode(runApply(app, cmd, []string{path})); code != 2 {
		t.Errorf("missing action: expected exit code 2, got %d", code)
	}

	cmd.SetIn(strings.NewReader(""))
	if code := exitCode(runApply(app, cmd, []string{"-"})); code != 2 {
		t.Errorf("empty stdin: expected exit code 2, got %d", code)
	}
}
