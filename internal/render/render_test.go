package render

import (
	"encoding/json"
	"strings"
	"testing"

	"specsync/internal/diff"
)

func samplePlan() *diff.ChangePlan {
	return &diff.ChangePlan{Records: []diff.ChangeRecord{
		{Category: diff.CategoryRemovedEndpoint, Subject: "DELETE /files/{id}", Priority: diff.P0},
		{Category: diff.CategoryNewEndpoint, Subject: "GET /models", Priority: diff.P1},
		{Category: diff.CategoryNewSchema, Subject: "ModelInfo", Priority: diff.P2, Group: "models", Critical: true},
		{Category: diff.CategoryNewEnumValue, Subject: "FileState", Detail: "added value `FAILED`", Priority: diff.P3},
		{
			Category: diff.CategoryModifiedSchema,
			Subject:  "File",
			Detail:   "added field `sizeBytes` (integer, optional)",
			Priority: diff.P4,
			Warnings: []string{"could not resolve reference `#/components/schemas/Blob`"},
		},
	}}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"changelog", "plan", "json", "all"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) error: %v", valid, err)
		}
	}
	if _, err := ParseFormat("markdown"); err == nil {
		t.Error("ParseFormat should reject unknown formats")
	}
}

func TestChangelogSections(t *testing.T) {
	out := Changelog(samplePlan())

	if !strings.HasPrefix(out, "# API Change Summary\n") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "5 change(s) detected.") {
		t.Errorf("missing count line:\n%s", out)
	}
	for _, want := range []string{
		"## Removed endpoints (1)",
		"## New endpoints (1)",
		"## New schemas (1)",
		"## New enum values (1)",
		"## Modified schemas (1)",
		"- `ModelInfo` [critical]",
		"- `FileState`: added value `FAILED`",
		"  - warning: could not resolve reference `#/components/schemas/Blob`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("changelog missing %q:\n%s", want, out)
		}
	}

	// Removals come before additions.
	if strings.Index(out, "Removed endpoints") > strings.Index(out, "New endpoints") {
		t.Error("removed section should precede new section")
	}
}

func TestChangelogEmpty(t *testing.T) {
	out := Changelog(&diff.ChangePlan{})
	if !strings.Contains(out, "No changes detected.") {
		t.Errorf("empty changelog = %q", out)
	}
}

func TestPlanBuckets(t *testing.T) {
	out := Plan(samplePlan())

	if !strings.Contains(out, "P0: 1  P1: 1  P2: 1  P3: 1  P4: 1") {
		t.Errorf("missing count summary:\n%s", out)
	}
	for _, want := range []string{
		"## P0: Breaking removals",
		"- [ ] `DELETE /files/{id}`: remove client support for this endpoint",
		"- [ ] `ModelInfo` [critical]: add this model",
		"- [ ] `File`: update the model (added field `sizeBytes` (integer, optional))",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan missing %q:\n%s", want, out)
		}
	}

	// Empty buckets are omitted entirely.
	empty := Plan(&diff.ChangePlan{Records: []diff.ChangeRecord{
		{Category: diff.CategoryNewEndpoint, Subject: "GET /models", Priority: diff.P1},
	}})
	if strings.Contains(empty, "## P0") {
		t.Errorf("plan should omit empty P0 bucket:\n%s", empty)
	}
}

func TestPlanEmpty(t *testing.T) {
	out := Plan(&diff.ChangePlan{})
	if !strings.Contains(out, "Nothing to do.") {
		t.Errorf("empty plan = %q", out)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	plan := samplePlan()
	out, err := JSON(plan)
	if err != nil {
		t.Fatal(err)
	}

	var back []diff.ChangeRecord
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != len(plan.Records) {
		t.Errorf("decoded %d records, want %d", len(back), len(plan.Records))
	}
	if back[0].Priority != diff.P0 || back[0].Subject != "DELETE /files/{id}" {
		t.Errorf("first record = %+v", back[0])
	}
}

func TestJSONEmptyPlanIsArray(t *testing.T) {
	out, err := JSON(&diff.ChangePlan{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("empty plan JSON = %q, want []", out)
	}
}

// Every projection must mention exactly the plan's subject set.
func TestProjectionsAgreeOnSubjects(t *testing.T) {
	plan := samplePlan()
	changelog := Changelog(plan)
	checklist := Plan(plan)
	jsonOut, err := JSON(plan)
	if err != nil {
		t.Fatal(err)
	}

	for _, subject := range plan.Subjects() {
		quoted := "`" + subject + "`"
		if !strings.Contains(changelog, quoted) {
			t.Errorf("changelog does not mention %s", quoted)
		}
		if !strings.Contains(checklist, quoted) {
			t.Errorf("plan does not mention %s", quoted)
		}
		if !strings.Contains(jsonOut, `"`+subject+`"`) {
			t.Errorf("json does not mention %q", subject)
		}
	}
}

func TestFilesAll(t *testing.T) {
	files, err := Files(samplePlan(), FormatAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("FormatAll produced %d files, want 3", len(files))
	}
	wantNames := []string{"CHANGELOG.md", "PLAN.md", "changes.json"}
	for i, f := range files {
		if f.Name != wantNames[i] {
			t.Errorf("files[%d].Name = %q, want %q", i, f.Name, wantNames[i])
		}
		if f.Content == "" {
			t.Errorf("files[%d] has empty content", i)
		}
	}

	single, err := Files(samplePlan(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(single) != 1 || single[0].Name != "changes.json" {
		t.Errorf("FormatJSON files = %+v", single)
	}
}

func TestRenderDeterministic(t *testing.T) {
	first := Changelog(samplePlan()) + Plan(samplePlan())
	for i := 0; i < 5; i++ {
		if got := Changelog(samplePlan()) + Plan(samplePlan()); got != first {
			t.Fatalf("render output changed on run %d", i)
		}
	}
}
