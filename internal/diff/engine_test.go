package diff

import (
	"reflect"
	"testing"

	"specsync/internal/config"
	"specsync/internal/spec"
)

// testDoc is a hand-built Document for exercising the engine without
// going through a parser.
type testDoc struct {
	flavor    spec.Flavor
	endpoints map[string]spec.FieldMap
	schemas   map[string]spec.FieldMap
	enums     map[string][]string
}

func (d *testDoc) Flavor() spec.Flavor                 { return d.flavor }
func (d *testDoc) Endpoints() map[string]spec.FieldMap { return d.endpoints }
func (d *testDoc) Schemas() map[string]spec.FieldMap   { return d.schemas }
func (d *testDoc) Enums() map[string][]string          { return d.enums }

func (d *testDoc) Resolve(name string) (spec.FieldMap, bool) {
	fields, ok := d.schemas[name]
	return fields, ok
}

func doc(mutate ...func(*testDoc)) *testDoc {
	d := &testDoc{
		flavor: spec.FlavorREST,
		endpoints: map[string]spec.FieldMap{
			"GET /files": {
				"query:pageSize": {Type: "integer"},
			},
			"POST /files": {
				"body": {Type: "object", Required: true, Ref: "File"},
			},
		},
		schemas: map[string]spec.FieldMap{
			"File": {
				"name": {Type: "string", Required: true},
			},
			"Tool": {
				"name": {Type: "string"},
			},
		},
		enums: map[string][]string{
			"FileState": {"ACTIVE", "PROCESSING"},
		},
	}
	for _, m := range mutate {
		m(d)
	}
	return d
}

func mustCompare(t *testing.T, engine *Engine, oldDoc, newDoc spec.Document) *ChangePlan {
	t.Helper()
	plan, err := engine.Compare(oldDoc, newDoc)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return plan
}

func emptyEngine(t *testing.T) *Engine {
	t.Helper()
	rules, err := NewRules(&config.Classification{})
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(rules)
}

func TestSelfDiffIsEmpty(t *testing.T) {
	engine := emptyEngine(t)
	d := doc()

	plan := mustCompare(t, engine, d, d)
	if !plan.IsEmpty() {
		t.Errorf("self-diff should be empty, got %d records", len(plan.Records))
	}
}

func TestRemovedEndpoint(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		delete(d.endpoints, "GET /files")
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(plan.Records), plan.Records)
	}
	rec := plan.Records[0]
	if rec.Category != CategoryRemovedEndpoint {
		t.Errorf("category = %s", rec.Category)
	}
	if rec.Subject != "GET /files" {
		t.Errorf("subject = %s", rec.Subject)
	}
	if rec.Priority != P0 {
		t.Errorf("priority = %s, want P0", rec.Priority)
	}
	if len(plan.Bucket(P0)) != 1 {
		t.Error("P0 bucket should be non-empty")
	}
}

func TestAddedOptionalField(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		d.schemas["Tool"] = spec.FieldMap{
			"name":        {Type: "string"},
			"description": {Type: "string"},
		}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(plan.Records), plan.Records)
	}
	rec := plan.Records[0]
	if rec.Category != CategoryModifiedSchema {
		t.Errorf("category = %s", rec.Category)
	}
	if rec.Subject != "Tool" {
		t.Errorf("subject = %s", rec.Subject)
	}
	if rec.Priority != P4 {
		t.Errorf("priority = %s, want P4", rec.Priority)
	}
	want := "added field `description` (string, optional)"
	if rec.Detail != want {
		t.Errorf("detail = %q, want %q", rec.Detail, want)
	}
}

func TestNewSubjectPriorities(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		d.endpoints["DELETE /files/{id}"] = spec.FieldMap{}
		d.schemas["Blob"] = spec.FieldMap{"data": {Type: "string"}}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(plan.Records))
	}

	byCategory := map[Category]ChangeRecord{}
	for _, r := range plan.Records {
		byCategory[r.Category] = r
	}
	if rec := byCategory[CategoryNewEndpoint]; rec.Priority != P1 {
		t.Errorf("new endpoint priority = %s, want P1", rec.Priority)
	}
	if rec := byCategory[CategoryNewSchema]; rec.Priority != P2 {
		t.Errorf("new schema priority = %s, want P2", rec.Priority)
	}
}

func TestFieldDeltaSuppressedForNewSubjects(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc(func(d *testDoc) {
		delete(d.schemas, "Tool")
	})
	newDoc := doc()

	plan := mustCompare(t, engine, oldDoc, newDoc)
	for _, r := range plan.Records {
		if r.Subject == "Tool" && r.Category == CategoryModifiedSchema {
			t.Error("new subject should not also carry a modified-schema record")
		}
	}
}

func TestEnumValueDiff(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		d.enums["FileState"] = []string{"ACTIVE", "FAILED"}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(plan.Records), plan.Records)
	}

	// Sorted: P0 removal first, P3 addition second.
	removed := plan.Records[0]
	if removed.Category != CategoryRemovedEnumValue || removed.Priority != P0 {
		t.Errorf("first record = %+v, want removed-enum-value at P0", removed)
	}
	if removed.Detail != "removed value `PROCESSING`" {
		t.Errorf("removed detail = %q", removed.Detail)
	}

	added := plan.Records[1]
	if added.Category != CategoryNewEnumValue || added.Priority != P3 {
		t.Errorf("second record = %+v, want new-enum-value at P3", added)
	}
	if added.Detail != "added value `FAILED`" {
		t.Errorf("added detail = %q", added.Detail)
	}
}

func TestEnumRemovedEntirely(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		delete(d.enums, "FileState")
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(plan.Records))
	}
	rec := plan.Records[0]
	if rec.Category != CategoryRemovedSchema || rec.Priority != P0 {
		t.Errorf("record = %+v, want removed-schema at P0", rec)
	}
}

func TestCriticalPromotion(t *testing.T) {
	rules, err := NewRules(&config.Classification{
		CriticalModels: []string{"Tool"},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(rules)

	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		d.schemas["Tool"] = spec.FieldMap{
			"name": {Type: "string"},
			"mode": {Type: "string"},
		}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(plan.Records))
	}
	rec := plan.Records[0]
	if rec.Priority != P2 {
		t.Errorf("critical modified schema priority = %s, want P2", rec.Priority)
	}
	if !rec.Critical {
		t.Error("record should be marked critical")
	}
}

func TestCategoryGroupFirstMatchWins(t *testing.T) {
	rules, err := NewRules(&config.Classification{
		Categories: []config.CategoryRule{
			{Pattern: "^Tool", Category: "tools"},
			{Pattern: "^To", Category: "everything-to"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(rules)

	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		delete(d.schemas, "Tool")
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	if len(plan.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(plan.Records))
	}
	if got := plan.Records[0].Group; got != "tools" {
		t.Errorf("group = %q, want first matching rule %q", got, "tools")
	}
}

func TestParentPropagation(t *testing.T) {
	rules, err := NewRules(&config.Classification{
		ParentModels: map[string][]string{
			"GenerateContentRequest": {"^Tool$"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(rules)

	build := func(toolFields spec.FieldMap) *testDoc {
		return &testDoc{
			flavor: spec.FlavorREST,
			schemas: map[string]spec.FieldMap{
				"GenerateContentRequest": {
					"tools": {Type: "array", Ref: "Tool"},
				},
				"Tool": toolFields,
			},
		}
	}

	oldDoc := build(spec.FieldMap{"name": {Type: "string"}})
	newDoc := build(spec.FieldMap{
		"name":        {Type: "string"},
		"description": {Type: "string"},
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)

	var parentRec, childRec *ChangeRecord
	for i := range plan.Records {
		switch plan.Records[i].Subject {
		case "GenerateContentRequest":
			parentRec = &plan.Records[i]
		case "Tool":
			childRec = &plan.Records[i]
		}
	}

	if childRec == nil {
		t.Fatal("child Tool should have its own modified-schema record")
	}
	if parentRec == nil {
		t.Fatal("parent should be flagged via propagation")
	}
	if parentRec.Category != CategoryModifiedSchema {
		t.Errorf("parent category = %s", parentRec.Category)
	}
	want := "embedded `Tool` gained field `description`; review GenerateContentRequest implementation"
	if parentRec.Detail != want {
		t.Errorf("parent detail = %q, want %q", parentRec.Detail, want)
	}
}

func TestPropagationSupersededByParentRemoval(t *testing.T) {
	rules, err := NewRules(&config.Classification{
		ParentModels: map[string][]string{
			"GenerateContentRequest": {"^Tool$"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(rules)

	oldDoc := &testDoc{
		flavor: spec.FlavorREST,
		schemas: map[string]spec.FieldMap{
			"GenerateContentRequest": {"tools": {Type: "array", Ref: "Tool"}},
			"Tool":                   {"name": {Type: "string"}},
		},
	}
	newDoc := &testDoc{
		flavor: spec.FlavorREST,
		schemas: map[string]spec.FieldMap{
			"Tool": {
				"name":        {Type: "string"},
				"description": {Type: "string"},
			},
		},
	}

	plan := mustCompare(t, engine, oldDoc, newDoc)
	for _, r := range plan.Records {
		if r.Subject == "GenerateContentRequest" && r.Category == CategoryModifiedSchema {
			t.Error("removed parent should not also carry a propagation record")
		}
	}
}

func TestFlavorMismatch(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) { d.flavor = spec.FlavorWebSocket })

	if _, err := engine.Compare(oldDoc, newDoc); err == nil {
		t.Fatal("expected error for flavor mismatch")
	}
}

func TestDeterminism(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc()
	newDoc := doc(func(d *testDoc) {
		delete(d.endpoints, "GET /files")
		d.endpoints["PUT /files/{id}"] = spec.FieldMap{}
		d.schemas["Tool"] = spec.FieldMap{
			"name": {Type: "string"},
			"mode": {Type: "string"},
		}
		d.enums["FileState"] = []string{"ACTIVE", "PROCESSING", "FAILED"}
	})

	first := mustCompare(t, engine, oldDoc, newDoc)
	for i := 0; i < 10; i++ {
		again := mustCompare(t, engine, oldDoc, newDoc)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\nvs\n%+v", i, first, again)
		}
	}

	// Canonical order: priority ascending, then subject.
	for i := 1; i < len(first.Records); i++ {
		prev, cur := first.Records[i-1], first.Records[i]
		if prev.Priority > cur.Priority {
			t.Errorf("records out of priority order at %d", i)
		}
		if prev.Priority == cur.Priority && prev.Subject > cur.Subject {
			t.Errorf("records out of subject order at %d", i)
		}
	}
}

func TestCompletenessAndSymmetry(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc(func(d *testDoc) {
		d.schemas["OnlyOld"] = spec.FieldMap{}
	})
	newDoc := doc(func(d *testDoc) {
		d.schemas["OnlyNew"] = spec.FieldMap{}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)

	counts := map[string]int{}
	for _, r := range plan.Records {
		counts[r.Subject]++
	}
	if counts["OnlyOld"] != 1 {
		t.Errorf("OnlyOld should produce exactly one record, got %d", counts["OnlyOld"])
	}
	if counts["OnlyNew"] != 1 {
		t.Errorf("OnlyNew should produce exactly one record, got %d", counts["OnlyNew"])
	}

	for _, r := range plan.Records {
		switch r.Subject {
		case "OnlyOld":
			if r.Category != CategoryRemovedSchema {
				t.Errorf("OnlyOld category = %s", r.Category)
			}
		case "OnlyNew":
			if r.Category != CategoryNewSchema {
				t.Errorf("OnlyNew category = %s", r.Category)
			}
		}
	}
}

func TestPriorityPartition(t *testing.T) {
	engine := emptyEngine(t)
	oldDoc := doc(func(d *testDoc) {
		d.schemas["Gone"] = spec.FieldMap{}
		d.enums["FileState"] = []string{"ACTIVE", "PROCESSING", "LEGACY"}
	})
	newDoc := doc(func(d *testDoc) {
		d.endpoints["PATCH /files/{id}"] = spec.FieldMap{}
	})

	plan := mustCompare(t, engine, oldDoc, newDoc)
	for _, r := range plan.Records {
		if r.Priority < P0 || r.Priority > P4 {
			t.Errorf("priority %d out of range for %+v", r.Priority, r)
		}
		if r.Priority == P0 {
			switch r.Category {
			case CategoryRemovedEndpoint, CategoryRemovedSchema, CategoryRemovedEnumValue:
			default:
				t.Errorf("P0 record with non-removal category %s", r.Category)
			}
		}
	}
}
