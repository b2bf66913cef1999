package world_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"driftline/internal/domain"
	"driftline/internal/world"
)

const validWorld = `{
  "milestones": [
    {"id": "ms-app", "name": "App Launch", "target_date": "2025-10-01"}
  ],
  "work_items": [
    {"id": "wi-api", "title": "API", "status": "in_progress", "estimated_days": 5, "milestone_id": "ms-app"},
    {"id": "wi-ui", "title": "UI", "status": "not_started", "estimated_days": 3, "milestone_id": "ms-app", "dependencies": ["wi-api"]}
  ],
  "risks": [
    {"id": "risk-1", "title": "Vendor slip", "status": "open", "probability": 0.6, "impact": {"impact_days": 10}, "milestone_id": "ms-app"}
  ],
  "decisions": [
    {"id": "dec-1", "decision_type": "accept_risk", "status": "approved", "risk_id": "risk-1"}
  ]
}`

func TestParseValidWorld(t *testing.T) {
	state, err := world.Parse([]byte(validWorld))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(state.WorkItems) != 2 || len(state.Risks) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", state)
	}
	if state.WorkItems[1].DependsOn[0] != "wi-api" {
		t.Fatalf("dependencies not decoded: %+v", state.WorkItems[1])
	}
	if issues := world.Lint(state); len(issues) != 0 {
		t.Fatalf("valid world should lint clean, got %v", issues)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := world.Parse([]byte("{")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseRejectsInvalidDecision(t *testing.T) {
	doc := `{"milestones": [], "work_items": [], "decisions": [{"id": "dec-1", "decision_type": "change_scope", "status": "approved"}]}`
	_, err := world.Parse([]byte(doc))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "effort_delta_days") {
		t.Fatalf("expected decision validation failure, got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte(validWorld), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	state, err := world.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Milestones) != 1 {
		t.Fatalf("unexpected snapshot: %+v", state)
	}
	if _, err := world.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLintFindsProblems(t *testing.T) {
	state := &domain.StateView{
		Milestones: []domain.Milestone{
			{ID: "ms-1", Name: "A", TargetDate: "2025-10-01"},
			{ID: "ms-1", Name: "B", TargetDate: "soon"},
		},
		WorkItems: []domain.WorkItem{
			{ID: "wi-1", Status: domain.WorkItemNotStarted, MilestoneID: "ms-404", DependsOn: []string{"wi-ghost"}},
			{ID: "wi-1", Status: domain.WorkItemNotStarted},
		},
		Dependencies: []domain.DependencyEdge{
			{ID: "dep-1", FromID: "wi-ghost", ToID: "wi-1"},
		},
		Risks: []domain.Risk{
			{ID: "risk-1", Status: domain.RiskOpen, Probability: 1.2, MilestoneID: "ms-404", AffectedItems: []string{"wi-ghost"}},
		},
		Decisions: []domain.Decision{
			{ID: "dec-1", DecisionType: domain.DecisionAcceptRisk, RiskID: "risk-404"},
		},
	}

	issues := world.Lint(state)
	wantFragments := []string{
		"duplicate work item id wi-1",
		"duplicate milestone id ms-1",
		"unparsable target_date",
		"references unknown milestone ms-404",
		"depends on unknown item wi-ghost",
		"unknown from_id wi-ghost",
		"affects unknown item wi-ghost",
		"probability 1.2",
		"references unknown risk risk-404",
	}
	for _, want := range wantFragments {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected an issue containing %q, got %v", want, issues)
		}
	}
}
