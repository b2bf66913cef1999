package rules_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"driftline/internal/config"
	"driftline/internal/domain"
	"driftline/internal/rules"
)

var eventTime = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) rules.Engine {
	t.Helper()
	eng := rules.New(config.Default())
	eng.Now = func() time.Time { return eventTime }
	return eng
}

func blockedState() *domain.StateView {
	return &domain.StateView{
		WorkItems: []domain.WorkItem{
			{ID: "wi-api", Title: "API Integration", Status: domain.WorkItemBlocked, MilestoneID: "ms-app"},
			{ID: "wi-auth", Title: "Auth Service", Status: domain.WorkItemInProgress, MilestoneID: "ms-platform"},
		},
		Dependencies: []domain.DependencyEdge{
			{ID: "dep-1", FromID: "wi-api", ToID: "wi-auth", Criticality: domain.CriticalityHigh},
		},
		Ownerships: []domain.Ownership{
			{ID: "own-1", EntityID: "wi-api", EntityKind: "work_item", OwnerActorID: "alice"},
		},
	}
}

func TestDependencyBlockedCommandTriple(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-1", Type: rules.EventDependencyBlocked,
		Timestamp: eventTime, DependencyID: "dep-1",
	}, blockedState())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 3 {
		t.Fatalf("expected 3 commands, got %d: %+v", len(commands), commands)
	}
	if commands[0].Type != rules.CommandCreateRisk {
		t.Fatalf("expected create_risk first, got %s", commands[0].Type)
	}
	if commands[1].Type != rules.CommandSetNextDate {
		t.Fatalf("expected set_next_date second, got %s", commands[1].Type)
	}
	if commands[2].Type != rules.CommandEscalateRisk {
		t.Fatalf("expected escalate_risk third, got %s", commands[2].Type)
	}

	draft, ok := commands[0].Payload.(rules.RiskDraft)
	if !ok {
		t.Fatalf("expected RiskDraft payload, got %T", commands[0].Payload)
	}
	if draft.Status != domain.RiskMaterialised {
		t.Fatalf("expected materialised draft, got %s", draft.Status)
	}
	if draft.Probability != 1.0 {
		t.Fatalf("materialised means certain, got p=%g", draft.Probability)
	}
	if commands[0].ID != "cmd_ev-1_create_risk" {
		t.Fatalf("unexpected command id %s", commands[0].ID)
	}

	review, ok := commands[1].Payload.(rules.ReviewDate)
	if !ok {
		t.Fatalf("expected ReviewDate payload, got %T", commands[1].Payload)
	}
	if review.OwnerID != "alice" {
		t.Fatalf("expected ownership lookup to find alice, got %s", review.OwnerID)
	}
	if want := eventTime.AddDate(0, 0, 1); !review.NextDate.Equal(want) {
		t.Fatalf("expected next date %v, got %v", want, review.NextDate)
	}
	for _, c := range commands {
		if c.Priority != rules.PriorityUrgent {
			t.Fatalf("expected urgent priority on %s", c.Type)
		}
	}
}

func TestDependencyBlockedUpdatesExistingRisk(t *testing.T) {
	eng := newTestEngine(t)
	state := blockedState()
	state.Risks = []domain.Risk{
		{ID: "risk_dep_blocked_dep-1", Title: "existing", Status: domain.RiskOpen},
	}
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-2", Type: rules.EventDependencyBlocked,
		Timestamp: eventTime, DependencyID: "dep-1",
	}, state)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if commands[0].Type != rules.CommandUpdateRisk {
		t.Fatalf("expected update_risk for existing risk, got %s", commands[0].Type)
	}
	update, ok := commands[0].Payload.(rules.RiskUpdate)
	if !ok || update.Status != domain.RiskMaterialised {
		t.Fatalf("expected materialised update, got %+v", commands[0].Payload)
	}
}

func TestDependencyUnblockedClosesRisk(t *testing.T) {
	eng := newTestEngine(t)
	state := blockedState()
	state.Risks = []domain.Risk{
		{ID: "risk_dep_blocked_dep-1", Title: "blocked dep", Status: domain.RiskMaterialised},
	}
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-3", Type: rules.EventDependencyUnblocked,
		Timestamp: eventTime, DependencyID: "dep-1",
	}, state)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("expected close + recompute, got %d", len(commands))
	}
	change, ok := commands[0].Payload.(rules.RiskStatusChange)
	if !ok || change.Status != domain.RiskClosed {
		t.Fatalf("expected closed status change, got %+v", commands[0].Payload)
	}
	if commands[1].Type != rules.CommandRecomputeForecast {
		t.Fatalf("expected recompute_forecast, got %s", commands[1].Type)
	}
}

func TestDependencyUnblockedWithoutRiskStillRecomputes(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-4", Type: rules.EventDependencyAvailable,
		Timestamp: eventTime, DependencyID: "dep-1",
	}, blockedState())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 1 || commands[0].Type != rules.CommandRecomputeForecast {
		t.Fatalf("expected single recompute, got %+v", commands)
	}
}

func decisionState(decisionType domain.DecisionType, acceptanceUntil, dueDate string) *domain.StateView {
	return &domain.StateView{
		Risks: []domain.Risk{
			{ID: "risk-1", Title: "Vendor risk", Status: domain.RiskOpen, Probability: 0.5},
		},
		Decisions: []domain.Decision{
			{
				ID: "dec-1", DecisionType: decisionType, Status: domain.DecisionApproved,
				RiskID: "risk-1", Action: "switch vendor",
				DueDate: dueDate, AcceptanceUntil: acceptanceUntil,
			},
		},
		Ownerships: []domain.Ownership{
			{ID: "own-1", EntityID: "risk-1", EntityKind: "risk", OwnerActorID: "bob"},
		},
	}
}

func TestAcceptRiskApproved(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-5", Type: rules.EventDecisionApproved,
		Timestamp: eventTime, DecisionID: "dec-1",
	}, decisionState(domain.DecisionAcceptRisk, "2025-09-20", ""))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}
	update, ok := commands[0].Payload.(rules.RiskUpdate)
	if !ok || update.Status != domain.RiskAccepted {
		t.Fatalf("expected accepted update, got %+v", commands[0].Payload)
	}
	// Review is the earlier of the acceptance boundary and now+7d.
	want := eventTime.AddDate(0, 0, 7)
	if !update.NextReview.Equal(want) {
		t.Fatalf("expected review %v, got %v", want, update.NextReview)
	}
	review := commands[1].Payload.(rules.ReviewDate)
	if review.EscalationMode != "quiet_monitoring" {
		t.Fatalf("expected escalation suppression, got %+v", review)
	}
	if review.OwnerID != "bob" {
		t.Fatalf("expected owner bob, got %s", review.OwnerID)
	}
}

func TestAcceptRiskBoundaryBeforeReviewWindow(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-6", Type: rules.EventDecisionApproved,
		Timestamp: eventTime, DecisionID: "dec-1",
	}, decisionState(domain.DecisionAcceptRisk, "2025-09-03", ""))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	update := commands[0].Payload.(rules.RiskUpdate)
	want := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	if !update.NextReview.Equal(want) {
		t.Fatalf("expected boundary to win: %v, got %v", want, update.NextReview)
	}
}

func TestMitigateRiskApproved(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-7", Type: rules.EventDecisionApproved,
		Timestamp: eventTime, DecisionID: "dec-1",
	}, decisionState(domain.DecisionMitigateRisk, "", "2025-09-15"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(commands))
	}
	update := commands[0].Payload.(rules.RiskUpdate)
	if update.Status != domain.RiskMitigating || update.MitigationAction != "switch vendor" {
		t.Fatalf("unexpected mitigation update: %+v", update)
	}
	due := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	if !update.MitigationDueDate.Equal(due) {
		t.Fatalf("expected due %v, got %v", due, update.MitigationDueDate)
	}
	trigger, ok := commands[2].Payload.(rules.ForecastTrigger)
	if !ok || trigger.Trigger != "mitigation_completion" {
		t.Fatalf("expected mitigation_completion trigger, got %+v", commands[2].Payload)
	}
}

func TestMitigateRiskMalformedDueDateFallsBack(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-8", Type: rules.EventDecisionApproved,
		Timestamp: eventTime, DecisionID: "dec-1",
	}, decisionState(domain.DecisionMitigateRisk, "", "not-a-date"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	update := commands[0].Payload.(rules.RiskUpdate)
	want := eventTime.AddDate(0, 0, 14)
	if !update.MitigationDueDate.Equal(want) {
		t.Fatalf("expected 14 day fallback %v, got %v", want, update.MitigationDueDate)
	}
}

func TestRiskMaterialisedEscalates(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-9", Type: rules.EventRiskMaterialised,
		Timestamp: eventTime, RiskID: "risk-1",
	}, &domain.StateView{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("expected status change + escalate, got %d", len(commands))
	}
	if commands[0].Type != rules.CommandSetRiskStatus || commands[1].Type != rules.CommandEscalateRisk {
		t.Fatalf("unexpected command types: %s, %s", commands[0].Type, commands[1].Type)
	}
}

func TestRiskClosedTriggersRecompute(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-10", Type: rules.EventRiskUpdated,
		Timestamp: eventTime, RiskID: "risk-1", RiskStatus: "closed",
	}, &domain.StateView{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(commands) != 1 || commands[0].Type != rules.CommandRecomputeForecast {
		t.Fatalf("expected single recompute, got %+v", commands)
	}
}

func TestUnmatchedEventYieldsEmptySlice(t *testing.T) {
	eng := newTestEngine(t)
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-11", Type: rules.EventForecastUpdated, Timestamp: eventTime,
	}, blockedState())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if commands == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(commands) != 0 {
		t.Fatalf("expected no commands, got %+v", commands)
	}
}

func TestStubRulesEmitNothing(t *testing.T) {
	eng := newTestEngine(t)
	for _, evType := range []rules.EventType{
		rules.EventForecastThresholdBreached,
		rules.EventChangeApproved,
		rules.EventDecisionSuperseded,
	} {
		commands, err := eng.ProcessEvent(rules.Event{
			ID: "ev-stub", Type: evType, Timestamp: eventTime,
			ChangeID: "chg-1", DecisionID: "dec-1", RiskID: "risk-1",
		}, blockedState())
		if err != nil {
			t.Fatalf("process %s: %v", evType, err)
		}
		if len(commands) != 0 {
			t.Fatalf("expected stub %s to emit nothing, got %+v", evType, commands)
		}
	}
}

type failingRule struct{}

func (failingRule) Name() string                          { return "failing" }
func (failingRule) Matches(rules.Event, *domain.Index) bool { return true }
func (failingRule) Execute(rules.Event, *domain.Index) ([]rules.Command, error) {
	return nil, errors.New("boom")
}

// A matching rule runs before the failing one, so a leaked partial
// command list would be observable.
func TestRuleErrorFailsWholeProcessEvent(t *testing.T) {
	eng := rules.NewWithRules(config.Default(), []rules.Rule{matchAllRule{}, failingRule{}})
	commands, err := eng.ProcessEvent(rules.Event{
		ID: "ev-12", Type: rules.EventRiskMaterialised,
		Timestamp: eventTime, RiskID: "risk-1",
	}, &domain.StateView{})
	if err == nil {
		t.Fatalf("expected rule error to propagate")
	}
	if commands != nil {
		t.Fatalf("expected no partial command list, got %+v", commands)
	}
}

type matchAllRule struct{}

func (matchAllRule) Name() string                          { return "match_all" }
func (matchAllRule) Matches(rules.Event, *domain.Index) bool { return true }
func (matchAllRule) Execute(ev rules.Event, _ *domain.Index) ([]rules.Command, error) {
	return []rules.Command{{
		ID: "cmd_" + ev.ID + "_noop", Type: rules.CommandRecomputeForecast,
		TargetID: "system", Reason: "noop", RuleName: "match_all",
		Priority: rules.PriorityLow, IssuedAt: ev.Timestamp,
	}}, nil
}

func TestProcessEventDeterminism(t *testing.T) {
	eng := newTestEngine(t)
	ev := rules.Event{
		ID: "ev-13", Type: rules.EventDependencyBlocked,
		Timestamp: eventTime, DependencyID: "dep-1",
	}
	first, err := eng.ProcessEvent(ev, blockedState())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	second, err := eng.ProcessEvent(ev, blockedState())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("commands differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestRuleNamesStable(t *testing.T) {
	eng := newTestEngine(t)
	want := []string{
		"dependency_blocked",
		"dependency_unblocked",
		"forecast_threshold_breached",
		"accept_risk_approved",
		"mitigate_risk_approved",
		"risk_materialised",
		"risk_closed",
		"change_approved",
		"decision_superseded",
	}
	if got := eng.RuleNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rule names changed: %v", got)
	}
}
