package rules

import (
	"fmt"
	"time"

	"driftline/internal/config"
	"driftline/internal/dates"
	"driftline/internal/domain"
)

const defaultOwner = "default_owner"

func cmdID(eventID, suffix string) string {
	return "cmd_" + eventID + "_" + suffix
}

func blockedRiskID(dependencyID string) string {
	return "risk_dep_blocked_" + dependencyID
}

// dependencyBlockedRule: a blocked or unavailable dependency
// materialises a risk. It creates or updates the dependency's risk
// record with the configured block-impact heuristic, tightens the
// owner's next review to the following day, and escalates.
type dependencyBlockedRule struct {
	cfg *config.Config
}

func (dependencyBlockedRule) Name() string { return "dependency_blocked" }

func (dependencyBlockedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventDependencyBlocked || ev.Type == EventDependencyUnavailable
}

func (r dependencyBlockedRule) Execute(ev Event, state *domain.Index) ([]Command, error) {
	if ev.DependencyID == "" {
		return nil, nil
	}
	dep, ok := state.Dependencies[ev.DependencyID]
	if !ok {
		return nil, nil
	}
	p80Delta := r.cfg.Rules.BlockImpact.P80Days

	fromName, toName := dep.FromID, dep.ToID
	if wi, ok := state.WorkItems[dep.FromID]; ok && wi.Title != "" {
		fromName = wi.Title
	}
	if wi, ok := state.WorkItems[dep.ToID]; ok && wi.Title != "" {
		toName = wi.Title
	}

	riskID := blockedRiskID(ev.DependencyID)
	owner := state.OwnerOf(dep.FromID, defaultOwner)
	nextDate := ev.Timestamp.AddDate(0, 0, r.cfg.Rules.Review.MaterialisedDays)
	reason := fmt.Sprintf("Dependency blocked: %q is waiting for %q. Risk materialised with %.1f day impact.", fromName, toName, p80Delta)
	description := fmt.Sprintf("Work item %q is blocked waiting for %q to complete. Expected delay: %.1f days", fromName, toName, p80Delta)

	var commands []Command
	if _, exists := state.Risks[riskID]; exists {
		commands = append(commands, Command{
			ID:       cmdID(ev.ID, "update_risk"),
			Type:     CommandUpdateRisk,
			TargetID: riskID,
			Reason:   reason,
			RuleName: r.Name(),
			Priority: PriorityUrgent,
			IssuedAt: ev.Timestamp,
			Payload: RiskUpdate{
				Status:      domain.RiskMaterialised,
				Description: description,
				ImpactDays:  p80Delta,
			},
		})
	} else {
		severity := "medium"
		if p80Delta > 14 {
			severity = "high"
		}
		commands = append(commands, Command{
			ID:       cmdID(ev.ID, "create_risk"),
			Type:     CommandCreateRisk,
			TargetID: riskID,
			Reason:   reason,
			RuleName: r.Name(),
			Priority: PriorityUrgent,
			IssuedAt: ev.Timestamp,
			Payload: RiskDraft{
				ID:            riskID,
				Title:         fmt.Sprintf("Blocked Dependency: %s", fromName),
				Description:   description,
				Severity:      severity,
				Status:        domain.RiskMaterialised,
				Probability:   1.0,
				ImpactDays:    p80Delta,
				AffectedItems: []string{dep.FromID},
				DetectedAt:    ev.Timestamp,
			},
		})
	}

	commands = append(commands, Command{
		ID:       cmdID(ev.ID, "set_next_date"),
		Type:     CommandSetNextDate,
		TargetID: owner,
		Reason:   "Materialised risk requires immediate attention (within 24h)",
		RuleName: r.Name(),
		Priority: PriorityUrgent,
		IssuedAt: ev.Timestamp,
		Payload: ReviewDate{
			OwnerID:    owner,
			EntityKind: "risk",
			EntityID:   riskID,
			NextDate:   nextDate,
		},
	})
	commands = append(commands, Command{
		ID:       cmdID(ev.ID, "escalate"),
		Type:     CommandEscalateRisk,
		TargetID: riskID,
		Reason:   "Risk materialised, immediate attention required",
		RuleName: r.Name(),
		Priority: PriorityUrgent,
		IssuedAt: ev.Timestamp,
	})
	return commands, nil
}

// dependencyUnblockedRule closes the dependency's materialised risk
// and requests a forecast recompute.
type dependencyUnblockedRule struct{}

func (dependencyUnblockedRule) Name() string { return "dependency_unblocked" }

func (dependencyUnblockedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventDependencyUnblocked || ev.Type == EventDependencyAvailable
}

func (r dependencyUnblockedRule) Execute(ev Event, state *domain.Index) ([]Command, error) {
	if ev.DependencyID == "" {
		return nil, nil
	}
	var commands []Command
	riskID := blockedRiskID(ev.DependencyID)
	if _, exists := state.Risks[riskID]; exists {
		commands = append(commands, Command{
			ID:       cmdID(ev.ID, "close_risk"),
			Type:     CommandSetRiskStatus,
			TargetID: riskID,
			Reason:   fmt.Sprintf("Dependency %s unblocked. Closing materialised risk.", ev.DependencyID),
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: RiskStatusChange{
				Status:    domain.RiskClosed,
				ChangedAt: ev.Timestamp,
			},
		})
	}
	commands = append(commands, Command{
		ID:       cmdID(ev.ID, "recompute_forecast"),
		Type:     CommandRecomputeForecast,
		TargetID: "system",
		Reason:   "Dependency unblocked, recomputing overall forecast",
		RuleName: r.Name(),
		Priority: PriorityNormal,
		IssuedAt: ev.Timestamp,
	})
	return commands, nil
}

// forecastThresholdBreachedRule is a recognised event with no command
// emission yet. Reopening accepted risks whose boundary was breached
// needs acceptance boundaries persisted on the risk record first.
type forecastThresholdBreachedRule struct{}

func (forecastThresholdBreachedRule) Name() string { return "forecast_threshold_breached" }

func (forecastThresholdBreachedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventForecastThresholdBreached
}

func (forecastThresholdBreachedRule) Execute(Event, *domain.Index) ([]Command, error) {
	return nil, nil
}

// acceptRiskApprovedRule: an approved accept_risk decision moves the
// risk to accepted and schedules a review at the earlier of the
// acceptance boundary and the standard review window, suppressing
// escalation until then.
type acceptRiskApprovedRule struct {
	cfg *config.Config
}

func (acceptRiskApprovedRule) Name() string { return "accept_risk_approved" }

func (acceptRiskApprovedRule) Matches(ev Event, state *domain.Index) bool {
	if ev.Type != EventDecisionApproved {
		return false
	}
	d, ok := state.Decisions[ev.DecisionID]
	return ok && d.DecisionType == domain.DecisionAcceptRisk
}

func (r acceptRiskApprovedRule) Execute(ev Event, state *domain.Index) ([]Command, error) {
	decision, ok := state.Decisions[ev.DecisionID]
	if !ok || decision.RiskID == "" {
		return nil, nil
	}
	risk, ok := state.Risks[decision.RiskID]
	if !ok {
		return nil, nil
	}
	owner := state.OwnerOf(risk.ID, defaultOwner)

	var boundary time.Time
	if decision.AcceptanceUntil != "" {
		boundary = dates.CoerceOr(decision.AcceptanceUntil, ev.Timestamp, r.cfg.Rules.Review.AcceptanceFallbackDays)
	}
	review := ev.Timestamp.AddDate(0, 0, r.cfg.Rules.Review.AcceptedDays)
	if !boundary.IsZero() && boundary.Before(review) {
		review = boundary
	}
	suppressUntil := boundary
	if suppressUntil.IsZero() {
		suppressUntil = review
	}

	return []Command{
		{
			ID:       cmdID(ev.ID, "accept_risk"),
			Type:     CommandUpdateRisk,
			TargetID: risk.ID,
			Reason:   fmt.Sprintf("Decision %s approved to accept this risk", ev.DecisionID),
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: RiskUpdate{
				Status:             domain.RiskAccepted,
				AcceptedBy:         owner,
				AcceptedAt:         ev.Timestamp,
				AcceptanceBoundary: boundary,
				NextReview:         review,
			},
		},
		{
			ID:       cmdID(ev.ID, "set_next_date_acceptance"),
			Type:     CommandSetNextDate,
			TargetID: owner,
			Reason:   fmt.Sprintf("Accepted risk must be reviewed by %s", review.Format("2006-01-02")),
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: ReviewDate{
				OwnerID:                 owner,
				EntityKind:              "risk",
				EntityID:                risk.ID,
				NextDate:                review,
				SuppressEscalationUntil: suppressUntil,
				EscalationMode:          "quiet_monitoring",
			},
		},
	}, nil
}

// mitigateRiskApprovedRule: an approved mitigate_risk decision moves
// the risk to mitigating, tracks the mitigation due date, and arms a
// forecast recompute for when the mitigation completes.
type mitigateRiskApprovedRule struct {
	cfg *config.Config
}

func (mitigateRiskApprovedRule) Name() string { return "mitigate_risk_approved" }

func (mitigateRiskApprovedRule) Matches(ev Event, state *domain.Index) bool {
	if ev.Type != EventDecisionApproved {
		return false
	}
	d, ok := state.Decisions[ev.DecisionID]
	return ok && d.DecisionType == domain.DecisionMitigateRisk
}

func (r mitigateRiskApprovedRule) Execute(ev Event, state *domain.Index) ([]Command, error) {
	decision, ok := state.Decisions[ev.DecisionID]
	if !ok || decision.RiskID == "" {
		return nil, nil
	}
	risk, ok := state.Risks[decision.RiskID]
	if !ok {
		return nil, nil
	}
	owner := state.OwnerOf(risk.ID, defaultOwner)
	due := dates.CoerceOr(decision.DueDate, ev.Timestamp, r.cfg.Rules.Review.MitigationFallbackDays)

	return []Command{
		{
			ID:       cmdID(ev.ID, "mitigate_risk"),
			Type:     CommandUpdateRisk,
			TargetID: risk.ID,
			Reason:   fmt.Sprintf("Decision %s approved to mitigate this risk", ev.DecisionID),
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: RiskUpdate{
				Status:               domain.RiskMitigating,
				MitigationDecisionID: ev.DecisionID,
				MitigationAction:     decision.Action,
				MitigationDueDate:    due,
			},
		},
		{
			ID:       cmdID(ev.ID, "set_mitigation_due_date"),
			Type:     CommandSetNextDate,
			TargetID: owner,
			Reason:   fmt.Sprintf("Mitigation action due by %s", due.Format("2006-01-02")),
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: ReviewDate{
				OwnerID:        owner,
				EntityKind:     "risk",
				EntityID:       risk.ID,
				NextDate:       due,
				ActionRequired: "complete_mitigation",
			},
		},
		{
			ID:       cmdID(ev.ID, "schedule_forecast"),
			Type:     CommandUpdateForecast,
			TargetID: risk.ID,
			Reason:   "Forecast will be recomputed after mitigation completion",
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
			Payload: ForecastTrigger{
				Trigger: "mitigation_completion",
				RiskID:  risk.ID,
			},
		},
	}, nil
}

// riskMaterialisedRule: an externally detected materialisation sets
// the status and escalates.
type riskMaterialisedRule struct{}

func (riskMaterialisedRule) Name() string { return "risk_materialised" }

func (riskMaterialisedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventRiskMaterialised
}

func (r riskMaterialisedRule) Execute(ev Event, _ *domain.Index) ([]Command, error) {
	if ev.RiskID == "" {
		return nil, nil
	}
	return []Command{
		{
			ID:       cmdID(ev.ID, "materialise_risk"),
			Type:     CommandSetRiskStatus,
			TargetID: ev.RiskID,
			Reason:   "Risk materialisation detected",
			RuleName: r.Name(),
			Priority: PriorityUrgent,
			IssuedAt: ev.Timestamp,
			Payload: RiskStatusChange{
				Status:    domain.RiskMaterialised,
				ChangedAt: ev.Timestamp,
			},
		},
		{
			ID:       cmdID(ev.ID, "escalate_materialised"),
			Type:     CommandEscalateRisk,
			TargetID: ev.RiskID,
			Reason:   "Risk has materialised, urgent attention required",
			RuleName: r.Name(),
			Priority: PriorityUrgent,
			IssuedAt: ev.Timestamp,
		},
	}, nil
}

// riskClosedRule requests a forecast recompute when a risk closes.
type riskClosedRule struct{}

func (riskClosedRule) Name() string { return "risk_closed" }

func (riskClosedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventRiskUpdated && ev.RiskStatus == string(domain.RiskClosed)
}

func (r riskClosedRule) Execute(ev Event, _ *domain.Index) ([]Command, error) {
	return []Command{
		{
			ID:       cmdID(ev.ID, "recompute_forecast_on_close"),
			Type:     CommandRecomputeForecast,
			TargetID: "system",
			Reason:   "Risk closed, updating forecast",
			RuleName: r.Name(),
			Priority: PriorityNormal,
			IssuedAt: ev.Timestamp,
		},
	}, nil
}

// changeApprovedRule is recognised but emits nothing yet. Turning an
// approved change into a risk needs change records in the snapshot,
// which the data contract does not carry.
type changeApprovedRule struct{}

func (changeApprovedRule) Name() string { return "change_approved" }

func (changeApprovedRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventChangeApproved
}

func (changeApprovedRule) Execute(Event, *domain.Index) ([]Command, error) {
	return nil, nil
}

// decisionSupersededRule is recognised but emits nothing yet.
// Re-evaluating risks linked to a superseded decision needs the
// superseding decision's linkage, which events do not carry.
type decisionSupersededRule struct{}

func (decisionSupersededRule) Name() string { return "decision_superseded" }

func (decisionSupersededRule) Matches(ev Event, _ *domain.Index) bool {
	return ev.Type == EventDecisionSuperseded
}

func (decisionSupersededRule) Execute(Event, *domain.Index) ([]Command, error) {
	return nil, nil
}
