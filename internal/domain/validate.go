package domain

import "fmt"

// ValidateDecision checks that a decision carries the fields its type
// requires. Invalid decisions must be rejected before a snapshot is
// handed to the forecast or rule engines; forecasting never recovers
// from a half-specified decision.
func ValidateDecision(d Decision) error {
	if d.ID == "" {
		return fmt.Errorf("decision missing id")
	}
	switch d.DecisionType {
	case DecisionChangeScope:
		if d.EffortDeltaDays == nil {
			return fmt.Errorf("decision %s: change_scope requires effort_delta_days", d.ID)
		}
	case DecisionChangeCapacity:
		if d.DeltaFTE == nil {
			return fmt.Errorf("decision %s: change_capacity requires delta_fte", d.ID)
		}
	case DecisionChangeSchedule:
		if d.DueDate == "" {
			return fmt.Errorf("decision %s: change_schedule requires due_date", d.ID)
		}
	case DecisionChangePriority:
		if d.TargetID == "" || d.Priority == nil {
			return fmt.Errorf("decision %s: change_priority requires target_id and priority", d.ID)
		}
	case DecisionAcceptRisk:
		if d.RiskID == "" {
			return fmt.Errorf("decision %s: accept_risk requires risk_id", d.ID)
		}
	case DecisionMitigateRisk:
		if d.RiskID == "" {
			return fmt.Errorf("decision %s: mitigate_risk requires risk_id", d.ID)
		}
		if d.DueDate == "" {
			return fmt.Errorf("decision %s: mitigate_risk requires due_date", d.ID)
		}
	case "":
		return fmt.Errorf("decision %s: decision_type is required", d.ID)
	default:
		return fmt.Errorf("decision %s: unknown decision_type %q", d.ID, d.DecisionType)
	}
	return nil
}
