package forecast

import (
	"errors"
	"fmt"

	"driftline/internal/domain"
)

// ScenarioType enumerates the supported what-if perturbations.
type ScenarioType string

const (
	ScenarioDependencyDelay ScenarioType = "dependency_delay"
	ScenarioScopeChange     ScenarioType = "scope_change"
	ScenarioCapacityChange  ScenarioType = "capacity_change"
)

// Scenario carries the typed parameters of one what-if perturbation.
// Exactly the fields for its Type are read; the rest are ignored.
type Scenario struct {
	Type ScenarioType `json:"type"`

	// dependency_delay
	WorkItemID string  `json:"work_item_id,omitempty"`
	DelayDays  float64 `json:"delay_days,omitempty"`

	// scope_change
	EffortDeltaDays float64 `json:"effort_delta_days,omitempty"`

	// capacity_change
	CapacityMultiplier float64 `json:"capacity_multiplier,omitempty"`
}

// Mitigation is a hypothetical risk mitigation for preview runs. A nil
// ExpectedImpactReductionDays means "assume the mitigation starts",
// which moves the risk to mitigating instead of shrinking its impact.
type Mitigation struct {
	RiskID                      string   `json:"risk_id"`
	ExpectedImpactReductionDays *float64 `json:"expected_impact_reduction_days,omitempty"`
}

// Perturb returns a structurally independent copy of state annotated
// with the scenario. The input snapshot is never touched; a forecast
// over the copy is how what-if questions are answered.
func Perturb(state *domain.StateView, milestoneID string, sc Scenario) (*domain.StateView, error) {
	out := state.Clone()
	switch sc.Type {
	case ScenarioDependencyDelay:
		if sc.WorkItemID == "" {
			return nil, errors.New("dependency_delay scenario requires work_item_id")
		}
		if sc.DelayDays <= 0 {
			return nil, errors.New("dependency_delay scenario requires positive delay_days")
		}
		if out.ScenarioDelays == nil {
			out.ScenarioDelays = map[string]float64{}
		}
		out.ScenarioDelays[sc.WorkItemID] = sc.DelayDays
	case ScenarioScopeChange:
		if sc.EffortDeltaDays != 0 {
			if out.ScenarioScopeChanges == nil {
				out.ScenarioScopeChanges = map[string]float64{}
			}
			out.ScenarioScopeChanges[milestoneID] = sc.EffortDeltaDays
		}
	case ScenarioCapacityChange:
		if sc.CapacityMultiplier <= 0 {
			return nil, fmt.Errorf("capacity_multiplier must be positive, got %g", sc.CapacityMultiplier)
		}
		if sc.CapacityMultiplier != 1.0 {
			if out.ScenarioCapacityChanges == nil {
				out.ScenarioCapacityChanges = map[string]float64{}
			}
			out.ScenarioCapacityChanges[milestoneID] = sc.CapacityMultiplier
		}
	default:
		return nil, fmt.Errorf("unknown scenario type %q", sc.Type)
	}
	return out, nil
}

// WithMitigation returns a copy of state where the named risk carries
// the hypothetical mitigation. Unknown risk ids leave the copy
// equivalent to the original; the preview then shows zero improvement.
func WithMitigation(state *domain.StateView, m Mitigation) *domain.StateView {
	out := state.Clone()
	for i := range out.Risks {
		if out.Risks[i].ID != m.RiskID {
			continue
		}
		if m.ExpectedImpactReductionDays != nil {
			out.Risks[i].HypotheticalMitigation = &domain.MitigationOverride{
				ImpactReductionDays: *m.ExpectedImpactReductionDays,
			}
		} else {
			out.Risks[i].Status = domain.RiskMitigating
		}
	}
	return out
}
