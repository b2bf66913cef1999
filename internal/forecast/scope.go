package forecast

import (
	"fmt"

	"driftline/internal/domain"
)

// scopeDelay translates scenario scope overrides and approved
// change_scope decisions into effort-days. Added scope counts in full
// for scenarios and discounted for real decisions; removed scope is
// discounted by the optimism factor because cut work rarely returns
// its full estimate.
func (e Engine) scopeDelay(milestoneID string, state *domain.StateView, tr *tracker) float64 {
	optimism := e.Config.Forecast.ScopeOptimism
	total := 0.0

	if delta, ok := state.ScenarioScopeChanges[milestoneID]; ok {
		if delta > 0 {
			total += delta
			tr.Add(fmt.Sprintf("Scenario scope increase: +%.0fd", delta), delta)
		} else if delta < 0 {
			improvement := delta * optimism
			total += improvement
			tr.Add(fmt.Sprintf("Scenario scope reduction: %.0fd", delta), improvement)
		}
	}

	for i := range state.Decisions {
		d := &state.Decisions[i]
		if d.DecisionType != domain.DecisionChangeScope || d.Status != domain.DecisionApproved {
			continue
		}
		if d.MilestoneID != "" && d.MilestoneID != milestoneID {
			continue
		}
		if d.EffortDeltaDays == nil || *d.EffortDeltaDays <= 0 {
			continue
		}
		delay := *d.EffortDeltaDays * optimism
		total += delay
		reason := d.Reason
		if reason == "" {
			reason = "scope change"
		}
		tr.Add(fmt.Sprintf("Scope change: %s", reason), delay)
	}
	return total
}

// capacityDelay stretches (multiplier < 1) or compresses (> 1) the
// milestone's remaining estimated effort when a capacity scenario is
// active. Perturb rejects non-positive multipliers, so the division is
// always defined here.
func (e Engine) capacityDelay(milestoneID string, state *domain.StateView, tr *tracker) float64 {
	multiplier, ok := state.ScenarioCapacityChanges[milestoneID]
	if !ok || multiplier == 1.0 {
		return 0
	}
	remaining := 0.0
	for i := range state.WorkItems {
		wi := &state.WorkItems[i]
		if wi.MilestoneID == milestoneID && wi.Status != domain.WorkItemCompleted {
			remaining += wi.EstimatedDays
		}
	}
	if remaining <= 0 {
		return 0
	}
	delta := remaining * (1/multiplier - 1)
	tr.Add(fmt.Sprintf("Scenario capacity change (%.2fx)", multiplier), delta)
	return delta
}
