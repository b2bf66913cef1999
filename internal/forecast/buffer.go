package forecast

import (
	"driftline/internal/domain"
)

// dataQuality measures how well the milestone's work items are tracked.
// Poor estimate coverage widens the P80 buffer and blocks the MED
// confidence label.
type dataQuality struct {
	EstimateCoverage float64
	ExternalDeps     int
	Penalty          float64
}

func measureDataQuality(milestoneID string, state *domain.StateView) dataQuality {
	items := make(map[string]*domain.WorkItem, len(state.WorkItems))
	for i := range state.WorkItems {
		items[state.WorkItems[i].ID] = &state.WorkItems[i]
	}

	total, withEstimate, externalDeps := 0, 0, 0
	for i := range state.WorkItems {
		wi := &state.WorkItems[i]
		if wi.MilestoneID != milestoneID {
			continue
		}
		total++
		if wi.EstimatedDays > 0 {
			withEstimate++
		}
		for _, depID := range wi.DependsOn {
			if dep, ok := items[depID]; ok && dep.MilestoneID != "" && dep.MilestoneID != milestoneID {
				externalDeps++
			}
		}
	}

	coverage := 1.0
	if total > 0 {
		coverage = float64(withEstimate) / float64(total)
	}
	penalty := 0.0
	switch {
	case coverage < 0.5:
		penalty = 2.0
	case coverage < 0.8:
		penalty = 1.0
	}
	return dataQuality{EstimateCoverage: coverage, ExternalDeps: externalDeps, Penalty: penalty}
}

// uncertaintyBuffer derives the P50 to P80 gap: a base plus a share per
// active risk and per external dependency plus the data quality
// penalty, capped to keep a noisy snapshot from producing a runaway
// buffer. Always added on top of P50, never subtracted.
func (e Engine) uncertaintyBuffer(milestoneID string, state *domain.StateView, externalDeps int, dq dataQuality, tr *tracker) float64 {
	cfg := e.Config.Forecast.Buffer
	active := 0
	for _, r := range risksForMilestone(milestoneID, state) {
		if r.Status == domain.RiskOpen || r.Status == domain.RiskMitigating {
			active++
		}
	}

	buffer := cfg.BaseDays
	buffer += float64(active) * cfg.PerOpenRiskDays
	buffer += float64(externalDeps) * cfg.PerExternalDepDays
	buffer += dq.Penalty
	if buffer > cfg.CapDays {
		buffer = cfg.CapDays
	}
	if buffer > 0 {
		tr.Add("Uncertainty buffer (P80)", buffer)
	}
	return buffer
}

func confidenceLevel(dq dataQuality) string {
	if dq.EstimateCoverage >= 0.85 && dq.ExternalDeps <= 2 {
		return "MED"
	}
	return "LOW"
}
