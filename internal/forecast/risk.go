package forecast

import (
	"fmt"

	"driftline/internal/domain"
)

// risksForMilestone returns risks linked to the milestone directly or
// through an affected work item that belongs to it.
func risksForMilestone(milestoneID string, state *domain.StateView) []*domain.Risk {
	itemIDs := make(map[string]bool)
	for i := range state.WorkItems {
		if state.WorkItems[i].MilestoneID == milestoneID {
			itemIDs[state.WorkItems[i].ID] = true
		}
	}
	var out []*domain.Risk
	for i := range state.Risks {
		r := &state.Risks[i]
		if r.MilestoneID == milestoneID {
			out = append(out, r)
			continue
		}
		for _, itemID := range r.AffectedItems {
			if itemIDs[itemID] {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// riskDelay sums the delay each linked risk contributes according to
// its status. Materialised risks hit with full impact, open risks are
// probability-weighted and discounted, mitigating risks are heavily
// discounted, accepted and closed risks contribute nothing. Each
// risk's contribution is capped so one malformed record cannot
// dominate the forecast.
func (e Engine) riskDelay(milestoneID string, state *domain.StateView, tr *tracker) float64 {
	cfg := e.Config.Forecast.Risk
	total := 0.0
	for _, r := range risksForMilestone(milestoneID, state) {
		impact := cfg.DefaultImpactDays
		if r.Impact.ImpactDays != nil {
			impact = *r.Impact.ImpactDays
		}
		if r.HypotheticalMitigation != nil {
			impact -= r.HypotheticalMitigation.ImpactReductionDays
			if impact < 0 {
				impact = 0
			}
		}
		probability := r.Probability
		if probability == 0 {
			probability = 0.5
		}
		title := r.Title
		if title == "" {
			title = r.ID
		}

		delay := 0.0
		switch r.Status {
		case domain.RiskMaterialised:
			delay = impact
			if delay > cfg.PerRiskCapDays {
				delay = cfg.PerRiskCapDays
			}
			tr.Add(fmt.Sprintf("Materialised risk: %s", title), delay)
		case domain.RiskOpen:
			delay = impact * probability * cfg.OpenWeight
			if delay > cfg.PerRiskCapDays {
				delay = cfg.PerRiskCapDays
			}
			if delay >= 0.5 {
				tr.Add(fmt.Sprintf("Open risk: %s (p=%.2f)", title, probability), delay)
			}
		case domain.RiskMitigating:
			delay = impact * cfg.MitigatingWeight
			if delay > cfg.PerRiskCapDays {
				delay = cfg.PerRiskCapDays
			}
			if delay >= 0.5 {
				tr.Add(fmt.Sprintf("Mitigating risk: %s", title), delay)
			}
		}
		total += delay
	}
	return total
}
