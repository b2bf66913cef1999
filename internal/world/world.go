// Package world loads caller-side state snapshots from JSON world
// documents. Loading is the boundary where invalid input is rejected;
// the engines assume the snapshot they receive is well-formed.
package world

import (
	"encoding/json"
	"fmt"
	"os"

	"driftline/internal/dates"
	"driftline/internal/domain"
)

// Parse decodes a world document. Decisions missing the fields their
// type requires fail the parse: validation is a precondition, not
// something the forecast engine recovers from.
func Parse(data []byte) (*domain.StateView, error) {
	var state domain.StateView
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid world document: %w", err)
	}
	for _, d := range state.Decisions {
		if err := domain.ValidateDecision(d); err != nil {
			return nil, err
		}
	}
	return &state, nil
}

// Load reads a world document from disk.
func Load(path string) (*domain.StateView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Lint reports consistency problems that do not block loading but
// usually indicate a broken export: duplicate ids, dangling
// references, unparsable dates.
func Lint(s *domain.StateView) []string {
	var issues []string

	itemIDs := make(map[string]bool, len(s.WorkItems))
	for _, wi := range s.WorkItems {
		if itemIDs[wi.ID] {
			issues = append(issues, fmt.Sprintf("duplicate work item id %s", wi.ID))
		}
		itemIDs[wi.ID] = true
	}
	milestoneIDs := make(map[string]bool, len(s.Milestones))
	for _, m := range s.Milestones {
		if milestoneIDs[m.ID] {
			issues = append(issues, fmt.Sprintf("duplicate milestone id %s", m.ID))
		}
		milestoneIDs[m.ID] = true
		if _, ok := dates.Coerce(m.TargetDate); !ok {
			issues = append(issues, fmt.Sprintf("milestone %s has unparsable target_date %q", m.ID, m.TargetDate))
		}
	}
	riskIDs := make(map[string]bool, len(s.Risks))
	for _, r := range s.Risks {
		riskIDs[r.ID] = true
	}

	for _, wi := range s.WorkItems {
		if wi.MilestoneID != "" && !milestoneIDs[wi.MilestoneID] {
			issues = append(issues, fmt.Sprintf("work item %s references unknown milestone %s", wi.ID, wi.MilestoneID))
		}
		for _, depID := range wi.DependsOn {
			if !itemIDs[depID] {
				issues = append(issues, fmt.Sprintf("work item %s depends on unknown item %s", wi.ID, depID))
			}
		}
	}
	for _, d := range s.Dependencies {
		if !itemIDs[d.FromID] {
			issues = append(issues, fmt.Sprintf("dependency %s has unknown from_id %s", d.ID, d.FromID))
		}
		if !itemIDs[d.ToID] {
			issues = append(issues, fmt.Sprintf("dependency %s has unknown to_id %s", d.ID, d.ToID))
		}
	}
	for _, r := range s.Risks {
		if r.MilestoneID != "" && !milestoneIDs[r.MilestoneID] {
			issues = append(issues, fmt.Sprintf("risk %s references unknown milestone %s", r.ID, r.MilestoneID))
		}
		for _, itemID := range r.AffectedItems {
			if !itemIDs[itemID] {
				issues = append(issues, fmt.Sprintf("risk %s affects unknown item %s", r.ID, itemID))
			}
		}
		if r.Probability < 0 || r.Probability > 1 {
			issues = append(issues, fmt.Sprintf("risk %s has probability %g outside [0,1]", r.ID, r.Probability))
		}
	}
	for _, d := range s.Decisions {
		if d.RiskID != "" && !riskIDs[d.RiskID] {
			issues = append(issues, fmt.Sprintf("decision %s references unknown risk %s", d.ID, d.RiskID))
		}
	}
	return issues
}
