package domain

// StateView is the read-only snapshot both engines consume. The caller
// assembles it once per invocation; nothing in this module writes to it
// after construction. Scenario maps are populated only on perturbed
// copies produced by the forecast package and are nil on a baseline
// snapshot.
type StateView struct {
	Milestones   []Milestone      `json:"milestones"`
	WorkItems    []WorkItem       `json:"work_items"`
	Dependencies []DependencyEdge `json:"dependencies,omitempty"`
	Risks        []Risk           `json:"risks,omitempty"`
	Decisions    []Decision       `json:"decisions,omitempty"`
	Ownerships   []Ownership      `json:"ownerships,omitempty"`

	ScenarioDelays          map[string]float64 `json:"scenario_delays,omitempty"`
	ScenarioScopeChanges    map[string]float64 `json:"scenario_scope_changes,omitempty"`
	ScenarioCapacityChanges map[string]float64 `json:"scenario_capacity_changes,omitempty"`
}

// Clone returns a structurally independent deep copy. Mutating the copy
// (or its scenario maps) never touches the receiver.
func (s *StateView) Clone() *StateView {
	if s == nil {
		return nil
	}
	out := &StateView{
		Milestones:   append([]Milestone(nil), s.Milestones...),
		WorkItems:    make([]WorkItem, len(s.WorkItems)),
		Dependencies: make([]DependencyEdge, len(s.Dependencies)),
		Risks:        make([]Risk, len(s.Risks)),
		Decisions:    make([]Decision, len(s.Decisions)),
		Ownerships:   append([]Ownership(nil), s.Ownerships...),
	}
	for i, wi := range s.WorkItems {
		wi.DependsOn = append([]string(nil), wi.DependsOn...)
		wi.CompletionPercentage = clonePtr(wi.CompletionPercentage)
		wi.RemainingDays = clonePtr(wi.RemainingDays)
		wi.ConfidenceLevel = clonePtr(wi.ConfidenceLevel)
		out.WorkItems[i] = wi
	}
	for i, d := range s.Dependencies {
		d.ProbabilityDelay = clonePtr(d.ProbabilityDelay)
		out.Dependencies[i] = d
	}
	for i, r := range s.Risks {
		r.AffectedItems = append([]string(nil), r.AffectedItems...)
		r.Impact.ImpactDays = clonePtr(r.Impact.ImpactDays)
		if r.HypotheticalMitigation != nil {
			hm := *r.HypotheticalMitigation
			r.HypotheticalMitigation = &hm
		}
		out.Risks[i] = r
	}
	for i, d := range s.Decisions {
		d.EffortDeltaDays = clonePtr(d.EffortDeltaDays)
		d.DeltaFTE = clonePtr(d.DeltaFTE)
		if d.Priority != nil {
			p := *d.Priority
			d.Priority = &p
		}
		out.Decisions[i] = d
	}
	out.ScenarioDelays = cloneMap(s.ScenarioDelays)
	out.ScenarioScopeChanges = cloneMap(s.ScenarioScopeChanges)
	out.ScenarioCapacityChanges = cloneMap(s.ScenarioCapacityChanges)
	return out
}

// Milestone returns the milestone with the given id, if present.
func (s *StateView) Milestone(id string) (Milestone, bool) {
	for _, m := range s.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
