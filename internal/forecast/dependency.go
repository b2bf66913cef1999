package forecast

import (
	"fmt"
	"strings"
	"time"

	"driftline/internal/dates"
	"driftline/internal/domain"
)

// Fallback estimate for upstream items whose author never sized them.
const defaultEstimateDays = 5.0

type edgeKey struct {
	fromID string
	toID   string
}

// depResolver walks the work-item dependency graph computing, for each
// item, the largest accumulated delay along any incoming chain. The
// memo and visiting set live for exactly one Forecast call.
type depResolver struct {
	state       *domain.StateView
	milestoneID string
	asOf        time.Time
	history     map[string]domain.ExternalTeamHistory
	blockedDays float64

	items    map[string]*domain.WorkItem
	incoming map[string][]string
	edges    map[edgeKey]*domain.DependencyEdge

	memo     map[string]float64
	visiting map[string]bool
}

func newDepResolver(state *domain.StateView, milestoneID string, asOf time.Time, history map[string]domain.ExternalTeamHistory, blockedDays float64) *depResolver {
	r := &depResolver{
		state:       state,
		milestoneID: milestoneID,
		asOf:        asOf,
		history:     history,
		blockedDays: blockedDays,
		items:       make(map[string]*domain.WorkItem, len(state.WorkItems)),
		incoming:    make(map[string][]string),
		edges:       make(map[edgeKey]*domain.DependencyEdge, len(state.Dependencies)),
		memo:        make(map[string]float64),
		visiting:    make(map[string]bool),
	}
	for i := range state.WorkItems {
		wi := &state.WorkItems[i]
		r.items[wi.ID] = wi
		for _, depID := range wi.DependsOn {
			if depID != "" {
				r.incoming[wi.ID] = append(r.incoming[wi.ID], depID)
			}
		}
	}
	for i := range state.Dependencies {
		d := &state.Dependencies[i]
		r.edges[edgeKey{d.FromID, d.ToID}] = d
	}
	return r
}

// resolve returns the accumulated delay of a work item: the max of its
// own delay and, for each upstream chain, the upstream's accumulated
// delay plus the edge cost. Revisiting a node already on the stack
// means the graph has a cycle, which is an input error, not a loop.
func (r *depResolver) resolve(id string) (float64, error) {
	if d, ok := r.memo[id]; ok {
		return d, nil
	}
	if r.visiting[id] {
		return 0, fmt.Errorf("%w: via work item %s", ErrCyclicDependency, id)
	}
	wi, ok := r.items[id]
	if !ok {
		r.memo[id] = 0
		return 0, nil
	}
	r.visiting[id] = true
	defer delete(r.visiting, id)

	own := r.ownDelay(wi)
	maxUpstream := 0.0
	for _, upstreamID := range r.incoming[id] {
		upstream, ok := r.items[upstreamID]
		if !ok {
			continue
		}
		upstreamDelay, err := r.resolve(upstreamID)
		if err != nil {
			return 0, err
		}
		edge := r.edges[edgeKey{id, upstreamID}]
		chain := upstreamDelay + r.edgeDelay(wi, upstream, edge)
		if chain > maxUpstream {
			maxUpstream = chain
		}
	}

	total := own
	if maxUpstream > total {
		total = maxUpstream
	}
	r.memo[id] = total
	return total, nil
}

// ownDelay estimates how late a work item is on its own, without
// upstream influence. The estimators are alternative readings of the
// same quantity, so the largest wins rather than the sum. A scenario
// override means "this item finishes N days later than currently
// expected": it adds on top of the estimate and beats the completed
// check, so what-ifs may re-open done work.
func (r *depResolver) ownDelay(wi *domain.WorkItem) float64 {
	override, overridden := r.state.ScenarioDelays[wi.ID]
	if wi.Status == domain.WorkItemCompleted {
		if overridden {
			return override
		}
		return 0
	}
	own := 0.0
	switch {
	case wi.RemainingDays != nil && *wi.RemainingDays > 0:
		own = *wi.RemainingDays
	case wi.CompletionPercentage != nil:
		own = wi.EstimatedDays * (1 - *wi.CompletionPercentage)
	case wi.Status == domain.WorkItemBlocked:
		own = r.blockedDays
	case wi.Status == domain.WorkItemInProgress:
		// No progress tracking at all; assume half the estimate is left.
		own = wi.EstimatedDays * 0.5
	}
	return own + override
}

// edgeDelay estimates the incremental delay one dependency edge adds on
// top of the upstream item's own accumulated delay. Candidates again
// compete by max; the edge's probability weighting applies last.
func (r *depResolver) edgeDelay(wi, upstream *domain.WorkItem, edge *domain.DependencyEdge) float64 {
	if upstream.Status == domain.WorkItemCompleted {
		return 0
	}
	delay := 0.0

	if upstream.RemainingDays != nil && *upstream.RemainingDays > 0 {
		potential := *upstream.RemainingDays
		if edge != nil {
			potential *= edge.Criticality.Multiplier()
			potential -= edge.SlackDays
			if potential < 0 {
				potential = 0
			}
		}
		if potential > delay {
			delay = potential
		}
	} else if upstream.CompletionPercentage != nil {
		remaining := estimateOrDefault(upstream) * (1 - *upstream.CompletionPercentage)
		if potential := remaining * 0.7; potential > delay {
			delay = potential
		}
	}

	// Date-based lateness: expected completion vs. when the dependent
	// needs it. Unparsable dates drop this candidate; the others above
	// and below still apply.
	if expected, ok := dates.Coerce(upstream.ExpectedCompletionDate); ok {
		needed := r.asOf
		if start, ok := dates.Coerce(wi.StartDate); ok {
			needed = start
		}
		if late := dates.DaysBetween(needed, expected); late > 0 && late > delay {
			delay = late
		}
	}

	if upstream.ExternalTeamID != "" {
		if h, ok := r.history[upstream.ExternalTeamID]; ok {
			slip := estimateOrDefault(upstream) * (1 - h.ReliabilityScore) * h.SlipProbability
			if slip > delay {
				delay = slip
			}
		}
	}

	// Status fallbacks for items without detailed tracking.
	if upstream.MilestoneID != "" && upstream.MilestoneID != r.milestoneID {
		confidence := 0.7
		if upstream.ConfidenceLevel != nil {
			confidence = *upstream.ConfidenceLevel
		}
		if base := estimateOrDefault(upstream) * (1 - confidence); base > delay {
			delay = base
		}
	}
	if upstream.Status == domain.WorkItemBlocked && r.blockedDays > delay {
		delay = r.blockedDays
	}
	if upstream.Status == domain.WorkItemInProgress && delay == 0 {
		if half := upstream.EstimatedDays * 0.5; half > 0 {
			delay = half
		}
	}

	if edge != nil && edge.ProbabilityDelay != nil {
		delay *= *edge.ProbabilityDelay
	}
	return delay
}

func estimateOrDefault(wi *domain.WorkItem) float64 {
	if wi.EstimatedDays > 0 {
		return wi.EstimatedDays
	}
	return defaultEstimateDays
}

// dependencyDelay computes the milestone's total dependency-driven
// delay (the worst chain feeding any of its incomplete items) and the
// count of cross-milestone upstream dependencies. Chains of half a day
// or more are recorded as contributions naming the upstream item.
func (e Engine) dependencyDelay(milestoneID string, state *domain.StateView, tr *tracker, asOf time.Time, history map[string]domain.ExternalTeamHistory) (float64, int, error) {
	r := newDepResolver(state, milestoneID, asOf, history, e.Config.Forecast.BlockedDelayDays)

	total := 0.0
	externalDeps := 0
	for i := range state.WorkItems {
		wi := &state.WorkItems[i]
		if wi.MilestoneID != milestoneID || wi.Status == domain.WorkItemCompleted {
			continue
		}
		for _, upstreamID := range r.incoming[wi.ID] {
			upstream, ok := r.items[upstreamID]
			if !ok {
				continue
			}
			upstreamDelay, err := r.resolve(upstreamID)
			if err != nil {
				return 0, 0, err
			}
			if upstreamDelay > 0.5 {
				name := upstream.Title
				if name == "" {
					name = upstreamID
				}
				if override, ok := state.ScenarioDelays[upstreamID]; ok {
					tr.Add(fmt.Sprintf("Scenario: %s delayed by %.0fd", name, override), upstreamDelay)
				} else {
					tr.Add(fmt.Sprintf("Dependency: %s%s", name, delayReason(upstream)), upstreamDelay)
				}
			}
			if upstreamDelay > total {
				total = upstreamDelay
			}
			if upstream.MilestoneID != "" && upstream.MilestoneID != milestoneID {
				externalDeps++
			}
		}
	}
	return total, externalDeps, nil
}

func delayReason(wi *domain.WorkItem) string {
	var parts []string
	if wi.RemainingDays != nil && *wi.RemainingDays > 0 {
		parts = append(parts, fmt.Sprintf("%.1fd remaining", *wi.RemainingDays))
	}
	if wi.ExternalTeamID != "" {
		parts = append(parts, "external team")
	}
	if wi.Status == domain.WorkItemBlocked {
		parts = append(parts, "blocked")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
