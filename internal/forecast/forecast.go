// Package forecast computes deterministic P50/P80 completion estimates
// for a milestone from its dependency graph, active risks, and pending
// decisions, attributing every day of movement to a named cause. The
// engine never mutates the caller's snapshot; what-if scenarios and
// mitigation previews are two runs of the same function over perturbed
// copies, diffed afterward.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"driftline/internal/config"
	"driftline/internal/dates"
	"driftline/internal/domain"
)

var (
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrCyclicDependency  = errors.New("cyclic dependency graph")
)

// Days added to "as of" when a milestone's target date is unparsable.
const targetDateFallbackDays = 30

type Engine struct {
	Config *config.Config
	Now    func() time.Time
}

func New(cfg *config.Config) Engine {
	return Engine{Config: cfg, Now: time.Now}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Options tune a single forecast run. AsOf pins "now" so that repeated
// runs over the same snapshot agree exactly; when zero the engine
// clock is used.
type Options struct {
	Scenario            *Scenario
	Mitigation          *Mitigation
	ExternalTeamHistory map[string]domain.ExternalTeamHistory
	AsOf                time.Time
}

// Result is the output of one forecast run. Deltas are measured in
// days from the milestone's baseline target date.
type Result struct {
	MilestoneID   string         `json:"milestone_id"`
	BaselineDate  time.Time      `json:"baseline_date"`
	P50Date       time.Time      `json:"p50_date"`
	P80Date       time.Time      `json:"p80_date"`
	DeltaP50Days  float64        `json:"delta_p50_days"`
	DeltaP80Days  float64        `json:"delta_p80_days"`
	Confidence    string         `json:"confidence_level"`
	Contributions []Contribution `json:"contribution_breakdown"`
	Explanation   string         `json:"explanation"`
}

// Forecast computes P50/P80 dates for a milestone. Identical inputs
// always yield an identical Result; the caller's snapshot is never
// modified.
func (e Engine) Forecast(milestoneID string, state *domain.StateView, opts Options) (Result, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = e.now().UTC()
	}

	milestone, ok := state.Milestone(milestoneID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrMilestoneNotFound, milestoneID)
	}
	baseline := dates.CoerceOr(milestone.TargetDate, asOf, targetDateFallbackDays)

	working := state
	if opts.Scenario != nil {
		perturbed, err := Perturb(working, milestoneID, *opts.Scenario)
		if err != nil {
			return Result{}, err
		}
		working = perturbed
	}
	if opts.Mitigation != nil {
		working = WithMitigation(working, *opts.Mitigation)
	}

	tr := newTracker(e.Config.Forecast.MaterialityThreshold)

	depDelay, externalDeps, err := e.dependencyDelay(milestoneID, working, tr, asOf, opts.ExternalTeamHistory)
	if err != nil {
		return Result{}, err
	}
	riskDelay := e.riskDelay(milestoneID, working, tr)
	scopeDelay := e.scopeDelay(milestoneID, working, tr)
	capacityDelay := e.capacityDelay(milestoneID, working, tr)

	totalDelay := depDelay + riskDelay + scopeDelay + capacityDelay
	p50 := dates.AddDays(baseline, totalDelay)

	dq := measureDataQuality(milestoneID, working)
	buffer := e.uncertaintyBuffer(milestoneID, working, externalDeps, dq, tr)
	p80 := dates.AddDays(p50, buffer)

	result := Result{
		MilestoneID:   milestoneID,
		BaselineDate:  baseline,
		P50Date:       p50,
		P80Date:       p80,
		DeltaP50Days:  totalDelay,
		DeltaP80Days:  totalDelay + buffer,
		Confidence:    confidenceLevel(dq),
		Contributions: tr.Sorted(),
	}
	result.Explanation = e.renderExplanation(milestone, result, opts, dq)
	return result, nil
}

// ScenarioComparison pairs a baseline run with a what-if run of the
// same forecast. ImpactDays is the P80 movement the scenario causes.
type ScenarioComparison struct {
	Baseline   Result  `json:"baseline"`
	Scenario   Result  `json:"scenario"`
	ImpactDays float64 `json:"impact_days"`
}

func (e Engine) CompareScenario(milestoneID string, state *domain.StateView, sc Scenario, opts Options) (ScenarioComparison, error) {
	base := opts
	base.Scenario = nil
	baseline, err := e.Forecast(milestoneID, state, base)
	if err != nil {
		return ScenarioComparison{}, err
	}
	withScenario := opts
	withScenario.Scenario = &sc
	scenario, err := e.Forecast(milestoneID, state, withScenario)
	if err != nil {
		return ScenarioComparison{}, err
	}
	return ScenarioComparison{
		Baseline:   baseline,
		Scenario:   scenario,
		ImpactDays: scenario.DeltaP80Days - baseline.DeltaP80Days,
	}, nil
}

// MitigationPreview shows how much the P80 forecast improves if a
// hypothetical mitigation succeeds, with a go/no-go recommendation.
type MitigationPreview struct {
	Current         Result  `json:"current"`
	WithMitigation  Result  `json:"with_mitigation"`
	ImprovementDays float64 `json:"improvement_days"`
	Recommendation  string  `json:"recommendation"`
}

func (e Engine) MitigationImpact(milestoneID string, state *domain.StateView, m Mitigation, opts Options) (MitigationPreview, error) {
	base := opts
	base.Mitigation = nil
	current, err := e.Forecast(milestoneID, state, base)
	if err != nil {
		return MitigationPreview{}, err
	}
	withMitigation := opts
	withMitigation.Mitigation = &m
	mitigated, err := e.Forecast(milestoneID, state, withMitigation)
	if err != nil {
		return MitigationPreview{}, err
	}
	improvement := current.DeltaP80Days - mitigated.DeltaP80Days

	recommendation := "reject"
	switch {
	case improvement > e.Config.Mitigation.ApproveAboveDays:
		recommendation = "approve"
	case improvement > e.Config.Mitigation.EvaluateAboveDays:
		recommendation = "evaluate"
	}
	return MitigationPreview{
		Current:         current,
		WithMitigation:  mitigated,
		ImprovementDays: improvement,
		Recommendation:  recommendation,
	}, nil
}

// MilestoneSummary condenses a forecast to the fields a status board
// needs: key dates, at-risk flag, and the top three contributors.
type MilestoneSummary struct {
	MilestoneID     string         `json:"milestone_id"`
	Name            string         `json:"name"`
	BaselineDate    time.Time      `json:"baseline_date"`
	P50Date         time.Time      `json:"p50_date"`
	P80Date         time.Time      `json:"p80_date"`
	DaysFromTarget  float64        `json:"days_from_target"`
	Status          string         `json:"status"`
	Confidence      string         `json:"confidence"`
	TopContributors []Contribution `json:"top_contributors"`
}

func (e Engine) Summary(milestoneID string, state *domain.StateView, opts Options) (MilestoneSummary, error) {
	result, err := e.Forecast(milestoneID, state, opts)
	if err != nil {
		return MilestoneSummary{}, err
	}
	milestone, _ := state.Milestone(milestoneID)

	status := "on_track"
	if result.DeltaP80Days > e.Config.Forecast.AtRiskThresholdDays {
		status = "at_risk"
	}
	top := result.Contributions
	if len(top) > 3 {
		top = top[:3]
	}
	return MilestoneSummary{
		MilestoneID:     milestoneID,
		Name:            milestone.Name,
		BaselineDate:    result.BaselineDate,
		P50Date:         result.P50Date,
		P80Date:         result.P80Date,
		DaysFromTarget:  result.DeltaP80Days,
		Status:          status,
		Confidence:      result.Confidence,
		TopContributors: top,
	}, nil
}

// ExplainChange narrates the drift between two forecasts of the same
// milestone, typically taken before and after a state change.
func ExplainChange(previous, current Result) string {
	delta := current.DeltaP80Days - previous.DeltaP80Days

	var b strings.Builder
	b.WriteString("Forecast change analysis:\n")
	fmt.Fprintf(&b, "  Previous P80: %s (%+.1f days)\n", previous.P80Date.Format("2006-01-02"), previous.DeltaP80Days)
	fmt.Fprintf(&b, "  Current P80: %s (%+.1f days)\n", current.P80Date.Format("2006-01-02"), current.DeltaP80Days)
	fmt.Fprintf(&b, "  Net change: %+.1f days\n\n", delta)

	if math.Abs(delta) < 1 {
		b.WriteString("Forecast is stable (< 1 day change)")
		return b.String()
	}
	direction := "slipped"
	if delta < 0 {
		direction = "improved"
	}
	fmt.Fprintf(&b, "Forecast has %s by %.1f days\n\nCurrent contributors:\n", direction, math.Abs(delta))
	top := current.Contributions
	if len(top) > 3 {
		top = top[:3]
	}
	for _, c := range top {
		fmt.Fprintf(&b, "  - %s: %+.1f days\n", c.Cause, c.Days)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e Engine) renderExplanation(m domain.Milestone, r Result, opts Options, dq dataQuality) string {
	name := m.Name
	if name == "" {
		name = m.ID
	}

	var b strings.Builder
	switch {
	case opts.Scenario != nil:
		fmt.Fprintf(&b, "Scenario forecast for %q:\n", name)
		fmt.Fprintf(&b, "  Scenario type: %s\n", opts.Scenario.Type)
	case opts.Mitigation != nil:
		fmt.Fprintf(&b, "Mitigation impact preview for %q:\n", name)
	default:
		fmt.Fprintf(&b, "Baseline forecast for %q:\n", name)
	}
	fmt.Fprintf(&b, "  Baseline target: %s\n", r.BaselineDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "  Forecast P50: %s (%+.1f days, ~%.1f business days)\n",
		r.P50Date.Format("2006-01-02"), r.DeltaP50Days, dates.BusinessDays(r.DeltaP50Days))
	fmt.Fprintf(&b, "  Forecast P80: %s (%+.1f days, ~%.1f business days)\n",
		r.P80Date.Format("2006-01-02"), r.DeltaP80Days, dates.BusinessDays(r.DeltaP80Days))
	b.WriteString("\nTop contributors:\n")
	top := r.Contributions
	if len(top) > 5 {
		top = top[:5]
	}
	for _, c := range top {
		fmt.Fprintf(&b, "  - %s: %+.1f days\n", c.Cause, c.Days)
	}
	fmt.Fprintf(&b, "\nConfidence: %s (estimate coverage: %.0f%%)", r.Confidence, dq.EstimateCoverage*100)
	return b.String()
}
