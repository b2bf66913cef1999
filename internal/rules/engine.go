// Package rules is the decision-risk side of the system: a
// deterministic (event, state) to commands function over a fixed,
// ordered rule list. Rules never mutate the snapshot and never talk to
// storage; they only emit commands for an external executor.
package rules

import (
	"fmt"
	"time"

	"driftline/internal/config"
	"driftline/internal/domain"
)

// Rule matches events and turns them into commands. Execute must be a
// pure function of its arguments: same event and state, same commands.
type Rule interface {
	Name() string
	Matches(ev Event, state *domain.Index) bool
	Execute(ev Event, state *domain.Index) ([]Command, error)
}

type Engine struct {
	Config *config.Config
	Now    func() time.Time
	rules  []Rule
}

// New builds the engine with the standard rule list. The list is
// closed at construction; variants are built with NewWithRules.
func New(cfg *config.Config) Engine {
	return NewWithRules(cfg, []Rule{
		dependencyBlockedRule{cfg: cfg},
		dependencyUnblockedRule{},
		forecastThresholdBreachedRule{},
		acceptRiskApprovedRule{cfg: cfg},
		mitigateRiskApprovedRule{cfg: cfg},
		riskMaterialisedRule{},
		riskClosedRule{},
		changeApprovedRule{},
		decisionSupersededRule{},
	})
}

func NewWithRules(cfg *config.Config, rs []Rule) Engine {
	return Engine{Config: cfg, Now: time.Now, rules: rs}
}

// RuleNames returns the ordered rule identities, for listing and logs.
func (e Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// ProcessEvent evaluates every rule in order and concatenates the
// commands of each rule that matches. Rules are not mutually
// exclusive. An Execute error fails the whole call: a partial command
// list would mislead the executor. Events matching no rule yield an
// empty, non-nil slice.
func (e Engine) ProcessEvent(ev Event, state *domain.StateView) ([]Command, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	idx := state.Index()

	commands := []Command{}
	for _, r := range e.rules {
		if !r.Matches(ev, idx) {
			continue
		}
		out, err := r.Execute(ev, idx)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name(), err)
		}
		commands = append(commands, out...)
	}
	return commands, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
