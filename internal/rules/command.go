package rules

import (
	"time"

	"driftline/internal/domain"
)

// CommandType enumerates the instructions the engine may emit. The
// engine only describes intent; an external executor applies commands.
type CommandType string

const (
	CommandCreateRisk        CommandType = "create_risk"
	CommandUpdateRisk        CommandType = "update_risk"
	CommandSetRiskStatus     CommandType = "set_risk_status"
	CommandSetNextDate       CommandType = "set_next_date"
	CommandEscalateRisk      CommandType = "escalate_risk"
	CommandUpdateForecast    CommandType = "update_forecast"
	CommandRecomputeForecast CommandType = "recompute_forecast"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Payload is the closed set of typed command payloads. Each command
// type carries at most one payload kind; escalation and recompute
// commands carry none.
type Payload interface {
	payload()
}

// RiskDraft is the full body of a risk the executor should create.
type RiskDraft struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Severity      string            `json:"severity,omitempty"`
	Status        domain.RiskStatus `json:"status"`
	Probability   float64           `json:"probability"`
	ImpactDays    float64           `json:"impact_days"`
	AffectedItems []string          `json:"affected_items,omitempty"`
	DetectedAt    time.Time         `json:"detected_at"`
}

// RiskUpdate mutates fields of an existing risk. Zero-valued fields
// are left untouched by the executor.
type RiskUpdate struct {
	Status               domain.RiskStatus `json:"status,omitempty"`
	Description          string            `json:"description,omitempty"`
	ImpactDays           float64           `json:"impact_days,omitempty"`
	AcceptedBy           string            `json:"accepted_by,omitempty"`
	AcceptedAt           time.Time         `json:"accepted_at,omitempty"`
	AcceptanceBoundary   time.Time         `json:"acceptance_boundary,omitempty"`
	NextReview           time.Time         `json:"next_review,omitempty"`
	MitigationDecisionID string            `json:"mitigation_decision_id,omitempty"`
	MitigationAction     string            `json:"mitigation_action,omitempty"`
	MitigationDueDate    time.Time         `json:"mitigation_due_date,omitempty"`
}

// RiskStatusChange is a bare status transition.
type RiskStatusChange struct {
	Status    domain.RiskStatus `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
}

// ReviewDate (re)schedules an owner's next review of an entity.
type ReviewDate struct {
	OwnerID                 string    `json:"owner_id"`
	EntityKind              string    `json:"entity_kind"`
	EntityID                string    `json:"entity_id"`
	NextDate                time.Time `json:"next_date"`
	SuppressEscalationUntil time.Time `json:"suppress_escalation_until,omitempty"`
	EscalationMode          string    `json:"escalation_mode,omitempty"`
	ActionRequired          string    `json:"action_required,omitempty"`
}

// ForecastTrigger asks for a forecast recomputation on a later event.
type ForecastTrigger struct {
	Trigger string `json:"trigger"`
	RiskID  string `json:"risk_id,omitempty"`
}

func (RiskDraft) payload()        {}
func (RiskUpdate) payload()       {}
func (RiskStatusChange) payload() {}
func (ReviewDate) payload()       {}
func (ForecastTrigger) payload()  {}

// Command is an instruction for an external executor. Command ids are
// derived from the triggering event id, so reprocessing an event
// produces identical commands.
type Command struct {
	ID       string      `json:"command_id"`
	Type     CommandType `json:"command_type"`
	TargetID string      `json:"target_id"`
	Reason   string      `json:"reason"`
	RuleName string      `json:"rule_name"`
	Priority Priority    `json:"priority"`
	IssuedAt time.Time   `json:"issued_at"`
	Payload  Payload     `json:"payload,omitempty"`
}
