package rules

import "time"

// EventType enumerates the state-change facts the engine understands.
type EventType string

const (
	// Dependency events.
	EventDependencyBlocked     EventType = "dependency_blocked"
	EventDependencyUnblocked   EventType = "dependency_unblocked"
	EventDependencyUnavailable EventType = "dependency_unavailable"
	EventDependencyAvailable   EventType = "dependency_available"

	// Risk events.
	EventRiskCreated           EventType = "risk_created"
	EventRiskUpdated           EventType = "risk_updated"
	EventRiskAcceptanceExpired EventType = "risk_acceptance_expired"
	EventRiskMaterialised      EventType = "risk_materialised"

	// Decision events.
	EventDecisionCreated    EventType = "decision_created"
	EventDecisionApproved   EventType = "decision_approved"
	EventDecisionSuperseded EventType = "decision_superseded"

	// Change events.
	EventChangeCreated  EventType = "change_created"
	EventChangeApproved EventType = "change_approved"
	EventChangeRejected EventType = "change_rejected"

	// Forecast events.
	EventForecastUpdated           EventType = "forecast_updated"
	EventForecastThresholdBreached EventType = "forecast_threshold_breached"
)

// Event is an immutable fact about something that happened. Context
// fields are populated per type; the rest stay zero. Timestamp drives
// all date arithmetic in the rules so that processing the same event
// twice yields the same commands.
type Event struct {
	ID        string    `json:"event_id"`
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	DependencyID string `json:"dependency_id,omitempty"`
	RiskID       string `json:"risk_id,omitempty"`
	RiskStatus   string `json:"risk_status,omitempty"`
	DecisionID   string `json:"decision_id,omitempty"`
	ChangeID     string `json:"change_id,omitempty"`
	MilestoneID  string `json:"milestone_id,omitempty"`
	OwnerID      string `json:"owner_id,omitempty"`

	DeltaP80Days *float64 `json:"delta_p80_days,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}
