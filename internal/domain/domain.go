package domain

// WorkItemStatus enumerates the lifecycle of a work item.
type WorkItemStatus string

const (
	WorkItemNotStarted WorkItemStatus = "not_started"
	WorkItemInProgress WorkItemStatus = "in_progress"
	WorkItemBlocked    WorkItemStatus = "blocked"
	WorkItemCompleted  WorkItemStatus = "completed"
)

type WorkItem struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	Description            string   `json:"description,omitempty"`
	Status                 WorkItemStatus `json:"status"`
	EstimatedDays          float64  `json:"estimated_days"`
	CompletionPercentage   *float64 `json:"completion_percentage,omitempty"`
	RemainingDays          *float64 `json:"remaining_days,omitempty"`
	ConfidenceLevel        *float64 `json:"confidence_level,omitempty"`
	ExternalTeamID         string   `json:"external_team_id,omitempty"`
	StartDate              string   `json:"start_date,omitempty" format:"date-time"`
	ExpectedCompletionDate string   `json:"expected_completion_date,omitempty" format:"date-time"`
	MilestoneID            string   `json:"milestone_id,omitempty"`
	DependsOn              []string `json:"dependencies,omitempty"`
}

// Criticality grades how hard a dependency edge propagates delay.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Multiplier scales an upstream delay estimate by edge criticality.
func (c Criticality) Multiplier() float64 {
	switch c {
	case CriticalityLow:
		return 0.5
	case CriticalityHigh:
		return 1.5
	case CriticalityCritical:
		return 2.0
	default:
		return 1.0
	}
}

// DependencyEdge is directed: FromID cannot finish before ToID.
type DependencyEdge struct {
	ID               string      `json:"id,omitempty"`
	FromID           string      `json:"from_id"`
	ToID             string      `json:"to_id"`
	Criticality      Criticality `json:"criticality,omitempty"`
	SlackDays        float64     `json:"slack_days,omitempty"`
	ProbabilityDelay *float64    `json:"probability_delay,omitempty"`
}

type RiskStatus string

const (
	RiskOpen         RiskStatus = "open"
	RiskAccepted     RiskStatus = "accepted"
	RiskMitigating   RiskStatus = "mitigating"
	RiskMaterialised RiskStatus = "materialised"
	RiskClosed       RiskStatus = "closed"
)

// RiskImpact carries the schedule impact of a risk in days. A nil
// ImpactDays means the author never sized the risk; consumers apply a
// conservative default.
type RiskImpact struct {
	ImpactDays *float64 `json:"impact_days,omitempty"`
}

// MitigationOverride is a what-if annotation: how many impact days a
// hypothetical mitigation would remove.
type MitigationOverride struct {
	ImpactReductionDays float64 `json:"impact_reduction_days"`
}

type Risk struct {
	ID                     string              `json:"id"`
	Title                  string              `json:"title"`
	Description            string              `json:"description,omitempty"`
	Severity               string              `json:"severity,omitempty"`
	Status                 RiskStatus          `json:"status"`
	Probability            float64             `json:"probability"`
	Impact                 RiskImpact          `json:"impact"`
	MilestoneID            string              `json:"milestone_id,omitempty"`
	AffectedItems          []string            `json:"affected_items,omitempty"`
	DetectedAt             string              `json:"detected_at,omitempty" format:"date-time"`
	HypotheticalMitigation *MitigationOverride `json:"hypothetical_mitigation,omitempty"`
}

type DecisionType string

const (
	DecisionChangeScope    DecisionType = "change_scope"
	DecisionChangeSchedule DecisionType = "change_schedule"
	DecisionChangeCapacity DecisionType = "change_capacity"
	DecisionChangePriority DecisionType = "change_priority"
	DecisionAcceptRisk     DecisionType = "accept_risk"
	DecisionMitigateRisk   DecisionType = "mitigate_risk"
)

type DecisionStatus string

const (
	DecisionProposed   DecisionStatus = "proposed"
	DecisionApproved   DecisionStatus = "approved"
	DecisionRejected   DecisionStatus = "rejected"
	DecisionSuperseded DecisionStatus = "superseded"
)

type Decision struct {
	ID              string         `json:"id"`
	DecisionType    DecisionType   `json:"decision_type"`
	Status          DecisionStatus `json:"status"`
	Reason          string         `json:"reason,omitempty"`
	MilestoneID     string         `json:"milestone_id,omitempty"`
	TargetID        string         `json:"target_id,omitempty"`
	EffortDeltaDays *float64       `json:"effort_delta_days,omitempty"`
	DeltaFTE        *float64       `json:"delta_fte,omitempty"`
	RiskID          string         `json:"risk_id,omitempty"`
	Action          string         `json:"action,omitempty"`
	DueDate         string         `json:"due_date,omitempty" format:"date-time"`
	AcceptanceUntil string         `json:"acceptance_until,omitempty" format:"date-time"`
	Priority        *int           `json:"priority,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty" format:"date-time"`
}

type Milestone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date" format:"date-time"`
	Status      string `json:"status,omitempty"`
}

// Ownership links an entity (risk, work item) to the actor accountable
// for it and the date it must next be reviewed.
type Ownership struct {
	ID           string `json:"id"`
	EntityID     string `json:"entity_id"`
	EntityKind   string `json:"entity_kind,omitempty"`
	OwnerActorID string `json:"owner_actor_id"`
	NextDate     string `json:"next_date,omitempty" format:"date"`
}

// ExternalTeamHistory records how reliably an external team has hit
// its dates; used to discount their estimates during forecasting.
type ExternalTeamHistory struct {
	TeamID           string  `json:"team_id"`
	AvgSlipDays      float64 `json:"avg_slip_days"`
	SlipProbability  float64 `json:"slip_probability"`
	ReliabilityScore float64 `json:"reliability_score"`
}
