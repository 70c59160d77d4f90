// Package risk accumulates grooming-style behavioral risk across multi-turn
// conversations. State is kept per (child, contact, platform); each observed
// turn decays the previous score and adds a weighted contribution from the
// turn's intent labels and metadata signals.
package risk

import (
	"fmt"
	"time"
)

// Stage is the grooming-progression ordering signal. It is a severity
// ordering, never a literal script match: reaching a later stage than before
// amplifies the turn's contribution.
type Stage int

const (
	StageNone Stage = iota
	StageTargetSelection
	StageTrustBuilding
	StageIsolation
	StageDesensitization
	StageMaintenance
)

// String returns the stage name used in events and serialized state.
func (s Stage) String() string {
	switch s {
	case StageTargetSelection:
		return "target_selection"
	case StageTrustBuilding:
		return "trust_building"
	case StageIsolation:
		return "isolation"
	case StageDesensitization:
		return "desensitization"
	case StageMaintenance:
		return "maintenance"
	default:
		return "none"
	}
}

// Label is an intent label produced by the conversation classifier for one
// turn. The accumulator only consumes labels listed in labelTraits; unknown
// labels contribute nothing.
type Label string

const (
	LabelFlattery          Label = "flattery"
	LabelAgeProbing        Label = "age_probing"
	LabelPersonalInfoProbe Label = "personal_info_request"
	LabelGiftOffering      Label = "gift_offering"
	LabelSecrecyInduction  Label = "secrecy_induction"
	LabelIsolationAttempt  Label = "isolation_attempt"
	LabelPlatformMigration Label = "platform_migration"
	LabelImageRequest      Label = "image_request"
	LabelSexualContent     Label = "sexual_content"
	LabelMeetingRequest    Label = "meeting_request"
	LabelThreatOrCoercion  Label = "threat_or_coercion"
)

// labelTraits binds each label to its base score weight, the grooming stage
// it evidences, and whether it counts as a high-risk co-occurrence signal.
var labelTraits = map[Label]struct {
	weight   float64
	stage    Stage
	highRisk bool
}{
	LabelFlattery:          {4, StageTrustBuilding, false},
	LabelAgeProbing:        {6, StageTargetSelection, false},
	LabelPersonalInfoProbe: {8, StageTargetSelection, true},
	LabelGiftOffering:      {9, StageTrustBuilding, true},
	LabelSecrecyInduction:  {12, StageIsolation, true},
	LabelIsolationAttempt:  {12, StageIsolation, true},
	LabelPlatformMigration: {10, StageIsolation, true},
	LabelImageRequest:      {15, StageDesensitization, true},
	LabelSexualContent:     {16, StageDesensitization, true},
	LabelMeetingRequest:    {18, StageMaintenance, true},
	LabelThreatOrCoercion:  {20, StageMaintenance, true},
}

// Trajectory summarizes the direction of the recent score history.
type Trajectory string

const (
	TrajectoryStable       Trajectory = "STABLE"
	TrajectoryEscalating   Trajectory = "ESCALATING"
	TrajectoryDecelerating Trajectory = "DECELERATING"
	TrajectorySpiking      Trajectory = "SPIKING"
)

// Key identifies one conversation stream. All state is scoped to it.
type Key struct {
	ChildID   string `json:"child_id"`
	ContactID string `json:"contact_id"`
	Platform  string `json:"platform"`
}

// String renders the storage key form.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ChildID, k.ContactID, k.Platform)
}

// TurnSignals is the accumulator's per-turn input: classifier label scores
// plus metadata-only behavioral signals. Message content never enters this
// package.
type TurnSignals struct {
	Key         Key
	Timestamp   time.Time
	LabelScores map[Label]float64
	Behavior    BehavioralSignals
}

// ConversationState is the mutable per-conversation record. Only the
// accumulator writes it; everything else reads snapshots.
type ConversationState struct {
	Key Key `json:"key"`

	RiskScore       float64             `json:"risk_score"`
	HighestStage    Stage               `json:"highest_stage"`
	StageTimestamps map[Stage]time.Time `json:"stage_timestamps"`
	RiskHistory     []float64           `json:"risk_history"`

	ReEngagementCount int       `json:"re_engagement_count"`
	TurnCount         int       `json:"turn_count"`
	FirstTurnAt       time.Time `json:"first_turn_at"`
	LastUpdate        time.Time `json:"last_update"`
}

// TurnResult is what one accumulation step reports back to the caller.
type TurnResult struct {
	Key        Key        `json:"key"`
	RiskScore  float64    `json:"risk_score"`
	Delta      float64    `json:"delta"`
	Stage      Stage      `json:"stage"`
	Trajectory Trajectory `json:"trajectory"`
	Velocity   float64    `json:"velocity"` // stage transitions per elapsed hour
	Action     Action     `json:"action"`
}

// ChildRiskProfile aggregates conversation state across platforms for one
// child. Used for cross-platform carryover and parent-facing summaries.
type ChildRiskProfile struct {
	ChildID      string             `json:"child_id"`
	PlatformRisk map[string]float64 `json:"platform_risk"`
	ContactRisk  map[string]float64 `json:"contact_risk"`
}
