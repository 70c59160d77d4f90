// Package events delivers enforcement decisions and risk threshold crossings
// to the surrounding dashboard. The engine never persists these itself; a
// Sink is the one-way door out.
package events

import (
	"context"
	"log"
	"time"
)

// Type enumerates the event kinds the engine emits.
type Type string

const (
	TypeDecision      Type = "decision"
	TypeRuleCompiled  Type = "rule_compiled"
	TypeRiskThreshold Type = "risk_threshold"
	TypeAnomaly       Type = "anomaly"
)

// Event is the wire record sent to the alerting layer. Optional fields stay
// empty rather than zero-valued so consumers can distinguish "absent" from
// "zero".
type Event struct {
	Type       Type      `json:"event_type"`
	ChildID    string    `json:"child_id,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Category   string    `json:"category,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
	Action     string    `json:"action,omitempty"`
	RuleID     string    `json:"rule_id,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	RiskScore  float64   `json:"risk_score,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives events. Implementations must be safe for concurrent use and
// must never block the enforcement path longer than their context allows.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// LogSink writes events to the process log. The default sink in development
// and the fallback when no collector is configured.
type LogSink struct{}

var _ Sink = (*LogSink)(nil)

// Emit logs the event.
func (LogSink) Emit(_ context.Context, ev Event) error {
	log.Printf("event type=%s child=%s domain=%s action=%s rule=%s reason=%s score=%.2f",
		ev.Type, ev.ChildID, ev.Domain, ev.Action, ev.RuleID, ev.ReasonCode, ev.RiskScore)
	return nil
}

// MultiSink fans an event out to several sinks. Delivery is best effort: a
// failing sink is logged and skipped, never allowed to veto the others.
type MultiSink struct {
	sinks []Sink
}

var _ Sink = (*MultiSink)(nil)

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Emit delivers to every sink.
func (m *MultiSink) Emit(ctx context.Context, ev Event) error {
	for _, s := range m.sinks {
		if err := s.Emit(ctx, ev); err != nil {
			log.Printf("WARNING: event sink delivery failed: %v", err)
		}
	}
	return nil
}
