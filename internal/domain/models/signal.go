package models

import (
	"fmt"
	"time"
)

// AdmittedSignal is a consensus verdict that cleared every quality gate.
// Created by the quality gate, later mutated only by the outcome monitor to
// attach an outcome, archived at expiry or resolution.
type AdmittedSignal struct {
	ID            string           `json:"id"`
	Verdict       ConsensusVerdict `json:"verdict"`
	Entry         float64          `json:"entry"`
	Targets       []float64        `json:"targets"`
	Stop          float64          `json:"stop"`
	LeadStrategy  string           `json:"lead_strategy"`
	Reason        string           `json:"reason"`
	ExpiryMinutes float64          `json:"expiry_minutes"`
	CreatedAt     time.Time        `json:"created_at"`
	ReleasedAt    time.Time        `json:"released_at,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at,omitempty"`

	Outcome *OutcomeRecord `json:"outcome,omitempty"`
}

// DedupKey identifies a live admission. A LONG and a SHORT on the same
// instrument are independent entries.
func (s AdmittedSignal) DedupKey() string {
	return DedupKey(s.Verdict.Instrument, s.Verdict.Direction)
}

// DedupKey builds the instrument|direction uniqueness key.
func DedupKey(instrument string, direction Direction) string {
	return fmt.Sprintf("%s|%s", instrument, direction)
}

// FirstTarget returns the nearest profit target, falling back to entry when
// the contributing opinion proposed none.
func (s AdmittedSignal) FirstTarget() float64 {
	if len(s.Targets) == 0 {
		return s.Entry
	}
	return s.Targets[0]
}

// IsExpired reports whether the released signal's validity window has ended.
func (s AdmittedSignal) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// BufferedCandidate wraps an admitted signal inside one subscriber tier's
// buffer. Destroyed on release or eviction.
type BufferedCandidate struct {
	Signal         AdmittedSignal `json:"signal"`
	SubscriberTier string         `json:"subscriber_tier"`
	BufferedAt     time.Time      `json:"buffered_at"`
}
