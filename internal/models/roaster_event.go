package models

import "time"

// Event types written to the audit log.
const (
	EventStart         = "START"
	EventStop          = "STOP"
	EventEngage        = "ENGAGE"
	EventDisengage     = "DISENGAGE"
	EventSetpoints     = "SETPOINTS"
	EventSafetyCutoff  = "SAFETY_CUTOFF"
	EventSafetyCleared = "SAFETY_CLEARED"
)

// RoasterEvent is a single audit log entry.
type RoasterEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | ENGAGE | DISENGAGE | SETPOINTS | SAFETY_CUTOFF | SAFETY_CLEARED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
