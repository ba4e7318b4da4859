package core

import "time"

// Conversation steps stored with the session.
const (
	StepIdle               Step = ""
	StepChoosingMode       Step = "choosing_mode"
	StepConfirmingCreation Step = "confirming_creation"
	StepGivingReference    Step = "giving_reference"
	StepAwaitingAmount     Step = "awaiting_amount"
	StepConfirmingReminder Step = "confirming_reminder"
)

type (
	Step string

	// Session is the per-user state kept between messages.
	Session struct {
		UserID          int64
		ChatID          int64
		LedgerRef       string // empty until the user links a spreadsheet
		ReminderEnabled bool
		PendingDate     Date // zero unless Step is StepAwaitingAmount
		Step            Step
		UpdatedAt       time.Time
	}
)

// HasLedger reports whether the user has linked a spreadsheet.
func (s Session) HasLedger() bool {
	return s.LedgerRef != ""
}

// Reset returns the session with any in-flight conversation cleared.
func (s Session) Reset() Session {
	s.Step = StepIdle
	s.PendingDate = Date{}
	return s
}

// Valid returns true if the step is one of the known steps.
func (s Step) Valid() bool {
	switch s {
	case StepIdle, StepChoosingMode, StepConfirmingCreation, StepGivingReference,
		StepAwaitingAmount, StepConfirmingReminder:
		return true
	default:
		return false
	}
}
