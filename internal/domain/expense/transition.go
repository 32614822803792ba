package expense

import (
	"errors"
	"fmt"
)

// Trigger is an event that can move an expense between statuses
type Trigger string

const (
	TriggerSubmit  Trigger = "SUBMIT"
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// ErrInvalidTransition is returned when a trigger is not permitted in the
// expense's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions maps (current status, trigger) to the next status.
// Approved and Rejected are terminal: no trigger leads out of them.
var transitions = map[Status]map[Trigger]Status{
	StatusDraft: {
		TriggerSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		TriggerApprove: StatusApproved,
		TriggerReject:  StatusRejected,
	},
}

// CanFire returns true if the trigger is permitted in the given status
func CanFire(current Status, trigger Trigger) bool {
	_, ok := transitions[current][trigger]
	return ok
}

// Fire validates the trigger against the current status and returns the
// next status, or ErrInvalidTransition.
func Fire(current Status, trigger Trigger) (Status, error) {
	next, ok := transitions[current][trigger]
	if !ok {
		return current, fmt.Errorf("%w: cannot %s an expense in status %s",
			ErrInvalidTransition, trigger, current)
	}
	return next, nil
}

// PermittedTriggers returns all triggers that can fire in the given status
func PermittedTriggers(current Status) []Trigger {
	var triggers []Trigger
	for trigger := range transitions[current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
