package models

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusWaiting:  {StatusApproved, StatusRejected},
	StatusApproved: {},
	StatusRejected: {},
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true once a decision has been recorded.
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && len(validTransitions[s]) == 0
}

// BookingState is the listing selector accepted by booker and owner queries.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// KnownStates lists the selectors in the order clients usually see them.
var KnownStates = []BookingState{StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected}

func (s BookingState) IsKnown() bool {
	for _, known := range KnownStates {
		if s == known {
			return true
		}
	}
	return false
}
