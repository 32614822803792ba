package expense

// Status ids match the seeded statuses reference table.
var statusIDs = map[Status]int64{
	StatusDraft:     1,
	StatusSubmitted: 2,
	StatusApproved:  3,
	StatusRejected:  4,
}

var statusesByID = map[int64]Status{
	1: StatusDraft,
	2: StatusSubmitted,
	3: StatusApproved,
	4: StatusRejected,
}

// ID returns the reference-table id for the status, or 0 if unknown
func (s Status) ID() int64 {
	return statusIDs[s]
}

// FromID returns the status for a reference-table id
func FromID(id int64) (Status, bool) {
	s, ok := statusesByID[id]
	return s, ok
}
