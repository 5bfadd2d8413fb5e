package domain

// FinancingStatus represents the lifecycle state of a financing request
type FinancingStatus string

const (
	StatusPatientRequested FinancingStatus = "PATIENT_REQUESTED"
	StatusClinicApproved   FinancingStatus = "CLINIC_APPROVED"
	StatusClinicRejected   FinancingStatus = "CLINIC_REJECTED"
	StatusLenderPending    FinancingStatus = "LENDER_PENDING"
	StatusLenderApproved   FinancingStatus = "LENDER_APPROVED"
	StatusLenderRejected   FinancingStatus = "LENDER_REJECTED"
)

// FinancingEvent represents an action that moves a request between statuses
type FinancingEvent string

const (
	EventClinicApprove FinancingEvent = "CLINIC_APPROVE"
	EventClinicReject  FinancingEvent = "CLINIC_REJECT"
	EventForward       FinancingEvent = "FORWARD"
	EventLenderApprove FinancingEvent = "LENDER_APPROVE"
	EventLenderReject  FinancingEvent = "LENDER_REJECT"
)

// transitions maps each event to its only legal (from, to) pair.
// Submission is not listed: it creates the entity in StatusPatientRequested.
var transitions = map[FinancingEvent]struct {
	From FinancingStatus
	To   FinancingStatus
}{
	EventClinicApprove: {StatusPatientRequested, StatusClinicApproved},
	EventClinicReject:  {StatusPatientRequested, StatusClinicRejected},
	EventForward:       {StatusClinicApproved, StatusLenderPending},
	EventLenderApprove: {StatusLenderPending, StatusLenderApproved},
	EventLenderReject:  {StatusLenderPending, StatusLenderRejected},
}

// NextStatus returns the target status for event when the request is
// currently in from. ErrInvalidTransition if the event is not legal there.
func NextStatus(from FinancingStatus, event FinancingEvent) (FinancingStatus, error) {
	t, ok := transitions[event]
	if !ok || t.From != from {
		return "", ErrInvalidTransition
	}
	return t.To, nil
}

// IsTerminal reports whether no further transition can leave s
func (s FinancingStatus) IsTerminal() bool {
	switch s {
	case StatusClinicRejected, StatusLenderApproved, StatusLenderRejected:
		return true
	}
	return false
}

// IsValid reports whether s is a known status value
func (s FinancingStatus) IsValid() bool {
	switch s {
	case StatusPatientRequested, StatusClinicApproved, StatusClinicRejected,
		StatusLenderPending, StatusLenderApproved, StatusLenderRejected:
		return true
	}
	return false
}
