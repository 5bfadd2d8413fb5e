package domain

import (
	"errors"
	"testing"
)

func TestNextStatus_LegalPath(t *testing.T) {
	steps := []struct {
		from  FinancingStatus
		event FinancingEvent
		want  FinancingStatus
	}{
		{StatusPatientRequested, EventClinicApprove, StatusClinicApproved},
		{StatusClinicApproved, EventForward, StatusLenderPending},
		{StatusLenderPending, EventLenderApprove, StatusLenderApproved},
	}

	for _, s := range steps {
		got, err := NextStatus(s.from, s.event)
		if err != nil {
			t.Fatalf("NextStatus(%s, %s): unexpected error: %v", s.from, s.event, err)
		}
		if got != s.want {
			t.Errorf("NextStatus(%s, %s) = %s, want %s", s.from, s.event, got, s.want)
		}
	}
}

func TestNextStatus_RejectPaths(t *testing.T) {
	got, err := NextStatus(StatusPatientRequested, EventClinicReject)
	if err != nil || got != StatusClinicRejected {
		t.Errorf("clinic reject: got (%s, %v)", got, err)
	}

	got, err = NextStatus(StatusLenderPending, EventLenderReject)
	if err != nil || got != StatusLenderRejected {
		t.Errorf("lender reject: got (%s, %v)", got, err)
	}
}

func TestNextStatus_IllegalTransitions(t *testing.T) {
	cases := []struct {
		from  FinancingStatus
		event FinancingEvent
	}{
		// a request never revisits PATIENT_REQUESTED after leaving it
		{StatusClinicRejected, EventClinicApprove},
		{StatusClinicApproved, EventClinicApprove},
		{StatusClinicApproved, EventClinicReject},
		{StatusPatientRequested, EventForward},
		{StatusPatientRequested, EventLenderApprove},
		{StatusLenderApproved, EventLenderReject},
		{StatusLenderRejected, EventForward},
		{StatusLenderPending, EventForward},
	}

	for _, c := range cases {
		if _, err := NextStatus(c.from, c.event); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("NextStatus(%s, %s): want ErrInvalidTransition, got %v", c.from, c.event, err)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []FinancingStatus{StatusClinicRejected, StatusLenderApproved, StatusLenderRejected}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	open := []FinancingStatus{StatusPatientRequested, StatusClinicApproved, StatusLenderPending}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !StatusLenderPending.IsValid() {
		t.Error("LENDER_PENDING should be valid")
	}
	if FinancingStatus("WAITING").IsValid() {
		t.Error("unknown status should not be valid")
	}
}
