package lender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, "test-key", 2*time.Second), srv
}

func sampleSubmission() *Submission {
	return &Submission{
		ReferenceNo:   "req-123",
		Amount:        1320.00,
		Installments:  12,
		PatientID:     7,
		ClinicID:      2,
		AppointmentID: 99,
	}
}

func TestSubmit_Approved(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/applications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}

		var sub Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if sub.ReferenceNo != "req-123" {
			t.Errorf("reference no = %s", sub.ReferenceNo)
		}

		json.NewEncoder(w).Encode(Acknowledgement{
			LenderReferenceID: "LND-001",
			Decision:          DecisionApproved,
		})
	})
	defer srv.Close()

	ack, err := client.Submit(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.LenderReferenceID != "LND-001" || ack.Decision != DecisionApproved {
		t.Errorf("unexpected ack: %+v", ack)
	}
}

func TestSubmit_Pending(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Acknowledgement{
			LenderReferenceID: "LND-002",
			Decision:          DecisionPending,
		})
	})
	defer srv.Close()

	ack, err := client.Submit(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Decision != DecisionPending {
		t.Errorf("decision = %s, want pending", ack.Decision)
	}
}

func TestSubmit_Rejected(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Acknowledgement{
			LenderReferenceID: "LND-003",
			Decision:          DecisionRejected,
			Reason:            "score too low",
		})
	})
	defer srv.Close()

	_, err := client.Submit(context.Background(), sampleSubmission())
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("want RejectionError, got %v", err)
	}
	if rejection.Reason != "score too low" {
		t.Errorf("reason = %q", rejection.Reason)
	}
}

func TestSubmit_ServerErrorIsUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.Submit(context.Background(), sampleSubmission())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestSubmit_ClientErrorIsInvalidPayload(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing field", http.StatusUnprocessableEntity)
	})
	defer srv.Close()

	_, err := client.Submit(context.Background(), sampleSubmission())
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("want ErrInvalidPayload, got %v", err)
	}
}

func TestSubmit_NetworkErrorIsUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // connection refused from here on

	_, err := client.Submit(context.Background(), sampleSubmission())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
