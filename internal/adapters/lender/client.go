// Package lender is the boundary to the external credit provider.
// The provider's wire format is its own; this package owns only the
// submission payload, the acknowledgement shape, and failure
// classification.
package lender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Adapter errors
var (
	// ErrUnavailable marks transient network/service failures; callers
	// may retry while the request stays LENDER_PENDING.
	ErrUnavailable = errors.New("lender service unavailable")
	// ErrInvalidPayload marks a request the provider refused to parse;
	// never retried.
	ErrInvalidPayload = errors.New("lender rejected payload")
)

// RejectionError is a terminal credit decision from the provider
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "lender rejected application: " + e.Reason
}

// Decision values returned by the provider
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
	DecisionPending  = "pending"
)

// Submission is the payload forwarded for a clinic-approved request
type Submission struct {
	ReferenceNo   string  `json:"reference_no"`
	Amount        float64 `json:"amount"`
	Installments  int     `json:"installments"`
	PatientID     uint    `json:"patient_id"`
	ClinicID      uint    `json:"clinic_id"`
	AppointmentID uint    `json:"appointment_id"`
}

// Acknowledgement is the provider's synchronous answer. Decision
// "pending" means the final answer arrives on the webhook.
type Acknowledgement struct {
	LenderReferenceID string `json:"lender_reference_id"`
	Decision          string `json:"decision"`
	Reason            string `json:"reason,omitempty"`
}

// Client submits applications to the external credit provider
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a lender client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit forwards one application. Error classification:
// network errors and 5xx → ErrUnavailable; 4xx → ErrInvalidPayload;
// a parsed "rejected" decision → *RejectionError.
func (c *Client) Submit(ctx context.Context, sub *Submission) (*Acknowledgement, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/applications", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: provider returned %d: %s", ErrInvalidPayload, resp.StatusCode, msg)
	}

	var ack Acknowledgement
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("%w: malformed acknowledgement: %v", ErrUnavailable, err)
	}

	if ack.Decision == DecisionRejected {
		return nil, &RejectionError{Reason: ack.Reason}
	}

	return &ack, nil
}
