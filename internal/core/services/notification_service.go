package services

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"time"

	"clinicpay/internal/core/domain"

	json "github.com/goccy/go-json"
)

// Notifier receives a change event after every successful financing
// transition. Implementations must not block the transition path.
type Notifier interface {
	NotifyStatusChange(change domain.StatusChange)
}

// NotificationService posts status changes to a webhook consumed by the
// clinic dashboard and patient area. Disabled when no URL is configured.
type NotificationService struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService() *NotificationService {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	return &NotificationService{
		webhookURL: url,
		enabled:    url != "",
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// NotifyStatusChange posts the change event. Fire-and-forget: a delivery
// failure never fails the transition that produced it.
func (s *NotificationService) NotifyStatusChange(change domain.StatusChange) {
	if !s.enabled {
		return
	}

	go func() {
		body, err := json.Marshal(change)
		if err != nil {
			return
		}

		resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("⚠️ Notify webhook failed for request %d: %v", change.RequestID, err)
			return
		}
		resp.Body.Close()
	}()
}
