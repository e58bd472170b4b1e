// Package booking forwards stay inquiries to the property's webhook. The
// site is inquiry-only: nothing here holds or confirms a reservation.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"primavera/internal/dateutil"
	appLog "primavera/internal/log"
)

const submitTimeout = 15 * time.Second

// Inquiry is one booking request as captured from the caller. CheckIn and
// CheckOut may be zero when the guest has not picked dates yet.
type Inquiry struct {
	Name     string
	Email    string
	Phone    string
	Guests   string
	RoomName string
	Message  string

	CheckIn  time.Time
	CheckOut time.Time

	// EstimatedTotal is the quoted trip total, zero when unknown.
	EstimatedTotal float64
}

// payload is the wire shape the webhook expects. The receiving automation
// maps fields onto strictly typed spreadsheet columns, so numeric-looking
// values go out as numeric strings, never as descriptive placeholders.
type payload struct {
	FormType       string `json:"formType"`
	Reference      string `json:"reference"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Guests         string `json:"guests"`
	CheckIn        string `json:"checkIn"`
	CheckOut       string `json:"checkOut"`
	Interest       string `json:"interest"`
	EstimatedTotal string `json:"estimatedTotal"`
	Message        string `json:"message"`
}

// Submitter posts inquiries to a fixed webhook URL.
type Submitter struct {
	client     *http.Client
	webhookURL string
}

func NewSubmitter(webhookURL string) *Submitter {
	return &Submitter{
		client:     &http.Client{Timeout: submitTimeout},
		webhookURL: webhookURL,
	}
}

// Validate checks the fields a guest must provide.
func (i *Inquiry) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := mail.ParseAddress(i.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if !i.CheckIn.IsZero() && !i.CheckOut.IsZero() && !i.CheckIn.Before(i.CheckOut) {
		return errors.New("check-in must be before check-out")
	}
	return nil
}

// Submit posts the inquiry and returns its reference id. A non-2xx webhook
// response is an error the caller surfaces to the guest; there is no retry.
func (s *Submitter) Submit(ctx context.Context, inq Inquiry) (string, error) {
	if s.webhookURL == "" {
		return "", errors.New("webhook URL not configured")
	}
	if err := inq.Validate(); err != nil {
		return "", err
	}

	reference := uuid.NewString()
	body, err := json.Marshal(buildPayload(reference, inq))
	if err != nil {
		return "", fmt.Errorf("encode inquiry payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post inquiry to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	appLog.Info("inquiry submitted", "reference", reference, "interest", inq.RoomName)
	return reference, nil
}

func buildPayload(reference string, inq Inquiry) payload {
	p := payload{
		FormType:       "General Booking Request",
		Reference:      reference,
		Name:           inq.Name,
		Email:          inq.Email,
		Phone:          inq.Phone,
		Guests:         strings.ReplaceAll(inq.Guests, "+", ""),
		CheckIn:        "Not specified",
		CheckOut:       "Not specified",
		Interest:       "No Preference",
		EstimatedTotal: "0",
		Message:        inq.Message,
	}
	if !inq.CheckIn.IsZero() {
		p.CheckIn = dateutil.FormatHuman(inq.CheckIn)
	}
	if !inq.CheckOut.IsZero() {
		p.CheckOut = dateutil.FormatHuman(inq.CheckOut)
	}
	if inq.RoomName != "" {
		p.Interest = inq.RoomName
	}
	if inq.EstimatedTotal > 0 {
		p.EstimatedTotal = fmt.Sprintf("%d", int(math.Ceil(inq.EstimatedTotal)))
	}
	return p
}
