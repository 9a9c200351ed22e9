// Package mailer sends transactional email through the Brevo HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inkwell/internal/middleware"
)

const defaultAPIURL = "https://api.brevo.com/v3/smtp/email"

// Mailer delivers transactional email. A Mailer with an empty API key is a
// no-op, so environments without credentials never block on delivery.
type Mailer struct {
	apiKey  string
	apiURL  string
	sender  string
	client  *http.Client
	enabled bool
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// New constructs a Mailer. apiURL falls back to the Brevo production endpoint
// when empty.
func New(apiKey, apiURL, sender string) *Mailer {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Mailer{
		apiKey:  apiKey,
		apiURL:  apiURL,
		sender:  sender,
		client:  &http.Client{Timeout: 10 * time.Second},
		enabled: apiKey != "",
	}
}

// Send delivers a single HTML email synchronously.
func (m *Mailer) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	if !m.enabled {
		return nil
	}

	payload := sendRequest{
		Sender:      emailAddress{Email: m.sender, Name: "Inkwell"},
		To:          []emailAddress{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: htmlBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		middleware.EmailDeliveries.WithLabelValues("error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		middleware.EmailDeliveries.WithLabelValues("error").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, string(b))
	}

	middleware.EmailDeliveries.WithLabelValues("success").Inc()
	return nil
}

// SendWelcome delivers the post-registration welcome email in the
// background. Delivery failures are logged and counted, never surfaced to
// the registration flow.
func (m *Mailer) SendWelcome(toEmail, toName string) {
	if !m.enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		subject := "Welcome to Inkwell"
		body := fmt.Sprintf(
			"<h1>Welcome, %s!</h1><p>Your account is ready. Start reading, or set up your author profile and publish your first post.</p>",
			toName,
		)
		if err := m.Send(ctx, toEmail, toName, subject, body); err != nil {
			middleware.Logger.Error("welcome email delivery failed",
				"email", toEmail, "error", err)
		}
	}()
}
