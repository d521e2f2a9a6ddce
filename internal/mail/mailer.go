package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Message письмо одному получателю.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// BrevoMailer отправляет письма через транзакционный API Brevo.
type BrevoMailer struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	client      *http.Client
}

// NewBrevoMailer создаёт отправителя.
func NewBrevoMailer(apiKey, senderEmail, senderName string) *BrevoMailer {
	return &BrevoMailer{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		endpoint:    brevoEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoPayload struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) error {
	at := strings.Index(msg.ToEmail, "@")
	if at <= 0 {
		return fmt.Errorf("mail: некорректный адрес получателя %q", msg.ToEmail)
	}
	name := msg.ToName
	if name == "" {
		name = msg.ToEmail[:at]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      brevoContact{Email: m.senderEmail, Name: m.senderName},
		To:          []brevoContact{{Email: msg.ToEmail, Name: name}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("mail: marshal %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail: request %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: send %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail: brevo вернул %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// LogMailer только пишет письма в лог. Используется, когда Brevo не настроен.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Log.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("mail: отправка отключена, письмо не отправлено")
	return nil
}
