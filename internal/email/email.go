// Package email sends plaintext transactional mail through a listmonk
// instance.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type Config struct {
	BaseURL    string
	Username   string
	Password   string
	From       string
	TemplateID int
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	TemplateID      int               `json:"template_id"`
	FromEmail       string            `json:"from_email,omitempty"`
	Subject         string            `json:"subject"`
	Data            map[string]string `json:"data"`
	ContentType     string            `json:"content_type"`
}

// SendPlain delivers a plaintext message. With no BaseURL configured the
// message is logged and dropped.
func (c *Client) SendPlain(ctx context.Context, toEmail, subject, body string) error {
	if c.config.BaseURL == "" {
		slog.Info("email not configured, dropping message", "to", toEmail, "subject", subject)
		return nil
	}

	jsonBody, err := json.Marshal(txRequest{
		SubscriberEmail: toEmail,
		TemplateID:      c.config.TemplateID,
		FromEmail:       c.config.From,
		Subject:         subject,
		Data:            map[string]string{"body": body},
		ContentType:     "plain",
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listmonk returned status %d", resp.StatusCode)
	}

	return nil
}
