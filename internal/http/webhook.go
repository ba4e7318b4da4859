package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"budgeter/internal/bot"
	"budgeter/internal/log"
)

var _ bot.Messenger = (*WebhookMessenger)(nil)

// WebhookMessenger delivers outbound messages by POSTing them as JSON to a
// relay that forwards them to the chat platform.
type WebhookMessenger struct {
	url      string
	client   *http.Client
	attempts uint
	delay    time.Duration
	logger   *log.Logger
}

// statusError is a non-2xx answer from the relay.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.code, e.body)
}

func NewWebhookMessenger(url string, logger *log.Logger) *WebhookMessenger {
	if logger == nil {
		logger = log.Discard()
	}
	return &WebhookMessenger{
		url:      url,
		client:   &http.Client{Timeout: 15 * time.Second},
		attempts: 3,
		delay:    time.Second,
		logger:   logger.WithComponent(log.ComponentBot),
	}
}

// Send posts m, retrying transport failures, 429 and 5xx answers.
func (m *WebhookMessenger) Send(ctx context.Context, msg bot.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return retry.Do(func() error {
		return m.post(ctx, body)
	},
		retry.RetryIf(retryableWebhook),
		retry.Attempts(m.attempts),
		retry.Delay(m.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			m.logger.WarnContext(ctx, "webhook delivery failed, retrying",
				log.FieldChatID, msg.ChatID, log.FieldAttempt, n+1, log.FieldError, err)
		}),
	)
}

func (m *WebhookMessenger) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(snippet))}
}

func retryableWebhook(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
