package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/transfer"
	gobreaker "github.com/sony/gobreaker/v2"
)

// AutomationClient talks to the n8n automation webhook: a best-effort
// schedule announcement and a synchronous publish dispatch.
type AutomationClient interface {
	Configured() bool
	NotifySchedule(ctx context.Context, n *transfer.ScheduleNotification) error
	TriggerPublish(ctx context.Context, d *transfer.PublishDispatch) (*transfer.PublishDispatchResult, error)
}

type webhookEnvelope struct {
	Action      string                                 `json:"action"`
	PostID      string                                 `json:"post_id"`
	UserID      string                                 `json:"user_id"`
	Content     string                                 `json:"content,omitempty"`
	Platforms   []string                               `json:"platforms"`
	Credentials map[string]transfer.PlatformCredential `json:"credentials,omitempty"`
	ScheduledAt string                                 `json:"scheduled_at,omitempty"`
	Timestamp   string                                 `json:"timestamp"`
}

type automationClient struct {
	publishURL string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*transfer.PublishDispatchResult]
}

// NewAutomationClient builds the webhook client. Publish dispatches run
// through a circuit breaker so a dead workflow endpoint fails fast instead of
// tying up every scheduler run for the full timeout.
func NewAutomationClient(cfg config.Config) AutomationClient {
	breaker := gobreaker.NewCircuitBreaker[*transfer.PublishDispatchResult](gobreaker.Settings{
		Name:    "automation-webhook",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("automation webhook breaker state change",
				"from", from.String(), "to", to.String())
		},
	})

	return &automationClient{
		publishURL: cfg.Webhooks.PublishURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		breaker:    breaker,
	}
}

func (c *automationClient) Configured() bool {
	return c.publishURL != ""
}

// NotifySchedule announces a scheduled post so the workflow can set up its
// own polling. Callers treat any error as non-critical.
func (c *automationClient) NotifySchedule(ctx context.Context, n *transfer.ScheduleNotification) error {
	if !c.Configured() {
		return nil
	}

	envelope := webhookEnvelope{
		Action:      "schedule",
		PostID:      n.PostID,
		UserID:      n.UserID,
		Platforms:   n.Platforms,
		ScheduledAt: n.ScheduledAt,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.post(ctx, envelope)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: schedule notify status %d", ErrExternalService, resp.StatusCode)
	}
	return nil
}

// TriggerPublish asks the workflow to publish now and waits for its verdict.
// Only this synchronous response is trusted as a delivery signal.
func (c *automationClient) TriggerPublish(ctx context.Context, d *transfer.PublishDispatch) (*transfer.PublishDispatchResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: publish webhook not configured", ErrExternalService)
	}

	envelope := webhookEnvelope{
		Action:      "publish",
		PostID:      d.PostID,
		UserID:      d.UserID,
		Content:     d.Content,
		Platforms:   d.Platforms,
		Credentials: d.Credentials,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	return c.breaker.Execute(func() (*transfer.PublishDispatchResult, error) {
		resp, err := c.post(ctx, envelope)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("%w: publish dispatch: %v", ErrExternalService, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: publish dispatch status %d", ErrExternalService, resp.StatusCode)
		}

		var result transfer.PublishDispatchResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("%w: publish dispatch response: %v", ErrExternalService, err)
		}
		return &result, nil
	})
}

func (c *automationClient) post(ctx context.Context, envelope webhookEnvelope) (*http.Response, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.publishURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
