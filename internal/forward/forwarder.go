package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mailagent/internal/models"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyEcho    = 512
)

// Payload is the summary document POSTed to the configured webhook.
type Payload struct {
	GmailMessageID string    `json:"gmail_message_id"`
	Sender         string    `json:"sender"`
	Subject        string    `json:"subject"`
	Summary        string    `json:"summary"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Forwarder delivers summaries to per-account webhooks.
type Forwarder struct {
	httpc  *http.Client
	logger *zap.Logger
}

func New(logger *zap.Logger) *Forwarder {
	return &Forwarder{
		httpc:  &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Forward POSTs the payload as JSON to url and reports the delivery
// outcome. It never returns an error: the (status, message) pair is
// the durable record of what happened, written exactly once by the
// caller whatever the path taken here.
func (f *Forwarder) Forward(ctx context.Context, p Payload, url string) (status, message string) {
	body, err := json.Marshal(p)
	if err != nil {
		return models.ForwardStatusFailed, fmt.Sprintf("encode payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.ForwardStatusFailed, fmt.Sprintf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		f.logger.Warn("summary forward failed", zap.String("url", url), zap.Error(err))
		return models.ForwardStatusFailed, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		echo, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyEcho))
		f.logger.Warn("summary forward rejected",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return models.ForwardStatusFailed, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, echo)
	}

	f.logger.Info("summary forwarded",
		zap.String("url", url), zap.Int("status", resp.StatusCode))
	return models.ForwardStatusSuccess, fmt.Sprintf("HTTP %d", resp.StatusCode)
}
