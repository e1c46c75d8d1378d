package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/yourusername/mailagent/internal/config"
)

const requestTimeout = 60 * time.Second

const replyPrompt = "You are a professional AI assistant whose job is to answer emails. " +
	"Based on the original email below, write a polite, concise and relevant reply. " +
	"Answer only with the body text of the reply, without headers such as 'Subject:' or 'To:'.\n\n" +
	"--- Original Email ---\n" +
	"From: %s\n" +
	"Subject: %s\n" +
	"Body: %s\n" +
	"--- End of Original Email ---\n\n" +
	"Suggested Reply:"

const summaryPrompt = "You are a professional AI assistant whose job is to summarize emails. " +
	"Summarize the email below in a few sentences, keeping every actionable detail. " +
	"Answer only with the summary text.\n\n" +
	"--- Email ---\n" +
	"From: %s\n" +
	"Subject: %s\n" +
	"Body: %s\n" +
	"--- End of Email ---\n\n" +
	"Summary:"

// Client calls the Gemini generateContent endpoint. Every failure mode
// (HTTP error, timeout, open breaker, empty candidates, malformed
// response) yields an empty string: the caller reads empty as "skip",
// never as "send a blank message".
type Client struct {
	apiKey   string
	model    string
	endpoint string
	httpc    *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewClient(cfg config.GeminiConfig, logger *zap.Logger) *Client {
	return &Client{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		httpc:    &http.Client{Timeout: requestTimeout},
		breaker:  gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "gemini"}),
		logger:   logger,
	}
}

// GenerateReply produces a suggested reply for the original email.
func (c *Client) GenerateReply(ctx context.Context, originalBody, sender, subject string) string {
	if originalBody == "" {
		return ""
	}
	return c.generate(ctx, fmt.Sprintf(replyPrompt, sender, subject, originalBody))
}

// GenerateSummary produces a short summary of the email.
func (c *Client) GenerateSummary(ctx context.Context, originalBody, sender, subject string) string {
	if originalBody == "" {
		return ""
	}
	return c.generate(ctx, fmt.Sprintf(summaryPrompt, sender, subject, originalBody))
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string) string {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		c.logger.Error("marshal generate request", zap.Error(err))
		return ""
	}

	url := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		c.logger.Warn("gemini call failed", zap.Error(err))
		return ""
	}

	var result generateResponse
	if err := json.Unmarshal(out.([]byte), &result); err != nil {
		c.logger.Warn("gemini response not parseable", zap.Error(err))
		return ""
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		reason := "UNKNOWN"
		if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
			reason = result.Candidates[0].FinishReason
		}
		c.logger.Warn("gemini returned no content", zap.String("finish_reason", reason))
		return ""
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
}
