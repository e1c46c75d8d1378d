package gmailbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"gopkg.in/gomail.v2"
)

// ProviderError wraps a failed Gmail API call. The pipeline surfaces it
// to the HTTP layer as upstream unavailability.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gmail %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client reads and writes one authenticated Gmail mailbox.
type Client struct {
	svc    *gmail.Service
	logger *zap.Logger
}

// NewClient builds a Gmail client from a token source. Extra options
// (endpoint overrides in tests) come last so they win.
func NewClient(ctx context.Context, ts oauth2.TokenSource, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, &ProviderError{Op: "connect", Err: err}
	}
	return &Client{svc: svc, logger: logger}, nil
}

// ListUnread returns the ids of all currently-unread messages, in
// provider order. The order is not stable across calls.
func (c *Client) ListUnread(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		call := c.svc.Users.Messages.List("me").Q("is:unread").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, &ProviderError{Op: "list", Err: err}
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

// Fetch retrieves the full message payload.
func (c *Client) Fetch(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, &ProviderError{Op: "fetch", Err: err}
	}
	return msg, nil
}

// MarkRead removes the UNREAD label. It is the last step of message
// processing; a failure here must not undo anything already done.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := c.svc.Users.Messages.Modify("me", id, req).Context(ctx).Do(); err != nil {
		return &ProviderError{Op: "mark read", Err: err}
	}
	return nil
}

// SendReply submits a plain-text reply into an existing thread.
func (c *Client) SendReply(ctx context.Context, to, subject, body, threadID string) error {
	raw, err := buildRaw(to, ReplySubject(subject), body)
	if err != nil {
		return err
	}
	msg := &gmail.Message{Raw: raw, ThreadId: threadID}
	if _, err := c.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return &ProviderError{Op: "send reply", Err: err}
	}
	c.logger.Info("reply sent", zap.String("to", to), zap.String("thread_id", threadID))
	return nil
}

// SendNew submits a new plain-text message outside any thread and
// returns the provider id of the sent message.
func (c *Client) SendNew(ctx context.Context, to, subject, body string) (string, error) {
	raw, err := buildRaw(to, subject, body)
	if err != nil {
		return "", err
	}
	sent, err := c.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", &ProviderError{Op: "send", Err: err}
	}
	c.logger.Info("email sent", zap.String("to", to), zap.String("message_id", sent.Id))
	return sent.Id, nil
}

// ReplySubject prefixes "Re:" unless the subject already carries it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// buildRaw assembles an RFC 822 message and encodes it the way the
// Gmail API expects raw payloads: base64url.
func buildRaw(to, subject, body string) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// HeaderValue scans the payload headers for a name, case-insensitively.
func HeaderValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// InternalTime converts the provider's internal date (ms since epoch).
func InternalTime(msg *gmail.Message) time.Time {
	if msg.InternalDate == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(msg.InternalDate).UTC()
}
