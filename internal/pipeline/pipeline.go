package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/yourusername/mailagent/internal/forward"
	"github.com/yourusername/mailagent/internal/gmailbox"
	"github.com/yourusername/mailagent/internal/googleauth"
	"github.com/yourusername/mailagent/internal/llm"
	"github.com/yourusername/mailagent/internal/models"
	"github.com/yourusername/mailagent/internal/storage"
	"github.com/yourusername/mailagent/internal/utils"
)

// Pipeline sequences one pass over an account's unread messages:
// fetch, decode, persist, generate, dispatch, mark read.
//
// An account with a forward URL gets summarize-and-forward; one
// without gets reply-in-thread. A single message's failure is logged
// and the run continues; only an authorization or mailbox-listing
// failure aborts the whole run.
type Pipeline struct {
	store     *storage.Database
	tokens    *googleauth.Manager
	generator *llm.Client
	forwarder *forward.Forwarder
	logger    *zap.Logger
	gmailOpts []option.ClientOption
}

func New(store *storage.Database, tokens *googleauth.Manager, generator *llm.Client,
	forwarder *forward.Forwarder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		tokens:    tokens,
		generator: generator,
		forwarder: forwarder,
		logger:    logger,
	}
}

// SetGmailOptions adds client options for every Gmail connection the
// pipeline opens. Tests use it to point at a fake endpoint.
func (p *Pipeline) SetGmailOptions(opts ...option.ClientOption) {
	p.gmailOpts = opts
}

// Run processes every message unread at the time of the snapshot and
// returns how many were processed. Partial progress survives a failed
// run: each persistence step commits on its own.
func (p *Pipeline) Run(ctx context.Context, account *models.Account) (int, error) {
	tok, err := p.tokens.Token(ctx, account)
	if err != nil {
		return 0, err
	}

	box, err := gmailbox.NewClient(ctx, oauth2.StaticTokenSource(tok), p.logger, p.gmailOpts...)
	if err != nil {
		return 0, err
	}

	ids, err := box.ListUnread(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		p.logger.Info("no unread messages", zap.String("account_id", account.ID))
		return 0, nil
	}

	processed := 0
	for _, id := range ids {
		if err := p.processMessage(ctx, account, box, id); err != nil {
			p.logger.Error("message processing failed",
				zap.String("account_id", account.ID),
				zap.String("gmail_message_id", id),
				zap.Error(err))
			continue
		}
		processed++
	}

	p.logger.Info("run finished",
		zap.String("account_id", account.ID),
		zap.Int("unread", len(ids)),
		zap.Int("processed", processed))
	return processed, nil
}

func (p *Pipeline) processMessage(ctx context.Context, account *models.Account, box *gmailbox.Client, id string) error {
	msg, err := box.Fetch(ctx, id)
	if err != nil {
		return err
	}

	sender := gmailbox.HeaderValue(msg.Payload, "From")
	if sender == "" {
		sender = "Unknown"
	}
	subject := gmailbox.HeaderValue(msg.Payload, "Subject")
	if subject == "" {
		subject = "No Subject"
	}
	body := gmailbox.DecodeBody(msg.Payload)

	rec, created, err := p.store.GetOrCreateReceivedEmail(models.ReceivedEmail{
		ID:             uuid.New().String(),
		GmailMessageID: msg.Id,
		AccountID:      account.ID,
		Sender:         sender,
		Subject:        subject,
		Body:           body,
		ReceivedAt:     gmailbox.InternalTime(msg),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !created {
		p.logger.Info("message already stored, reprocessing",
			zap.String("gmail_message_id", msg.Id))
	}

	if account.ForwardURL != "" {
		p.summarizeAndForward(ctx, account, rec)
	} else {
		p.replyInThread(ctx, box, msg, rec)
	}

	// Last step. A failure here must not roll back anything above;
	// it only risks reprocessing the message on the next run.
	if err := box.MarkRead(ctx, msg.Id); err != nil {
		p.logger.Warn("mark read failed",
			zap.String("gmail_message_id", msg.Id), zap.Error(err))
	}
	return nil
}

func (p *Pipeline) summarizeAndForward(ctx context.Context, account *models.Account, rec models.ReceivedEmail) {
	text := p.generator.GenerateSummary(ctx, rec.Body, rec.Sender, rec.Subject)
	if text == "" {
		p.logger.Info("no summary generated, skipping forward",
			zap.String("gmail_message_id", rec.GmailMessageID))
		return
	}

	summary := models.EmailSummary{
		ID:              uuid.New().String(),
		ReceivedEmailID: rec.ID,
		SummaryText:     text,
		ForwardURL:      account.ForwardURL,
		ForwardStatus:   models.ForwardStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := p.store.CreateEmailSummary(summary); err != nil {
		p.logger.Error("persist summary failed",
			zap.String("gmail_message_id", rec.GmailMessageID), zap.Error(err))
		return
	}

	status, message := p.forwarder.Forward(ctx, forward.Payload{
		GmailMessageID: rec.GmailMessageID,
		Sender:         rec.Sender,
		Subject:        rec.Subject,
		Summary:        text,
		ReceivedAt:     rec.ReceivedAt,
	}, account.ForwardURL)

	if err := p.store.UpdateSummaryStatus(summary.ID, status, &message); err != nil {
		p.logger.Error("persist summary status failed",
			zap.String("summary_id", summary.ID), zap.Error(err))
	}
}

func (p *Pipeline) replyInThread(ctx context.Context, box *gmailbox.Client, msg *gmail.Message, rec models.ReceivedEmail) {
	text := p.generator.GenerateReply(ctx, rec.Body, rec.Sender, rec.Subject)
	if text == "" {
		p.logger.Info("no reply generated, leaving message unanswered",
			zap.String("gmail_message_id", rec.GmailMessageID))
		return
	}
	to := utils.ExtractAddress(rec.Sender)
	if err := box.SendReply(ctx, to, rec.Subject, text, msg.ThreadId); err != nil {
		p.logger.Error("send reply failed",
			zap.String("gmail_message_id", rec.GmailMessageID), zap.Error(err))
	}
}

// SendEmail sends a one-off message from the account's mailbox and
// records its lifecycle as an OutgoingEmail row. Provider rejections
// are persisted on the row and returned to the caller.
func (p *Pipeline) SendEmail(ctx context.Context, account *models.Account, to, subject, body string) (models.OutgoingEmail, error) {
	tok, err := p.tokens.Token(ctx, account)
	if err != nil {
		return models.OutgoingEmail{}, err
	}
	box, err := gmailbox.NewClient(ctx, oauth2.StaticTokenSource(tok), p.logger, p.gmailOpts...)
	if err != nil {
		return models.OutgoingEmail{}, err
	}

	out := models.OutgoingEmail{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Status:    models.OutgoingStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.CreateOutgoingEmail(out); err != nil {
		return models.OutgoingEmail{}, err
	}

	if _, err := box.SendNew(ctx, to, subject, body); err != nil {
		if dbErr := p.store.MarkOutgoingFailed(out.ID, err.Error()); dbErr != nil {
			p.logger.Error("persist send failure", zap.String("outgoing_id", out.ID), zap.Error(dbErr))
		}
		out.Status = models.OutgoingStatusFailed
		return out, err
	}

	sentAt := time.Now().UTC()
	if err := p.store.MarkOutgoingSent(out.ID, sentAt); err != nil {
		p.logger.Error("persist send success", zap.String("outgoing_id", out.ID), zap.Error(err))
	}
	out.Status = models.OutgoingStatusSent
	out.SentAt = &sentAt
	return out, nil
}
