package models

import (
	"time"
)

// Forward status of an email summary. Transitions only
// pending -> success or pending -> failed.
const (
	ForwardStatusPending = "pending"
	ForwardStatusSuccess = "success"
	ForwardStatusFailed  = "failed"
)

// Lifecycle status of an outgoing email.
const (
	OutgoingStatusDraft  = "draft"
	OutgoingStatusQueued = "queued"
	OutgoingStatusSent   = "sent"
	OutgoingStatusFailed = "failed"
)

// Account represents a registered agent owning one Gmail connection.
// EncryptedCredentials is a Fernet token holding the OAuth client id,
// client secret and refresh token; nil means no mailbox is linked.
type Account struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Email                string    `db:"email" json:"email"`
	PasswordHash         string    `db:"password_hash" json:"-"`
	EncryptedCredentials *string   `db:"encrypted_credentials" json:"-"`
	ForwardURL           string    `db:"forward_url" json:"forward_url,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// ReceivedEmail is one row per distinct Gmail message id. The provider
// message id is the idempotency key for re-processing a mailbox.
type ReceivedEmail struct {
	ID             string    `db:"id" json:"id"`
	GmailMessageID string    `db:"gmail_message_id" json:"gmail_message_id"`
	AccountID      string    `db:"account_id" json:"account_id"`
	Sender         string    `db:"sender" json:"sender"`
	Subject        string    `db:"subject" json:"subject"`
	Body           string    `db:"body" json:"body"`
	ReceivedAt     time.Time `db:"received_at" json:"received_at"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EmailSummary holds the generated text for a received email and the
// outcome of forwarding it to the configured webhook.
type EmailSummary struct {
	ID              string    `db:"id" json:"id"`
	ReceivedEmailID string    `db:"received_email_id" json:"received_email_id"`
	SummaryText     string    `db:"summary_text" json:"summary_text"`
	ForwardURL      string    `db:"forward_url" json:"forward_url"`
	ForwardStatus   string    `db:"forward_status" json:"forward_status"`
	StatusMessage   *string   `db:"status_message" json:"status_message,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// OutgoingEmail tracks a send-email lifecycle through the Gmail API.
type OutgoingEmail struct {
	ID           string     `db:"id" json:"id"`
	AccountID    string     `db:"account_id" json:"account_id"`
	Recipient    string     `db:"recipient" json:"recipient"`
	Subject      string     `db:"subject" json:"subject"`
	Body         string     `db:"body" json:"body"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
}
