package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/mailagent/internal/models"
)

// Database provides database operations for the application
type Database struct {
	db *sqlx.DB
}

// NewDatabase wraps an open connection
func NewDatabase(db *sqlx.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying database connection
func (d *Database) GetDB() *sqlx.DB {
	return d.db
}

// Account related methods

// CreateAccount creates a new account
func (d *Database) CreateAccount(account models.Account) error {
	_, err := d.db.Exec(`
		INSERT INTO accounts (id, name, email, password_hash, encrypted_credentials, forward_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.ID, account.Name, account.Email, account.PasswordHash,
		account.EncryptedCredentials, account.ForwardURL, account.CreatedAt, account.UpdatedAt)

	return err
}

// GetAccountByEmail gets an account by email
func (d *Database) GetAccountByEmail(email string) (models.Account, error) {
	var account models.Account
	err := d.db.Get(&account, "SELECT * FROM accounts WHERE email = $1", email)
	return account, err
}

// GetAccountByID gets an account by ID
func (d *Database) GetAccountByID(id string) (models.Account, error) {
	var account models.Account
	err := d.db.Get(&account, "SELECT * FROM accounts WHERE id = $1", id)
	return account, err
}

// CountAccountsByEmail reports how many accounts use the given email
func (d *Database) CountAccountsByEmail(email string) (int, error) {
	var cnt int
	err := d.db.Get(&cnt, "SELECT COUNT(*) FROM accounts WHERE email = $1", email)
	return cnt, err
}

// UpdateAccountCredentials replaces the stored credential blob.
// A nil blob clears the Gmail link (revocation).
func (d *Database) UpdateAccountCredentials(id string, blob *string) error {
	_, err := d.db.Exec(`
		UPDATE accounts SET encrypted_credentials = $1, updated_at = $2 WHERE id = $3
	`, blob, time.Now().UTC(), id)
	return err
}

// UpdateAccountForwardURL sets the webhook the account's summaries go to
func (d *Database) UpdateAccountForwardURL(id, url string) error {
	_, err := d.db.Exec(`
		UPDATE accounts SET forward_url = $1, updated_at = $2 WHERE id = $3
	`, url, time.Now().UTC(), id)
	return err
}

// Received email related methods

// GetReceivedEmailByGmailID gets a received email by its provider message id
func (d *Database) GetReceivedEmailByGmailID(gmailMessageID string) (models.ReceivedEmail, error) {
	var email models.ReceivedEmail
	err := d.db.Get(&email, "SELECT * FROM received_emails WHERE gmail_message_id = $1", gmailMessageID)
	return email, err
}

// GetOrCreateReceivedEmail inserts the email unless a row with the same
// gmail_message_id exists, in which case the existing row is returned.
// The second return value reports whether a row was created.
func (d *Database) GetOrCreateReceivedEmail(email models.ReceivedEmail) (models.ReceivedEmail, bool, error) {
	existing, err := d.GetReceivedEmailByGmailID(email.GmailMessageID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ReceivedEmail{}, false, err
	}

	_, err = d.db.Exec(`
		INSERT INTO received_emails (id, gmail_message_id, account_id, sender, subject, body, received_at, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, email.ID, email.GmailMessageID, email.AccountID, email.Sender,
		email.Subject, email.Body, email.ReceivedAt, email.IsRead, email.CreatedAt)
	if err != nil {
		return models.ReceivedEmail{}, false, err
	}
	return email, true, nil
}

// ListReceivedEmailsByAccount lists stored emails for an account, newest first
func (d *Database) ListReceivedEmailsByAccount(accountID string) ([]models.ReceivedEmail, error) {
	var emails []models.ReceivedEmail
	err := d.db.Select(&emails,
		"SELECT * FROM received_emails WHERE account_id = $1 ORDER BY received_at DESC", accountID)
	return emails, err
}

// Summary related methods

// CreateEmailSummary creates a new summary row, status pending
func (d *Database) CreateEmailSummary(summary models.EmailSummary) error {
	_, err := d.db.Exec(`
		INSERT INTO email_summaries (id, received_email_id, summary_text, forward_url, forward_status, status_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, summary.ID, summary.ReceivedEmailID, summary.SummaryText, summary.ForwardURL,
		summary.ForwardStatus, summary.StatusMessage, summary.CreatedAt)
	return err
}

// GetEmailSummaryByID gets a summary by ID
func (d *Database) GetEmailSummaryByID(id string) (models.EmailSummary, error) {
	var summary models.EmailSummary
	err := d.db.Get(&summary, "SELECT * FROM email_summaries WHERE id = $1", id)
	return summary, err
}

// ListSummariesByReceivedEmail lists summaries tied to a received email
func (d *Database) ListSummariesByReceivedEmail(receivedEmailID string) ([]models.EmailSummary, error) {
	var summaries []models.EmailSummary
	err := d.db.Select(&summaries,
		"SELECT * FROM email_summaries WHERE received_email_id = $1 ORDER BY created_at", receivedEmailID)
	return summaries, err
}

// UpdateSummaryStatus records the delivery outcome of a forwarding attempt
func (d *Database) UpdateSummaryStatus(id, status string, message *string) error {
	_, err := d.db.Exec(`
		UPDATE email_summaries SET forward_status = $1, status_message = $2 WHERE id = $3
	`, status, message, id)
	return err
}

// Outgoing email related methods

// CreateOutgoingEmail creates a new outgoing email row
func (d *Database) CreateOutgoingEmail(email models.OutgoingEmail) error {
	_, err := d.db.Exec(`
		INSERT INTO outgoing_emails (id, account_id, recipient, subject, body, status, created_at, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, email.ID, email.AccountID, email.Recipient, email.Subject, email.Body,
		email.Status, email.CreatedAt, email.SentAt, email.ErrorMessage)
	return err
}

// GetOutgoingEmailByID gets an outgoing email by ID
func (d *Database) GetOutgoingEmailByID(id string) (models.OutgoingEmail, error) {
	var email models.OutgoingEmail
	err := d.db.Get(&email, "SELECT * FROM outgoing_emails WHERE id = $1", id)
	return email, err
}

// MarkOutgoingSent records a successful send
func (d *Database) MarkOutgoingSent(id string, sentAt time.Time) error {
	_, err := d.db.Exec(`
		UPDATE outgoing_emails SET status = $1, sent_at = $2, error_message = NULL WHERE id = $3
	`, models.OutgoingStatusSent, sentAt, id)
	return err
}

// MarkOutgoingFailed records a rejected send
func (d *Database) MarkOutgoingFailed(id, errorMessage string) error {
	_, err := d.db.Exec(`
		UPDATE outgoing_emails SET status = $1, error_message = $2 WHERE id = $3
	`, models.OutgoingStatusFailed, errorMessage, id)
	return err
}
