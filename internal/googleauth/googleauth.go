package googleauth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/yourusername/mailagent/internal/config"
	"github.com/yourusername/mailagent/internal/models"
	"github.com/yourusername/mailagent/internal/vault"
)

// Keys of the encrypted credential map. The blob always carries the
// full set; a refresh rewrites all of it.
const (
	keyClientID     = "client_id"
	keyClientSecret = "client_secret"
	keyRefreshToken = "refresh_token"
	keyAccessToken  = "token"
	keyExpiry       = "expiry" // RFC 3339
)

// NotAuthorizedError means the account has no usable Gmail credential:
// none stored, expired without a refresh token, or the refresh was
// rejected. User action (re-running the OAuth flow) is required; the
// caller must not retry.
type NotAuthorizedError struct {
	Reason string
}

func (e *NotAuthorizedError) Error() string {
	return "gmail not authorized: " + e.Reason
}

// CredentialStore persists the encrypted credential blob. A nil blob
// clears the link.
type CredentialStore interface {
	UpdateAccountCredentials(id string, blob *string) error
}

// Manager owns the OAuth token lifecycle for linked Gmail accounts.
type Manager struct {
	cfg    config.GoogleConfig
	vault  *vault.Vault
	store  CredentialStore
	logger *zap.Logger

	// Endpoint is Google's token endpoint; tests point it at a fake.
	Endpoint oauth2.Endpoint
}

func NewManager(cfg config.GoogleConfig, v *vault.Vault, store CredentialStore, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		vault:    v,
		store:    store,
		logger:   logger,
		Endpoint: google.Endpoint,
	}
}

func (m *Manager) oauthConfig(clientID, clientSecret string) *oauth2.Config {
	if clientID == "" {
		clientID = m.cfg.ClientID
	}
	if clientSecret == "" {
		clientSecret = m.cfg.ClientSecret
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  m.cfg.RedirectURL,
		Scopes:       m.cfg.Scopes,
		Endpoint:     m.Endpoint,
	}
}

// AuthURL builds the Google consent URL for the redirect flow. The
// account id rides along as the state parameter so the callback can
// attribute the grant.
func (m *Manager) AuthURL(accountID string) (string, error) {
	if m.cfg.ClientID == "" {
		return "", fmt.Errorf("google oauth client is not configured")
	}
	conf := m.oauthConfig("", "")
	url := conf.AuthCodeURL(accountID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	return url, nil
}

// Exchange trades an authorization code for a token set.
func (m *Manager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return m.oauthConfig("", "").Exchange(ctx, code)
}

// StoreToken encrypts and persists a freshly exchanged token set for
// the account.
func (m *Manager) StoreToken(account *models.Account, tok *oauth2.Token) error {
	secret := map[string]string{
		keyClientID:     m.cfg.ClientID,
		keyClientSecret: m.cfg.ClientSecret,
		keyRefreshToken: tok.RefreshToken,
		keyAccessToken:  tok.AccessToken,
	}
	if !tok.Expiry.IsZero() {
		secret[keyExpiry] = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return m.persist(account, secret)
}

// StoreClientCredentials links a mailbox from caller-supplied OAuth
// client data (the direct credential endpoint). No access token is
// stored; the first use goes through the refresh path.
func (m *Manager) StoreClientCredentials(account *models.Account, clientID, clientSecret, refreshToken string) error {
	secret := map[string]string{
		keyClientID:     clientID,
		keyClientSecret: clientSecret,
		keyRefreshToken: refreshToken,
	}
	return m.persist(account, secret)
}

func (m *Manager) persist(account *models.Account, secret map[string]string) error {
	blob, err := m.vault.Encrypt(secret)
	if err != nil {
		return err
	}
	if err := m.store.UpdateAccountCredentials(account.ID, &blob); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	account.EncryptedCredentials = &blob
	return nil
}

// Token produces a usable access token for the account.
//
// State machine over the stored blob:
//   - nothing stored                      -> NotAuthorizedError
//   - access token unexpired              -> returned as-is
//   - expired, refresh token present      -> one refresh attempt;
//     success re-encrypts and persists the updated set,
//     failure clears the blob and returns NotAuthorizedError
//   - expired, no refresh token           -> NotAuthorizedError
//
// Vault failures propagate as *vault.CryptoError and are fatal.
func (m *Manager) Token(ctx context.Context, account *models.Account) (*oauth2.Token, error) {
	if account.EncryptedCredentials == nil || *account.EncryptedCredentials == "" {
		return nil, &NotAuthorizedError{Reason: "no Gmail credentials linked; complete the authorization flow first"}
	}

	secret, err := m.vault.Decrypt(*account.EncryptedCredentials)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{
		AccessToken:  secret[keyAccessToken],
		RefreshToken: secret[keyRefreshToken],
		TokenType:    "Bearer",
	}
	if v := secret[keyExpiry]; v != "" {
		if t, perr := time.Parse(time.RFC3339, v); perr == nil {
			tok.Expiry = t
		}
	}

	// A token with no recorded expiry is treated as expired rather
	// than trusted indefinitely.
	if tok.AccessToken != "" && !tok.Expiry.IsZero() && time.Now().Before(tok.Expiry) {
		return tok, nil
	}

	if tok.RefreshToken == "" {
		return nil, &NotAuthorizedError{Reason: "access token expired and no refresh token is stored"}
	}

	conf := m.oauthConfig(secret[keyClientID], secret[keyClientSecret])
	refreshed, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		// Revoked or invalid grant: clear the blob so the caller
		// knows re-authorization is required instead of retrying.
		if clearErr := m.store.UpdateAccountCredentials(account.ID, nil); clearErr != nil {
			m.logger.Error("clearing revoked credentials failed",
				zap.String("account_id", account.ID), zap.Error(clearErr))
		}
		account.EncryptedCredentials = nil
		m.logger.Warn("token refresh rejected",
			zap.String("account_id", account.ID), zap.Error(err))
		return nil, &NotAuthorizedError{Reason: fmt.Sprintf("token refresh failed: %v", err)}
	}

	secret[keyAccessToken] = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		secret[keyRefreshToken] = refreshed.RefreshToken
	}
	if !refreshed.Expiry.IsZero() {
		secret[keyExpiry] = refreshed.Expiry.UTC().Format(time.RFC3339)
	}
	if err := m.persist(account, secret); err != nil {
		return nil, err
	}

	m.logger.Info("access token refreshed", zap.String("account_id", account.ID))
	return refreshed, nil
}
