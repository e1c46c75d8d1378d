package api

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/mailagent/internal/app"
	"github.com/yourusername/mailagent/internal/gmailbox"
	"github.com/yourusername/mailagent/internal/googleauth"
	"github.com/yourusername/mailagent/internal/models"
)

/* ----------------------------------------------------------------
   DTO types
-----------------------------------------------------------------*/

type AgentRegistration struct {
	Email      string `json:"email"    binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Name       string `json:"name"     binding:"required"`
	ForwardURL string `json:"forward_url,omitempty"`
}

type AgentLogin struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GmailCredentialsUpdate struct {
	ClientID     string `json:"client_id"     binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SendEmailRequest struct {
	To      string `json:"to"      binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body"    binding:"required"`
}

/* ================================================================
   AGENT AUTHENTICATION
================================================================ */

func handleRegister(a *app.App, c *gin.Context) {
	var in AgentRegistration
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	cnt, err := a.Store().CountAccountsByEmail(in.Email)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error"})
		return
	}
	if cnt > 0 {
		c.JSON(400, gin.H{"error": "Email already registered"})
		return
	}

	hash, err := a.Auth().HashPassword(in.Password)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to hash password"})
		return
	}

	forwardURL := in.ForwardURL
	if forwardURL == "" {
		forwardURL = a.GetConfig().DefaultForwardURL
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		ForwardURL:   forwardURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Store().CreateAccount(account); err != nil {
		c.JSON(500, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(201, gin.H{
		"id":          account.ID,
		"email":       account.Email,
		"name":        account.Name,
		"forward_url": account.ForwardURL,
	})
}

func handleLogin(a *app.App, c *gin.Context) {
	var in AgentLogin
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	account, err := a.Store().GetAccountByEmail(in.Email)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid credentials"})
		return
	}
	if a.Auth().CheckPassword(in.Password, account.PasswordHash) != nil {
		c.JSON(401, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := a.Auth().GenerateToken(account)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(200, gin.H{"token": token})
}

/* ================================================================
   GMAIL AUTHORIZATION
================================================================ */

func handleGoogleAuthorize(a *app.App, c *gin.Context) {
	id, ok := requireOwnAccount(c)
	if !ok {
		return
	}
	if _, err := a.Store().GetAccountByID(id); err != nil {
		c.JSON(404, gin.H{"error": "Agent not found"})
		return
	}

	url, err := a.Tokens().AuthURL(id)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to create authorization flow"})
		return
	}
	c.JSON(200, gin.H{"authorization_url": url})
}

func handleGoogleCallback(a *app.App, c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(401, gin.H{"error": "Authorization was denied: " + errParam})
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		c.JSON(400, gin.H{"error": "Missing 'code' or 'state' parameter"})
		return
	}

	account, err := a.Store().GetAccountByID(state)
	if err != nil {
		c.JSON(404, gin.H{"error": "Agent not found"})
		return
	}

	tok, err := a.Tokens().Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to exchange code for token"})
		return
	}
	if err := a.Tokens().StoreToken(&account, tok); err != nil {
		c.JSON(500, gin.H{"error": "Failed to store credentials"})
		return
	}

	html := fmt.Sprintf(
		"<html><body><h1>Authorization Complete</h1>"+
			"<p>The agent <strong>%s</strong> has been authorized successfully.</p>"+
			"</body></html>", account.Email)
	c.Data(200, "text/html; charset=utf-8", []byte(html))
}

func handleUpdateGmailCredentials(a *app.App, c *gin.Context) {
	id, ok := requireOwnAccount(c)
	if !ok {
		return
	}

	var in GmailCredentialsUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	account, err := a.Store().GetAccountByID(id)
	if err != nil {
		c.JSON(404, gin.H{"error": "Agent not found"})
		return
	}

	if err := a.Tokens().StoreClientCredentials(&account, in.ClientID, in.ClientSecret, in.RefreshToken); err != nil {
		c.JSON(500, gin.H{"error": "Failed to store credentials"})
		return
	}
	c.JSON(200, gin.H{"message": "Gmail credentials linked"})
}

/* ================================================================
   EMAIL PROCESSING
================================================================ */

func handleProcessEmails(a *app.App, c *gin.Context) {
	id, ok := requireOwnAccount(c)
	if !ok {
		return
	}

	account, err := a.Store().GetAccountByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(404, gin.H{"error": "Agent not found"})
		} else {
			c.JSON(500, gin.H{"error": "Database error"})
		}
		return
	}

	count, err := a.Pipeline().Run(c.Request.Context(), &account)
	if err != nil {
		c.JSON(runErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"message":          fmt.Sprintf("Processing complete. %d emails were processed.", count),
		"processed_emails": count,
	})
}

func handleSendEmail(a *app.App, c *gin.Context) {
	id, ok := requireOwnAccount(c)
	if !ok {
		return
	}

	var in SendEmailRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	account, err := a.Store().GetAccountByID(id)
	if err != nil {
		c.JSON(404, gin.H{"error": "Agent not found"})
		return
	}

	out, err := a.Pipeline().SendEmail(c.Request.Context(), &account, in.To, in.Subject, in.Body)
	if err != nil {
		c.JSON(runErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(202, gin.H{
		"message": fmt.Sprintf("Email to %s was accepted for delivery.", in.To),
		"email":   out,
	})
}

// runErrorStatus maps pipeline failures onto HTTP statuses: 401 when
// the user must re-authorize, 503 when the provider is unreachable,
// 500 otherwise (including vault integrity violations).
func runErrorStatus(err error) int {
	var notAuthorized *googleauth.NotAuthorizedError
	if errors.As(err, &notAuthorized) {
		return 401
	}
	var provider *gmailbox.ProviderError
	if errors.As(err, &provider) {
		return 503
	}
	return 500
}
