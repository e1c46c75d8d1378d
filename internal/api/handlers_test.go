package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"github.com/yourusername/mailagent/internal/app"
	"github.com/yourusername/mailagent/internal/config"
	"github.com/yourusername/mailagent/internal/db"
)

func newTestApp(t *testing.T) (*app.App, *gin.Engine) {
	t.Helper()

	conn, err := sqlx.Connect("sqlite3", ":memory:")
	be.Err(t, err, nil)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	be.Err(t, db.Migrate(conn), nil)

	var key fernet.Key
	be.Err(t, key.Generate(), nil)

	cfg := config.Config{
		JWTSecret:     "test-jwt-secret",
		EncryptionKey: key.Encode(),
		Google: config.GoogleConfig{
			ClientID:     "cid",
			ClientSecret: "csec",
			RedirectURL:  "http://localhost/api/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.modify"},
		},
	}

	a, err := app.New(cfg, conn, zap.NewNop())
	be.Err(t, err, nil)
	return a, SetupRouter(a)
}

func doJSON(r *gin.Engine, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	be.Err(t, json.Unmarshal(w.Body.Bytes(), &out), nil)
	return out
}

// registerAndLogin creates an account through the API and returns its
// id and a bearer token.
func registerAndLogin(t *testing.T, r *gin.Engine, email string) (id, token string) {
	t.Helper()

	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    email,
		"password": "secret123",
		"name":     "Agent",
	})
	be.Equal(t, w.Code, 201)
	id = decodeBody(t, w)["id"].(string)

	w = doJSON(r, http.MethodPost, "/api/login", "", gin.H{
		"email":    email,
		"password": "secret123",
	})
	be.Equal(t, w.Code, 200)
	token = decodeBody(t, w)["token"].(string)
	return id, token
}

func TestHealth(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodGet, "/health", "", nil)
	be.Equal(t, w.Code, 200)
}

func TestRegister(t *testing.T) {
	_, r := newTestApp(t)

	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":       "agent@example.com",
		"password":    "secret123",
		"name":        "Agent",
		"forward_url": "https://hooks.example.com/in",
	})
	be.Equal(t, w.Code, 201)
	body := decodeBody(t, w)
	be.True(t, body["id"].(string) != "")
	be.Equal(t, body["email"], "agent@example.com")
	be.Equal(t, body["forward_url"], "https://hooks.example.com/in")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, r := newTestApp(t)
	registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    "agent@example.com",
		"password": "secret123",
		"name":     "Other",
	})
	be.Equal(t, w.Code, 400)
}

func TestRegisterValidation(t *testing.T) {
	_, r := newTestApp(t)

	// short password
	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    "agent@example.com",
		"password": "short",
		"name":     "Agent",
	})
	be.Equal(t, w.Code, 400)

	// bad email
	w = doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    "not-an-email",
		"password": "secret123",
		"name":     "Agent",
	})
	be.Equal(t, w.Code, 400)
}

func TestLoginWrongPassword(t *testing.T) {
	_, r := newTestApp(t)
	registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "agent@example.com",
		"password": "wrong-password",
	})
	be.Equal(t, w.Code, 401)
}

func TestLoginUnknownAccount(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	be.Equal(t, w.Code, 401)
}

func TestProtectedRequiresToken(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodPost, "/api/agents/some-id/process-emails", "", nil)
	be.Equal(t, w.Code, 401)
}

func TestProtectedRejectsGarbageToken(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodPost, "/api/agents/some-id/process-emails", "not-a-jwt", nil)
	be.Equal(t, w.Code, 401)
}

func TestProtectedRejectsOtherAccount(t *testing.T) {
	_, r := newTestApp(t)
	_, token := registerAndLogin(t, r, "agent@example.com")
	otherID, _ := registerAndLogin(t, r, "other@example.com")

	w := doJSON(r, http.MethodPost, "/api/agents/"+otherID+"/process-emails", token, nil)
	be.Equal(t, w.Code, 403)
}

func TestGoogleAuthorize(t *testing.T) {
	_, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodGet, "/api/agents/"+id+"/authorize/google", token, nil)
	be.Equal(t, w.Code, 200)
	url := decodeBody(t, w)["authorization_url"].(string)
	be.True(t, strings.Contains(url, "state="+id))
}

func TestGoogleCallbackMissingParams(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodGet, "/api/auth/google/callback", "", nil)
	be.Equal(t, w.Code, 400)
}

func TestGoogleCallbackDenied(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodGet, "/api/auth/google/callback?error=access_denied", "", nil)
	be.Equal(t, w.Code, 401)
}

func TestGoogleCallbackUnknownAgent(t *testing.T) {
	_, r := newTestApp(t)
	w := doJSON(r, http.MethodGet, "/api/auth/google/callback?code=abc&state=missing-id", "", nil)
	be.Equal(t, w.Code, 404)
}

func TestUpdateGmailCredentials(t *testing.T) {
	a, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPut, "/api/agents/"+id+"/gmail-credentials", token, gin.H{
		"client_id":     "cid",
		"client_secret": "csec",
		"refresh_token": "1//refresh",
	})
	be.Equal(t, w.Code, 200)

	account, err := a.Store().GetAccountByID(id)
	be.Err(t, err, nil)
	be.True(t, account.EncryptedCredentials != nil)
	// the stored blob is ciphertext, not the raw secret
	be.True(t, !strings.Contains(*account.EncryptedCredentials, "1//refresh"))
}

func TestUpdateGmailCredentialsValidation(t *testing.T) {
	_, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPut, "/api/agents/"+id+"/gmail-credentials", token, gin.H{
		"client_id": "cid",
	})
	be.Equal(t, w.Code, 400)
}

func TestProcessEmailsWithoutCredentials(t *testing.T) {
	_, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPost, "/api/agents/"+id+"/process-emails", token, nil)
	be.Equal(t, w.Code, 401)
	body := decodeBody(t, w)
	be.True(t, strings.Contains(body["error"].(string), "not authorized"))
}

func TestSendEmailWithoutCredentials(t *testing.T) {
	_, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPost, "/api/agents/"+id+"/emails/send", token, gin.H{
		"to":      "c@d.com",
		"subject": "Hello",
		"body":    "Hi there",
	})
	be.Equal(t, w.Code, 401)
}

func TestSendEmailValidation(t *testing.T) {
	_, r := newTestApp(t)
	id, token := registerAndLogin(t, r, "agent@example.com")

	w := doJSON(r, http.MethodPost, "/api/agents/"+id+"/emails/send", token, gin.H{
		"to": "not-an-email",
	})
	be.Equal(t, w.Code, 400)
}
