package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/mailagent/internal/app"
)

// SetupRouter wires every HTTP endpoint, using thin closure wrappers
// so each handler receives the running *app.App instance.
func SetupRouter(a *app.App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "OK"}) })

	/* ---------- public endpoints ---------- */
	r.POST("/api/register", func(c *gin.Context) { handleRegister(a, c) })
	r.POST("/api/login", func(c *gin.Context) { handleLogin(a, c) })
	r.GET("/api/auth/google/callback",
		func(c *gin.Context) { handleGoogleCallback(a, c) })

	/* ---------- protected endpoints ---------- */
	api := r.Group("/api")
	api.Use(authMiddleware(a))
	{
		api.GET("/agents/:id/authorize/google",
			func(c *gin.Context) { handleGoogleAuthorize(a, c) })
		api.PUT("/agents/:id/gmail-credentials",
			func(c *gin.Context) { handleUpdateGmailCredentials(a, c) })
		api.POST("/agents/:id/process-emails",
			func(c *gin.Context) { handleProcessEmails(a, c) })
		api.POST("/agents/:id/emails/send",
			func(c *gin.Context) { handleSendEmail(a, c) })
	}

	return r
}
