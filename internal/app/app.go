package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourusername/mailagent/internal/auth"
	"github.com/yourusername/mailagent/internal/config"
	"github.com/yourusername/mailagent/internal/db"
	"github.com/yourusername/mailagent/internal/forward"
	"github.com/yourusername/mailagent/internal/googleauth"
	"github.com/yourusername/mailagent/internal/llm"
	"github.com/yourusername/mailagent/internal/pipeline"
	"github.com/yourusername/mailagent/internal/storage"
	"github.com/yourusername/mailagent/internal/vault"
)

/* ------------------------------------------------------------------
   App struct — runtime container
-------------------------------------------------------------------*/

type App struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sqlx.DB

	store  *storage.Database
	vault  *vault.Vault
	auth   *auth.Service
	tokens *googleauth.Manager
	pipe   *pipeline.Pipeline
}

/* ------------------------------------------------------------------
   Public getters (used by the api layer)
-------------------------------------------------------------------*/

func (a *App) GetConfig() config.Config          { return a.cfg }
func (a *App) Logger() *zap.Logger               { return a.logger }
func (a *App) Store() *storage.Database          { return a.store }
func (a *App) Auth() *auth.Service               { return a.auth }
func (a *App) Tokens() *googleauth.Manager       { return a.tokens }
func (a *App) Pipeline() *pipeline.Pipeline      { return a.pipe }

/* ------------------------------------------------------------------
   Construction / lifecycle
-------------------------------------------------------------------*/

// New wires the services around an already-open database connection.
// Tests use it directly with an in-memory database.
func New(cfg config.Config, conn *sqlx.DB, logger *zap.Logger) (*App, error) {
	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		db:     conn,
		store:  storage.NewDatabase(conn),
		vault:  v,
		auth:   auth.NewService(cfg.JWTSecret),
	}
	a.tokens = googleauth.NewManager(cfg.Google, v, a.store, logger)
	a.pipe = pipeline.New(
		a.store,
		a.tokens,
		llm.NewClient(cfg.Gemini, logger),
		forward.New(logger),
		logger,
	)
	return a, nil
}

// Init loads config, opens logging and the database, runs migrations
// and wires the services. The zero-value App is ready for Init.
func (a *App) Init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dsn := db.DSN(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, cfg.DB.SSLMode)
	conn, err := db.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		return err
	}

	built, err := New(cfg, conn, logger)
	if err != nil {
		return err
	}
	*a = *built
	return nil
}

func (a *App) Close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
