package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Host, User, Password, DBName, SSLMode string
	Port                                  int
}

// GoogleConfig holds the OAuth client used for the Gmail redirect flow.
type GoogleConfig struct {
	ClientID, ClientSecret, RedirectURL string
	Scopes                              []string
}

// GeminiConfig holds the LLM endpoint settings.
type GeminiConfig struct {
	APIKey, Model, Endpoint string
}

type Config struct {
	WebHost, JWTSecret, EncryptionKey, DefaultForwardURL string
	WebPort                                              int
	DB                                                   DBConfig
	Google                                               GoogleConfig
	Gemini                                               GeminiConfig
}

func Load() (Config, error) {

	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("google.scopes", []string{"https://www.googleapis.com/auth/gmail.modify"})
	viper.SetDefault("gemini.model", "gemini-1.5-flash")
	viper.SetDefault("gemini.endpoint", "https://generativelanguage.googleapis.com")

	_ = viper.ReadInConfig() // ignore missing config file

	c := Config{
		WebHost:           viper.GetString("web.host"),
		WebPort:           viper.GetInt("web.port"),
		JWTSecret:         viper.GetString("jwt_secret"),
		EncryptionKey:     viper.GetString("encryption_key"),
		DefaultForwardURL: viper.GetString("default_forward_url"),
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
		Google: GoogleConfig{
			ClientID:     viper.GetString("google.client_id"),
			ClientSecret: viper.GetString("google.client_secret"),
			RedirectURL:  viper.GetString("google.redirect_url"),
			Scopes:       viper.GetStringSlice("google.scopes"),
		},
		Gemini: GeminiConfig{
			APIKey:   viper.GetString("gemini.api_key"),
			Model:    viper.GetString("gemini.model"),
			Endpoint: viper.GetString("gemini.endpoint"),
		},
	}

	// ---- OVERRIDE WITH ENV VARS (STRICT) ----
	if v := os.Getenv("MAILAGENT_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv("MAILAGENT_DB_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.DB.Port)
	}
	if v := os.Getenv("MAILAGENT_DB_USER"); v != "" {
		c.DB.User = v
	}
	if v := os.Getenv("MAILAGENT_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("MAILAGENT_DB_NAME"); v != "" {
		c.DB.DBName = v
	}
	if v := os.Getenv("MAILAGENT_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("MAILAGENT_ENCRYPTION_KEY"); v != "" {
		c.EncryptionKey = v
	}
	if v := os.Getenv("MAILAGENT_GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("MAILAGENT_GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv("MAILAGENT_GOOGLE_REDIRECT_URL"); v != "" {
		c.Google.RedirectURL = v
	}
	if v := os.Getenv("MAILAGENT_GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}

	if c.EncryptionKey == "" {
		return Config{}, fmt.Errorf("encryption_key is required")
	}
	if c.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt_secret is required")
	}

	return c, nil
}
