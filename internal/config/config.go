// Package config loads process configuration from the environment, reading
// a .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// SiteDomain is used when the request Host matches no site.
	SiteDomain string `env:"SITE_DOMAIN" envDefault:"localhost"`

	S3Endpoint       string `env:"S3_ENDPOINT" envDefault:"http://localhost:3900"`
	S3PublicEndpoint string `env:"S3_PUBLIC_ENDPOINT"`
	S3Bucket         string `env:"S3_BUCKET" envDefault:"localtv"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3Region         string `env:"S3_REGION" envDefault:"eu-central-1"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	EmailURL      string `env:"EMAIL_URL"`
	EmailUser     string `env:"EMAIL_USER" envDefault:"admin"`
	EmailPassword string `env:"EMAIL_PASSWORD"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"noreply@localhost"`
	// EmailTemplateID names a listmonk transactional template that renders
	// {{ .Tx.Data.body }} verbatim.
	EmailTemplateID int `env:"EMAIL_TEMPLATE_ID" envDefault:"1"`

	NotificationsEnabled    bool `env:"NOTIFICATIONS_ENABLED" envDefault:"false"`
	SubmissionRequiresLogin bool `env:"SUBMISSION_REQUIRES_LOGIN" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads the given .env files (default ".env") if they exist and parses
// the environment into a Config. Missing files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func (c *Config) EmailConfigured() bool {
	return c.EmailURL != ""
}
