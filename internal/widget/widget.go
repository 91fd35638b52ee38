// Package widget manages the per-site settings of the embeddable video
// widget: its title, icon and stylesheet.
package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/localtv/localtv/internal/database"
)

// SettingsPath is where a successful update redirects to.
const SettingsPath = "/api/admin/widget-settings"

type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Settings struct {
	Title   string
	IconKey *string
	CSSKey  *string
}

type Handler struct {
	db      database.DBTX
	storage ObjectStorage
}

func NewHandler(db database.DBTX, s ObjectStorage) *Handler {
	return &Handler{db: db, storage: s}
}

// DefaultTitle is shown when a site has not chosen a widget title.
func DefaultTitle(siteName string) string {
	return "Watch Videos on " + siteName
}

// TitleOrDefault returns the configured title, or DefaultTitle when unset.
func (s Settings) TitleOrDefault(siteName string) string {
	if s.Title == "" {
		return DefaultTitle(siteName)
	}
	return s.Title
}

func (h *Handler) load(ctx context.Context, siteID string) (Settings, error) {
	var s Settings
	err := h.db.QueryRow(ctx,
		`SELECT title, icon_key, css_key FROM widget_settings WHERE site_id = $1`,
		siteID,
	).Scan(&s.Title, &s.IconKey, &s.CSSKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load widget settings: %w", err)
	}
	return s, nil
}

func (h *Handler) save(ctx context.Context, siteID string, s Settings) error {
	if _, err := h.db.Exec(ctx,
		`INSERT INTO widget_settings (site_id, title, icon_key, css_key)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (site_id) DO UPDATE SET title = $2, icon_key = $3, css_key = $4, updated_at = now()`,
		siteID, s.Title, s.IconKey, s.CSSKey,
	); err != nil {
		return fmt.Errorf("save widget settings: %w", err)
	}
	return nil
}

// deleteIcon removes the stored icon and its thumbnails, then clears the
// reference. It is a no-op when no icon is set.
func (h *Handler) deleteIcon(ctx context.Context, siteID string, s *Settings) error {
	if s.IconKey == nil {
		return nil
	}
	h.removeIconObjects(ctx, *s.IconKey)
	if _, err := h.db.Exec(ctx,
		`UPDATE widget_settings SET icon_key = NULL, updated_at = now() WHERE site_id = $1`,
		siteID,
	); err != nil {
		return fmt.Errorf("clear widget icon: %w", err)
	}
	s.IconKey = nil
	return nil
}

func (h *Handler) deleteCSS(ctx context.Context, siteID string, s *Settings) error {
	if s.CSSKey == nil {
		return nil
	}
	h.removeObject(ctx, *s.CSSKey)
	if _, err := h.db.Exec(ctx,
		`UPDATE widget_settings SET css_key = NULL, updated_at = now() WHERE site_id = $1`,
		siteID,
	); err != nil {
		return fmt.Errorf("clear widget stylesheet: %w", err)
	}
	s.CSSKey = nil
	return nil
}
