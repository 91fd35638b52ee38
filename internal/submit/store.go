package submit

import (
	"context"
	"fmt"

	"github.com/localtv/localtv/internal/database"
)

// NewVideo is an unapproved video ready to be queued for moderation.
type NewVideo struct {
	SiteID       string
	UserID       *string
	Name         string
	Description  string
	WebsiteURL   string
	FileURL      string
	EmbedCode    string
	ThumbnailKey *string
	Tags         []string
}

type Store interface {
	URLExists(ctx context.Context, siteID, rawURL string) (bool, error)
	CreateVideo(ctx context.Context, v NewVideo) (string, error)
}

type PgStore struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *PgStore {
	return &PgStore{db: db}
}

// URLExists reports whether the site already has a video at rawURL, in any
// moderation state.
func (s *PgStore) URLExists(ctx context.Context, siteID, rawURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM videos WHERE site_id = $1 AND (website_url = $2 OR file_url = $2)
		 )`,
		siteID, rawURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing video: %w", err)
	}
	return exists, nil
}

func (s *PgStore) CreateVideo(ctx context.Context, v NewVideo) (string, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO videos (site_id, user_id, name, description, website_url, file_url, embed_code, thumbnail_key, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'unapproved')
		 RETURNING id`,
		v.SiteID, v.UserID, v.Name, v.Description, v.WebsiteURL, v.FileURL, v.EmbedCode, v.ThumbnailKey,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert video: %w", err)
	}

	if len(v.Tags) > 0 {
		if _, err := s.db.Exec(ctx,
			`INSERT INTO video_tags (video_id, name) SELECT $1, unnest($2::text[])`,
			id, v.Tags,
		); err != nil {
			return id, fmt.Errorf("insert video tags: %w", err)
		}
	}
	return id, nil
}
