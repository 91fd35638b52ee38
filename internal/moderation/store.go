package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/localtv/localtv/internal/database"
)

const (
	StatusUnapproved = "unapproved"
	StatusActive     = "active"
	StatusRejected   = "rejected"
)

type Video struct {
	ID            string
	Name          string
	Description   string
	WebsiteURL    string
	FileURL       string
	EmbedCode     string
	Status        string
	WhenSubmitted time.Time
	WhenPublished *time.Time
	OwnerID       *string
	OwnerName     string
	OwnerEmail    string
}

// VideoStore is the persistence the video queue needs. Transition methods
// report false when the video was no longer unapproved.
type VideoStore interface {
	CountUnapproved(ctx context.Context, siteID string) (int, error)
	ListUnapproved(ctx context.Context, siteID string, limit, offset int) ([]Video, error)
	Approve(ctx context.Context, siteID, videoID string) (bool, error)
	Reject(ctx context.Context, siteID, videoID string) (bool, error)
	Feature(ctx context.Context, siteID, videoID string) (bool, error)
}

type PgVideoStore struct {
	db database.DBTX
}

func NewVideoStore(db database.DBTX) *PgVideoStore {
	return &PgVideoStore{db: db}
}

func (s *PgVideoStore) CountUnapproved(ctx context.Context, siteID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM videos WHERE site_id = $1 AND status = 'unapproved'`,
		siteID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unapproved videos: %w", err)
	}
	return n, nil
}

func (s *PgVideoStore) ListUnapproved(ctx context.Context, siteID string, limit, offset int) ([]Video, error) {
	rows, err := s.db.Query(ctx,
		`SELECT v.id, v.name, v.description, v.website_url, v.file_url, v.embed_code, v.status,
		        v.when_submitted, v.when_published, v.user_id, COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM videos v
		 LEFT JOIN users u ON u.id = v.user_id
		 WHERE v.site_id = $1 AND v.status = 'unapproved'
		 ORDER BY v.when_submitted, v.when_published
		 LIMIT $2 OFFSET $3`,
		siteID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list unapproved videos: %w", err)
	}
	defer rows.Close()

	videos := []Video{}
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &v.WebsiteURL, &v.FileURL, &v.EmbedCode, &v.Status,
			&v.WhenSubmitted, &v.WhenPublished, &v.OwnerID, &v.OwnerName, &v.OwnerEmail); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (s *PgVideoStore) Approve(ctx context.Context, siteID, videoID string) (bool, error) {
	return s.transition(ctx,
		`UPDATE videos SET status = 'active', when_approved = now()
		 WHERE id = $1 AND site_id = $2 AND status = 'unapproved'`,
		siteID, videoID)
}

func (s *PgVideoStore) Reject(ctx context.Context, siteID, videoID string) (bool, error) {
	return s.transition(ctx,
		`UPDATE videos SET status = 'rejected'
		 WHERE id = $1 AND site_id = $2 AND status = 'unapproved'`,
		siteID, videoID)
}

// Feature approves the video and marks it featured in one step.
func (s *PgVideoStore) Feature(ctx context.Context, siteID, videoID string) (bool, error) {
	return s.transition(ctx,
		`UPDATE videos SET status = 'active', when_approved = now(), when_featured = now()
		 WHERE id = $1 AND site_id = $2 AND status = 'unapproved'`,
		siteID, videoID)
}

func (s *PgVideoStore) transition(ctx context.Context, query, siteID, videoID string) (bool, error) {
	tag, err := s.db.Exec(ctx, query, videoID, siteID)
	if err != nil {
		return false, fmt.Errorf("update video %s: %w", videoID, err)
	}
	return tag.RowsAffected() > 0, nil
}
