package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/localtv/localtv/internal/database"
)

const (
	flagModeratorApproval = "moderator approval"
	flagModeratorDeletion = "moderator deletion"
)

type Comment struct {
	ID         string
	VideoID    string
	VideoName  string
	UserID     *string
	UserName   string
	UserEmail  string
	Body       string
	SubmitDate time.Time
}

// CommentStore is the persistence the comment queue needs. Moderation
// methods record moderatorID against the comment and report false when the
// comment had already left the queue.
type CommentStore interface {
	CountPending(ctx context.Context, siteID string) (int, error)
	ListPending(ctx context.Context, siteID string, limit, offset int) ([]Comment, error)
	Approve(ctx context.Context, siteID, commentID, moderatorID string) (bool, error)
	Remove(ctx context.Context, siteID, commentID, moderatorID string) (bool, error)
}

type PgCommentStore struct {
	db database.DBTX
}

func NewCommentStore(db database.DBTX) *PgCommentStore {
	return &PgCommentStore{db: db}
}

func (s *PgCommentStore) CountPending(ctx context.Context, siteID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM comments WHERE site_id = $1 AND is_public = false AND is_removed = false`,
		siteID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending comments: %w", err)
	}
	return n, nil
}

func (s *PgCommentStore) ListPending(ctx context.Context, siteID string, limit, offset int) ([]Comment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.video_id, v.name, c.user_id, c.user_name, c.user_email, c.body, c.submit_date
		 FROM comments c
		 JOIN videos v ON v.id = c.video_id
		 WHERE c.site_id = $1 AND c.is_public = false AND c.is_removed = false
		 ORDER BY c.submit_date, c.id
		 LIMIT $2 OFFSET $3`,
		siteID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.VideoID, &c.VideoName, &c.UserID, &c.UserName, &c.UserEmail, &c.Body, &c.SubmitDate); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (s *PgCommentStore) Approve(ctx context.Context, siteID, commentID, moderatorID string) (bool, error) {
	return s.moderate(ctx,
		`UPDATE comments SET is_public = true
		 WHERE id = $1 AND site_id = $2 AND is_public = false AND is_removed = false`,
		siteID, commentID, moderatorID, flagModeratorApproval)
}

func (s *PgCommentStore) Remove(ctx context.Context, siteID, commentID, moderatorID string) (bool, error) {
	return s.moderate(ctx,
		`UPDATE comments SET is_removed = true
		 WHERE id = $1 AND site_id = $2 AND is_public = false AND is_removed = false`,
		siteID, commentID, moderatorID, flagModeratorDeletion)
}

func (s *PgCommentStore) moderate(ctx context.Context, query, siteID, commentID, moderatorID, flag string) (bool, error) {
	tag, err := s.db.Exec(ctx, query, commentID, siteID)
	if err != nil {
		return false, fmt.Errorf("update comment %s: %w", commentID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO comment_flags (comment_id, user_id, flag) VALUES ($1, $2, $3)`,
		commentID, moderatorID, flag,
	); err != nil {
		return true, fmt.Errorf("flag comment %s: %w", commentID, err)
	}
	return true, nil
}
