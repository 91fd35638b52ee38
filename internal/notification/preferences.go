// Package notification decides whether a user wants a given notice and
// delivers the video approval email.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/database"
	"github.com/localtv/localtv/internal/httputil"
)

const NoticeVideoApproved = "video_approved"

// MediumEmail is the only delivery medium.
const MediumEmail = "1"

// Notice types at or above this level are emailed unless the user opts out.
const emailDefaultLevel = 2

var ErrUnknownNotice = errors.New("unknown notice type")

type Preferences struct {
	db database.DBTX
}

func NewPreferences(db database.DBTX) *Preferences {
	return &Preferences{db: db}
}

// ShouldSend reports whether userID wants noticeType over medium. An explicit
// per-user setting wins; otherwise the notice type's default level decides.
func (p *Preferences) ShouldSend(ctx context.Context, userID, noticeType, medium string) (bool, error) {
	var send bool
	err := p.db.QueryRow(ctx,
		`SELECT send FROM notice_settings WHERE user_id = $1 AND notice_type = $2 AND medium = $3`,
		userID, noticeType, medium,
	).Scan(&send)
	if err == nil {
		return send, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("load notice setting: %w", err)
	}

	var level int
	err = p.db.QueryRow(ctx,
		`SELECT default_level FROM notice_types WHERE label = $1`,
		noticeType,
	).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ErrUnknownNotice, noticeType)
	}
	if err != nil {
		return false, fmt.Errorf("load notice type: %w", err)
	}
	return level >= emailDefaultLevel, nil
}

func (p *Preferences) Set(ctx context.Context, userID, noticeType, medium string, send bool) error {
	if _, err := p.db.Exec(ctx,
		`INSERT INTO notice_settings (user_id, notice_type, medium, send)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, notice_type, medium) DO UPDATE SET send = $4`,
		userID, noticeType, medium, send,
	); err != nil {
		return fmt.Errorf("save notice setting: %w", err)
	}
	return nil
}

type preferencesResponse struct {
	VideoApproved bool `json:"videoApproved"`
}

type setPreferencesRequest struct {
	VideoApproved *bool `json:"videoApproved"`
}

func (p *Preferences) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	send, err := p.ShouldSend(r.Context(), userID, NoticeVideoApproved, MediumEmail)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, preferencesResponse{VideoApproved: send})
}

func (p *Preferences) PutPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req setPreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoApproved == nil {
		httputil.WriteError(w, http.StatusBadRequest, "videoApproved is required")
		return
	}

	if err := p.Set(r.Context(), userID, NoticeVideoApproved, MediumEmail, *req.VideoApproved); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
