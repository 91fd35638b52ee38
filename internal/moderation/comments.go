package moderation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/metrics"
	"github.com/localtv/localtv/internal/site"
)

const actionRemove = "remove"

var commentActions = map[string]bool{
	actionApprove: true,
	actionRemove:  true,
}

type commentItem struct {
	ID         string  `json:"id"`
	VideoID    string  `json:"videoId"`
	VideoName  string  `json:"videoName"`
	UserID     *string `json:"userId"`
	UserName   string  `json:"userName"`
	UserEmail  string  `json:"userEmail"`
	Body       string  `json:"body"`
	SubmitDate string  `json:"submitDate"`
}

type commentQueueResponse struct {
	Comments []commentItem `json:"comments"`
	Page     int           `json:"page"`
	NumPages int           `json:"numPages"`
	Total    int           `json:"total"`
}

// commentFormSet is a formSet bound to the request that submitted it, so
// every transition is attributed to the acting moderator.
type commentFormSet struct {
	formSet
	moderatorID string
}

func newCommentFormSet(r *http.Request) (commentFormSet, error) {
	var fs commentFormSet
	if err := json.NewDecoder(r.Body).Decode(&fs.formSet); err != nil {
		return commentFormSet{}, err
	}
	if fs.Page == 0 {
		fs.Page = 1
	}
	fs.moderatorID = auth.UserIDFromContext(r.Context())
	return fs, nil
}

func (h *Handler) loadCommentPage(w http.ResponseWriter, r *http.Request, s site.Site, page int) ([]Comment, pagination, bool) {
	total, err := h.comments.CountPending(r.Context(), s.ID)
	if err != nil {
		slog.Error("moderation: count comments failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load queue")
		return nil, pagination{}, false
	}
	p, err := paginate(page, total)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return nil, pagination{}, false
	}
	comments, err := h.comments.ListPending(r.Context(), s.ID, PageSize, p.offset())
	if err != nil {
		slog.Error("moderation: list comments failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load queue")
		return nil, pagination{}, false
	}
	return comments, p, true
}

func (h *Handler) CommentQueue(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSite(w, r)
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return
	}

	comments, p, ok := h.loadCommentPage(w, r, s, page)
	if !ok {
		return
	}

	resp := commentQueueResponse{
		Comments: make([]commentItem, 0, len(comments)),
		Page:     p.Page,
		NumPages: p.NumPages,
		Total:    p.Total,
	}
	for _, c := range comments {
		resp.Comments = append(resp.Comments, commentItem{
			ID:         c.ID,
			VideoID:    c.VideoID,
			VideoName:  c.VideoName,
			UserID:     c.UserID,
			UserName:   c.UserName,
			UserEmail:  c.UserEmail,
			Body:       c.Body,
			SubmitDate: c.SubmitDate.Format(time.RFC3339),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ModerateComments(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSite(w, r)
	if !ok {
		return
	}

	fs, err := newCommentFormSet(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fs.moderatorID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if fs.Page < 1 {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return
	}

	comments, _, ok := h.loadCommentPage(w, r, s, fs.Page)
	if !ok {
		return
	}

	onPage := make(map[string]bool, len(comments))
	for _, c := range comments {
		onPage[c.ID] = true
	}
	if errs := fs.validate(onPage, commentActions); !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}

	var approved, removed int
	for _, row := range fs.Forms {
		var applied bool
		var err error
		switch row.Action {
		case actionApprove:
			applied, err = h.comments.Approve(r.Context(), s.ID, row.ID, fs.moderatorID)
		case actionRemove:
			applied, err = h.comments.Remove(r.Context(), s.ID, row.ID, fs.moderatorID)
		default:
			continue
		}
		if err != nil {
			slog.Error("moderation: comment transition failed", "comment_id", row.ID, "action", row.Action, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to moderate comments")
			return
		}
		if !applied {
			continue
		}

		metrics.ModerationActions.WithLabelValues("comments", row.Action).Inc()
		if row.Action == actionApprove {
			approved++
		} else {
			removed++
		}
	}

	resp := actionResponse{
		Messages: []string{},
		Counts: map[string]int{
			"approved": approved,
			"removed":  removed,
		},
	}
	if approved > 0 {
		resp.Messages = append(resp.Messages, countMessage("Approved", approved, "comment"))
	}
	if removed > 0 {
		resp.Messages = append(resp.Messages, countMessage("Removed", removed, "comment"))
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
