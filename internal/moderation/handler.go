// Package moderation serves the per-site video and comment moderation
// queues.
package moderation

import (
	"context"
	"net/http"

	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/notification"
	"github.com/localtv/localtv/internal/site"
)

// ApprovalNotifier is told about every video that ends a bulk action active.
type ApprovalNotifier interface {
	NotifyVideoApproved(ctx context.Context, v notification.ApprovedVideo) error
}

type Handler struct {
	videos   VideoStore
	comments CommentStore
	notifier ApprovalNotifier
}

func NewHandler(videos VideoStore, comments CommentStore) *Handler {
	return &Handler{videos: videos, comments: comments}
}

// SetApprovalNotifier enables approval emails. Without one, approvals are
// silent.
func (h *Handler) SetApprovalNotifier(n ApprovalNotifier) {
	h.notifier = n
}

type actionResponse struct {
	Messages []string       `json:"messages"`
	Counts   map[string]int `json:"counts"`
}

func currentSite(w http.ResponseWriter, r *http.Request) (site.Site, bool) {
	s, ok := site.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "site not found")
	}
	return s, ok
}
