package moderation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/metrics"
	"github.com/localtv/localtv/internal/notification"
	"github.com/localtv/localtv/internal/site"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
	actionFeature = "feature"
)

var videoActions = map[string]bool{
	actionApprove: true,
	actionReject:  true,
	actionFeature: true,
}

type videoItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	WebsiteURL    string  `json:"websiteUrl"`
	FileURL       string  `json:"fileUrl"`
	EmbedCode     string  `json:"embedCode"`
	Status        string  `json:"status"`
	WhenSubmitted string  `json:"whenSubmitted"`
	WhenPublished *string `json:"whenPublished"`
	OwnerID       *string `json:"ownerId"`
	OwnerName     string  `json:"ownerName"`
}

type videoQueueResponse struct {
	Videos       []videoItem `json:"videos"`
	CurrentVideo *videoItem  `json:"currentVideo"`
	Page         int         `json:"page"`
	NumPages     int         `json:"numPages"`
	Total        int         `json:"total"`
}

func toVideoItem(v Video) videoItem {
	item := videoItem{
		ID:            v.ID,
		Name:          v.Name,
		Description:   v.Description,
		WebsiteURL:    v.WebsiteURL,
		FileURL:       v.FileURL,
		EmbedCode:     v.EmbedCode,
		Status:        v.Status,
		WhenSubmitted: v.WhenSubmitted.Format(time.RFC3339),
		OwnerID:       v.OwnerID,
		OwnerName:     v.OwnerName,
	}
	if v.WhenPublished != nil {
		p := v.WhenPublished.Format(time.RFC3339)
		item.WhenPublished = &p
	}
	return item
}

// loadVideoPage returns the requested page of the site's queue. It writes
// the error response itself and returns ok=false on failure.
func (h *Handler) loadVideoPage(w http.ResponseWriter, r *http.Request, s site.Site, page int) ([]Video, pagination, bool) {
	total, err := h.videos.CountUnapproved(r.Context(), s.ID)
	if err != nil {
		slog.Error("moderation: count videos failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load queue")
		return nil, pagination{}, false
	}
	p, err := paginate(page, total)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return nil, pagination{}, false
	}
	videos, err := h.videos.ListUnapproved(r.Context(), s.ID, PageSize, p.offset())
	if err != nil {
		slog.Error("moderation: list videos failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load queue")
		return nil, pagination{}, false
	}
	return videos, p, true
}

func (h *Handler) VideoQueue(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSite(w, r)
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return
	}

	videos, p, ok := h.loadVideoPage(w, r, s, page)
	if !ok {
		return
	}

	resp := videoQueueResponse{
		Videos:   make([]videoItem, 0, len(videos)),
		Page:     p.Page,
		NumPages: p.NumPages,
		Total:    p.Total,
	}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, toVideoItem(v))
	}
	if len(resp.Videos) > 0 {
		current := resp.Videos[0]
		resp.CurrentVideo = &current
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ModerateVideos(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSite(w, r)
	if !ok {
		return
	}

	var fs formSet
	if err := json.NewDecoder(r.Body).Decode(&fs); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fs.Page == 0 {
		fs.Page = 1
	}
	if fs.Page < 1 {
		httputil.WriteError(w, http.StatusNotFound, "invalid page")
		return
	}

	videos, _, ok := h.loadVideoPage(w, r, s, fs.Page)
	if !ok {
		return
	}

	onPage := make(map[string]bool, len(videos))
	for _, v := range videos {
		onPage[v.ID] = true
	}
	if errs := fs.validate(onPage, videoActions); !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}

	actions := make(map[string]string, len(fs.Forms))
	for _, row := range fs.Forms {
		actions[row.ID] = row.Action
	}

	var approved, rejected, featured int
	for i := range videos {
		v := &videos[i]
		action := actions[v.ID]
		if action == "" {
			continue
		}

		var applied bool
		var err error
		switch action {
		case actionApprove:
			applied, err = h.videos.Approve(r.Context(), s.ID, v.ID)
		case actionReject:
			applied, err = h.videos.Reject(r.Context(), s.ID, v.ID)
		case actionFeature:
			applied, err = h.videos.Feature(r.Context(), s.ID, v.ID)
		}
		if err != nil {
			slog.Error("moderation: video transition failed", "video_id", v.ID, "action", action, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to moderate videos")
			return
		}
		if !applied {
			continue
		}

		metrics.ModerationActions.WithLabelValues("videos", action).Inc()
		switch action {
		case actionApprove:
			approved++
			v.Status = StatusActive
		case actionReject:
			rejected++
			v.Status = StatusRejected
		case actionFeature:
			featured++
			v.Status = StatusActive
		}
	}

	resp := actionResponse{
		Messages: []string{},
		Counts: map[string]int{
			"approved": approved,
			"rejected": rejected,
			"featured": featured,
		},
	}
	if approved > 0 {
		resp.Messages = append(resp.Messages, countMessage("Approved", approved, "video"))
	}
	if rejected > 0 {
		resp.Messages = append(resp.Messages, countMessage("Rejected", rejected, "video"))
	}
	if featured > 0 {
		resp.Messages = append(resp.Messages, countMessage("Featured", featured, "video"))
	}

	if h.notifier != nil && approved+featured > 0 {
		h.notifyApproved(r, s, videos)
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// notifyApproved emails the owners of videos that are now active. Failures
// are logged and never reach the moderator.
func (h *Handler) notifyApproved(r *http.Request, s site.Site, videos []Video) {
	for _, v := range videos {
		if v.Status != StatusActive || v.OwnerID == nil || v.OwnerEmail == "" {
			continue
		}
		err := h.notifier.NotifyVideoApproved(r.Context(), notification.ApprovedVideo{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
			SiteName:    s.Name,
			OwnerID:     *v.OwnerID,
			OwnerName:   v.OwnerName,
			OwnerEmail:  v.OwnerEmail,
		})
		if err != nil {
			slog.Warn("moderation: approval email failed", "video_id", v.ID, "error", err)
		}
	}
}
