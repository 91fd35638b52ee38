// Package submit accepts video submissions from external URLs and queues
// them for moderation.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/metrics"
	"github.com/localtv/localtv/internal/site"
	"github.com/localtv/localtv/internal/validate"
)

const (
	KindDirect  = "direct"
	KindEmbed   = "embed"
	KindScraped = "scraped"

	maxRequestBytes = 64 * 1024
)

type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

type Handler struct {
	store        Store
	storage      ObjectStorage
	remote       Remote
	requireLogin bool
}

func NewHandler(store Store, s ObjectStorage, remote Remote) *Handler {
	return &Handler{store: store, storage: s, remote: remote}
}

// SetRequireLogin rejects anonymous submissions when enabled.
func (h *Handler) SetRequireLogin(required bool) {
	h.requireLogin = required
}

type submitResponse struct {
	URL      string    `json:"url"`
	Kind     string    `json:"kind"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type createdResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// KindForContentType suggests the submission path for a remote media type.
func KindForContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"),
		strings.HasPrefix(contentType, "audio/"),
		contentType == "application/ogg",
		contentType == "application/x-mpegurl",
		contentType == "application/vnd.apple.mpegurl":
		return KindDirect
	default:
		return KindEmbed
	}
}

// request resolves the site and submitter and decodes the JSON body into
// form. It writes the error response and returns ok=false on failure.
func (h *Handler) request(w http.ResponseWriter, r *http.Request, form any) (site.Site, *string, bool) {
	s, ok := site.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "site not found")
		return site.Site{}, nil, false
	}

	var userID *string
	if id := auth.UserIDFromContext(r.Context()); id != "" {
		userID = &id
	}
	if h.requireLogin && userID == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "login required to submit videos")
		return site.Site{}, nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return site.Site{}, nil, false
	}
	return s, userID, true
}

func (h *Handler) alreadySubmitted(w http.ResponseWriter, r *http.Request, siteID, rawURL string) bool {
	exists, err := h.store.URLExists(r.Context(), siteID, rawURL)
	if err != nil {
		slog.Error("submit: duplicate check failed", "site_id", siteID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check for duplicates")
		return true
	}
	if exists {
		httputil.WriteError(w, http.StatusConflict, "this video has already been submitted")
		return true
	}
	return false
}

// Submit is the first step: verify the URL, refuse duplicates, and suggest
// which second step fits it.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var form SubmitVideoForm
	s, _, ok := h.request(w, r, &form)
	if !ok {
		return
	}

	cleaned, errs := form.Clean(r.Context(), h.remote)
	if !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}
	if h.alreadySubmitted(w, r, s.ID, cleaned.URL) {
		return
	}

	resp := submitResponse{URL: cleaned.URL, Kind: KindForContentType(cleaned.ContentType)}
	if resp.Kind == KindEmbed && cleaned.ContentType == "text/html" {
		if meta, ok := h.scrape(r.Context(), cleaned.URL); ok && meta.HasVideo() {
			resp.Kind = KindScraped
			resp.Metadata = &meta
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitDirect(w http.ResponseWriter, r *http.Request) {
	var form DirectSubmitVideoForm
	s, userID, ok := h.request(w, r, &form)
	if !ok {
		return
	}

	cleaned, errs := form.Clean(r.Context(), h.remote)
	if !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}
	if h.alreadySubmitted(w, r, s.ID, cleaned.URL) {
		return
	}

	h.create(w, r, KindDirect, NewVideo{
		SiteID:      s.ID,
		UserID:      userID,
		Name:        cleaned.Name,
		Description: cleaned.Description,
		WebsiteURL:  cleaned.WebsiteURL,
		FileURL:     cleaned.URL,
		Tags:        cleaned.Tags,
	}, cleaned.Thumbnail)
}

func (h *Handler) SubmitEmbed(w http.ResponseWriter, r *http.Request) {
	var form EmbedSubmitVideoForm
	s, userID, ok := h.request(w, r, &form)
	if !ok {
		return
	}

	cleaned, errs := form.Clean(r.Context(), h.remote)
	if !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}
	if h.alreadySubmitted(w, r, s.ID, cleaned.URL) {
		return
	}

	h.create(w, r, KindEmbed, NewVideo{
		SiteID:      s.ID,
		UserID:      userID,
		Name:        cleaned.Name,
		Description: cleaned.Description,
		WebsiteURL:  cleaned.URL,
		EmbedCode:   cleaned.Embed,
		Tags:        cleaned.Tags,
	}, cleaned.Thumbnail)
}

// SubmitScraped fills name, description and thumbnail from the page's own
// metadata; the submitter only supplies tags.
func (h *Handler) SubmitScraped(w http.ResponseWriter, r *http.Request) {
	var form ScrapedSubmitVideoForm
	s, userID, ok := h.request(w, r, &form)
	if !ok {
		return
	}

	cleaned, errs := form.Clean(r.Context(), h.remote)
	if !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}
	if h.alreadySubmitted(w, r, s.ID, cleaned.URL) {
		return
	}

	meta, _ := h.scrape(r.Context(), cleaned.URL)
	name := meta.Title
	if name == "" {
		name = cleaned.URL
	}
	var thumb *Thumbnail
	if meta.ThumbnailURL != "" {
		t, msg := ImageURLField{}.Clean(r.Context(), h.remote, meta.ThumbnailURL)
		if msg != "" {
			slog.Info("submit: scraped thumbnail rejected", "url", meta.ThumbnailURL, "reason", msg)
		}
		thumb = t
	}

	h.create(w, r, KindScraped, NewVideo{
		SiteID:      s.ID,
		UserID:      userID,
		Name:        truncateRunes(name, validate.MaxVideoNameLength),
		Description: StripTags(meta.Description),
		WebsiteURL:  cleaned.URL,
		FileURL:     meta.VideoURL,
		Tags:        cleaned.Tags,
	}, thumb)
}

func (h *Handler) scrape(ctx context.Context, rawURL string) (Metadata, bool) {
	data, contentType, err := h.remote.Fetch(ctx, rawURL)
	if err != nil || (contentType != "" && contentType != "text/html") {
		return Metadata{}, false
	}
	meta, err := ParseMetadata(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, false
	}
	return meta, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, kind string, v NewVideo, thumb *Thumbnail) {
	if thumb != nil {
		key := "thumbnails/" + v.SiteID + "/" + uuid.NewString() + "." + thumb.Format
		if err := h.storage.PutObject(r.Context(), key, thumb, thumb.Size(), "image/"+thumb.Format); err != nil {
			slog.Error("submit: store thumbnail failed", "site_id", v.SiteID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to store thumbnail")
			return
		}
		v.ThumbnailKey = &key
	}

	id, err := h.store.CreateVideo(r.Context(), v)
	if err != nil {
		slog.Error("submit: create video failed", "site_id", v.SiteID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	metrics.Submissions.WithLabelValues(kind).Inc()
	slog.Info("video submitted", "video_id", id, "site_id", v.SiteID, "kind", kind)
	httputil.WriteJSON(w, http.StatusCreated, createdResponse{ID: id, Status: "unapproved"})
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
