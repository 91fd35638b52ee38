package widget

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localtv/localtv/internal/httputil"
	"github.com/localtv/localtv/internal/site"
	"github.com/localtv/localtv/internal/validate"
)

const (
	downloadURLExpiry = time.Hour
	maxMultipartBytes = validate.MaxWidgetIconBytes + validate.MaxWidgetCSSBytes + 64*1024
)

type settingsResponse struct {
	Title          string            `json:"title"`
	IconURL        *string           `json:"iconUrl"`
	IconThumbnails map[string]string `json:"iconThumbnails,omitempty"`
	CSSURL         *string           `json:"cssUrl"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := site.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "site not found")
		return
	}

	settings, err := h.load(r.Context(), s.ID)
	if err != nil {
		slog.Error("widget: load settings failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load widget settings")
		return
	}

	resp := settingsResponse{Title: settings.TitleOrDefault(s.Name)}
	if settings.IconKey != nil {
		if u, err := h.storage.GenerateDownloadURL(r.Context(), *settings.IconKey, downloadURLExpiry); err == nil {
			resp.IconURL = &u
		}
		resp.IconThumbnails = make(map[string]string, len(iconThumbnailSizes))
		for _, sz := range iconThumbnailSizes {
			if u, err := h.storage.GenerateDownloadURL(r.Context(), thumbnailKey(*settings.IconKey, sz), downloadURLExpiry); err == nil {
				resp.IconThumbnails[sz.String()] = u
			}
		}
	}
	if settings.CSSKey != nil {
		if u, err := h.storage.GenerateDownloadURL(r.Context(), *settings.CSSKey, downloadURLExpiry); err == nil {
			resp.CSSURL = &u
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type upload struct {
	data        []byte
	contentType string
}

// readUpload returns the named file part, or nil when the field was not sent.
func readUpload(r *http.Request, field string, maxBytes int64, errs httputil.FieldErrors) *upload {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		errs.Add(field, "The submitted file is invalid.")
		return nil
	}
	defer func() { _ = file.Close() }()

	if msg := validate.FileSize(header.Size, maxBytes); msg != "" {
		errs.Add(field, msg)
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		errs.Add(field, "The submitted file is invalid.")
		return nil
	}
	if len(data) == 0 {
		errs.Add(field, "The submitted file is empty.")
		return nil
	}
	return &upload{data: data, contentType: partContentType(header)}
}

func partContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return "application/octet-stream"
}

func checked(r *http.Request, field string) bool {
	switch strings.ToLower(r.FormValue(field)) {
	case "", "0", "false", "off":
		return false
	}
	return true
}

// UpdateSettings saves the submitted title and any uploaded assets, then
// honours the delete_icon and delete_css flags, then redirects back to the
// settings resource.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	s, ok := site.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "site not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	errs := httputil.FieldErrors{}
	title := strings.TrimSpace(r.FormValue("title"))
	if msg := validate.WidgetTitle(title); msg != "" {
		errs.Add("title", msg)
	}

	icon := readUpload(r, "icon", validate.MaxWidgetIconBytes, errs)
	var iconImage iconData
	if icon != nil {
		img, format, err := decodeIcon(icon.data)
		if err != nil {
			errs.Add("icon", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		} else {
			iconImage = iconData{img: img, format: format}
		}
	}

	css := readUpload(r, "css", validate.MaxWidgetCSSBytes, errs)

	if !errs.Empty() {
		httputil.WriteFormErrors(w, errs)
		return
	}

	ctx := r.Context()
	current, err := h.load(ctx, s.ID)
	if err != nil {
		slog.Error("widget: load settings failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load widget settings")
		return
	}

	next := current
	next.Title = title

	if icon != nil {
		key := "widget/" + s.ID + "/icon-" + uuid.NewString() + "." + iconImage.format
		contentType := "image/" + iconImage.format
		if err := h.storage.PutObject(ctx, key, bytes.NewReader(icon.data), int64(len(icon.data)), contentType); err != nil {
			slog.Error("widget: store icon failed", "site_id", s.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to store icon")
			return
		}
		if err := h.storeThumbnails(ctx, key, contentType, iconImage.img); err != nil {
			slog.Error("widget: store icon thumbnails failed", "site_id", s.ID, "error", err)
			h.removeIconObjects(ctx, key)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to store icon")
			return
		}
		next.IconKey = &key
	}

	if css != nil {
		key := "widget/" + s.ID + "/style-" + uuid.NewString() + ".css"
		if err := h.storage.PutObject(ctx, key, bytes.NewReader(css.data), int64(len(css.data)), "text/css"); err != nil {
			slog.Error("widget: store stylesheet failed", "site_id", s.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to store stylesheet")
			return
		}
		next.CSSKey = &key
	}

	if err := h.save(ctx, s.ID, next); err != nil {
		slog.Error("widget: save settings failed", "site_id", s.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save widget settings")
		return
	}

	// Replaced assets are no longer referenced.
	if icon != nil && current.IconKey != nil {
		h.removeIconObjects(ctx, *current.IconKey)
	}
	if css != nil && current.CSSKey != nil {
		h.removeObject(ctx, *current.CSSKey)
	}

	if checked(r, "delete_icon") {
		if err := h.deleteIcon(ctx, s.ID, &next); err != nil {
			slog.Error("widget: delete icon failed", "site_id", s.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to delete icon")
			return
		}
	}
	if checked(r, "delete_css") {
		if err := h.deleteCSS(ctx, s.ID, &next); err != nil {
			slog.Error("widget: delete stylesheet failed", "site_id", s.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to delete stylesheet")
			return
		}
	}

	http.Redirect(w, r, SettingsPath, http.StatusSeeOther)
}
