package widget

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/localtv/localtv/internal/storage"
)

type size struct {
	Width, Height int
}

func (s size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// iconThumbnailSizes are the derived copies stored next to every icon.
var iconThumbnailSizes = []size{
	{88, 68},
	{140, 110},
	{222, 169},
}

type iconData struct {
	img    image.Image
	format string
}

func thumbnailKey(iconKey string, sz size) string {
	return storage.ThumbnailKey(iconKey, sz.Width, sz.Height)
}

// decodeIcon validates data as an image and reports its format name
// ("png", "jpeg", "gif", ...).
func decodeIcon(data []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode icon config: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode icon: %w", err)
	}
	return img, format, nil
}

// storeThumbnails writes every thumbnail size of img next to iconKey, in
// the icon's own format.
func (h *Handler) storeThumbnails(ctx context.Context, iconKey, contentType string, img image.Image) error {
	format, err := imaging.FormatFromFilename(iconKey)
	if err != nil {
		format = imaging.PNG
	}
	for _, sz := range iconThumbnailSizes {
		thumb := imaging.Fill(img, sz.Width, sz.Height, imaging.Center, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, thumb, format); err != nil {
			return fmt.Errorf("encode %s thumbnail: %w", sz, err)
		}
		key := thumbnailKey(iconKey, sz)
		if err := h.storage.PutObject(ctx, key, &buf, int64(buf.Len()), contentType); err != nil {
			return fmt.Errorf("store %s thumbnail: %w", sz, err)
		}
	}
	return nil
}

// removeIconObjects deletes an icon and all of its thumbnails. Individual
// failures are logged so one missing object does not block the rest.
func (h *Handler) removeIconObjects(ctx context.Context, iconKey string) {
	h.removeObject(ctx, iconKey)
	for _, sz := range iconThumbnailSizes {
		h.removeObject(ctx, thumbnailKey(iconKey, sz))
	}
}

func (h *Handler) removeObject(ctx context.Context, key string) {
	if err := h.storage.DeleteObject(ctx, key); err != nil {
		slog.Warn("widget: delete object failed", "key", key, "error", err)
	}
}
