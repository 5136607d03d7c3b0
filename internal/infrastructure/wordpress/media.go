package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"FeedPublisher/internal/domain"
)

// UploadMedia pushes the file as a raw body and then sets alt text and
// caption. The metadata update is best effort.
func (c *Client) UploadMedia(ctx context.Context, upload domain.MediaUpload) (int64, error) {
	data, err := os.ReadFile(upload.Path)
	if err != nil {
		return 0, domain.Fail(domain.StageMedia, domain.KindData, fmt.Errorf("read media %s: %w", upload.Path, err))
	}

	contentType := "image/jpeg"
	if mt := mimetype.Detect(data); !mt.Is("application/octet-stream") {
		contentType = mt.String()
	}

	filename := filepath.Base(upload.Path)
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	}

	var media struct {
		ID int64 `json:"id"`
	}
	if _, err := c.do(ctx, http.MethodPost, "media", bytes.NewReader(data), contentType, headers, &media); err != nil {
		return 0, domain.Fail(domain.StageMedia, domain.KindTransient, err)
	}

	meta := map[string]string{}
	if upload.AltText != "" {
		meta["alt_text"] = upload.AltText
	}
	if upload.Caption != "" {
		meta["caption"] = upload.Caption
	}
	if len(meta) > 0 {
		if _, err := c.doJSON(ctx, http.MethodPost, "media/"+strconv.FormatInt(media.ID, 10), meta, nil); err != nil {
			c.warn("media metadata update failed", "media_id", media.ID, "error", err)
		}
	}

	c.info("uploaded media", "file", filename, "media_id", media.ID)
	return media.ID, nil
}
