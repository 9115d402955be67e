package handler

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/response"
	"github.com/campusconnect/campus/pkg/storage"
)

// Media streams a stored object, used when the object store has no public
// URL of its own.
func (h *Handler) Media(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	key := strings.TrimPrefix(path.Clean("/"+c.Param("key")), "/")
	if key == "" || key == "." {
		response.NotFound(c, "object not found")
		return
	}

	info, err := h.media.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(c, "object not found")
			return
		}
		l.Error().Err(err).Str("key", key).Msg("stat media failed")
		response.InternalError(c, "failed to read object")
		return
	}

	rc, err := h.media.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(c, "object not found")
			return
		}
		l.Error().Err(err).Str("key", key).Msg("read media failed")
		response.InternalError(c, "failed to read object")
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Content-Type", info.ContentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	if !info.ModTime.IsZero() {
		c.Header("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("stream media failed")
	}
}
