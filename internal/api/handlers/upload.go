package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"partychat/internal/service"
	"partychat/internal/storage"
)

// multipart framing allowance on top of the file size cap
const multipartOverhead = 1 << 20

// UploadHandler stores files referenced by chat messages and serves them back.
type UploadHandler struct {
	uploads *service.UploadService
	log     zerolog.Logger
}

// NewUploadHandler returns a handler for file uploads and downloads.
func NewUploadHandler(uploads *service.UploadService, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, log: log}
}

// Upload accepts a multipart form with a single "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart/form-data"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large", "details": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "details": err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file", "details": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		if errors.Is(err, service.ErrFileTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large", "details": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("file", header.Filename).Msg("store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload file", "details": err.Error()})
		return
	}

	h.log.Info().Str("key", result.Key).Int64("size", result.Size).Msg("file uploaded")
	c.JSON(http.StatusOK, result)
}

// Download streams a stored file with its content type and cache policy.
func (h *UploadHandler) Download(c *gin.Context) {
	key := c.Param("key")

	body, info, err := h.uploads.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file", "details": err.Error()})
		return
	}
	defer body.Close()

	if info.CacheControl != "" {
		c.Header("Cache-Control", info.CacheControl)
	}
	if info.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	c.Header("Content-Type", info.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("stream file")
	}
}
