package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/pkg/errcode"
	"github.com/xxxsen/supportrag/internal/pkg/response"
)

type ManualIngester interface {
	IngestManual(ctx context.Context, in *model.ManualInput) (*model.IngestReport, error)
}

type ManualHandler struct {
	ingester      ManualIngester
	maxUploadSize int64
}

func NewManualHandler(ingester ManualIngester, maxUploadSize int64) *ManualHandler {
	return &ManualHandler{ingester: ingester, maxUploadSize: maxUploadSize}
}

// Upload ingests a manual sent as multipart form. The "file" part holds the
// document, the other fields carry its metadata.
func (h *ManualHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		if c.Request.ContentLength > h.maxUploadSize {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+uploadLimit(h.maxUploadSize))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+uploadLimit(h.maxUploadSize))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read file")
		return
	}

	in := &model.ManualInput{
		URL:             strings.TrimSpace(c.PostForm("url")),
		Format:          strings.TrimSpace(c.PostForm("format")),
		DeviceType:      strings.TrimSpace(c.PostForm("device_type")),
		DeviceModelUsed: formBool(c, "device_model_used"),
		ContentType:     c.PostForm("content_type"),
		Categories:      c.PostFormArray("categories"),
		Force:           formBool(c, "force"),
		Data:            data,
	}
	if in.URL == "" {
		in.URL = file.Filename
	}
	report, err := h.ingester.IngestManual(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

func formBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.PostForm(key)))
	return err == nil && v
}

func uploadLimit(bytes int64) string {
	const mb = 1 << 20
	if bytes < mb {
		return strconv.FormatInt(bytes, 10) + "B"
	}
	return strconv.FormatInt(bytes/mb, 10) + "MB"
}
