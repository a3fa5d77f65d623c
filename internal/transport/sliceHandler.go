package transport

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const apiPrefix = "/api/v1/slices"

// multipartOverhead is the room left for boundaries, part headers and form
// fields on top of the image itself.
const multipartOverhead = 64 << 10

func (h *SliceHandler) UploadImage(c *gin.Context) {
	// cap the body before the multipart form is parsed
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, err := c.FormFile("image")
	if err != nil {
		if isBodyTooLarge(err) {
			h.rejectTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	// check the file type
	if !isValidImageType(filepath.Ext(file.Filename)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image type. Supported: jpg, jpeg, png, gif, webp, bmp"})
		return
	}

	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		h.rejectTooLarge(c)
		return
	}

	splitY2 := h.service.DefaultSplitY2()
	if raw := strings.TrimSpace(c.PostForm("split_y2")); raw != "" {
		splitY2, err = strconv.Atoi(raw)
		if err != nil || splitY2 < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "split_y2 must be a non-negative integer"})
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	run, err := h.service.SliceImage(c.Request.Context(), filepath.Base(file.Filename), src, splitY2)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRunResponse(run))
}

func (h *SliceHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run))
}

func (h *SliceHandler) DownloadSlice(c *gin.Context) {
	name := c.Param("name")

	data, err := h.service.GetSlice(c.Param("id"), name)
	if err != nil {
		writeError(c, err)
		return
	}

	disposition := "attachment"
	if c.Query("inline") != "" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	c.Data(http.StatusOK, "image/png", data)
}

func (h *SliceHandler) DownloadArchive(c *gin.Context) {
	name, data, err := h.service.BuildArchive(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *SliceHandler) DeleteRun(c *gin.Context) {
	if err := h.service.ReleaseRun(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Run released"})
}

func (h *SliceHandler) rejectTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Image exceeds %d bytes", h.maxUploadBytes)})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrRunNotFound), errors.Is(err, entity.ErrSliceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrEncodingFailure), errors.Is(err, entity.ErrPackagingFailure):
		logrus.Errorf("Slicing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logrus.Errorf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toRunResponse(run *entity.Run) entity.RunResponse {
	base := apiPrefix + "/" + run.ID

	slices := make([]entity.SliceResponse, 0, len(run.Slices))
	for _, s := range run.Slices {
		slices = append(slices, entity.SliceResponse{
			ID:     s.ID,
			Name:   s.Name,
			Width:  s.Width,
			Height: s.Height,
			X:      s.X,
			Y:      s.Y,
			Size:   len(s.Bytes),
			URL:    base + "/files/" + s.Name,
		})
	}

	return entity.RunResponse{
		ID:               run.ID,
		SourceName:       run.SourceName,
		SourceWidth:      run.SourceWidth,
		SourceHeight:     run.SourceHeight,
		NormalizedHeight: run.NormalizedHeight,
		SplitY2:          run.SplitY2,
		CreatedAt:        run.CreatedAt,
		Slices:           slices,
		ArchiveURL:       base + "/archive",
	}
}

func isValidImageType(ext string) bool {
	validTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".bmp":  true,
	}
	return validTypes[strings.ToLower(ext)]
}
