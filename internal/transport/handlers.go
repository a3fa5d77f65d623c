package transport

import (
	"github.com/ds124wfegd/imageslicer/internal/service"
)

type SliceHandler struct {
	service        service.SliceService
	maxUploadBytes int64
}

func NewSliceHandler(service service.SliceService, maxUploadBytes int64) *SliceHandler {
	return &SliceHandler{service: service, maxUploadBytes: maxUploadBytes}
}
