package entity

import "errors"

var (
	// Pipeline errors
	ErrInvalidInput     = errors.New("invalid input image")
	ErrEncodingFailure  = errors.New("slice encoding failed")
	ErrPackagingFailure = errors.New("archive packaging failed")

	// Store errors
	ErrRunNotFound   = errors.New("run not found")
	ErrSliceNotFound = errors.New("slice not found")
)
