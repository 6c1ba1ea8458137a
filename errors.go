package splat

import "errors"

var (
	// ErrEmptyCloud is returned when a splat stream holds no records.
	ErrEmptyCloud = errors.New("splat: cloud has no splats")

	// ErrInvalidSize is returned for non-positive render dimensions or
	// render scales.
	ErrInvalidSize = errors.New("splat: invalid size")

	// ErrClosed is returned by operations on a closed renderer or sorter.
	ErrClosed = errors.New("splat: closed")

	// ErrShortRecord is returned when a buffer is too small to hold the
	// record being decoded.
	ErrShortRecord = errors.New("splat: short record")

	// ErrVariantUnavailable is returned when a cloud does not carry the
	// encoding the renderer's variant needs.
	ErrVariantUnavailable = errors.New("splat: cloud lacks records for variant")
)
