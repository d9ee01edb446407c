package camview

import (
	"errors"

	"github.com/gogpu/camview/internal/gpu"
)

var (
	// ErrContextUnavailable means no graphics context could be created on
	// any tier. Use SoftwareRenderer instead.
	ErrContextUnavailable = gpu.ErrContextUnavailable

	// ErrTextureUpload wraps per-frame upload failures. They are logged
	// and absorbed; the previous frame stays on screen.
	ErrTextureUpload = gpu.ErrTextureUpload

	// ErrNotInitialized is returned by Start when Initialize has not
	// succeeded.
	ErrNotInitialized = errors.New("camview: renderer not initialized")

	// ErrDestroyed is returned by operations on a destroyed renderer.
	ErrDestroyed = errors.New("camview: renderer destroyed")

	// ErrNoSource is returned when Initialize is called without a frame
	// source.
	ErrNoSource = errors.New("camview: no frame source")
)

// CompileError reports a preview shader that failed to compile. Its Log
// field holds the complete compiler diagnostics.
type CompileError = gpu.CompileError

// LinkError reports a compiled preview program whose pipeline objects
// could not be created.
type LinkError = gpu.LinkError

// UnavailableError lists every failed context attempt. It matches
// ErrContextUnavailable with errors.Is.
type UnavailableError = gpu.UnavailableError

// Status is the outcome of Initialize.
type Status uint8

const (
	// StatusNotInitialized means Initialize has not run or the renderer
	// was destroyed.
	StatusNotInitialized Status = iota

	// StatusOK means the renderer is ready to start.
	StatusOK

	// StatusContextUnavailable means no tier produced a graphics context.
	StatusContextUnavailable

	// StatusCompileError means the preview shader did not compile.
	StatusCompileError

	// StatusLinkError means the preview pipeline could not be created.
	StatusLinkError

	// StatusFailed covers other initialization failures, such as a
	// missing frame source.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "not initialized"
	case StatusOK:
		return "ok"
	case StatusContextUnavailable:
		return "context unavailable"
	case StatusCompileError:
		return "compile error"
	case StatusLinkError:
		return "link error"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusOf maps an initialization error to its Status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var (
		ce *CompileError
		le *LinkError
	)
	switch {
	case errors.Is(err, ErrContextUnavailable):
		return StatusContextUnavailable
	case errors.As(err, &ce):
		return StatusCompileError
	case errors.As(err, &le):
		return StatusLinkError
	default:
		return StatusFailed
	}
}
