package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

var (
	// ErrContextUnavailable is returned when no tier/profile combination
	// produced a usable device.
	ErrContextUnavailable = errors.New("gpu: no usable graphics context")

	// ErrTextureUpload wraps every per-frame upload failure.
	ErrTextureUpload = errors.New("gpu: texture upload failed")

	// ErrReleased is returned by operations on a released context.
	ErrReleased = errors.New("gpu: context released")

	errNoAdapter   = errors.New("no adapter exposed")
	errAlphaMode   = errors.New("surface does not support alpha mode")
	errMultisample = errors.New("surface format does not support multisampling")
	errEmptyFrame  = errors.New("frame has no pixels")
)

// Attempt records the outcome of one context creation attempt.
type Attempt struct {
	Tier    Tier
	Profile Profile
	Backend gputypes.Backend
	Err     error
}

// OK reports whether the attempt produced a context.
func (a Attempt) OK() bool { return a.Err == nil }

func (a Attempt) String() string {
	if a.Err == nil {
		return fmt.Sprintf("%s/%s/%s: ok", a.Tier, a.Backend, a.Profile)
	}
	return fmt.Sprintf("%s/%s/%s: %v", a.Tier, a.Backend, a.Profile, a.Err)
}

// UnavailableError carries every failed attempt of a negotiation.
// It matches ErrContextUnavailable with errors.Is.
type UnavailableError struct {
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrContextUnavailable.Error() + ": nothing attempted"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return ErrContextUnavailable.Error() + ": " + strings.Join(parts, "; ")
}

func (e *UnavailableError) Unwrap() error { return ErrContextUnavailable }

// CompileError reports a shader that failed to compile. Log holds the
// complete compiler diagnostic output.
type CompileError struct {
	Tier  Tier
	Stage string
	Log   string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: compile %s shader (%s): %s", e.Tier, e.Stage, e.Log)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a compiled program that could not be assembled into a
// pipeline with its layouts and resources.
type LinkError struct {
	Tier   Tier
	Object string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("gpu: link %s program: create %s: %v", e.Tier, e.Object, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
