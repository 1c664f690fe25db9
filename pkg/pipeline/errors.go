package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrPluginMustBeSet   = errors.New("plugin must be set")

	// ErrUnknownKind means the encoded pipeline needs a newer version than this decoder knows.
	ErrUnknownKind    = errors.New("unknown element kind")
	// ErrMalformedToken means the encoded pipeline is corrupted.
	ErrMalformedToken = errors.New("malformed token")

	ErrInvalidParameter = errors.New("invalid parameter")

	ErrStackUnderflow   = errors.New("stack underflow")
	ErrPluginCycle      = errors.New("cyclic plugin reference")
	ErrMaxDepth         = errors.New("maximum plugin depth reached")
	ErrPluginNotFound   = errors.New("plugin not found")
	ErrNotPipeline      = errors.New("plugin is not a pipeline plugin")
	ErrNoResolver       = errors.New("no plugin resolver configured")
	ErrNoLauncher       = errors.New("no launcher configured")
	ErrNoPaths          = errors.New("no path to process")
	ErrVersionTooRecent = errors.New("pipeline requires a more recent version")
)

// DecodeError is returned when an encoded pipeline cannot be decoded.
type DecodeError struct {
	// Index is the position of the offending token, starting at 0.
	Index int
	// Offset is the byte offset of the offending token in the encoded string.
	Offset int
	Token  string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("token %d at offset %d (%q): %v", e.Index, e.Offset, e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsVersionError reports whether the token uses a kind unknown to this decoder,
// as opposed to being corrupted.
func (e *DecodeError) IsVersionError() bool {
	return errors.Is(e.Err, ErrUnknownKind)
}

// ApplyError is returned when an element fails while a pipeline is applied.
type ApplyError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("element %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// ConstructionError is returned when an element is created with an invalid parameter.
type ConstructionError struct {
	Kind  Kind
	Param string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: parameter %s: %v", e.Kind, e.Param, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func invalidParam(kind Kind, param string, err error) error {
	return &ConstructionError{Kind: kind, Param: param, Err: err}
}
