package fluid

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the wrapper layer. None of them is retried here;
// the caller decides whether to try again.
var (
	// ErrKeyNotFound is returned when a settings key has no recognized kind.
	ErrKeyNotFound = errors.New("settings key not found")

	// ErrRejectedValue is returned when the library refused a settings write.
	ErrRejectedValue = errors.New("value rejected")

	// ErrUnsupportedOperation is returned when the linked library version no
	// longer provides the requested call.
	ErrUnsupportedOperation = errors.New("operation not supported by linked library")

	// ErrInvalidTempoType is returned for an unrecognized tempo type.
	ErrInvalidTempoType = errors.New("invalid tempo type")

	// ErrSeekRejected is returned when a seek is negative, past the end, or a
	// previous seek is still pending. It is not fatal.
	ErrSeekRejected = errors.New("seek rejected")

	// ErrClosed is returned when an object is used after Close.
	ErrClosed = errors.New("object already closed")

	// ErrNoSoundFont is returned when a soundfont is required but missing.
	ErrNoSoundFont = errors.New("no soundfont loaded")
)

// KeyError carries the settings key a failure refers to.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Key)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func keyError(key string, err error) error {
	return &KeyError{Key: key, Err: err}
}

// CallError reports a library call that returned a failure code.
type CallError struct {
	Call string
	Code int
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s failed (code %d)", e.Call, e.Code)
}
