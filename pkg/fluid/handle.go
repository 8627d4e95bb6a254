package fluid

import (
	"fmt"
	"log/slog"
)

// Result is a normalized library return code.
type Result int

const (
	OK Result = iota
	Failed
)

func (r Result) String() string {
	if r == OK {
		return "ok"
	}
	return "failed"
}

// Convention is the settings return-code convention of a major version.
type Convention int

const (
	// ConventionV1: settings calls return 1 when the value was set, 0 otherwise.
	ConventionV1 Convention = iota + 1
	// ConventionV2: settings calls return 0 on success and -1 on failure.
	ConventionV2
)

// ConventionFor returns the convention used by the given major version.
func ConventionFor(major int) Convention {
	if major == 1 {
		return ConventionV1
	}
	return ConventionV2
}

// Normalize maps a raw settings return code to OK or Failed.
func (c Convention) Normalize(code int) Result {
	switch c {
	case ConventionV1:
		if code == 1 {
			return OK
		}
		return Failed
	default:
		if code < 0 {
			return Failed
		}
		return OK
	}
}

func (c Convention) String() string {
	if c == ConventionV1 {
		return "v1"
	}
	return "v2"
}

// Version is the version of the linked library.
type Version struct {
	Major, Minor, Micro int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// Handle is the entry point to a linked library. The library version and the
// derived return-code convention are detected once, at construction.
type Handle struct {
	lib        Library
	version    Version
	convention Convention
	log        *slog.Logger
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger used by the wrapper objects of the handle.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handle) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandle binds the wrapper layer to lib.
func NewHandle(lib Library, opts ...Option) *Handle {
	major, minor, micro := lib.Version()
	h := &Handle{
		lib:        lib,
		version:    Version{Major: major, Minor: minor, Micro: micro},
		convention: ConventionFor(major),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log.Debug("library linked", "version", h.version.String(), "convention", h.convention.String())
	return h
}

// Version returns the linked library version.
func (h *Handle) Version() Version {
	return h.version
}

// Convention returns the cached settings return-code convention.
func (h *Handle) Convention() Convention {
	return h.convention
}

// Library returns the linked library.
func (h *Handle) Library() Library {
	return h.lib
}

// Logger returns the handle logger.
func (h *Handle) Logger() *slog.Logger {
	return h.log
}

// check turns a non-settings return code into an error.
func check(call string, code int) error {
	if code < 0 {
		return &CallError{Call: call, Code: code}
	}
	return nil
}
