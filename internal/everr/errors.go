// Package everr defines the error kinds shared across the injection engine.
//
// None of these carry payload-specific exception types; callers match on
// the sentinel with errors.Is and read structured detail off the wrapping
// error with errors.As where needed.
package everr

import "fmt"

// Kind identifies one of the error categories from the error handling design.
type Kind int

const (
	InvalidPreset Kind = iota
	PermissionDenied
	NoDevicesFound
	MacroParse
	MacroRuntime
	TransientIO
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InvalidPreset:
		return "InvalidPreset"
	case PermissionDenied:
		return "PermissionDenied"
	case NoDevicesFound:
		return "NoDevicesFound"
	case MacroParse:
		return "MacroParse"
	case MacroRuntime:
		return "MacroRuntime"
	case TransientIO:
		return "TransientIO"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with one of the Kind sentinels.
type Error struct {
	Kind Kind
	// Index is the offending record index within a mapping list, where
	// applicable (InvalidPreset, MacroParse). -1 when not applicable.
	Index int
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s", e.Kind, e.Index, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error without a record index.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Index: -1, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Index: -1, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Index: -1, Msg: msg, Cause: cause}
}

// AtIndex builds an Error tagged with the offending record's position in a
// mapping list (InvalidPreset, MacroParse).
func AtIndex(kind Kind, index int, msg string) *Error {
	return &Error{Kind: kind, Index: index, Msg: msg}
}

// Sentinels usable with errors.Is(err, everr.InvalidPresetErr) and friends.
var (
	InvalidPresetErr  = &Error{Kind: InvalidPreset, Index: -1}
	PermissionErr     = &Error{Kind: PermissionDenied, Index: -1}
	NoDevicesErr      = &Error{Kind: NoDevicesFound, Index: -1}
	MacroParseErr     = &Error{Kind: MacroParse, Index: -1}
	MacroRuntimeErr   = &Error{Kind: MacroRuntime, Index: -1}
	TransientIOErr    = &Error{Kind: TransientIO, Index: -1}
	FatalErr          = &Error{Kind: Fatal, Index: -1}
)
