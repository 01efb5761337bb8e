package packet

import "fmt"

// FrameError reports KISS or AX.25 structure that cannot be trusted:
// a bad command byte, a truncated address, a non-UI control field.
type FrameError struct {
	Msg string
}

func (e *FrameError) Error() string { return "frame error: " + e.Msg }

// FormatError reports a field that did not match its grammar, either while
// decoding an info field or while validating a frame to build.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return "format error: " + e.Msg }

// InfoError reports an info field whose data-type selector is not recognized.
type InfoError struct {
	Selector byte
}

func (e *InfoError) Error() string {
	return fmt.Sprintf("unknown data type %d (%q)", e.Selector, e.Selector)
}

// FrameErrorf formats a *FrameError.
func FrameErrorf(format string, args ...any) error {
	return &FrameError{Msg: fmt.Sprintf(format, args...)}
}

// FormatErrorf formats a *FormatError.
func FormatErrorf(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}
