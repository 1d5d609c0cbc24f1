package fileio

import "fmt"

// Code is the small positive integer identifying a fatal driver condition.
// It doubles as the process exit status at the CLI boundary. The numbering
// is stable; scripted callers depend on it.
type Code int

const (
	// CodeAborted: the user declined an overwrite, or overwriting was not
	// allowed in non-interactive mode.
	CodeAborted Code = 11

	// CodeOpenSource / CodeOpenDestination: a stream endpoint failed to open.
	CodeOpenSource      Code = 12
	CodeOpenDestination Code = 13

	// Compression driver conditions.
	CodeCompressInit     Code = 22
	CodeCompress         Code = 23
	CodeChunkNotConsumed Code = 24
	CodeWriteBlock       Code = 25
	CodeFlushEnd         Code = 26
	CodeWriteEnd         Code = 27
	CodeCloseDestination Code = 28

	// Decompression driver conditions.
	CodeReadHeader    Code = 31
	CodeBlockTooLarge Code = 34
	CodeReadFrame     Code = 35
	CodeDecode        Code = 36
	CodeWriteDecoded  Code = 37
	CodeCloseDecoded  Code = 38
)

// Error is a fatal driver error. The driver performs no local recovery:
// every Error terminates the whole file operation, and partial output
// already written to the destination is left in place.
type Error struct {
	// Code distinguishes the fatal condition.
	Code Code

	// File is the offending file, when one is known.
	File string

	// Msg is the human-readable description.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func fatal(code Code, file string, err error, format string, args ...any) *Error {
	return &Error{
		Code: code,
		File: file,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}
