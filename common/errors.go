package common

import "fmt"

// ReplyError indicates a well-formed response whose status code was not the
// one expected for the command just issued.
type ReplyError struct {
	Code    int
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// TemporaryError indicates a response status in the range 400 to 499.
type TemporaryError struct {
	ReplyError
}

// PermanentError indicates a response status in the range 500 to 599.
type PermanentError struct {
	ReplyError
}

// ProtocolError indicates a response status line that could not be parsed.
type ProtocolError struct {
	Line string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid status line %q", e.Line)
}

// SyncError indicates a command was issued while a response reader was still
// active on the connection.
type SyncError struct {
	Reason string
}

func (e *SyncError) Error() string {
	return e.Reason
}

// DataError indicates response or request content that could not be decoded
// or parsed.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return e.Reason
}
