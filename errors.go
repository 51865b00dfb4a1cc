package sxgeo

import "errors"

var (
	// ErrTooSmall - file shorter than the fixed header
	ErrTooSmall = errors.New("file too small")
	// ErrBadSignature - file does not start with "SxG"
	ErrBadSignature = errors.New("bad signature")
	// ErrInvalidHeader - zero or out of range header fields
	ErrInvalidHeader = errors.New("invalid header")
	// ErrShortRead - fewer bytes available than the header promises
	ErrShortRead = errors.New("short read")
	// ErrBadPackFormat - pack format text cannot be parsed
	ErrBadPackFormat = errors.New("bad pack format")
	// ErrCorruptRecord - dictionary record does not match its pack format
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrInvalidIP - input is not a dotted-quad IPv4 address
	ErrInvalidIP = errors.New("invalid IPv4 address")
	// ErrNotFound - no range covers the address
	ErrNotFound = errors.New("not found")

	// ErrNotOpen - operation on a closed or never opened database
	ErrNotOpen = errors.New("database not open")
	// ErrAlreadyOpen - Open called on an open database
	ErrAlreadyOpen = errors.New("database already open")
)

// FormatError - failure to parse a database file at open time
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return "sxgeo: " + e.Path + ": " + e.Err.Error()
}

func (e *FormatError) Unwrap() error { return e.Err }

// StateError - operation not allowed in the current session state
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return "sxgeo: " + e.Op + ": " + e.Err.Error()
}

func (e *StateError) Unwrap() error { return e.Err }
