package api

import (
	"errors"
	"fmt"
)

// Sentinel errors of the database facade. Wrapped in *Error; test with errors.Is.
var (
	// ErrNotFound is returned when a device, server, class, alias or
	// attribute is required to exist and does not.
	ErrNotFound = errors.New("entity not found")
	// ErrAlreadyExists is returned for duplicate aliases and rename targets.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnsupported is returned for commands that are not implemented.
	ErrUnsupported = errors.New("unsupported")
	// ErrMalformed is returned for documents or argument lists that cannot
	// be decoded.
	ErrMalformed = errors.New("malformed input")
)

// Tango reason strings carried to the RPC layer.
const (
	ReasonDeviceNotDefined   = "DB_DeviceNotDefined"
	ReasonSQLError           = "DB_SQLError"
	ReasonIncorrectArguments = "DB_IncorrectArguments"
	ReasonCommandNotFound    = "API_CommandNotFound"
)

// Error describes a failed facade operation.
type Error struct {
	Op     string // Tango command, e.g. "DataBase::GetAliasDevice()"
	Entity string // name that failed to resolve or collided
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Entity, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds an ErrNotFound error for entity.
func NotFound(op, entity string) error {
	return &Error{Op: op, Entity: entity, Reason: ReasonDeviceNotDefined, Err: ErrNotFound}
}

// AlreadyExists builds an ErrAlreadyExists error for entity.
func AlreadyExists(op, entity string) error {
	return &Error{Op: op, Entity: entity, Reason: ReasonSQLError, Err: ErrAlreadyExists}
}

// Malformed builds an ErrMalformed error with a detail message.
func Malformed(op, format string, args ...any) error {
	return &Error{
		Op:     op,
		Reason: ReasonIncorrectArguments,
		Err:    fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...)),
	}
}

// Unsupported builds an ErrUnsupported error for a command name.
func Unsupported(op string) error {
	return &Error{Op: op, Reason: ReasonCommandNotFound, Err: ErrUnsupported}
}

// ReasonOf returns the Tango reason carried by err, or "" when err is not
// an *Error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
