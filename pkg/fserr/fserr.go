// Package fserr defines the stable error kinds reported by filesystem operations.
package fserr

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"syscall"
)

type Kind string

const (
	NotFound             Kind = "NOT_FOUND"
	InvalidPath          Kind = "INVALID_PATH"
	PermissionDenied     Kind = "PERMISSION_DENIED"
	IoError              Kind = "IO_ERROR"
	NotADirectory        Kind = "NOT_A_DIRECTORY"
	ConflictUnresolved   Kind = "CONFLICT_UNRESOLVED"
	PartialMove          Kind = "PARTIAL_MOVE"
	TrashUnavailable     Kind = "TRASH_UNAVAILABLE"
	RecordNotFound       Kind = "RECORD_NOT_FOUND"
	OriginalPathOccupied Kind = "ORIGINAL_PATH_OCCUPIED"
	TrashEntryMissing    Kind = "TRASH_ENTRY_MISSING"
	Cancelled            Kind = "CANCELLED"
)

var descriptions = map[Kind]string{
	NotFound:             "path not found",
	InvalidPath:          "invalid path",
	PermissionDenied:     "permission denied",
	IoError:              "i/o error",
	NotADirectory:        "not a directory",
	ConflictUnresolved:   "destination conflict could not be resolved",
	PartialMove:          "data was copied but the source could not be removed",
	TrashUnavailable:     "trash store is unavailable",
	RecordNotFound:       "trash record not found",
	OriginalPathOccupied: "original path is occupied",
	TrashEntryMissing:    "trashed entry is missing from the trash store",
	Cancelled:            "operation cancelled",
}

// Describe returns the default human message for a kind.
func (k Kind) Describe() string {
	if text, ok := descriptions[k]; ok {
		return text
	}
	return strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
}

// Error is a classified failure. Path is always the path the caller supplied or the
// path the operation was acting on when it failed.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}

	message := e.Message
	if message == "" {
		message = e.Kind.Describe()
	}
	b.WriteString(message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, path string, message string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Message: message}
}

func Wrap(kind Kind, op string, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// FromOS classifies an error returned by the os package. Errors that already carry
// a kind are returned unchanged.
func FromOS(op string, path string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	return &Error{Kind: classify(err), Op: op, Path: path, Err: unwrapPathError(err)}
}

// KindOf reports the kind of err. Unclassified errors are IoError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	return classify(err)
}

// PathOf returns the path attached to err, if any.
func PathOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Path
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}

	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EROFS):
		return PermissionDenied
	case errors.Is(err, syscall.ENOTDIR):
		return NotADirectory
	case errors.Is(err, fs.ErrExist), errors.Is(err, syscall.ENOTEMPTY):
		return ConflictUnresolved
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.ENAMETOOLONG):
		return InvalidPath
	default:
		return IoError
	}
}

// unwrapPathError drops the outer path error so the path is not printed twice.
func unwrapPathError(err error) error {
	switch typed := err.(type) {
	case *fs.PathError:
		if typed.Err != nil {
			return typed.Err
		}
	case *os.LinkError:
		if typed.Err != nil {
			return typed.Err
		}
	}

	return err
}
