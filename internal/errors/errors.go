package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
)

type Kind string

const (
	InvalidConfig        Kind = "invalid_config"
	NotFound             Kind = "not_found"
	PermissionDenied     Kind = "permission_denied"
	IOFailure            Kind = "io_failure"
	UnsupportedAlgorithm Kind = "unsupported_algorithm"
	Cancelled            Kind = "cancelled"
	Internal             Kind = "internal"
)

// ErrCancelled is returned once a job's cancel flag has been observed.
// It is a terminal outcome, not a failure.
var ErrCancelled = &AppError{Kind: Cancelled, Op: "job", Err: stderrors.New("operation cancelled")}

type AppError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// WrapPath picks NotFound or PermissionDenied from err when it can, and
// falls back to the given kind otherwise.
func WrapPath(fallback Kind, op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, fs.ErrNotExist):
		return Wrap(NotFound, op, path, err)
	case stderrors.Is(err, fs.ErrPermission):
		return Wrap(PermissionDenied, op, path, err)
	default:
		return Wrap(fallback, op, path, err)
	}
}

// KindOf returns the kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsCancelled(err error) bool {
	return stderrors.Is(err, ErrCancelled) || Is(err, Cancelled)
}

func UserMessage(err error) string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return err.Error()
	}
	switch appErr.Kind {
	case InvalidConfig:
		return fmt.Sprintf("Invalid configuration: %v", appErr.Err)
	case NotFound:
		return fmt.Sprintf("Path not found: %s", appErr.Path)
	case PermissionDenied:
		return fmt.Sprintf("Permission denied: %s", appErr.Path)
	case IOFailure:
		if appErr.Path == "" {
			return fmt.Sprintf("I/O error: %v", appErr.Err)
		}
		return fmt.Sprintf("I/O error: %s: %v", appErr.Path, appErr.Err)
	case UnsupportedAlgorithm:
		return fmt.Sprintf("Unsupported hash algorithm: %v", appErr.Err)
	case Cancelled:
		return "Operation cancelled"
	default:
		return fmt.Sprintf("Unexpected error: %v", appErr.Err)
	}
}
