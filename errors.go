package vfs

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
)

// A Kind classifies the cause of an Error into one of the closed set of failure modes every backend, decoration
// and composer in this package can produce. Callers should switch on Kind (via IsErr or errors.As), never on the
// concrete Go type, because decorations and composers re-wrap without changing Kind.
type Kind int

const (
	// KindNotFound means a path does not resolve.
	KindNotFound Kind = iota
	// KindAlreadyExists means a destination path is occupied; see Error.IsDir to distinguish file vs directory.
	KindAlreadyExists
	// KindNotEmpty means a directory delete was attempted without recurse and the directory has children.
	KindNotEmpty
	// KindNoReadAccess means the backend denied a read.
	KindNoReadAccess
	// KindNoWriteAccess means the backend denied a write.
	KindNoWriteAccess
	// KindUnauthorized means the caller lacks permission for the operation in general.
	KindUnauthorized
	// KindNotSupported means the filesystem does not implement the requested capability.
	KindNotSupported
	// KindInvalidArgument means a malformed path or an invalid mode/access/share combination was given.
	KindInvalidArgument
	// KindOutOfSpace means the block pool is exhausted with no hope of growth.
	KindOutOfSpace
	// KindIO means an unexpected backend failure occurred.
	KindIO
	// KindCancelled means a cancellation flag tripped mid-operation.
	KindCancelled
	// KindDisposed means a filesystem or stream was used after disposal.
	KindDisposed
	// KindPackageLoadError means a package loader could not interpret an archive.
	KindPackageLoadError
	// KindOptionCompositionUnsupported means two options could not be merged, e.g. an AutoMount extension collision.
	KindOptionCompositionUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindNotEmpty:
		return "NotEmpty"
	case KindNoReadAccess:
		return "NoReadAccess"
	case KindNoWriteAccess:
		return "NoWriteAccess"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotSupported:
		return "NotSupported"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindOutOfSpace:
		return "OutOfSpace"
	case KindIO:
		return "IO"
	case KindCancelled:
		return "Cancelled"
	case KindDisposed:
		return "Disposed"
	case KindPackageLoadError:
		return "PackageLoadError"
	case KindOptionCompositionUnsupported:
		return "OptionCompositionUnsupported"
	default:
		return "Unknown"
	}
}

// An Error is the single concrete error type produced by this package. Backends raise the Kind closest to the
// cause; decoration and composition layers surface it unchanged.
type Error struct {
	Kind Kind
	// Path is the path the operation was acting on, if any.
	Path Path
	// Message is a short human readable description, never used for programmatic dispatch.
	Message string
	// IsDir distinguishes file vs. directory conflicts for KindAlreadyExists.
	IsDir bool
	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause, or nil, so that errors.Is/errors.As work across wrapping layers.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs an *Error of the given kind with a message and optional path.
func NewError(kind Kind, path Path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// WrapError constructs an *Error of the given kind wrapping cause, preserving the original error in the Unwrap
// chain per the "rollback must not swallow the original failure" rule.
func WrapError(kind Kind, path Path, message string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Cause: cause}
}

// IsErr reports whether err, or any error in its Unwrap chain, is an *Error of the given kind.
func IsErr(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// NotFoundErr is a convenience constructor for the most common failure mode.
func NotFoundErr(path Path) *Error {
	return NewError(KindNotFound, path, "no such resource")
}

// NotSupportedErr is a convenience constructor reporting which capability is missing and, via who, which
// implementation was asked.
func NotSupportedErr(capability string, who interface{}) *Error {
	return NewError(KindNotSupported, "", fmt.Sprintf("%s not supported by %T", capability, who))
}

// AlreadyExistsErr reports a destination conflict, distinguishing file vs. directory.
func AlreadyExistsErr(path Path, isDir bool) *Error {
	return &Error{Kind: KindAlreadyExists, Path: path, Message: "destination already exists", IsDir: isDir}
}

// RollbackContext attaches the outcome of a rollback attempt to the original failure without discarding it: the
// caller always receives the original error through errors.Is/As, with the rollback result added for context.
// With no original failure, the rollback error itself is returned.
func RollbackContext(original error, rollbackErr error) error {
	if rollbackErr == nil {
		return original
	}
	if original == nil {
		return rollbackErr
	}
	wrapped := pkgerrors.Wrapf(original, "rollback also failed: %v", rollbackErr)
	return WrapError(classify(original), "", wrapped.Error(), original)
}

func classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// Aggregate combines zero or more errors into a single error using github.com/hashicorp/go-multierror, the
// "aggregate and re-raise" behavior of BatchContinueOnError batches and trees; observer dispatchers do not use
// it. Returns nil if every argument is nil.
func Aggregate(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
