package sga

import (
	"errors"
	"fmt"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/hashing"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

// ErrorKind names one of §7's error kinds. It is a kind, not a Go
// type: every failure surfaces as a single *Error carrying one of
// these plus the offending path and the wrapped cause.
type ErrorKind int

const (
	IoError ErrorKind = iota
	InvalidMagic
	VersionMismatch
	UndeterminedGameFormat
	ChecksumMismatchKind
	ResourceNotFound
	FileExpected
	DirectoryExpected
	FileExists
	DirectoryExists
	DirectoryNotEmpty
	RemoveRoot
	InvalidPath
	ReadOnlyLazyFile
	DriveExists
	NoDrive
	AmbiguousDrive
	InvalidField
)

func (k ErrorKind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case InvalidMagic:
		return "InvalidMagic"
	case VersionMismatch:
		return "VersionMismatch"
	case UndeterminedGameFormat:
		return "UndeterminedGameFormat"
	case ChecksumMismatchKind:
		return "ChecksumMismatch"
	case ResourceNotFound:
		return "ResourceNotFound"
	case FileExpected:
		return "FileExpected"
	case DirectoryExpected:
		return "DirectoryExpected"
	case FileExists:
		return "FileExists"
	case DirectoryExists:
		return "DirectoryExists"
	case DirectoryNotEmpty:
		return "DirectoryNotEmpty"
	case RemoveRoot:
		return "RemoveRoot"
	case InvalidPath:
		return "InvalidPath"
	case ReadOnlyLazyFile:
		return "ReadOnlyLazyFile"
	case DriveExists:
		return "DriveExists"
	case NoDrive:
		return "NoDrive"
	case AmbiguousDrive:
		return "AmbiguousDrive"
	case InvalidField:
		return "InvalidField"
	default:
		return "Unknown"
	}
}

// Error is the structured error every codec and facade operation
// returns, following the fs.PathError wrapping idiom the teacher uses
// throughout internal/fskeleton and internal/zip: a kind, the path the
// failure occurred at (if any), and the underlying cause.
type Error struct {
	Kind  ErrorKind
	Path  string
	Cause error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sga: %s: %s: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("sga: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func wrapErr(kind ErrorKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}

// kindFromNodeError maps internal/node's sentinel errors onto the
// public error kinds so the facade doesn't need to duplicate the
// mapping at every call site.
func kindFromNodeError(err error) ErrorKind {
	switch {
	case errors.Is(err, node.ErrResourceNotFound):
		return ResourceNotFound
	case errors.Is(err, node.ErrFileExpected):
		return FileExpected
	case errors.Is(err, node.ErrDirectoryExpected):
		return DirectoryExpected
	case errors.Is(err, node.ErrFileExists):
		return FileExists
	case errors.Is(err, node.ErrDirectoryExists):
		return DirectoryExists
	case errors.Is(err, node.ErrDirectoryNotEmpty):
		return DirectoryNotEmpty
	case errors.Is(err, node.ErrRemoveRoot):
		return RemoveRoot
	case errors.Is(err, node.ErrReadOnlyLazyFile):
		return ReadOnlyLazyFile
	default:
		var mismatch *hashing.ChecksumMismatch
		if errors.As(err, &mismatch) {
			return ChecksumMismatchKind
		}
		return IoError
	}
}

func wrapNodeErr(path string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return wrapErr(kindFromNodeError(cause), path, cause)
}
