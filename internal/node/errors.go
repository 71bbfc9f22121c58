package node

import "errors"

// Sentinel errors node-level operations return; the facade wraps these
// into structured errors carrying the offending path.
var (
	ErrResourceNotFound  = errors.New("node: resource not found")
	ErrFileExpected      = errors.New("node: expected a file")
	ErrDirectoryExpected = errors.New("node: expected a directory")
	ErrFileExists        = errors.New("node: file already exists")
	ErrDirectoryExists   = errors.New("node: directory already exists")
	ErrDirectoryNotEmpty = errors.New("node: directory not empty")
	ErrRemoveRoot        = errors.New("node: cannot remove the root folder")
	ErrReadOnlyLazyFile  = errors.New("node: file is lazy; promote before writing")
)
