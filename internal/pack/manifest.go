// Package pack implements the disassembler and serializer halves of
// the packer pipeline: turning a drive tree (or an external manifest)
// into four staging streams, and writing those streams to a
// three-pass, back-patched wire image.
package pack

import (
	"io"
	"iter"
	"time"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
)

// Manifest is the packer's input shape: the abstract structured value
// (drives, storage rules, file tree) that a parsed .arciv/.sgaconfig
// document would build before handing off to the writer. The text
// syntax itself stays out of scope; this is the concrete Go value
// those parsers would produce.
type Manifest struct {
	Drives []ManifestDrive
}

// ManifestDrive describes one drive to be packed: its identity, its
// file tree, and the ordered storage-type resolution rules for files
// that come from a HostFS walk rather than an already-built tree.
type ManifestDrive struct {
	Alias, Name string
	Root        ManifestDir
	Rules       []StorageRule // ordered; first match wins
	Default     binformat.StorageType
}

// StorageRule is one entry of a drive's ordered storage-type
// resolution list: the first rule whose size range contains the file
// and whose Windows-glob wildcard matches the file's name wins.
type StorageRule struct {
	MinSize, MaxSize int64 // -1 disables the respective bound
	Wildcard         string
	Storage          binformat.StorageType
}

// sizeMatches reports whether size falls within the rule's bounds.
func (r StorageRule) sizeMatches(size int64) bool {
	if r.MinSize >= 0 && size < r.MinSize {
		return false
	}
	if r.MaxSize >= 0 && size > r.MaxSize {
		return false
	}
	return true
}

// ManifestDir is one folder in the manifest's file tree.
type ManifestDir struct {
	Name  string
	Dirs  []ManifestDir
	Files []ManifestFile
}

// ManifestFile is one file in the manifest's file tree: a lazily
// opened host reader plus the metadata the packer needs up front.
type ManifestFile struct {
	Name     string
	Modified time.Time
	Open     func() (HostReader, error)
	Size     int64
	// Storage, when non-nil, forces a storage type, bypassing rule
	// resolution entirely (used when the tree already carries an
	// explicit storage type, e.g. a round-tripped archive).
	Storage *binformat.StorageType
}

// HostFS is the minimal host filesystem trait the packer consumes
// when building a Manifest from real files on disk; it does not
// require write access.
type HostFS interface {
	OpenRead(path string) (HostReader, error)
	Stat(path string) (HostInfo, error)
	Walk(path string) iter.Seq2[string, HostEntryKind]
}

type HostReader interface {
	io.Reader
	io.Closer
}

type HostInfo struct {
	Size     int64
	Modified time.Time
}

type HostEntryKind int

const (
	HostFile HostEntryKind = iota
	HostDir
)
