// Package node implements the "arena + index" lazy/mutable node graph:
// drives, folders, and files live in three parallel slices indexed by
// integer, exactly the shape Design Note 9.1 prescribes and the shape
// elliotnunn-BeHierarchic/internal/fskeleton/struct.go uses for its own
// flat node array. Each record carries a state tag (lazy or mutable)
// instead of belonging to one of several node classes, collapsing the
// four-tier lazy/mem/promoted/wrapper class family the original Python
// implementation uses into a single Go type per node kind.
package node

import (
	"io"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/sectionreader"
)

// Source is what a Tree needs from the archive reader that owns the
// backing byte source: a window over the data block, the names blob,
// and the four raw ToC tables.
type Source interface {
	Format() binformat.GameFormat
	DataReaderAt() io.ReaderAt
	NamesBlob() []byte
	DriveCount() int
	RawDrive(i int) binformat.Drive
	FolderCount() int
	RawFolder(i int) binformat.Folder
	FileCount() int
	RawFile(i int) binformat.FileRecord
}

// Tree is the full node arena for one archive: three parallel index
// spaces for drives, folders, and files, each independently lazy or
// promoted to mutable per-node.
type Tree struct {
	src Source // nil for a tree built fresh in memory (pack.Manifest path)

	drives  []driveRec
	folders []folderRec
	files   []fileRec

	cache *payloadCache
	dirty bool
}

// MarkDirty flags the tree as mutated since it was opened or last
// saved. Called from every real mutation entry point (AddFolder,
// AddFile, Remove, a file write, a metadata change), never from
// Promote alone, since promotion by itself changes no observable
// content.
func (t *Tree) MarkDirty() { t.dirty = true }

// Dirty reports whether the tree has been mutated since it was opened
// or last saved.
func (t *Tree) Dirty() bool { return t.dirty }

// ClearDirty resets the dirty flag, called once a save completes.
func (t *Tree) ClearDirty() { t.dirty = false }

// NodeState tags whether a record still borrows the archive's byte
// windows or owns its storage in memory.
type NodeState int

const (
	StateLazy NodeState = iota
	StateMutable
)

type driveRec struct {
	alias, name string
	root        int
}

type folderRec struct {
	state NodeState
	path  string // full backslash-separated path from the drive root

	// lazy fields
	subfolderStart, subfolderStop int
	firstFile, lastFile           int

	// mutable fields, populated on promotion or when built fresh
	childFolders map[string]int
	childFiles   map[string]int
	folderOrder  []string
	fileOrder    []string
}

type fileRec struct {
	state       NodeState
	name        string
	storageType binformat.StorageType
	modified    uint32
	crc32       uint32
	decompSize  int64
	compSize    int64

	// lazy: a byte window over the (still compressed) payload in the
	// archive's data block.
	lazyPayload io.ReaderAt

	// mutable: owned decompressed bytes.
	payload []byte
}

// NewTreeFromArchive builds a Tree whose drives, folders, and files are
// all initially lazy, reading scalar fields (names, ranges, storage
// types) eagerly from the ToC — cheap, since the ToC is already fully
// mapped — while deferring folder child-map construction to first
// access, per §4.5.
func NewTreeFromArchive(src Source) (*Tree, error) {
	t := &Tree{src: src, cache: newPayloadCache(16 * 1024 * 1024)}

	names := src.NamesBlob()

	t.folders = make([]folderRec, src.FolderCount())
	for i := range t.folders {
		raw := src.RawFolder(i)
		path, err := readName(names, raw.NameOffset())
		if err != nil {
			return nil, err
		}
		t.folders[i] = folderRec{
			state:           StateLazy,
			path:            path,
			subfolderStart:  int(raw.SubfolderStart()),
			subfolderStop:   int(raw.SubfolderStop()),
			firstFile:       int(raw.FirstFile()),
			lastFile:        int(raw.LastFile()),
		}
	}

	t.files = make([]fileRec, src.FileCount())
	dataReader := src.DataReaderAt()
	for i := range t.files {
		raw := src.RawFile(i)
		name, err := readName(names, raw.NameOffset())
		if err != nil {
			return nil, err
		}
		t.files[i] = fileRec{
			state:       StateLazy,
			name:        name,
			storageType: raw.StorageType(),
			decompSize:  int64(raw.DecompressedSize()),
			compSize:    int64(raw.CompressedSize()),
			lazyPayload: sectionreader.Section(dataReader, int64(raw.DataOffset()), int64(raw.CompressedSize())),
		}
		// the file data header immediately precedes the payload and
		// carries the authoritative modified time and CRC32.
		hdrBuf := make([]byte, binformat.FileDataHeaderSize)
		if _, err := sectionreader.Section(dataReader, int64(raw.DataOffset())-binformat.FileDataHeaderSize, binformat.FileDataHeaderSize).ReadAt(hdrBuf, 0); err != nil && err != io.EOF {
			return nil, err
		}
		hdr := binformat.FileDataHeader(hdrBuf)
		t.files[i].modified = hdr.Modified()
		t.files[i].crc32 = hdr.CRC32()
	}

	t.drives = make([]driveRec, src.DriveCount())
	for i := range t.drives {
		raw := src.RawDrive(i)
		t.drives[i] = driveRec{
			alias: raw.Alias(),
			name:  raw.Name(),
			root:  int(raw.RootFolder()),
		}
	}

	return t, nil
}

// NewEmptyTree builds a Tree with no drives, suitable as the starting
// point for an in-memory archive built from scratch (the packer's
// manifest path).
func NewEmptyTree() *Tree {
	return &Tree{cache: newPayloadCache(16 * 1024 * 1024)}
}

func readName(names []byte, offset uint32) (string, error) {
	if int64(offset) >= int64(len(names)) {
		return "", ErrResourceNotFound
	}
	end := offset
	for end < uint32(len(names)) && names[end] != 0 {
		end++
	}
	return string(names[offset:end]), nil
}

// DriveCount, FolderCount, FileCount report the current arena sizes.
func (t *Tree) DriveCount() int  { return len(t.drives) }
func (t *Tree) FolderCount() int { return len(t.folders) }
func (t *Tree) FileCount() int   { return len(t.files) }

// PromoteRecursive promotes every drive's entire folder/file subtree
// to mutable, per §4.12.
func (t *Tree) PromoteRecursive() error {
	for _, d := range t.Drives() {
		if err := d.Root().PromoteRecursive(); err != nil {
			return err
		}
	}
	return nil
}
