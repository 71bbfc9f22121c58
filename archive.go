package sga

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/pack"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/sectionreader"
)

// openState tracks §4.12's Archive state machine: Open, DirtyInPlace
// (a mutation occurred while the backing source is also the intended
// save target), and Saved.
type openState int

const (
	stateOpen openState = iota
	stateDirtyInPlace
	stateSaved
)

// Archive is a parsed SGA v2 container: header, resolved ToC, names
// blob, and the lazy/mutable node Tree built over them. It owns the
// backing byte source for as long as any lazy node still borrows a
// window into it (§3's ownership rule).
type Archive struct {
	mu sync.Mutex

	src    io.ReaderAt
	closer io.Closer // non-nil when src is a memory map or file we opened
	size   int64

	format     binformat.GameFormat
	header     binformat.Header
	tocSize    uint32
	dataOffset uint32

	namesBlob []byte
	drivesBuf []byte
	foldersBuf []byte
	filesBuf  []byte

	tree *node.Tree

	state openState

	headerMD5Cache *bool
	fileMD5Cache   *bool
}

// OpenFile memory-maps path read-only and parses it as an SGA v2
// archive, grounded on distr1-distri/internal/install/install.go's use
// of golang.org/x/exp/mmap.Open to back a read-only io.ReaderAt
// without copying the whole payload into the heap.
func OpenFile(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, wrapErr(IoError, path, err)
	}
	a, err := OpenReaderAt(r, int64(r.Len()))
	if err != nil {
		r.Close()
		return nil, err
	}
	a.closer = r
	return a, nil
}

// OpenReaderAt parses an archive from an arbitrary io.ReaderAt (a
// plain *os.File, an in-memory buffer, or a caller-owned mapping).
func OpenReaderAt(src io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{src: src, size: size, state: stateOpen}
	if err := a.parse(); err != nil {
		return nil, err
	}
	tree, err := node.NewTreeFromArchive(a)
	if err != nil {
		return nil, wrapErr(IoError, "", err)
	}
	a.tree = tree
	return a, nil
}

func (a *Archive) parse() error {
	preamble := make([]byte, binformat.PreambleSize)
	if _, err := a.src.ReadAt(preamble, 0); err != nil {
		return wrapErr(IoError, "", err)
	}
	magic, major, minor := binformat.ParsePreamble(preamble)
	if magic != binformat.Magic {
		return wrapErr(InvalidMagic, "", fmt.Errorf("got %q", magic))
	}
	if major != binformat.VersionMajor || minor != binformat.VersionMinor {
		return wrapErr(VersionMismatch, "", fmt.Errorf("got %d.%d", major, minor))
	}

	headerBuf := make([]byte, binformat.HeaderSize)
	if _, err := a.src.ReadAt(headerBuf, binformat.HeaderOffset); err != nil {
		return wrapErr(IoError, "", err)
	}
	a.header = binformat.Header(headerBuf)
	a.tocSize = a.header.TOCSize()
	a.dataOffset = a.header.DataOffset()

	tocHeaderBuf := make([]byte, binformat.TOCHeaderSize)
	if _, err := a.src.ReadAt(tocHeaderBuf, binformat.TOCBaseOffset); err != nil {
		return wrapErr(IoError, "", err)
	}
	tocHeader := binformat.TOCHeader(tocHeaderBuf)
	ptrs := binformat.ResolvePointers(tocHeader, a.tocSize)

	read := func(ptr binformat.TOCPointer) ([]byte, error) {
		buf := make([]byte, ptr.Size)
		if ptr.Size == 0 {
			return buf, nil
		}
		if _, err := a.src.ReadAt(buf, int64(ptr.Offset)); err != nil {
			return nil, err
		}
		return buf, nil
	}

	var err error
	if a.drivesBuf, err = read(ptrs[binformat.TOCSlotDrives]); err != nil {
		return wrapErr(IoError, "", err)
	}
	if a.foldersBuf, err = read(ptrs[binformat.TOCSlotFolders]); err != nil {
		return wrapErr(IoError, "", err)
	}
	if a.filesBuf, err = read(ptrs[binformat.TOCSlotFiles]); err != nil {
		return wrapErr(IoError, "", err)
	}
	if a.namesBlob, err = read(ptrs[binformat.TOCSlotNames]); err != nil {
		return wrapErr(IoError, "", err)
	}

	fileCount := int(ptrs[binformat.TOCSlotFiles].Count)
	format, ferr := binformat.DetectGameFormat(len(a.filesBuf), fileCount)
	if ferr != nil {
		return wrapErr(UndeterminedGameFormat, "", ferr)
	}
	a.format = format

	log.WithField("file_count", fileCount).WithField("format", format).Debug("parsed archive ToC")
	return nil
}

// node.Source implementation.

func (a *Archive) Format() binformat.GameFormat { return a.format }

func (a *Archive) DataReaderAt() io.ReaderAt {
	return sectionreader.Section(a.src, int64(a.dataOffset), a.size-int64(a.dataOffset))
}

func (a *Archive) NamesBlob() []byte { return a.namesBlob }

func (a *Archive) DriveCount() int { return len(a.drivesBuf) / binformat.DriveSize }

func (a *Archive) RawDrive(i int) binformat.Drive {
	return binformat.Drive(a.drivesBuf[i*binformat.DriveSize : (i+1)*binformat.DriveSize])
}

func (a *Archive) FolderCount() int { return len(a.foldersBuf) / binformat.FolderSize }

func (a *Archive) RawFolder(i int) binformat.Folder {
	return binformat.Folder(a.foldersBuf[i*binformat.FolderSize : (i+1)*binformat.FolderSize])
}

func (a *Archive) FileCount() int {
	return len(a.filesBuf) / binformat.FileRecordSize(a.format)
}

func (a *Archive) RawFile(i int) binformat.FileRecord {
	return binformat.FileRecordAt(a.filesBuf, a.format, i)
}

// Tree returns the archive's lazy/mutable node graph.
func (a *Archive) Tree() *node.Tree { return a.tree }

// TOCWindow and DataWindow expose the raw byte ranges the verifier
// hashes over.
func (a *Archive) TOCWindow() (io.ReaderAt, int64) {
	return sectionreader.Section(a.src, binformat.TOCBaseOffset, int64(a.tocSize)), int64(a.tocSize)
}

func (a *Archive) FullWindow() (io.ReaderAt, int64) {
	return sectionreader.Section(a.src, binformat.TOCBaseOffset, a.size-binformat.TOCBaseOffset), a.size - binformat.TOCBaseOffset
}

func (a *Archive) Header() binformat.Header { return a.header }

// Close releases the backing source if Archive opened it itself (a
// memory map via OpenFile).
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// markDirty records that a mutation occurred; the verifier cache is
// invalidated on any write, per §4.12.
func (a *Archive) markDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = stateDirtyInPlace
	a.headerMD5Cache = nil
	a.fileMD5Cache = nil
}

// syncDirty transitions Open -> DirtyInPlace the first time it
// observes a's tree has been mutated through the FS facade, which
// marks the tree directly rather than calling back into Archive.
func (a *Archive) syncDirty() {
	a.mu.Lock()
	dirty := a.state != stateDirtyInPlace && a.tree != nil && a.tree.Dirty()
	a.mu.Unlock()
	if dirty {
		a.markDirty()
	}
}

// cachedHeaderMD5 and cachedFileMD5 return the verifier's cached
// outcome for the respective digest check, if any survives the last
// markDirty. ok is false when nothing is cached yet, forcing the
// caller to recompute.
func (a *Archive) cachedHeaderMD5() (pass, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.headerMD5Cache == nil {
		return false, false
	}
	return *a.headerMD5Cache, true
}

func (a *Archive) setHeaderMD5Cache(pass bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.headerMD5Cache = &pass
}

func (a *Archive) cachedFileMD5() (pass, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fileMD5Cache == nil {
		return false, false
	}
	return *a.fileMD5Cache, true
}

func (a *Archive) setFileMD5Cache(pass bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fileMD5Cache = &pass
}

// Save serializes a's current tree — including any mutation already
// applied through an FS built over a.Tree() — back out to out, always
// in safe mode. Per §4.12, a save out of DirtyInPlace first forces
// node.Tree.PromoteRecursive on the whole tree: the serializer walks
// every drive unconditionally, so any subtree still lazily borrowing
// bytes from a (the same source Save is about to overwrite in place)
// must be fully materialized first.
func (a *Archive) Save(out io.WriteSeeker) error {
	a.syncDirty()

	a.mu.Lock()
	dirty := a.state == stateDirtyInPlace
	a.mu.Unlock()

	if dirty {
		if err := a.tree.PromoteRecursive(); err != nil {
			return wrapErr(IoError, "", err)
		}
	}

	s := &pack.Serializer{Format: a.Format(), ArchiveName: a.Header().Name()}
	var sink writeSeekerSink
	sink.w = out
	if err := s.WriteSafe(&sink, a.tree); err != nil {
		return wrapErr(IoError, "", err)
	}

	a.mu.Lock()
	a.state = stateSaved
	a.mu.Unlock()
	a.tree.ClearDirty()
	return nil
}
