package pack

import (
	"bytes"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

// Streams holds the four staging streams the serializer concatenates,
// plus the per-drive index ranges needed to fill in each Drive
// record's first/last folder and file fields.
type Streams struct {
	Names, Folders, Files, Data []byte
	DriveRanges                 []DriveRange
	FolderCount, FileCount      int
}

// DriveRange is the half-open folder/file index ranges (and root
// folder index) a Drive record needs, in the order Disassembler
// assigned them.
type DriveRange struct {
	Alias, Name                           string
	FirstFolder, LastFolder               uint16
	FirstFile, LastFile                   uint16
	RootFolder                            uint16
}

// Disassembler walks a node.Tree's drives and emits the four staging
// streams in the strict order §4.8 requires: for each drive, a
// depth-first folder walk (children sorted by lowercased basename)
// assigning folder records and name offsets, then a second depth-first
// pass over the same order assigning file records and basename
// offsets, then the compressed payload stream.
//
// Name deduplication is per-drive: the reference writer's _add_name
// keeps one offset table per drive, so identical paths in different
// drives get independent Names-blob entries. Within a drive, offsets
// are reused for duplicate strings, keyed by an xxhash of the
// candidate string rather than the string itself (the same
// "intern long-lived strings to control allocation" idea the teacher
// applies to path interning, adapted here to offset dedup since wire
// compatibility requires real byte offsets, not handles).
type Disassembler struct {
	format binformat.GameFormat

	names       bytes.Buffer
	folders     bytes.Buffer
	files       bytes.Buffer
	data        bytes.Buffer

	folderCount int
	fileCount   int
}

func NewDisassembler(format binformat.GameFormat) *Disassembler {
	return &Disassembler{format: format}
}

type nameDedup struct {
	byHash map[uint64][]nameEntry
	buf    *bytes.Buffer
}

type nameEntry struct {
	text   string
	offset uint32
}

func newNameDedup(buf *bytes.Buffer) *nameDedup {
	return &nameDedup{byHash: map[uint64][]nameEntry{}, buf: buf}
}

func (d *nameDedup) intern(s string) uint32 {
	h := xxhash.Sum64String(s)
	for _, e := range d.byHash[h] {
		if e.text == s {
			return e.offset
		}
	}
	offset := uint32(d.buf.Len())
	d.buf.WriteString(s)
	d.buf.WriteByte(0)
	d.byHash[h] = append(d.byHash[h], nameEntry{text: s, offset: offset})
	return offset
}

// Run walks every drive in tree and returns the four staging streams.
//
// Per drive, emission is two separate depth-first passes over the same
// folder order, exactly as §3 requires ("first walk all folders...
// emit each folder's full path; then walk files in the same order and
// emit each file's basename") so the Names blob byte-for-byte matches
// the reference writer: a single interleaved pass (folder name, then
// recurse, then that folder's files) produces a different Names
// ordering than two passes do whenever a folder has both children and
// files.
func (a *Disassembler) Run(tree *node.Tree) (Streams, error) {
	var ranges []DriveRange

	for _, drive := range tree.Drives() {
		dedup := newNameDedup(&a.names)

		folderStart := a.folderCount
		fileStart := a.fileCount

		var order []folderWalkEntry
		rootIdx := a.walkFoldersOnly(drive.Root(), dedup, &order)

		for _, entry := range order {
			if err := a.appendFolderFiles(entry, dedup); err != nil {
				return Streams{}, err
			}
		}

		ranges = append(ranges, DriveRange{
			Alias:       drive.Alias(),
			Name:        drive.Name(),
			FirstFolder: uint16(folderStart),
			LastFolder:  uint16(a.folderCount),
			FirstFile:   uint16(fileStart),
			LastFile:    uint16(a.fileCount),
			RootFolder:  uint16(rootIdx),
		})
	}

	return Streams{
		Names:       a.names.Bytes(),
		Folders:     a.folders.Bytes(),
		Files:       a.files.Bytes(),
		Data:        a.data.Bytes(),
		DriveRanges: ranges,
		FolderCount: a.folderCount,
		FileCount:   a.fileCount,
	}, nil
}

// folderWalkEntry pairs a source folder with the output index pass one
// assigned it, so pass two can back-patch the right record; the
// source tree's own node.Folder.Index() belongs to a different index
// space (the tree's own arena) and must not be reused here.
type folderWalkEntry struct {
	folder   node.Folder
	outIndex int
}

// walkFoldersOnly is pass one: it assigns this folder's output index
// and name offset, recurses into sorted subfolders, and appends this
// folder (in visiting order) to order so pass two can revisit the
// identical traversal for files. File ranges are left zeroed here;
// pass two fills them in once every folder in the drive has an index.
func (a *Disassembler) walkFoldersOnly(f node.Folder, dedup *nameDedup, order *[]folderWalkEntry) int {
	myIndex := a.folderCount
	a.folderCount++
	a.folders.Write(make([]byte, binformat.FolderSize)) // placeholder

	nameOffset := dedup.intern(sgaPath(f.Name()))
	*order = append(*order, folderWalkEntry{folder: f, outIndex: myIndex})

	subfolders := sortedFolders(f)
	subStart := a.folderCount
	for _, sub := range subfolders {
		a.walkFoldersOnly(sub, dedup, order)
	}
	subStop := a.folderCount

	rec := binformat.Folder(a.folders.Bytes()[myIndex*binformat.FolderSize : (myIndex+1)*binformat.FolderSize])
	rec.SetNameOffset(nameOffset)
	rec.SetSubfolderRange(uint16(subStart), uint16(subStop))

	return myIndex
}

// appendFolderFiles is pass two: for one folder (visited in the same
// order pass one recorded it in), it emits every file record and data
// block, then back-patches that folder's already-written record with
// the resulting file range.
func (a *Disassembler) appendFolderFiles(entry folderWalkEntry, dedup *nameDedup) error {
	files := sortedFiles(entry.folder)
	fileStart := a.fileCount
	for _, file := range files {
		if err := a.appendFile(file, dedup); err != nil {
			return err
		}
	}
	fileStop := a.fileCount

	rec := binformat.Folder(a.folders.Bytes()[entry.outIndex*binformat.FolderSize : (entry.outIndex+1)*binformat.FolderSize])
	rec.SetFileRange(uint16(fileStart), uint16(fileStop))
	return nil
}

// appendFile emits a file's record and its compressed data block
// (264-byte header plus payload).
func (a *Disassembler) appendFile(file node.File, dedup *nameDedup) error {
	name := strings.ToLower(file.Name())
	nameOffset := dedup.intern(name)

	rc, err := file.Open()
	if err != nil {
		return err
	}
	payload, err := readAllClose(rc)
	if err != nil {
		return err
	}

	dataOffset, compressedSize, err := writeDataBlock(&a.data, name, file.Modified(), payload, file.StorageType())
	if err != nil {
		return err
	}

	size := binformat.FileRecordSize(a.format)
	rec := make([]byte, size)
	w := binformat.WritableFileRecordAt(rec, a.format, 0)
	w.SetNameOffset(nameOffset)
	w.SetStorageType(file.StorageType())
	w.SetDataOffset(dataOffset)
	w.SetCompressedSize(compressedSize)
	w.SetDecompressedSize(uint32(len(payload)))
	a.files.Write(rec)

	a.fileCount++
	return nil
}

func sortedFolders(f node.Folder) []node.Folder {
	out := append([]node.Folder{}, f.ListFolders()...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Basename()) < strings.ToLower(out[j].Basename())
	})
	return out
}

func sortedFiles(f node.Folder) []node.File {
	out := append([]node.File{}, f.ListFiles()...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name()) < strings.ToLower(out[j].Name())
	})
	return out
}

// sgaPath lowercases and backslash-normalizes a folder's full path for
// on-disk storage, per §3's "names use backslash separator and are
// stored lowercased" rule.
func sgaPath(p string) string {
	p = strings.ReplaceAll(p, "/", "\\")
	return strings.ToLower(p)
}
