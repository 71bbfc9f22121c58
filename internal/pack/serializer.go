package pack

import (
	"bytes"
	"io"

	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/hashing"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

// Serializer implements §4.9's three-pass write: a zero-filled
// skeleton, the body (ToC sub-blocks then the data block), and a
// final back-patch of the real ToC header, digests, and header fields.
type Serializer struct {
	Format      binformat.GameFormat
	ArchiveName string
}

// WriteDirect writes straight through to w with no buffering. The
// caller is responsible for discarding w's contents on error; in
// direct mode a failure during the body or back-patch pass leaves w
// in an undefined state, per §4.9's failure semantics.
func (s *Serializer) WriteDirect(w io.WriteSeeker, r io.ReaderAt, tree *node.Tree) error {
	return s.writeCore(w, r, tree)
}

// WriteSafe stages the entire write in an owned in-memory buffer
// (github.com/orcaman/writerseeker, the same "compose a seekable
// artifact entirely in memory, then flush once" idiom
// distr1-distri's initrd builder uses) and only copies the result into
// dst after a fully successful pass, making a failed write atomic with
// respect to dst's existing contents.
func (s *Serializer) WriteSafe(dst io.Writer, tree *node.Tree) error {
	var staging writerseeker.WriterSeeker

	if err := s.writeCore(&staging, nil, tree); err != nil {
		return err
	}

	final, err := readAllSeeker(&staging)
	if err != nil {
		return err
	}

	// The hashing pass in writeCore needs an io.ReaderAt over bytes
	// already written; writerseeker doesn't implement ReaderAt, so the
	// core write above ran with r == nil and patched placeholder
	// digests. Recompute now that every byte is in a real buffer, and
	// patch it directly in final before copying out.
	if err := backpatchDigests(final, s.ArchiveName); err != nil {
		return err
	}

	_, err = dst.Write(final)
	return err
}

// WriteFile stages the write (as WriteSafe does) then atomically
// replaces path using github.com/google/renameio, the same
// temp-file-then-rename pattern distr1-distri's initrd builder uses to
// make a multi-step image build atomic with respect to the
// destination file.
func (s *Serializer) WriteFile(path string, tree *node.Tree) error {
	var staging writerseeker.WriterSeeker
	if err := s.writeCore(&staging, nil, tree); err != nil {
		return err
	}
	final, err := readAllSeeker(&staging)
	if err != nil {
		return err
	}
	if err := backpatchDigests(final, s.ArchiveName); err != nil {
		return err
	}

	out, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer out.Cleanup()

	if _, err := out.Write(final); err != nil {
		return err
	}
	return out.CloseAtomicallyReplace()
}

func readAllSeeker(ws *writerseeker.WriterSeeker) ([]byte, error) {
	return io.ReadAll(ws.Reader())
}

// writeCore performs passes 1 and 2 (skeleton and body) against w,
// writing placeholder digests in pass 3 if r is nil (the safe-mode
// staging path, which recomputes and patches digests afterward once
// everything lives in one addressable buffer), or the real digests
// immediately when r is a live io.ReaderAt over what was just written
// (the direct-mode path, where w and r are the same destination).
func (s *Serializer) writeCore(w io.WriteSeeker, r io.ReaderAt, tree *node.Tree) error {
	// Pass 1: skeleton.
	preamble := make([]byte, binformat.PreambleSize)
	binformat.WritePreamble(preamble, binformat.VersionMajor, binformat.VersionMinor)
	if _, err := w.Write(preamble); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, binformat.HeaderSize)); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, binformat.TOCHeaderSize)); err != nil {
		return err
	}

	// Pass 2: body.
	dis := NewDisassembler(s.Format)
	streams, err := dis.Run(tree)
	if err != nil {
		return err
	}

	driveBlock := buildDriveBlock(streams.DriveRanges)

	type subBlock struct {
		slot int
		data []byte
	}
	order := []subBlock{
		{binformat.TOCSlotDrives, driveBlock},
		{binformat.TOCSlotFolders, streams.Folders},
		{binformat.TOCSlotFiles, streams.Files},
		{binformat.TOCSlotNames, streams.Names},
	}

	var ptrs [4]binformat.TOCPointer
	relOffset := uint32(binformat.TOCHeaderSize)
	for _, b := range order {
		ptrs[b.slot] = binformat.TOCPointer{Slot: b.slot, Offset: relOffset, Count: subBlockCount(b.slot, streams)}
		if _, err := w.Write(b.data); err != nil {
			return err
		}
		relOffset += uint32(len(b.data))
	}
	tocSize := relOffset

	if _, err := w.Write(streams.Data); err != nil {
		return err
	}
	dataOffset := binformat.TOCBaseOffset + int64(tocSize)

	// Pass 3: back-patch.
	tocHeaderBuf := make([]byte, binformat.TOCHeaderSize)
	tocHeader := binformat.TOCHeader(tocHeaderBuf)
	for slot, p := range ptrs {
		tocHeader.Set(slot, p.Offset, p.Count)
	}
	if _, err := w.Seek(binformat.TOCBaseOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.Write(tocHeaderBuf); err != nil {
		return err
	}

	headerBuf := make([]byte, binformat.HeaderSize)
	header := binformat.Header(headerBuf)
	header.SetTOCSize(tocSize)
	header.SetDataOffset(uint32(dataOffset))
	if err := header.SetName(s.ArchiveName); err != nil {
		return err
	}

	if r != nil {
		tocEigen := hashing.MD5Hasher{Eigen: hashing.TOCMD5Eigen, Kind: hashing.TOCMD5}
		fileEigen := hashing.MD5Hasher{Eigen: hashing.FileMD5Eigen, Kind: hashing.FileMD5}

		tocSize64 := int64(tocSize)
		tocMD5, err := tocEigen.Hash(r, binformat.TOCBaseOffset, &tocSize64)
		if err != nil {
			return err
		}
		fileMD5, err := fileEigen.Hash(r, binformat.TOCBaseOffset, nil)
		if err != nil {
			return err
		}
		header.SetTOCMD5(tocMD5)
		header.SetFileMD5(fileMD5)
	}

	if _, err := w.Seek(binformat.HeaderOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.Write(headerBuf); err != nil {
		return err
	}

	return nil
}

func buildDriveBlock(ranges []DriveRange) []byte {
	buf := make([]byte, len(ranges)*binformat.DriveSize)
	for i, dr := range ranges {
		rec := binformat.Drive(buf[i*binformat.DriveSize : (i+1)*binformat.DriveSize])
		_ = rec.SetAlias(dr.Alias)
		_ = rec.SetName(dr.Name)
		rec.SetFolderRange(dr.FirstFolder, dr.LastFolder)
		rec.SetFileRange(dr.FirstFile, dr.LastFile)
		rec.SetRootFolder(dr.RootFolder)
	}
	return buf
}

func subBlockCount(slot int, s Streams) uint16 {
	switch slot {
	case binformat.TOCSlotDrives:
		return uint16(len(s.DriveRanges))
	case binformat.TOCSlotFolders:
		return uint16(s.FolderCount)
	case binformat.TOCSlotFiles:
		return uint16(s.FileCount)
	default:
		return 0 // Names count is not consulted by the reference reader
	}
}

// backpatchDigests recomputes toc_md5/file_md5 over the final
// in-memory buffer and patches the header in place; used by the
// safe-mode paths where writeCore ran without a live io.ReaderAt.
func backpatchDigests(final []byte, archiveName string) error {
	header := binformat.Header(final[binformat.HeaderOffset : binformat.HeaderOffset+binformat.HeaderSize])
	tocSize := header.TOCSize()

	r := bytes.NewReader(final)
	tocEigen := hashing.MD5Hasher{Eigen: hashing.TOCMD5Eigen, Kind: hashing.TOCMD5}
	fileEigen := hashing.MD5Hasher{Eigen: hashing.FileMD5Eigen, Kind: hashing.FileMD5}

	tocSize64 := int64(tocSize)
	tocMD5, err := tocEigen.Hash(r, binformat.TOCBaseOffset, &tocSize64)
	if err != nil {
		return err
	}
	fileMD5, err := fileEigen.Hash(r, binformat.TOCBaseOffset, nil)
	if err != nil {
		return err
	}
	header.SetTOCMD5(tocMD5)
	header.SetFileMD5(fileMD5)
	_ = archiveName // name is already baked into the header during writeCore
	return nil
}
