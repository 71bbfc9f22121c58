package node

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
)

func TestMutableTreeAddListRemove(t *testing.T) {
	tree := NewEmptyTree()
	drive := tree.AddDrive("data", "Data")
	root := drive.Root()

	sub, err := root.AddFolder("models")
	require.NoError(t, err)

	_, err = sub.AddFile("a.txt", []byte("hello"), 0, binformat.Store)
	require.NoError(t, err)

	folders := root.ListFolders()
	require.Len(t, folders, 1)
	require.Equal(t, "models", folders[0].Basename())

	files := sub.ListFiles()
	require.Len(t, files, 1)
	require.Equal(t, "a.txt", files[0].Name())

	rc, err := files[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	ok, err := files[0].VerifyCRC(false)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, root.Remove("models", true))
	require.Empty(t, root.ListFolders())
}

func TestMutableDuplicateNameRejected(t *testing.T) {
	tree := NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()
	_, err := root.AddFile("a.txt", []byte("x"), 0, binformat.Store)
	require.NoError(t, err)
	_, err = root.AddFile("a.txt", []byte("y"), 0, binformat.Store)
	require.ErrorIs(t, err, ErrFileExists)
}

func TestRemoveNonEmptyFolderRequiresRecursive(t *testing.T) {
	tree := NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()
	sub, err := root.AddFolder("dir")
	require.NoError(t, err)
	_, err = sub.AddFile("a.txt", []byte("x"), 0, binformat.Store)
	require.NoError(t, err)

	require.ErrorIs(t, root.Remove("dir", false), ErrDirectoryNotEmpty)
	require.NoError(t, root.Remove("dir", true))
}

// fakeSource is a hand-assembled in-memory archive source used to
// exercise the lazy read path without going through the full
// Archive/Serializer round trip.
type fakeSource struct {
	format  binformat.GameFormat
	data    []byte
	names   []byte
	drives  [][]byte
	folders [][]byte
	files   [][]byte
}

func (s *fakeSource) Format() binformat.GameFormat { return s.format }
func (s *fakeSource) DataReaderAt() io.ReaderAt     { return bytes.NewReader(s.data) }
func (s *fakeSource) NamesBlob() []byte             { return s.names }
func (s *fakeSource) DriveCount() int               { return len(s.drives) }
func (s *fakeSource) RawDrive(i int) binformat.Drive { return binformat.Drive(s.drives[i]) }
func (s *fakeSource) FolderCount() int              { return len(s.folders) }
func (s *fakeSource) RawFolder(i int) binformat.Folder { return binformat.Folder(s.folders[i]) }
func (s *fakeSource) FileCount() int                { return len(s.files) }
func (s *fakeSource) RawFile(i int) binformat.FileRecord {
	return binformat.FileDOW(s.files[i])
}

func buildFakeArchive(t *testing.T) *fakeSource {
	t.Helper()

	names := []byte("root\x00a.txt\x00")
	rootNameOffset := uint32(0)
	fileNameOffset := uint32(5)

	payload := []byte("Hello")
	var compBuf bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&compBuf, zlib.BestCompression)
	_, _ = zw.Write(payload)
	_ = zw.Close()

	dataHeader := make([]byte, binformat.FileDataHeaderSize)
	hdr := binformat.FileDataHeader(dataHeader)
	require.NoError(t, hdr.SetName("root\\a.txt"))
	hdr.SetModified(1700000000)
	hdr.SetCRC32(crc32.ChecksumIEEE(payload))

	data := append(append([]byte{}, dataHeader...), compBuf.Bytes()...)

	folder := make([]byte, binformat.FolderSize)
	fr := binformat.Folder(folder)
	fr.SetNameOffset(rootNameOffset)
	fr.SetSubfolderRange(0, 0)
	fr.SetFileRange(0, 1)

	file := make([]byte, binformat.FileDOWSize)
	fileRec := binformat.FileDOW(file)
	fileRec.SetNameOffset(fileNameOffset)
	fileRec.SetStorageType(binformat.StreamCompress)
	fileRec.SetDataOffset(uint32(len(dataHeader)))
	fileRec.SetCompressedSize(uint32(compBuf.Len()))
	fileRec.SetDecompressedSize(uint32(len(payload)))

	drive := make([]byte, binformat.DriveSize)
	dr := binformat.Drive(drive)
	require.NoError(t, dr.SetAlias("data"))
	require.NoError(t, dr.SetName("Data"))
	dr.SetFolderRange(0, 1)
	dr.SetFileRange(0, 1)
	dr.SetRootFolder(0)

	return &fakeSource{
		format:  binformat.FormatDOW,
		data:    data,
		names:   names,
		drives:  [][]byte{drive},
		folders: [][]byte{folder},
		files:   [][]byte{file},
	}
}

func TestLazyTreeReadsDecompressesAndVerifies(t *testing.T) {
	src := buildFakeArchive(t)
	tree, err := NewTreeFromArchive(src)
	require.NoError(t, err)

	require.Equal(t, 1, tree.DriveCount())
	drive := tree.Drive(0)
	require.Equal(t, "data", drive.Alias())

	root := drive.Root()
	files := root.ListFiles()
	require.Len(t, files, 1)
	require.Equal(t, "a.txt", files[0].Name())
	require.Equal(t, binformat.StreamCompress, files[0].StorageType())

	rc, err := files[0].Open()
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(got))

	ok, err := files[0].VerifyCRC(false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLazyFileOpenWriteFailsUntilPromoted(t *testing.T) {
	src := buildFakeArchive(t)
	tree, err := NewTreeFromArchive(src)
	require.NoError(t, err)

	f := tree.Drive(0).Root().ListFiles()[0]
	_, err = f.OpenWrite()
	require.ErrorIs(t, err, ErrReadOnlyLazyFile)

	require.NoError(t, f.Promote())
	w, err := f.OpenWrite()
	require.NoError(t, err)
	_, err = w.Write([]byte("X"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rc, err := f.Open()
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	require.Equal(t, "X", string(got))
}
