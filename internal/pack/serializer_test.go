package pack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/node"
)

func buildSampleTree(t *testing.T) *node.Tree {
	t.Helper()
	tree := node.NewEmptyTree()
	root := tree.AddDrive("data", "Data").Root()

	sub, err := root.AddFolder("models")
	require.NoError(t, err)
	_, err = sub.AddFile("unit.whm", []byte("a model payload"), 1700000000, binformat.StreamCompress)
	require.NoError(t, err)
	_, err = root.AddFile("readme.txt", []byte("hello world"), 1700000001, binformat.Store)
	require.NoError(t, err)

	return tree
}

func TestSerializerWriteSafeProducesValidPreambleAndHeader(t *testing.T) {
	tree := buildSampleTree(t)
	s := &Serializer{Format: binformat.FormatDOW, ArchiveName: "Sample Archive"}

	var out bytes.Buffer
	require.NoError(t, s.WriteSafe(&out, tree))

	raw := out.Bytes()
	require.True(t, len(raw) > binformat.TOCBaseOffset)

	magic, major, minor := binformat.ParsePreamble(raw[:binformat.PreambleSize])
	require.Equal(t, binformat.Magic, magic)
	require.Equal(t, uint16(binformat.VersionMajor), major)
	require.Equal(t, uint16(binformat.VersionMinor), minor)

	header := binformat.Header(raw[binformat.HeaderOffset : binformat.HeaderOffset+binformat.HeaderSize])
	require.Equal(t, "Sample Archive", header.Name())
	require.True(t, header.TOCSize() > 0)
	require.True(t, header.DataOffset() > uint32(binformat.TOCBaseOffset))

	tocHeader := binformat.TOCHeader(raw[binformat.TOCBaseOffset : binformat.TOCBaseOffset+binformat.TOCHeaderSize])
	ptrs := binformat.ResolvePointers(tocHeader, header.TOCSize())
	require.EqualValues(t, 1, ptrs[binformat.TOCSlotDrives].Count)
	require.EqualValues(t, 2, ptrs[binformat.TOCSlotFolders].Count)
	require.EqualValues(t, 2, ptrs[binformat.TOCSlotFiles].Count)

	// Non-zero digests: a freshly written archive should never carry
	// all-zero placeholder MD5s past the back-patch pass.
	var zero [16]byte
	require.NotEqual(t, zero, header.FileMD5())
	require.NotEqual(t, zero, header.TOCMD5())
}

func TestDisassemblerPerDriveNameDedup(t *testing.T) {
	tree := node.NewEmptyTree()
	a := tree.AddDrive("a", "A").Root()
	b := tree.AddDrive("b", "B").Root()

	_, err := a.AddFile("shared.txt", []byte("x"), 0, binformat.Store)
	require.NoError(t, err)
	_, err = b.AddFile("shared.txt", []byte("y"), 0, binformat.Store)
	require.NoError(t, err)

	dis := NewDisassembler(binformat.FormatDOW)
	streams, err := dis.Run(tree)
	require.NoError(t, err)

	// "shared.txt" must appear twice in the names blob: dedup is scoped
	// per drive, not global across the whole archive.
	require.Equal(t, 2, bytes.Count(streams.Names, []byte("shared.txt\x00")))
}

func TestBuildTreeFromManifestResolvesStorageRules(t *testing.T) {
	bigStorage := binformat.StreamCompress
	m := &Manifest{
		Drives: []ManifestDrive{
			{
				Alias: "data",
				Name:  "Data",
				Root: ManifestDir{
					Files: []ManifestFile{
						{
							Name: "big.dat",
							Open: func() (HostReader, error) {
								return nopHostReader{bytes.NewReader(make([]byte, 2048))}, nil
							},
						},
					},
				},
				Rules: []StorageRule{
					{MinSize: 1024, MaxSize: -1, Wildcard: "*", Storage: bigStorage},
				},
				Default: binformat.Store,
			},
		},
	}

	tree, err := BuildTree(m)
	require.NoError(t, err)

	files := tree.Drives()[0].Root().ListFiles()
	require.Len(t, files, 1)
	require.Equal(t, binformat.StreamCompress, files[0].StorageType())
}

type nopHostReader struct{ *bytes.Reader }

func (nopHostReader) Close() error { return nil }
