package sga

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/pack"
)

// memArchive is an in-memory io.WriteSeeker + io.ReaderAt used to
// round-trip a packed archive without touching the filesystem.
type memArchive struct {
	buf []byte
	pos int64
}

func (m *memArchive) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memArchive) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	}
	m.pos = base + offset
	return m.pos, nil
}

func (m *memArchive) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func openReader(data []byte) func() (pack.HostReader, error) {
	return func() (pack.HostReader, error) {
		return nopReadCloser{bytes.NewReader(data)}, nil
	}
}

type nopReadCloser struct{ *bytes.Reader }

func (nopReadCloser) Close() error { return nil }

func singleFileManifest(alias, name, filename string, content []byte) *pack.Manifest {
	return &pack.Manifest{
		Drives: []pack.ManifestDrive{
			{
				Alias:   alias,
				Name:    name,
				Default: binformat.Store,
				Root: pack.ManifestDir{
					Files: []pack.ManifestFile{
						{Name: filename, Modified: time.Unix(1700000000, 0), Open: openReader(content), Size: int64(len(content))},
					},
				},
			},
		},
	}
}

// Scenario 1: minimal STORE file round-trips and verifies clean.
func TestEndToEndMinimalStoreFile(t *testing.T) {
	m := singleFileManifest("data", "d", "a.txt", []byte("Hello"))

	var out memArchive
	require.NoError(t, Pack(m, &out, true))

	a, err := OpenReaderAt(&out, int64(len(out.buf)))
	require.NoError(t, err)
	defer a.Close()

	report, err := Verify(a, DefaultVerifyOptions())
	require.NoError(t, err)
	require.True(t, report.HeaderMD5Pass)
	require.True(t, report.FileMD5Pass)
	require.True(t, report.CoverageOK)
	for _, f := range report.Files {
		require.True(t, f.Pass)
	}

	fs := NewFS(a.Tree())
	rc, err := fs.Open(`data:\a.txt`)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(got))
}

// Scenario 3: multi-drive lookup prefers declaration order when no
// alias is given, and an explicit alias always wins.
func TestEndToEndMultiDriveLookupOrder(t *testing.T) {
	m := &pack.Manifest{
		Drives: []pack.ManifestDrive{
			{
				Alias: "attrib", Name: "Attrib", Default: binformat.Store,
				Root: pack.ManifestDir{Files: []pack.ManifestFile{
					{Name: "shared.txt", Modified: time.Unix(0, 0), Open: openReader([]byte("from-attrib"))},
				}},
			},
			{
				Alias: "data", Name: "Data", Default: binformat.Store,
				Root: pack.ManifestDir{Files: []pack.ManifestFile{
					{Name: "shared.txt", Modified: time.Unix(0, 0), Open: openReader([]byte("from-data"))},
				}},
			},
		},
	}

	var out memArchive
	require.NoError(t, Pack(m, &out, true))

	a, err := OpenReaderAt(&out, int64(len(out.buf)))
	require.NoError(t, err)
	defer a.Close()
	fs := NewFS(a.Tree())

	rc, err := fs.Open("shared.txt")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	require.Equal(t, "from-attrib", string(got))

	rc, err = fs.Open(`data:\shared.txt`)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	require.Equal(t, "from-data", string(got))

	rc, err = fs.Open(`attrib:\shared.txt`)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	require.Equal(t, "from-attrib", string(got))
}

// Scenario 5: flipping a bit in the ToC region fails both header
// digests. Per-file CRCs are not checked here: the flipped bit moves
// the drive table's offset, so the tampered archive exposes no drives.
func TestEndToEndTamperDetection(t *testing.T) {
	m := singleFileManifest("data", "d", "a.txt", []byte("Hello"))

	var out memArchive
	require.NoError(t, Pack(m, &out, true))

	tampered := append([]byte{}, out.buf...)
	tampered[binformat.TOCBaseOffset] ^= 0x01

	a, err := OpenReaderAt(bytes.NewReader(tampered), int64(len(tampered)))
	require.NoError(t, err)
	defer a.Close()

	report, err := Verify(a, DefaultVerifyOptions())
	require.NoError(t, err)
	require.False(t, report.HeaderMD5Pass)
	require.False(t, report.FileMD5Pass)
}

// Scenario 6: a DOW-format archive and an IC-format archive both
// auto-detect correctly with no hint.
func TestEndToEndVariantDetection(t *testing.T) {
	m := singleFileManifest("data", "d", "a.txt", []byte("Hello"))

	tree, err := pack.BuildTree(m)
	require.NoError(t, err)

	for _, format := range []binformat.GameFormat{binformat.FormatDOW, binformat.FormatIC} {
		s := &pack.Serializer{Format: format, ArchiveName: "d"}
		var out memArchive
		require.NoError(t, s.WriteSafe(&out, tree))

		a, err := OpenReaderAt(&out, int64(len(out.buf)))
		require.NoError(t, err)
		require.Equal(t, format, a.Format())
		require.NoError(t, a.Close())
	}
}

// Invariant 1: parse(serialize(A)) == A, structurally, over a
// single-drive archive with a subfolder and two files, repacked with
// no intervening mutation.
func TestRoundTripRepackPreservesStructure(t *testing.T) {
	m := &pack.Manifest{
		Drives: []pack.ManifestDrive{
			{
				Alias: "data", Name: "Data", Default: binformat.Store,
				Root: pack.ManifestDir{
					Dirs: []pack.ManifestDir{
						{
							Name: "models",
							Files: []pack.ManifestFile{
								{Name: "unit.whm", Modified: time.Unix(1700000000, 0), Open: openReader([]byte("model bytes"))},
							},
						},
					},
					Files: []pack.ManifestFile{
						{Name: "readme.txt", Modified: time.Unix(1700000001, 0), Open: openReader([]byte("hello world"))},
					},
				},
			},
		},
	}

	var first memArchive
	require.NoError(t, Pack(m, &first, true))

	a1, err := OpenReaderAt(&first, int64(len(first.buf)))
	require.NoError(t, err)
	defer a1.Close()

	var second memArchive
	require.NoError(t, Repack(&first, int64(len(first.buf)), &second))

	a2, err := OpenReaderAt(&second, int64(len(second.buf)))
	require.NoError(t, err)
	defer a2.Close()

	fs1, fs2 := NewFS(a1.Tree()), NewFS(a2.Tree())

	info1, err := fs1.List(`data:\`)
	require.NoError(t, err)
	info2, err := fs2.List(`data:\`)
	require.NoError(t, err)
	require.Empty(t, deep.Equal(info1, info2))

	sub1, err := fs1.List(`data:\models`)
	require.NoError(t, err)
	sub2, err := fs2.List(`data:\models`)
	require.NoError(t, err)
	require.Empty(t, deep.Equal(sub1, sub2))
}

// Lookups inside the FS are case-folded per §4.3: an upper- or
// mixed-case path resolves the same folder and file a lowercase path
// does.
func TestFSLookupsAreCaseFolded(t *testing.T) {
	m := singleFileManifest("data", "Data", "Readme.TXT", []byte("hi"))
	m.Drives[0].Root.Dirs = []pack.ManifestDir{
		{Name: "Models", Files: []pack.ManifestFile{
			{Name: "Unit.whm", Modified: time.Unix(0, 0), Open: openReader([]byte("model"))},
		}},
	}

	var out memArchive
	require.NoError(t, Pack(m, &out, true))

	a, err := OpenReaderAt(&out, int64(len(out.buf)))
	require.NoError(t, err)
	defer a.Close()
	fs := NewFS(a.Tree())

	rc, err := fs.Open(`DATA:\README.txt`)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	require.Equal(t, "hi", string(got))

	rc, err = fs.Open(`data:\MODELS\unit.WHM`)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	require.Equal(t, "model", string(got))
}

// Save forces a DirtyInPlace tree through PromoteRecursive and writes
// a fully materialized archive; the added file survives a fresh parse.
func TestArchiveSaveAfterMutationPromotesAndPersists(t *testing.T) {
	m := singleFileManifest("data", "Data", "readme.txt", []byte("hello world"))

	var out memArchive
	require.NoError(t, Pack(m, &out, true))

	a, err := OpenReaderAt(&out, int64(len(out.buf)))
	require.NoError(t, err)
	defer a.Close()

	root := a.Tree().Drive(0).Root()
	_, err = root.AddFile("new.txt", []byte("added"), 0, binformat.Store)
	require.NoError(t, err)
	require.True(t, a.Tree().Dirty())

	var saved memArchive
	require.NoError(t, a.Save(&saved))
	require.False(t, a.Tree().Dirty())

	a2, err := OpenReaderAt(&saved, int64(len(saved.buf)))
	require.NoError(t, err)
	defer a2.Close()

	fs2 := NewFS(a2.Tree())
	rc, err := fs2.Open(`data:\new.txt`)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	require.Equal(t, "added", string(got))

	rc, err = fs2.Open(`data:\readme.txt`)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	require.Equal(t, "hello world", string(got))
}
