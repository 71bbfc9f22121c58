package node

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/hashing"
)

// File is a handle into a Tree's file arena.
type File struct {
	t   *Tree
	idx int
}

func (t *Tree) File(idx int) File { return File{t: t, idx: idx} }

func (f File) Index() int { return f.idx }

func (f File) Name() string               { return f.t.files[f.idx].name }
func (f File) StorageType() binformat.StorageType { return f.t.files[f.idx].storageType }
func (f File) Modified() uint32           { return f.t.files[f.idx].modified }
func (f File) CRC32() uint32              { return f.t.files[f.idx].crc32 }
func (f File) DecompressedSize() int64    { return f.t.files[f.idx].decompSize }
func (f File) CompressedSize() int64      { return f.t.files[f.idx].compSize }
func (f File) State() NodeState           { return f.t.files[f.idx].state }

// SetModified overwrites the stored timestamp. Available on lazy and
// mutable files alike, since it touches only the in-memory record, not
// the payload.
func (f File) SetModified(ts uint32) {
	f.t.files[f.idx].modified = ts
	f.t.MarkDirty()
}

// Open returns a reader over the decompressed payload. Lazy files
// decompress (if needed) straight from the archive's byte window every
// time, consulting the tree's payload cache first as an optimization;
// mutable files just wrap their owned buffer.
func (f File) Open() (io.ReadCloser, error) {
	rec := &f.t.files[f.idx]

	if rec.state == StateMutable {
		return io.NopCloser(bytes.NewReader(rec.payload)), nil
	}

	if cached, ok := f.t.cache.get(f.idx); ok {
		return io.NopCloser(bytes.NewReader(cached)), nil
	}

	raw, err := f.decompressLazy()
	if err != nil {
		return nil, err
	}
	f.t.cache.put(f.idx, raw)
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// decompressLazy reads the full payload from the archive's byte window
// (bypassing the cache) and returns the decompressed bytes.
func (f File) decompressLazy() ([]byte, error) {
	rec := &f.t.files[f.idx]
	src := io.NewSectionReader(rec.lazyPayload, 0, rec.compSize)

	if rec.storageType == binformat.Store {
		buf := make([]byte, rec.compSize)
		if _, err := io.ReadFull(src, buf); err != nil && err != io.EOF {
			return nil, err
		}
		return buf, nil
	}

	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OpenWrite fails on a lazy file; the caller must Promote first.
func (f File) OpenWrite() (io.WriteCloser, error) {
	rec := &f.t.files[f.idx]
	if rec.state != StateMutable {
		return nil, ErrReadOnlyLazyFile
	}
	return &fileWriter{f: f}, nil
}

type fileWriter struct {
	f   File
	buf bytes.Buffer
}

func (w *fileWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fileWriter) Close() error {
	rec := &w.f.t.files[w.f.idx]
	rec.payload = w.buf.Bytes()
	rec.decompSize = int64(len(rec.payload))
	rec.crc32 = recalculateCRC(rec.payload)
	w.f.t.MarkDirty()
	return nil
}

// Promote converts a lazy file to mutable, materializing its
// decompressed payload into an owned buffer. This is the one case
// where promotion is not copy-free at the byte level (§4.5).
func (f File) Promote() error {
	rec := &f.t.files[f.idx]
	if rec.state == StateMutable {
		return nil
	}
	raw, err := f.decompressLazy()
	if err != nil {
		return err
	}
	rec.payload = raw
	rec.decompSize = int64(len(raw))
	rec.state = StateMutable
	return nil
}

// VerifyCRC decompresses the payload straight from the archive (never
// from the cache) and compares it to the stored CRC32. When failFast
// is true a mismatch is returned as a *hashing.ChecksumMismatch.
func (f File) VerifyCRC(failFast bool) (bool, error) {
	rec := &f.t.files[f.idx]

	var raw []byte
	var err error
	if rec.state == StateMutable {
		raw = rec.payload
	} else {
		raw, err = f.decompressLazy()
		if err != nil {
			return false, err
		}
	}

	ok, err := hashing.CheckCRC32(bytes.NewReader(raw), rec.crc32)
	if err != nil {
		return false, err
	}
	if !ok && failFast {
		return false, hashing.ValidateCRC32(bytes.NewReader(raw), rec.crc32)
	}
	return ok, nil
}

// Recalculate forces a CRC32 recomputation of a mutable file's current
// payload, for callers that want it ahead of the next read.
func (f File) Recalculate() {
	rec := &f.t.files[f.idx]
	if rec.state == StateMutable {
		rec.crc32 = recalculateCRC(rec.payload)
	}
}

func recalculateCRC(payload []byte) uint32 {
	sum, _ := hashing.CRC32(bytes.NewReader(payload))
	return sum
}
