package pack

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/MAK-Relic-Tool/SGA-V2/internal/binformat"
	"github.com/MAK-Relic-Tool/SGA-V2/internal/hashing"
)

// writeDataBlock reserves a 264-byte file data header, writes the
// (possibly compressed) payload immediately after it, then backfills
// the header's name/modified/crc32 fields. It returns the payload's
// data offset (pointing at the payload, not the header, per §4.8
// step 4) and the on-disk compressed size; the payload's CRC32 is
// written into the header, not returned.
//
// STREAM_COMPRESS and BUFFER_COMPRESS both compress with zlib deflate
// at level 9 and store identical bytes; the engine distinguishes them
// only at load time. This mirrors native/writer.py's _add_data, which
// calls the same zlib.compress for both storage types.
func writeDataBlock(out *bytes.Buffer, name string, modified uint32, payload []byte, storage binformat.StorageType) (dataOffset, compressedSize uint32, err error) {
	headerStart := out.Len()
	out.Write(make([]byte, binformat.FileDataHeaderSize))

	crc32Sum, err := hashing.CRC32(bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}

	payloadStart := out.Len()
	switch storage {
	case binformat.Store:
		out.Write(payload)
	default:
		zw, zerr := zlib.NewWriterLevel(out, zlib.BestCompression)
		if zerr != nil {
			return 0, 0, zerr
		}
		if _, err := zw.Write(payload); err != nil {
			return 0, 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, 0, err
		}
	}
	payloadSize := out.Len() - payloadStart

	hdr := binformat.FileDataHeader(out.Bytes()[headerStart : headerStart+binformat.FileDataHeaderSize])
	if err := hdr.SetName(name); err != nil {
		return 0, 0, err
	}
	hdr.SetModified(modified)
	hdr.SetCRC32(crc32Sum)

	return uint32(payloadStart), uint32(payloadSize), nil
}

func readAllClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
