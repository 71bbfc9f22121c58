// Package binformat provides typed, fixed-offset views over the SGA v2
// wire records. Every type is a thin `[]byte` wrapper with offset
// constants and getters/setters, the way trustelem-go-diskfs's ext4
// directoryEntry wraps a block of bytes, or the slotcache header codec
// reads a fixed-size struct through encoding/binary offsets — not a
// parsed-into-a-struct copy, so reads and in-place ToC back-patching
// share the exact same storage.
package binformat

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

// ErrFieldOverflow is returned by a string field setter when the
// encoded value does not fit in the field's fixed byte capacity.
var ErrFieldOverflow = errors.New("binformat: value exceeds field capacity")

// Magic is the fixed 8-byte word that opens every SGA v2 archive.
var Magic = [8]byte{'_', 'A', 'R', 'C', 'H', 'I', 'V', 'E'}

const (
	VersionMajor = 2
	VersionMinor = 0
)

// StorageType is the per-file payload codec.
type StorageType uint8

const (
	Store           StorageType = 0
	StreamCompress  StorageType = 1
	BufferCompress  StorageType = 2
)

func (s StorageType) String() string {
	switch s {
	case Store:
		return "STORE"
	case StreamCompress:
		return "STREAM_COMPRESS"
	case BufferCompress:
		return "BUFFER_COMPRESS"
	default:
		return "UNKNOWN"
	}
}

// GameFormat selects which file-record layout an archive uses.
type GameFormat int

const (
	FormatUnknown GameFormat = iota
	FormatDOW
	FormatIC
)

// DetectGameFormat applies the §3 variant-detection rule: with zero
// files the variant can't be determined from content and defaults to
// DOW; otherwise the files block size must divide evenly by exactly 20
// or 17 bytes.
func DetectGameFormat(filesBlockSize int, fileCount int) (GameFormat, error) {
	if fileCount == 0 {
		return FormatDOW, nil
	}
	if filesBlockSize%fileCount != 0 {
		return FormatUnknown, ErrUndeterminedGameFormat
	}
	switch filesBlockSize / fileCount {
	case FileDOWSize:
		return FormatDOW, nil
	case FileICSize:
		return FormatIC, nil
	default:
		return FormatUnknown, ErrUndeterminedGameFormat
	}
}

// ErrUndeterminedGameFormat is returned when the files block size does
// not match either file-record layout.
var ErrUndeterminedGameFormat = errors.New("binformat: file record size matches neither DOW nor IC variant")

// ASCIIField is a fixed-capacity, NUL-padded ASCII byte window.
type ASCIIField []byte

func (f ASCIIField) Get() string {
	n := 0
	for n < len(f) && f[n] != 0 {
		n++
	}
	return string(f[:n])
}

func (f ASCIIField) Set(s string) error {
	if len(s) > len(f) {
		return ErrFieldOverflow
	}
	copy(f, s)
	for i := len(s); i < len(f); i++ {
		f[i] = 0
	}
	return nil
}

// UTF16LEField is a fixed-capacity, NUL-padded UTF-16LE byte window.
type UTF16LEField []byte

func (f UTF16LEField) Get() string {
	units := make([]uint16, 0, len(f)/2)
	for i := 0; i+1 < len(f); i += 2 {
		u := binary.LittleEndian.Uint16(f[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (f UTF16LEField) Set(s string) error {
	units := utf16.Encode([]rune(s))
	if len(units)*2 > len(f) {
		return ErrFieldOverflow
	}
	i := 0
	for ; i < len(units); i++ {
		binary.LittleEndian.PutUint16(f[i*2:], units[i])
	}
	for ; i*2 < len(f); i++ {
		binary.LittleEndian.PutUint16(f[i*2:], 0)
	}
	return nil
}
