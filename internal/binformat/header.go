package binformat

import "encoding/binary"

// Header is the 168-byte fixed record at archive offset 12.
type Header []byte

const (
	HeaderSize = 168

	offHeaderFileMD5    = 0
	offHeaderName       = 16
	offHeaderTOCMD5     = 144
	offHeaderTOCSize    = 160
	offHeaderDataOffset = 164

	headerFileMD5Size = 16
	headerNameSize    = 128
	headerTOCMD5Size  = 16
)

func (h Header) FileMD5() [16]byte {
	var out [16]byte
	copy(out[:], h[offHeaderFileMD5:offHeaderFileMD5+headerFileMD5Size])
	return out
}

func (h Header) SetFileMD5(v [16]byte) {
	copy(h[offHeaderFileMD5:offHeaderFileMD5+headerFileMD5Size], v[:])
}

func (h Header) Name() string {
	return UTF16LEField(h[offHeaderName : offHeaderName+headerNameSize]).Get()
}

func (h Header) SetName(s string) error {
	return UTF16LEField(h[offHeaderName : offHeaderName+headerNameSize]).Set(s)
}

func (h Header) TOCMD5() [16]byte {
	var out [16]byte
	copy(out[:], h[offHeaderTOCMD5:offHeaderTOCMD5+headerTOCMD5Size])
	return out
}

func (h Header) SetTOCMD5(v [16]byte) {
	copy(h[offHeaderTOCMD5:offHeaderTOCMD5+headerTOCMD5Size], v[:])
}

func (h Header) TOCSize() uint32 {
	return binary.LittleEndian.Uint32(h[offHeaderTOCSize:])
}

func (h Header) SetTOCSize(v uint32) {
	binary.LittleEndian.PutUint32(h[offHeaderTOCSize:], v)
}

func (h Header) DataOffset() uint32 {
	return binary.LittleEndian.Uint32(h[offHeaderDataOffset:])
}

func (h Header) SetDataOffset(v uint32) {
	binary.LittleEndian.PutUint32(h[offHeaderDataOffset:], v)
}

// Preamble covers the fixed 12 bytes before the header: 8-byte magic
// plus a (u16 major, u16 minor) version pair.
const (
	PreambleSize  = 12
	HeaderOffset  = 12
	TOCBaseOffset = 180
)

func ParsePreamble(b []byte) (magic [8]byte, major, minor uint16) {
	copy(magic[:], b[0:8])
	major = binary.LittleEndian.Uint16(b[8:10])
	minor = binary.LittleEndian.Uint16(b[10:12])
	return
}

func WritePreamble(b []byte, major, minor uint16) {
	copy(b[0:8], Magic[:])
	binary.LittleEndian.PutUint16(b[8:10], major)
	binary.LittleEndian.PutUint16(b[10:12], minor)
}
