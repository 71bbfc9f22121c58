package binformat

import "encoding/binary"

// Drive is the 138-byte per-drive ToC record.
type Drive []byte

const (
	DriveSize = 138

	offDriveAlias       = 0
	offDriveName        = 64
	offDriveFirstFolder = 128
	offDriveLastFolder  = 130
	offDriveFirstFile   = 132
	offDriveLastFile    = 134
	offDriveRootFolder  = 136

	driveAliasSize = 64
	driveNameSize  = 64
)

func (d Drive) Alias() string  { return ASCIIField(d[offDriveAlias : offDriveAlias+driveAliasSize]).Get() }
func (d Drive) SetAlias(s string) error {
	return ASCIIField(d[offDriveAlias : offDriveAlias+driveAliasSize]).Set(s)
}

func (d Drive) Name() string { return ASCIIField(d[offDriveName : offDriveName+driveNameSize]).Get() }
func (d Drive) SetName(s string) error {
	return ASCIIField(d[offDriveName : offDriveName+driveNameSize]).Set(s)
}

func (d Drive) FirstFolder() uint16 { return binary.LittleEndian.Uint16(d[offDriveFirstFolder:]) }
func (d Drive) LastFolder() uint16  { return binary.LittleEndian.Uint16(d[offDriveLastFolder:]) }
func (d Drive) FirstFile() uint16   { return binary.LittleEndian.Uint16(d[offDriveFirstFile:]) }
func (d Drive) LastFile() uint16    { return binary.LittleEndian.Uint16(d[offDriveLastFile:]) }
func (d Drive) RootFolder() uint16  { return binary.LittleEndian.Uint16(d[offDriveRootFolder:]) }

func (d Drive) SetFolderRange(first, last uint16) {
	binary.LittleEndian.PutUint16(d[offDriveFirstFolder:], first)
	binary.LittleEndian.PutUint16(d[offDriveLastFolder:], last)
}

func (d Drive) SetFileRange(first, last uint16) {
	binary.LittleEndian.PutUint16(d[offDriveFirstFile:], first)
	binary.LittleEndian.PutUint16(d[offDriveLastFile:], last)
}

func (d Drive) SetRootFolder(idx uint16) {
	binary.LittleEndian.PutUint16(d[offDriveRootFolder:], idx)
}

// Folder is the 12-byte per-folder ToC record.
type Folder []byte

const (
	FolderSize = 12

	offFolderNameOffset     = 0
	offFolderSubfolderStart = 4
	offFolderSubfolderStop  = 6
	offFolderFirstFile      = 8
	offFolderLastFile       = 10
)

func (f Folder) NameOffset() uint32     { return binary.LittleEndian.Uint32(f[offFolderNameOffset:]) }
func (f Folder) SubfolderStart() uint16 { return binary.LittleEndian.Uint16(f[offFolderSubfolderStart:]) }
func (f Folder) SubfolderStop() uint16  { return binary.LittleEndian.Uint16(f[offFolderSubfolderStop:]) }
func (f Folder) FirstFile() uint16      { return binary.LittleEndian.Uint16(f[offFolderFirstFile:]) }
func (f Folder) LastFile() uint16       { return binary.LittleEndian.Uint16(f[offFolderLastFile:]) }

func (f Folder) SetNameOffset(v uint32) { binary.LittleEndian.PutUint32(f[offFolderNameOffset:], v) }

func (f Folder) SetSubfolderRange(start, stop uint16) {
	binary.LittleEndian.PutUint16(f[offFolderSubfolderStart:], start)
	binary.LittleEndian.PutUint16(f[offFolderSubfolderStop:], stop)
}

func (f Folder) SetFileRange(first, last uint16) {
	binary.LittleEndian.PutUint16(f[offFolderFirstFile:], first)
	binary.LittleEndian.PutUint16(f[offFolderLastFile:], last)
}

// FileDOW is the 20-byte Dawn-of-War file record. Storage type lives in
// bits 4-7 of the flags word; the other bits are ignored on read and
// written as zero.
type FileDOW []byte

const (
	FileDOWSize = 20

	offFileDOWNameOffset = 0
	offFileDOWFlags      = 4
	offFileDOWDataOffset = 8
	offFileDOWCompSize   = 12
	offFileDOWDecompSize = 16
)

func (f FileDOW) NameOffset() uint32     { return binary.LittleEndian.Uint32(f[offFileDOWNameOffset:]) }
func (f FileDOW) DataOffset() uint32     { return binary.LittleEndian.Uint32(f[offFileDOWDataOffset:]) }
func (f FileDOW) CompressedSize() uint32 { return binary.LittleEndian.Uint32(f[offFileDOWCompSize:]) }
func (f FileDOW) DecompressedSize() uint32 {
	return binary.LittleEndian.Uint32(f[offFileDOWDecompSize:])
}

func (f FileDOW) StorageType() StorageType {
	flags := binary.LittleEndian.Uint32(f[offFileDOWFlags:])
	return StorageType((flags >> 4) & 0xF)
}

func (f FileDOW) SetNameOffset(v uint32) { binary.LittleEndian.PutUint32(f[offFileDOWNameOffset:], v) }
func (f FileDOW) SetDataOffset(v uint32) { binary.LittleEndian.PutUint32(f[offFileDOWDataOffset:], v) }
func (f FileDOW) SetCompressedSize(v uint32) {
	binary.LittleEndian.PutUint32(f[offFileDOWCompSize:], v)
}
func (f FileDOW) SetDecompressedSize(v uint32) {
	binary.LittleEndian.PutUint32(f[offFileDOWDecompSize:], v)
}

func (f FileDOW) SetStorageType(s StorageType) {
	binary.LittleEndian.PutUint32(f[offFileDOWFlags:], uint32(s&0xF)<<4)
}

// FileIC is the 17-byte Impossible-Creatures file record. The storage
// type occupies the whole flags byte directly.
type FileIC []byte

const (
	FileICSize = 17

	offFileICNameOffset = 0
	offFileICFlags      = 4
	offFileICDataOffset = 5
	offFileICCompSize   = 9
	offFileICDecompSize = 13
)

func (f FileIC) NameOffset() uint32     { return binary.LittleEndian.Uint32(f[offFileICNameOffset:]) }
func (f FileIC) StorageType() StorageType { return StorageType(f[offFileICFlags]) }
func (f FileIC) DataOffset() uint32     { return binary.LittleEndian.Uint32(f[offFileICDataOffset:]) }
func (f FileIC) CompressedSize() uint32 { return binary.LittleEndian.Uint32(f[offFileICCompSize:]) }
func (f FileIC) DecompressedSize() uint32 {
	return binary.LittleEndian.Uint32(f[offFileICDecompSize:])
}

func (f FileIC) SetNameOffset(v uint32) { binary.LittleEndian.PutUint32(f[offFileICNameOffset:], v) }
func (f FileIC) SetStorageType(s StorageType) { f[offFileICFlags] = byte(s) }
func (f FileIC) SetDataOffset(v uint32) { binary.LittleEndian.PutUint32(f[offFileICDataOffset:], v) }
func (f FileIC) SetCompressedSize(v uint32) {
	binary.LittleEndian.PutUint32(f[offFileICCompSize:], v)
}
func (f FileIC) SetDecompressedSize(v uint32) {
	binary.LittleEndian.PutUint32(f[offFileICDecompSize:], v)
}

// FileDataHeader is the 264-byte record immediately preceding each
// file's payload in the data block.
type FileDataHeader []byte

const (
	FileDataHeaderSize = 264

	offFileDataName     = 0
	offFileDataModified = 256
	offFileDataCRC32    = 260

	fileDataNameSize = 256
)

func (h FileDataHeader) Name() string {
	return ASCIIField(h[offFileDataName : offFileDataName+fileDataNameSize]).Get()
}

func (h FileDataHeader) SetName(s string) error {
	return ASCIIField(h[offFileDataName : offFileDataName+fileDataNameSize]).Set(s)
}

func (h FileDataHeader) Modified() uint32 {
	return binary.LittleEndian.Uint32(h[offFileDataModified:])
}

func (h FileDataHeader) SetModified(v uint32) {
	binary.LittleEndian.PutUint32(h[offFileDataModified:], v)
}

func (h FileDataHeader) CRC32() uint32 { return binary.LittleEndian.Uint32(h[offFileDataCRC32:]) }

func (h FileDataHeader) SetCRC32(v uint32) {
	binary.LittleEndian.PutUint32(h[offFileDataCRC32:], v)
}
