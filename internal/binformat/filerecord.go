package binformat

// FileRecord abstracts over the DOW and IC file-record layouts so
// callers above internal/binformat rarely need to branch on variant.
type FileRecord interface {
	NameOffset() uint32
	StorageType() StorageType
	DataOffset() uint32
	CompressedSize() uint32
	DecompressedSize() uint32
}

// FileRecordSize returns the on-disk size of a single file record for
// the given variant.
func FileRecordSize(f GameFormat) int {
	switch f {
	case FormatIC:
		return FileICSize
	default:
		return FileDOWSize
	}
}

// FileRecordAt returns a typed FileRecord view into block at the given
// zero-based record index, for the given variant.
func FileRecordAt(block []byte, format GameFormat, index int) FileRecord {
	size := FileRecordSize(format)
	rec := block[index*size : index*size+size]
	if format == FormatIC {
		return FileIC(rec)
	}
	return FileDOW(rec)
}

// WritableFileRecord is the mutating counterpart of FileRecord, used
// only by the serializer while a record is still being assembled.
type WritableFileRecord interface {
	FileRecord
	SetNameOffset(uint32)
	SetStorageType(StorageType)
	SetDataOffset(uint32)
	SetCompressedSize(uint32)
	SetDecompressedSize(uint32)
}

func WritableFileRecordAt(block []byte, format GameFormat, index int) WritableFileRecord {
	size := FileRecordSize(format)
	rec := block[index*size : index*size+size]
	if format == FormatIC {
		return FileIC(rec)
	}
	return FileDOW(rec)
}
