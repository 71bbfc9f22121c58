package binformat

import (
	"encoding/binary"
	"sort"
)

// TOCHeader is the 24-byte record at archive offset 180: four
// (offset u32, count u16) pointers for Drives, Folders, Files, and
// Names, in that order. Offsets are relative to offset 180.
type TOCHeader []byte

const (
	TOCHeaderSize = 24
	tocPtrSize    = 6
)

const (
	TOCSlotDrives = iota
	TOCSlotFolders
	TOCSlotFiles
	TOCSlotNames
	tocSlotCount
)

func (t TOCHeader) Offset(slot int) uint32 {
	return binary.LittleEndian.Uint32(t[slot*tocPtrSize:])
}

func (t TOCHeader) Count(slot int) uint16 {
	return binary.LittleEndian.Uint16(t[slot*tocPtrSize+4:])
}

func (t TOCHeader) Set(slot int, offset uint32, count uint16) {
	binary.LittleEndian.PutUint32(t[slot*tocPtrSize:], offset)
	binary.LittleEndian.PutUint16(t[slot*tocPtrSize+4:], count)
}

// TOCPointer is a resolved, sized sub-block description: Offset is
// absolute (already adjusted by TOCBaseOffset), and Size is inferred
// rather than stored on disk.
type TOCPointer struct {
	Slot   int
	Offset uint32
	Count  uint16
	Size   uint32
}

// ResolvePointers converts the four raw (offset, count) pairs into
// sized, absolute sub-block descriptions. The wire format does not
// store each sub-block's size directly; the reference parser infers it
// by sorting the four pointers in descending offset order and taking
// the gap to the next highest offset, with tocSize bounding the last
// (highest-offset) sub-block. This tolerates sub-blocks being written
// in any relative order, which the format does not forbid.
func ResolvePointers(t TOCHeader, tocSize uint32) [tocSlotCount]TOCPointer {
	var ptrs [tocSlotCount]TOCPointer
	for slot := 0; slot < tocSlotCount; slot++ {
		ptrs[slot] = TOCPointer{
			Slot:   slot,
			Offset: TOCBaseOffset + t.Offset(slot),
			Count:  t.Count(slot),
		}
	}

	order := make([]int, tocSlotCount)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return ptrs[order[i]].Offset > ptrs[order[j]].Offset
	})

	upperBound := TOCBaseOffset + tocSize
	for _, idx := range order {
		ptrs[idx].Size = upperBound - ptrs[idx].Offset
		upperBound = ptrs[idx].Offset
	}
	return ptrs
}
