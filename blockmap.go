package simplefs

import "encoding/binary"

// entriesPerIndirect is how many 32-bit block numbers fit in one indirect
// (or double-indirect) block: 1024 bytes / 4 bytes per entry.
const entriesPerIndirect = blockSizeConst / 4

// Logical block index ranges (spec §4.3).
const (
	firstIndirectLBI       = directPointers                                     // 4
	firstDoubleIndirectLBI = firstIndirectLBI + entriesPerIndirect              // 260
	maxLogicalBlock        = firstDoubleIndirectLBI + entriesPerIndirect*entriesPerIndirect // 65796, first invalid lbi
)

// blockForOffset is the Block Map component (spec §4.3): it translates a
// byte offset inside inode n to a physical block number, walking the
// direct / single-indirect / double-indirect tree. With allocate == false
// a hole (any zero slot along the way) yields (0, nil); with allocate ==
// true, missing intermediate and leaf blocks are created on demand,
// zero-filled before any pointer to them is written, top-down.
//
// n's in-memory pointer fields (direct, indirect, doubleIndirect) are
// updated here only after the write that makes the new block reachable
// from disk has itself succeeded; persisting n to its inode slot remains
// the caller's job (spec §4.3 "the caller is responsible for persisting
// the inode").
func (v *Volume) blockForOffset(n *inode, offset int64, allocate bool) (uint32, error) {
	if offset < 0 {
		return 0, newErr(ErrInvalidOffset, "negative offset")
	}
	if offset >= maxFileSize {
		return 0, newErr(ErrInvalidOffset, "offset beyond maximum file size")
	}
	lbi := uint32(offset / int64(blockSizeConst))

	switch {
	case lbi < firstIndirectLBI:
		return v.blockForDirect(n, lbi, allocate)
	case lbi < firstDoubleIndirectLBI:
		return v.blockForIndirect(n, lbi-firstIndirectLBI, allocate)
	default:
		rel := lbi - firstDoubleIndirectLBI
		outer := rel / entriesPerIndirect
		inner := rel % entriesPerIndirect
		return v.blockForDoubleIndirect(n, outer, inner, allocate)
	}
}

func (v *Volume) blockForDirect(n *inode, lbi uint32, allocate bool) (uint32, error) {
	if n.direct[lbi] != 0 {
		return n.direct[lbi], nil
	}
	if !allocate {
		return 0, nil
	}
	leaf, err := v.allocateZeroedBlock()
	if err != nil {
		return 0, err
	}
	n.direct[lbi] = leaf
	return leaf, nil
}

func (v *Volume) blockForIndirect(n *inode, idx uint32, allocate bool) (uint32, error) {
	if n.indirect == 0 {
		if !allocate {
			return 0, nil
		}
		ib, err := v.allocateZeroedBlock()
		if err != nil {
			return 0, err
		}
		n.indirect = ib
	}
	return v.resolveLeafIn(n.indirect, idx, allocate)
}

func (v *Volume) blockForDoubleIndirect(n *inode, outer, inner uint32, allocate bool) (uint32, error) {
	if n.doubleIndirect == 0 {
		if !allocate {
			return 0, nil
		}
		db, err := v.allocateZeroedBlock()
		if err != nil {
			return 0, err
		}
		n.doubleIndirect = db
	}

	mid, err := v.resolveIndirectIn(n.doubleIndirect, outer, allocate)
	if err != nil || mid == 0 {
		return 0, err
	}
	return v.resolveLeafIn(mid, inner, allocate)
}

// resolveLeafIn reads the indirect block at blockNum, returns its entry at
// idx (allocating and persisting a new leaf data block into that entry
// when allocate is true and the entry is empty).
func (v *Volume) resolveLeafIn(blockNum uint32, idx uint32, allocate bool) (uint32, error) {
	entries, err := v.readIndirectEntries(blockNum)
	if err != nil {
		return 0, err
	}
	if entries[idx] != 0 {
		return entries[idx], nil
	}
	if !allocate {
		return 0, nil
	}
	leaf, err := v.allocateZeroedBlock()
	if err != nil {
		return 0, err
	}
	entries[idx] = leaf
	if err := v.writeIndirectEntries(blockNum, entries); err != nil {
		v.alloc.free(leaf)
		return 0, err
	}
	return leaf, nil
}

// resolveIndirectIn reads the double-indirect block at blockNum, returns
// its entry at idx (allocating and persisting a new, zero-filled indirect
// block into that entry when allocate is true and the entry is empty).
func (v *Volume) resolveIndirectIn(blockNum uint32, idx uint32, allocate bool) (uint32, error) {
	entries, err := v.readIndirectEntries(blockNum)
	if err != nil {
		return 0, err
	}
	if entries[idx] != 0 {
		return entries[idx], nil
	}
	if !allocate {
		return 0, nil
	}
	mid, err := v.allocateZeroedBlock()
	if err != nil {
		return 0, err
	}
	entries[idx] = mid
	if err := v.writeIndirectEntries(blockNum, entries); err != nil {
		v.alloc.free(mid)
		return 0, err
	}
	return mid, nil
}

// allocateZeroedBlock finds a free data block and zero-fills it on disk
// before handing it back, so that whatever points to it next never
// observes stale content. If the zero-fill write fails, the block is
// returned to the allocator before the error propagates (spec §4.3
// "Ordering and failure in the tree").
func (v *Volume) allocateZeroedBlock() (uint32, error) {
	block, err := v.alloc.findFree()
	if err != nil {
		return 0, err
	}
	if err := v.zeroBlock(block); err != nil {
		v.alloc.free(block)
		return 0, err
	}
	return block, nil
}

// readIndirectEntries decodes a 1024-byte indirect (or double-indirect)
// block into its 256 little-endian uint32 entries (spec §3).
func (v *Volume) readIndirectEntries(block uint32) ([]uint32, error) {
	buf, err := v.readBlock(block)
	if err != nil {
		return nil, err
	}
	entries := make([]uint32, entriesPerIndirect)
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return entries, nil
}

// writeIndirectEntries encodes and writes back a full indirect block.
func (v *Volume) writeIndirectEntries(block uint32, entries []uint32) error {
	buf := make([]byte, blockSizeConst)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], e)
	}
	return v.writeBlock(block, buf)
}
