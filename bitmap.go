package simplefs

import (
	"github.com/martindengis/simplefs/util/bitmap"
)

// allocator is the in-memory free/used map over the whole device (spec
// §4.4). Blocks 0..dataStart-1 (the superblock and inode blocks) are
// permanently marked used; only blocks in the data region are ever handed
// out by findFree or released by free. There is no on-disk bitmap: this
// structure is rebuilt from scratch on every mount by scanning reachable
// blocks (see Volume.scanUsedBlocks), and discarded on unmount.
type allocator struct {
	bits      *bitmap.Bitmap
	dataStart uint32
	numBlocks uint32
}

// newAllocator builds an allocator sized for numBlocks blocks, with blocks
// 0..dataStart-1 pre-marked used.
func newAllocator(numBlocks, dataStart uint32) *allocator {
	a := &allocator{
		bits:      bitmap.NewBits(int(numBlocks)),
		dataStart: dataStart,
		numBlocks: numBlocks,
	}
	for b := uint32(0); b < dataStart && b < numBlocks; b++ {
		_ = a.bits.Set(int(b))
	}
	return a
}

// markUsed marks block as used without allocating it on the caller's
// behalf; it is how the mount-time scan (§4.5) reconstructs the free map
// from the set of blocks reachable from valid inodes.
func (a *allocator) markUsed(block uint32) {
	if block >= a.numBlocks {
		return
	}
	_ = a.bits.Set(int(block))
}

// isUsed reports whether block is currently marked used. Used by the
// mount-time scan to detect an inode referencing the same block twice
// (invariant I2: no double allocation).
func (a *allocator) isUsed(block uint32) bool {
	if block >= a.numBlocks {
		return false
	}
	set, _ := a.bits.IsSet(int(block))
	return set
}

// findFree selects the first-available free block in the data region,
// marks it used, and returns it. Returns ErrOutOfSpace if none remain.
func (a *allocator) findFree() (uint32, error) {
	loc := a.bits.FirstFree(int(a.dataStart))
	if loc < 0 || uint32(loc) >= a.numBlocks {
		return 0, newErr(ErrOutOfSpace, "allocator: no free data block")
	}
	_ = a.bits.Set(loc)
	return uint32(loc), nil
}

// free releases block back to the pool. Per spec §4.4, releasing a block
// outside the data region (the superblock or an inode block) is a no-op:
// those bits must never be cleared.
func (a *allocator) free(block uint32) {
	if block < a.dataStart || block >= a.numBlocks {
		return
	}
	_ = a.bits.Clear(int(block))
}
