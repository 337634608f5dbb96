package simplefs

import "encoding/binary"

// inodeSize is the fixed packed size of one inode record (spec §3).
const inodeSize = 32

// inodesPerBlock is how many 32-byte inode records fit in one 1024-byte
// inode block.
const inodesPerBlock = blockSizeConst / inodeSize

// directPointers is the number of direct block slots in an inode.
const directPointers = 4

// inode is the in-memory decoded form of one 32-byte on-disk record.
type inode struct {
	valid          bool
	size           uint32
	direct         [directPointers]uint32
	indirect       uint32
	doubleIndirect uint32
}

// toBytes serializes the inode to its packed 32-byte on-disk form. A free
// inode (valid == false) always serializes to all zero bytes, satisfying
// invariant I3 regardless of what its in-memory fields happen to hold.
func (n *inode) toBytes() []byte {
	b := make([]byte, inodeSize)
	if !n.valid {
		return b
	}
	b[0] = 1
	// bytes 1-3 are padding and stay zero.
	binary.LittleEndian.PutUint32(b[4:8], n.size)
	for i, d := range n.direct {
		off := 8 + i*4
		binary.LittleEndian.PutUint32(b[off:off+4], d)
	}
	binary.LittleEndian.PutUint32(b[24:28], n.indirect)
	binary.LittleEndian.PutUint32(b[28:32], n.doubleIndirect)
	return b
}

// inodeFromBytes decodes a 32-byte window into an inode.
func inodeFromBytes(b []byte) *inode {
	n := &inode{}
	if b[0] == 0 {
		return n
	}
	n.valid = true
	n.size = binary.LittleEndian.Uint32(b[4:8])
	for i := range n.direct {
		off := 8 + i*4
		n.direct[i] = binary.LittleEndian.Uint32(b[off : off+4])
	}
	n.indirect = binary.LittleEndian.Uint32(b[24:28])
	n.doubleIndirect = binary.LittleEndian.Uint32(b[28:32])
	return n
}

// pointers returns every non-zero direct/indirect/double-indirect slot
// this inode holds directly (not the blocks they in turn reference).
func (n *inode) pointers() []uint32 {
	var out []uint32
	for _, d := range n.direct {
		if d != 0 {
			out = append(out, d)
		}
	}
	if n.indirect != 0 {
		out = append(out, n.indirect)
	}
	if n.doubleIndirect != 0 {
		out = append(out, n.doubleIndirect)
	}
	return out
}

// clear resets the inode to the free state required by invariant I3:
// valid = 0, size = 0, all six pointer fields = 0.
func (n *inode) clear() {
	*n = inode{}
}

// inodeLocation computes which inode block an index lives in, and its
// byte offset within that block (spec §4.2: block = 1 + i/32, offset =
// (i%32)*32).
func inodeLocation(index uint32) (block uint32, offset uint32) {
	block = 1 + index/inodesPerBlock
	offset = (index % inodesPerBlock) * inodeSize
	return
}

// readInode performs the block's read-modify part of the read-modify-write
// cycle spec §4.2 requires: it reads the whole inode block and decodes only
// the 32-byte window belonging to index, leaving the other 31 inodes
// untouched in memory.
func (v *Volume) readInode(index uint32) (*inode, error) {
	block, offset := inodeLocation(index)
	buf, err := v.readBlock(block)
	if err != nil {
		return nil, err
	}
	return inodeFromBytes(buf[offset : offset+inodeSize]), nil
}

// writeInode re-reads the owning block, patches only index's 32-byte
// window, and writes the whole block back, so the other 31 inodes sharing
// the block are never disturbed (spec §4.2).
func (v *Volume) writeInode(index uint32, n *inode) error {
	block, offset := inodeLocation(index)
	buf, err := v.readBlock(block)
	if err != nil {
		return err
	}
	copy(buf[offset:offset+inodeSize], n.toBytes())
	return v.writeBlock(block, buf)
}
