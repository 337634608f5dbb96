package simplefs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/martindengis/simplefs/device"
)

// magic is the exact 16-byte literal spec §3 requires at the head of
// block 0. A mount whose block 0 does not start with these bytes is
// rejected as corrupt.
var magic = [16]byte{
	0xF0, 0x55, 0x4C, 0x49, 0x45, 0x47, 0x45, 0x49, 0x4E, 0x46, 0x4F, 0x30, 0x39, 0x34, 0x30, 0x0F,
}

const blockSizeConst uint32 = device.SectorSize

// superblock is the decoded form of block 0 (spec §3).
type superblock struct {
	numBlocks      uint32
	numInodeBlocks uint32
	blockSize      uint32
}

// toBytes serializes the superblock into a zeroed 1024-byte block, leaving
// every byte past the three header fields at zero (spec §3 "remaining
// bytes of block 0 are zero").
func (sb *superblock) toBytes() []byte {
	b := make([]byte, blockSizeConst)
	copy(b[0:16], magic[:])
	binary.LittleEndian.PutUint32(b[16:20], sb.numBlocks)
	binary.LittleEndian.PutUint32(b[20:24], sb.numInodeBlocks)
	binary.LittleEndian.PutUint32(b[24:28], sb.blockSize)
	return b
}

// superblockFromBytes decodes a 1024-byte block 0 and verifies the magic.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) != int(blockSizeConst) {
		return nil, fmt.Errorf("superblock: block is %d bytes, want %d", len(b), blockSizeConst)
	}
	if !bytes.Equal(b[0:16], magic[:]) {
		return nil, newErr(ErrCorruptDisk, "superblock: bad magic")
	}
	return &superblock{
		numBlocks:      binary.LittleEndian.Uint32(b[16:20]),
		numInodeBlocks: binary.LittleEndian.Uint32(b[20:24]),
		blockSize:      binary.LittleEndian.Uint32(b[24:28]),
	}, nil
}

// dataRegionStart is the first block number of the data region, i.e. the
// first block after the inode blocks (spec's "S+1").
func (sb *superblock) dataRegionStart() uint32 {
	return 1 + sb.numInodeBlocks
}

// inodeCount is the total number of inode slots the volume has, S*32.
func (sb *superblock) inodeCount() uint32 {
	return sb.numInodeBlocks * inodesPerBlock
}
