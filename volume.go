// Package simplefs implements the core of a user-space, single-volume,
// single-process file system stored inside one host file acting as a
// virtual disk of fixed 1024-byte sectors. Files are identified purely by
// a numeric inode index; there are no directories, names, permissions, or
// timestamps. See SPEC_FULL.md for the full specification this module
// implements.
package simplefs

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/martindengis/simplefs/device"
)

// Volume owns everything that lives for the interval [Mount, Unmount): the
// mount flag, the cached superblock, the allocator bitmap, the remembered
// disk name, and the open device handle (spec §4.5, §5 "Shared
// resources"). A Volume must not be used from more than one goroutine at a
// time and has no internal locking, by design (spec §5): the scheduling
// model is single-threaded and synchronous.
type Volume struct {
	dev       device.Interface
	sb        *superblock
	alloc     *allocator
	diskName  string
	mounted   bool
	sessionID uuid.UUID
	log       logrus.FieldLogger
}

// New returns a fresh, unmounted Volume.
func New() *Volume {
	return &Volume{log: logrus.StandardLogger()}
}

// SetLogger overrides the logger used for lifecycle and allocation
// diagnostics. Passing nil restores the standard logger.
func (v *Volume) SetLogger(log logrus.FieldLogger) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v.log = log
}

// Mounted reports whether the volume currently has a disk mounted.
func (v *Volume) Mounted() bool {
	return v.mounted
}

// Format writes a fresh superblock and zeroed inode region to diskName,
// sized for at least inodeCount inodes (spec §4.5). The volume must not
// already be mounted. Format never mounts the result; a subsequent Mount
// is required to use it.
func (v *Volume) Format(diskName string, inodeCount int) error {
	if v.mounted {
		return newErr(ErrAlreadyMounted, "format")
	}
	if inodeCount <= 0 {
		inodeCount = 1
	}

	dev, err := device.Open(diskName)
	if err != nil {
		return fmt.Errorf("format %s: %w", diskName, err)
	}
	defer dev.Close()

	numBlocks := dev.SectorCount()
	numInodeBlocks := uint32((inodeCount + int(inodesPerBlock) - 1) / int(inodesPerBlock))
	if numInodeBlocks < 1 {
		numInodeBlocks = 1
	}
	if uint64(numInodeBlocks)+1 >= uint64(numBlocks) {
		return newErr(ErrOutOfSpace, "format: no room for a data region")
	}

	sb := &superblock{
		numBlocks:      numBlocks,
		numInodeBlocks: numInodeBlocks,
		blockSize:      blockSizeConst,
	}
	if err := dev.WriteSector(0, sb.toBytes()); err != nil {
		return fmt.Errorf("format %s: writing superblock: %w", diskName, err)
	}

	zero := make([]byte, blockSizeConst)
	for b := uint32(1); b <= numInodeBlocks; b++ {
		if err := dev.WriteSector(b, zero); err != nil {
			return fmt.Errorf("format %s: zeroing inode block %d: %w", diskName, b, err)
		}
	}

	if err := dev.Sync(); err != nil {
		return fmt.Errorf("format %s: sync: %w", diskName, err)
	}

	v.log.WithFields(logrus.Fields{
		"disk":        diskName,
		"num_blocks":  numBlocks,
		"inode_count": numInodeBlocks * inodesPerBlock,
	}).Debug("formatted volume")

	return nil
}

// Mount opens diskName, validates its superblock, and reconstructs the
// allocator by scanning every valid inode's reachable blocks (spec §4.5).
// Any sector read failure during that scan aborts the mount and releases
// everything opened so far.
func (v *Volume) Mount(diskName string) error {
	if v.mounted {
		return newErr(ErrAlreadyMounted, "mount")
	}

	dev, err := device.Open(diskName)
	if err != nil {
		return fmt.Errorf("mount %s: %w", diskName, err)
	}
	return v.mountDevice(diskName, dev)
}

// mountDevice does the superblock-validate-and-scan work Mount needs,
// against an already-opened device.Interface. Factored out of Mount so
// tests can drive the mount path against a fake device (device.Memory)
// that injects sector failures, without needing a real backing file. The
// caller is responsible for checking v.mounted first; this only runs once
// there is a fresh device to take ownership of.
func (v *Volume) mountDevice(diskName string, dev device.Interface) error {
	buf := make([]byte, blockSizeConst)
	if err := dev.ReadSector(0, buf); err != nil {
		dev.Close()
		return fmt.Errorf("mount %s: reading superblock: %w", diskName, err)
	}
	sb, err := superblockFromBytes(buf)
	if err != nil {
		dev.Close()
		return err
	}

	v.dev = dev
	v.sb = sb
	v.alloc = newAllocator(sb.numBlocks, sb.dataRegionStart())

	if err := v.scanUsedBlocks(); err != nil {
		v.dev.Close()
		v.dev, v.sb, v.alloc = nil, nil, nil
		return fmt.Errorf("mount %s: %w", diskName, err)
	}

	v.diskName = diskName
	v.mounted = true
	v.sessionID = uuid.New()
	v.log.WithFields(logrus.Fields{
		"disk":    diskName,
		"session": v.sessionID,
	}).Debug("mounted volume")

	return nil
}

// Unmount syncs the device, then unconditionally releases the allocator,
// the remembered disk name, and the device handle, regardless of whether
// the sync succeeded (spec §4.5).
func (v *Volume) Unmount() error {
	if !v.mounted {
		return newErr(ErrNotMounted, "unmount")
	}

	syncErr := v.dev.Sync()
	closeErr := v.dev.Close()

	v.log.WithField("disk", v.diskName).Debug("unmounted volume")

	v.dev = nil
	v.sb = nil
	v.alloc = nil
	v.diskName = ""
	v.mounted = false

	if syncErr != nil {
		return fmt.Errorf("unmount: sync: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("unmount: close: %w", closeErr)
	}
	return nil
}

// scanUsedBlocks rebuilds the allocator's free map by walking every inode
// slot and marking every block it transitively reaches used. This is the
// sole source of truth for block liveness between mounts (spec §4.5, §9
// "Reconstructing the free map").
func (v *Volume) scanUsedBlocks() error {
	total := v.sb.inodeCount()
	for i := uint32(0); i < total; i++ {
		n, err := v.readInode(i)
		if err != nil {
			return fmt.Errorf("scanning inode %d: %w", i, err)
		}
		if !n.valid {
			continue
		}
		if err := v.markInodeBlocks(n); err != nil {
			return fmt.Errorf("scanning blocks of inode %d: %w", i, err)
		}
	}
	return nil
}

// markInodeBlocks marks every block reachable from n (direct pointers, the
// indirect block and its entries, and the double-indirect block with each
// of its indirect children and their entries) as used in the allocator.
func (v *Volume) markInodeBlocks(n *inode) error {
	for _, d := range n.direct {
		if d != 0 {
			v.markBlockOnce(d)
		}
	}
	if n.indirect != 0 {
		v.markBlockOnce(n.indirect)
		entries, err := v.readIndirectEntries(n.indirect)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e != 0 {
				v.markBlockOnce(e)
			}
		}
	}
	if n.doubleIndirect != 0 {
		v.markBlockOnce(n.doubleIndirect)
		outer, err := v.readIndirectEntries(n.doubleIndirect)
		if err != nil {
			return err
		}
		for _, mid := range outer {
			if mid == 0 {
				continue
			}
			v.markBlockOnce(mid)
			inner, err := v.readIndirectEntries(mid)
			if err != nil {
				return err
			}
			for _, e := range inner {
				if e != 0 {
					v.markBlockOnce(e)
				}
			}
		}
	}
	return nil
}

// markBlockOnce marks block used, warning if it was already marked by an
// earlier inode in this same scan: two inodes (or two slots of the same
// inode) reaching the same block violates invariant I2 ("no block is
// reachable from more than one place at once"). The scan does not abort
// over this; it only surfaces a diagnostic, since spec.md does not specify
// mount-time corruption recovery beyond the magic check.
func (v *Volume) markBlockOnce(block uint32) {
	if v.alloc.isUsed(block) {
		v.log.WithField("block", block).Warn("block reachable from more than one inode")
	}
	v.alloc.markUsed(block)
}

// checkMounted is the first check every file operation performs (spec §7
// "Lifecycle errors short-circuit at entry").
func (v *Volume) checkMounted() error {
	if !v.mounted {
		return newErr(ErrNotMounted, "")
	}
	return nil
}

// readBlock reads one full 1024-byte block.
func (v *Volume) readBlock(block uint32) ([]byte, error) {
	buf := make([]byte, blockSizeConst)
	if err := v.dev.ReadSector(block, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeBlock writes one full 1024-byte block. buf must be exactly
// blockSizeConst bytes.
func (v *Volume) writeBlock(block uint32, buf []byte) error {
	return v.dev.WriteSector(block, buf)
}

// zeroBlock writes a block of all zero bytes, used whenever a freshly
// allocated block (intermediate index block or leaf data block) must be
// zero-filled before anything points to it (spec §4.3).
func (v *Volume) zeroBlock(block uint32) error {
	return v.writeBlock(block, make([]byte, blockSizeConst))
}

// maxFileSize is the maximum file size in bytes (spec §4.3): 65796 logical
// blocks of 1024 bytes each. The last addressable byte offset is
// maxFileSize-1; offsets at or past maxFileSize are rejected.
const maxFileSize = int64(maxLogicalBlock) * int64(blockSizeConst)
