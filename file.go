package simplefs

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// errHole is returned internally when Read's block map walk (allocate =
// false) lands on an unbacked slot inside the file's reported size — an
// anomaly in a well-formed volume, since Write always backs every byte up
// to size with a real, zero-filled block (spec §4.6). It never escapes
// Read once at least one byte has been delivered (spec §4.6, §7).
var errHole = errors.New("simplefs: read reached an unbacked block within the file's reported size")

// checkIndex validates inodeIndex is within [0, S*32).
func (v *Volume) checkIndex(inodeIndex uint32) error {
	if inodeIndex >= v.sb.inodeCount() {
		return newErr(ErrInvalidInode, fmt.Sprintf("inode %d out of range", inodeIndex))
	}
	return nil
}

// Create scans inodes in ascending order for the first free (valid == 0)
// slot, initializes it to an empty file, and returns its index (spec
// §4.6). Returns ErrOutOfInodes if every slot is taken.
func (v *Volume) Create() (int, error) {
	if err := v.checkMounted(); err != nil {
		return -1, err
	}
	total := v.sb.inodeCount()
	for i := uint32(0); i < total; i++ {
		n, err := v.readInode(i)
		if err != nil {
			return -1, err
		}
		if n.valid {
			continue
		}
		n.valid = true
		n.size = 0
		n.direct = [directPointers]uint32{}
		n.indirect = 0
		n.doubleIndirect = 0
		if err := v.writeInode(i, n); err != nil {
			return -1, err
		}
		v.log.WithField("inode", i).Debug("created file")
		return int(i), nil
	}
	return -1, newErr(ErrOutOfInodes, "create")
}

// Delete frees every block reachable from inode i's direct, indirect, and
// double-indirect pointers, then resets the inode to the free state
// required by invariant I3 (spec §4.6).
func (v *Volume) Delete(inodeIndex int) error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	i := uint32(inodeIndex)
	if err := v.checkIndex(i); err != nil {
		return err
	}
	n, err := v.readInode(i)
	if err != nil {
		return err
	}
	if !n.valid {
		return newErr(ErrInvalidInode, fmt.Sprintf("inode %d is free", i))
	}

	directCount := len(n.pointers())

	if err := v.freeInodeBlocks(n); err != nil {
		return err
	}

	n.clear()
	if err := v.writeInode(i, n); err != nil {
		return err
	}
	v.log.WithFields(logrus.Fields{
		"inode":          i,
		"owned_pointers": directCount,
	}).Debug("deleted file")
	return nil
}

// freeInodeBlocks releases every block n reaches: the four direct blocks,
// the indirect block and its leaf entries, and the double-indirect block
// with each indirect child it references and that child's leaf entries
// (spec §4.6 delete).
func (v *Volume) freeInodeBlocks(n *inode) error {
	for _, d := range n.direct {
		if d != 0 {
			v.alloc.free(d)
		}
	}
	if n.indirect != 0 {
		entries, err := v.readIndirectEntries(n.indirect)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e != 0 {
				v.alloc.free(e)
			}
		}
		v.alloc.free(n.indirect)
	}
	if n.doubleIndirect != 0 {
		outer, err := v.readIndirectEntries(n.doubleIndirect)
		if err != nil {
			return err
		}
		for _, mid := range outer {
			if mid == 0 {
				continue
			}
			inner, err := v.readIndirectEntries(mid)
			if err != nil {
				return err
			}
			for _, e := range inner {
				if e != 0 {
					v.alloc.free(e)
				}
			}
			v.alloc.free(mid)
		}
		v.alloc.free(n.doubleIndirect)
	}
	return nil
}

// Stat returns the size in bytes of inode i (spec §4.6).
func (v *Volume) Stat(inodeIndex int) (int, error) {
	if err := v.checkMounted(); err != nil {
		return -1, err
	}
	i := uint32(inodeIndex)
	if err := v.checkIndex(i); err != nil {
		return -1, err
	}
	n, err := v.readInode(i)
	if err != nil {
		return -1, err
	}
	if !n.valid {
		return -1, newErr(ErrInvalidInode, fmt.Sprintf("inode %d is free", i))
	}
	return int(n.size), nil
}

// Read delivers up to len(buf) bytes from inode i starting at offset
// (spec §4.6). It returns the number of bytes actually delivered; a
// device failure downgrades to that partial count once at least one byte
// has been copied, per spec §7.
func (v *Volume) Read(inodeIndex int, buf []byte, offset int64) (int, error) {
	if err := v.checkMounted(); err != nil {
		return -1, err
	}
	i := uint32(inodeIndex)
	if err := v.checkIndex(i); err != nil {
		return -1, err
	}
	n, err := v.readInode(i)
	if err != nil {
		return -1, err
	}
	if !n.valid {
		return -1, newErr(ErrInvalidInode, fmt.Sprintf("inode %d is free", i))
	}

	size := int64(n.size)
	if offset >= size {
		return 0, nil
	}

	toRead := int64(len(buf))
	if remaining := size - offset; toRead > remaining {
		toRead = remaining
	}

	var delivered int64
	pos := offset
	for delivered < toRead {
		blockOffset := pos % int64(blockSizeConst)
		chunk := int64(blockSizeConst) - blockOffset
		if left := toRead - delivered; chunk > left {
			chunk = left
		}

		block, err := v.blockForOffset(n, pos, false)
		if err != nil {
			if delivered > 0 {
				return int(delivered), nil
			}
			return 0, err
		}
		if block == 0 {
			if delivered > 0 {
				return int(delivered), nil
			}
			return 0, errHole
		}

		data, err := v.readBlock(block)
		if err != nil {
			if delivered > 0 {
				return int(delivered), nil
			}
			return 0, err
		}
		copy(buf[delivered:delivered+chunk], data[blockOffset:blockOffset+chunk])

		delivered += chunk
		pos += chunk
	}

	return int(delivered), nil
}

// Write writes len(buf) bytes to inode i at offset (spec §4.6). If offset
// is past the current size, the gap is zero-filled first. A write of
// length 0 always returns (0, nil) without touching size (property P7).
func (v *Volume) Write(inodeIndex int, buf []byte, offset int64) (int, error) {
	if err := v.checkMounted(); err != nil {
		return -1, err
	}
	i := uint32(inodeIndex)
	if err := v.checkIndex(i); err != nil {
		return -1, err
	}
	n, err := v.readInode(i)
	if err != nil {
		return -1, err
	}
	if !n.valid {
		return -1, newErr(ErrInvalidInode, fmt.Sprintf("inode %d is free", i))
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if offset < 0 {
		return -1, newErr(ErrInvalidOffset, "negative offset")
	}
	if offset >= maxFileSize {
		return -1, newErr(ErrInvalidOffset, "offset beyond maximum file size")
	}

	if offset > int64(n.size) {
		if err := v.zeroFillGap(n, i, offset); err != nil {
			return -1, err
		}
	}

	written, err := v.writeData(n, offset, buf)
	if written == 0 && err != nil {
		return -1, err
	}

	newSize := offset + int64(written)
	if newSize > int64(n.size) {
		n.size = uint32(newSize)
	}
	if werr := v.writeInode(i, n); werr != nil {
		return written, werr
	}
	return written, nil
}

// zeroFillGap extends inode n with zero bytes from its current size up to
// offset (spec §4.6 "zero-fill gap"). On any failure it persists the
// furthest point actually reached before returning the error, per the
// Open Question resolution in DESIGN.md: size is updated monotonically
// and gap-fill is a phase fully sequential with the data write that
// follows it.
func (v *Volume) zeroFillGap(n *inode, i uint32, offset int64) error {
	pos := int64(n.size)
	for pos < offset {
		blockOffset := pos % int64(blockSizeConst)
		span := int64(blockSizeConst) - blockOffset
		if left := offset - pos; span > left {
			span = left
		}

		block, err := v.blockForOffset(n, pos, true)
		if err != nil {
			n.size = uint32(pos)
			_ = v.writeInode(i, n)
			return err
		}

		if blockOffset == 0 && span == int64(blockSizeConst) {
			if err := v.zeroBlock(block); err != nil {
				n.size = uint32(pos)
				_ = v.writeInode(i, n)
				return err
			}
		} else {
			data, err := v.readBlock(block)
			if err != nil {
				n.size = uint32(pos)
				_ = v.writeInode(i, n)
				return err
			}
			for j := int64(0); j < span; j++ {
				data[blockOffset+j] = 0
			}
			if err := v.writeBlock(block, data); err != nil {
				n.size = uint32(pos)
				_ = v.writeInode(i, n)
				return err
			}
		}

		pos += span
	}

	n.size = uint32(offset)
	return v.writeInode(i, n)
}

// writeData writes buf to n starting at offset, without touching
// anything below offset (the gap, if any, has already been filled by
// zeroFillGap). Returns the number of bytes actually written; per spec
// §4.6/§7, a device failure after at least one byte has landed downgrades
// to that partial count with a nil error, while a failure before any byte
// lands propagates verbatim.
func (v *Volume) writeData(n *inode, offset int64, buf []byte) (int, error) {
	var written int64
	pos := offset
	remaining := int64(len(buf))

	for remaining > 0 {
		blockOffset := pos % int64(blockSizeConst)
		span := int64(blockSizeConst) - blockOffset
		if span > remaining {
			span = remaining
		}

		block, err := v.blockForOffset(n, pos, true)
		if err != nil {
			if written > 0 {
				return int(written), nil
			}
			return 0, err
		}

		src := buf[written : written+span]
		if blockOffset == 0 && span == int64(blockSizeConst) {
			if err := v.writeBlock(block, src); err != nil {
				if written > 0 {
					return int(written), nil
				}
				return 0, err
			}
		} else {
			data, err := v.readBlock(block)
			if err != nil {
				if written > 0 {
					return int(written), nil
				}
				return 0, err
			}
			copy(data[blockOffset:blockOffset+span], src)
			if err := v.writeBlock(block, data); err != nil {
				if written > 0 {
					return int(written), nil
				}
				return 0, err
			}
		}

		written += span
		pos += span
		remaining -= span
	}

	return int(written), nil
}
