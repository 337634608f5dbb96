// Package device implements the block device adapter the file system core
// consumes through a small sector-addressable interface (spec §4.1/§6.2).
//
// Everything above this package works in 1024-byte sectors addressed by a
// uint32 index; nothing here knows about superblocks, inodes, or the
// indirection tree. That separation is what lets the core be tested against
// an in-memory fake (see Memory, in memdevice.go) without touching a real file.
package device

import "errors"

// SectorSize is the fixed sector size the core operates on. The backing
// store's own block size (when it is a real block device) must divide into
// this evenly; see Open.
const SectorSize = 1024

var (
	// ErrNotExist is returned when the named backing file does not exist.
	// Pre-creating that file is an external concern (spec §1); this package
	// only opens what is already there.
	ErrNotExist = errors.New("device: backing file does not exist")
	// ErrBadSize is returned when the backing file's size is not an exact
	// multiple of SectorSize.
	ErrBadSize = errors.New("device: backing file size is not a multiple of the sector size")
	// ErrReadOnly is returned by WriteSector/Sync when the device was
	// opened read-only.
	ErrReadOnly = errors.New("device: opened read-only")
	// ErrClosed is returned by any operation on a device after Close.
	ErrClosed = errors.New("device: already closed")
	// ErrOutOfRange is returned when a sector index is outside the device.
	ErrOutOfRange = errors.New("device: sector out of range")
	// ErrShortTransfer is returned when a read or write moved fewer than
	// SectorSize bytes without an underlying error explaining why.
	ErrShortTransfer = errors.New("device: short sector transfer")
)

// Interface is the abstract block device contract consumed by the core. It
// is the Go shape of spec §6.2: open/read/write/sync/close over fixed-size
// sectors. The handle spec.md speaks of is simply a value satisfying this
// interface; callers carry it for the mount's lifetime and nothing else.
type Interface interface {
	// SectorCount returns the total number of SectorSize sectors on the
	// device (spec's num_blocks, i.e. the device's own size).
	SectorCount() uint32
	// ReadSector reads exactly SectorSize bytes from the given sector into
	// buf, which must have length SectorSize.
	ReadSector(sector uint32, buf []byte) error
	// WriteSector writes exactly SectorSize bytes from buf to the given
	// sector. buf must have length SectorSize.
	WriteSector(sector uint32, buf []byte) error
	// Sync flushes any buffered writes to the backing store.
	Sync() error
	// Close releases the device. No further calls are valid afterward.
	Close() error
}
