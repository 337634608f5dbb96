package simplefs

import (
	"errors"
	"fmt"
)

// Code is one of the stable, negative error codes of spec §6.4. Every
// failure this package returns that originates in the core itself (as
// opposed to being propagated verbatim from the device adapter) wraps one
// of these.
type Code int

const (
	// ErrNotMounted means a file operation or unmount was attempted
	// without a volume mounted.
	ErrNotMounted Code = -100
	// ErrAlreadyMounted means format or mount was attempted while a
	// volume is already mounted.
	ErrAlreadyMounted Code = -101
	// ErrInvalidInode means an inode index was out of range, or referred
	// to a free (valid == 0) inode where a live one was required.
	ErrInvalidInode Code = -102
	// ErrOutOfSpace means the allocator has no free data block left, or
	// an allocation attempt otherwise failed.
	ErrOutOfSpace Code = -103
	// ErrOutOfInodes means every inode slot is already allocated.
	ErrOutOfInodes Code = -104
	// ErrCorruptDisk means the superblock's magic bytes did not match.
	ErrCorruptDisk Code = -105
	// ErrInvalidOffset means a negative offset, or one beyond the maximum
	// file capacity (spec §4.3), was requested.
	ErrInvalidOffset Code = -106
)

func (c Code) String() string {
	switch c {
	case ErrNotMounted:
		return "disk not mounted"
	case ErrAlreadyMounted:
		return "disk already mounted"
	case ErrInvalidInode:
		return "invalid inode"
	case ErrOutOfSpace:
		return "out of space"
	case ErrOutOfInodes:
		return "out of inodes"
	case ErrCorruptDisk:
		return "corrupt disk"
	case ErrInvalidOffset:
		return "invalid offset"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// Error wraps one of the stable Code values of spec §6.4, optionally with
// additional context and an underlying cause (e.g. a device error). Callers
// that need the bare integer spec.md documents can recover it with
// errors.As(err, &simplefsErr) and reading .Code, or via AsCode(err).
type Error struct {
	Code    Code
	Context string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Context != "":
		return fmt.Sprintf("%s: %s: %v", e.Context, e.Code, e.Err)
	case e.Context != "":
		return fmt.Sprintf("%s: %s", e.Context, e.Code)
	default:
		return e.Code.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(code Code, context string) error {
	return &Error{Code: code, Context: context}
}

// AsCode extracts the stable spec §6.4 integer code from err, if any. The
// second return is false when err does not originate from this package's
// own validation/lifecycle/resource-exhaustion paths (e.g. a raw device
// error propagated verbatim, per spec §7).
func AsCode(err error) (Code, bool) {
	var sfsErr *Error
	if errors.As(err, &sfsErr) {
		return sfsErr.Code, true
	}
	return 0, false
}
