//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package device

import (
	"os"

	"golang.org/x/sys/unix"
)

// blkbszGet is the BLKBSZGET ioctl request, used to ask the kernel for the
// physical sector size of a block device. Mirrors the teacher's own
// getSectorSizes() helper, reduced to the one probe this package needs.
const blkbszGet = 0x80081270

// probeSectorSize asks the kernel for the physical sector size of f when f
// is an open block device. It is best-effort: a regular file, or a
// platform/device that does not support the ioctl, yields (0, err) and the
// caller falls back to trusting the file size alone.
func probeSectorSize(f *os.File) (int, error) {
	return unix.IoctlGetInt(int(f.Fd()), blkbszGet)
}
