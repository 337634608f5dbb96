package simplefs

import (
	"path/filepath"
	"testing"

	"github.com/martindengis/simplefs/device"
)

// newTestVolume creates a temp backing file of numSectors sectors, formats
// it for inodeCount inodes, mounts it, and returns the mounted Volume and
// its disk path. The caller is responsible for Unmount.
func newTestVolume(t *testing.T, numSectors uint32, inodeCount int) (*Volume, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")

	dev, err := device.Create(path, numSectors)
	if err != nil {
		t.Fatalf("device.Create: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("closing freshly created device: %v", err)
	}

	v := New()
	if err := v.Format(path, inodeCount); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if err := v.Mount(path); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return v, path
}

// newMemTestVolume formats and mounts a Volume directly on top of a
// device.Memory, bypassing the filesystem entirely. It returns both the
// mounted Volume and the Memory device backing it, so tests can arm
// FailAt/FailWrites on specific sectors mid-test to exercise the
// partial-transfer failure semantics of spec §7.
func newMemTestVolume(t *testing.T, numSectors uint32, inodeCount int) (*Volume, *device.Memory) {
	t.Helper()
	mem := device.NewMemory(numSectors)

	numInodeBlocks := uint32((inodeCount + int(inodesPerBlock) - 1) / int(inodesPerBlock))
	if numInodeBlocks < 1 {
		numInodeBlocks = 1
	}
	sb := &superblock{numBlocks: numSectors, numInodeBlocks: numInodeBlocks, blockSize: blockSizeConst}
	if err := mem.WriteSector(0, sb.toBytes()); err != nil {
		t.Fatalf("writing superblock to memory device: %v", err)
	}

	v := New()
	if err := v.mountDevice("mem", mem); err != nil {
		t.Fatalf("mountDevice: %v", err)
	}
	return v, mem
}
