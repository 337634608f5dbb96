package simplefs

import (
	"path/filepath"
	"testing"

	"github.com/martindengis/simplefs/device"
)

func TestFormatRejectsTooFewBlocksForInodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.img")
	dev, err := device.Create(path, 1)
	if err != nil {
		t.Fatalf("device.Create: %v", err)
	}
	dev.Close()

	v := New()
	err = v.Format(path, 100000)
	if err == nil {
		t.Fatal("expected Format to reject a device with no room for a data region")
	}
	if code, ok := AsCode(err); !ok || code != ErrOutOfSpace {
		t.Fatalf("got error %v, want ErrOutOfSpace", err)
	}
}

func TestMountRejectsUnformattedDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.img")
	dev, err := device.Create(path, 16)
	if err != nil {
		t.Fatalf("device.Create: %v", err)
	}
	buf := make([]byte, device.SectorSize)
	for i := range buf {
		buf[i] = 0x41
	}
	if err := dev.WriteSector(0, buf); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	dev.Close()

	v := New()
	if err := v.Mount(path); err == nil {
		t.Fatal("expected Mount to reject a disk without the magic header")
	} else if code, ok := AsCode(err); !ok || code != ErrCorruptDisk {
		t.Fatalf("got error %v, want ErrCorruptDisk", err)
	}
}

func TestFormatThenMountThenCreate(t *testing.T) {
	v, _ := newTestVolume(t, 64, 4)
	defer v.Unmount()

	if !v.Mounted() {
		t.Fatal("expected Mounted() to be true after Mount")
	}

	idx, err := v.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if idx != 0 {
		t.Fatalf("Create() = %d, want 0 (first free inode)", idx)
	}

	size, err := v.Stat(idx)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if size != 0 {
		t.Fatalf("Stat() of a freshly created file = %d, want 0", size)
	}
}

func TestDoubleMountRejected(t *testing.T) {
	v, path := newTestVolume(t, 32, 4)
	defer v.Unmount()

	if err := v.Mount(path); err == nil {
		t.Fatal("expected a second Mount on an already-mounted Volume to fail")
	} else if code, ok := AsCode(err); !ok || code != ErrAlreadyMounted {
		t.Fatalf("got error %v, want ErrAlreadyMounted", err)
	}
}

func TestFormatWhileMountedRejected(t *testing.T) {
	v, path := newTestVolume(t, 32, 4)
	defer v.Unmount()

	if err := v.Format(path, 4); err == nil {
		t.Fatal("expected Format on an already-mounted Volume to fail")
	} else if code, ok := AsCode(err); !ok || code != ErrAlreadyMounted {
		t.Fatalf("got error %v, want ErrAlreadyMounted", err)
	}
}

func TestUnmountWithoutMountRejected(t *testing.T) {
	v := New()
	if err := v.Unmount(); err == nil {
		t.Fatal("expected Unmount on a never-mounted Volume to fail")
	} else if code, ok := AsCode(err); !ok || code != ErrNotMounted {
		t.Fatalf("got error %v, want ErrNotMounted", err)
	}
}

func TestOperationsBeforeMountRejected(t *testing.T) {
	v := New()
	if _, err := v.Create(); err == nil {
		t.Fatal("expected Create before Mount to fail")
	}
	if _, err := v.Stat(0); err == nil {
		t.Fatal("expected Stat before Mount to fail")
	}
	if _, err := v.Read(0, make([]byte, 1), 0); err == nil {
		t.Fatal("expected Read before Mount to fail")
	}
	if _, err := v.Write(0, make([]byte, 1), 0); err == nil {
		t.Fatal("expected Write before Mount to fail")
	}
	if err := v.Delete(0); err == nil {
		t.Fatal("expected Delete before Mount to fail")
	}
}

// TestPersistenceAcrossUnmountMount writes data, unmounts, remounts on a
// fresh Volume value, and checks the data and size both survive — the
// mount-time scan must reconstruct everything purely from the persisted
// blocks, with no other process-wide state carried across.
func TestPersistenceAcrossUnmountMount(t *testing.T) {
	v, path := newTestVolume(t, 64, 4)

	idx, err := v.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := []byte("Hello, File System World!")
	if _, err := v.Write(idx, payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := v.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}

	v2 := New()
	if err := v2.Mount(path); err != nil {
		t.Fatalf("Mount (second volume): %v", err)
	}
	defer v2.Unmount()

	size, err := v2.Stat(idx)
	if err != nil {
		t.Fatalf("Stat after remount: %v", err)
	}
	if size != len(payload) {
		t.Fatalf("size after remount = %d, want %d", size, len(payload))
	}

	buf := make([]byte, len(payload))
	n, err := v2.Read(idx, buf, 0)
	if err != nil {
		t.Fatalf("Read after remount: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Fatalf("Read after remount = %q, want %q", buf[:n], payload)
	}
}

// TestDeleteThenCreateRecyclesInode mirrors the delete+recycle seed
// scenario: once an inode is deleted its slot becomes the next Create().
func TestDeleteThenCreateRecyclesInode(t *testing.T) {
	v, _ := newTestVolume(t, 64, 4)
	defer v.Unmount()

	idx, err := v.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := v.Write(idx, []byte("data"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := v.Delete(idx); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := v.Stat(idx); err == nil {
		t.Fatal("expected Stat on a deleted inode to fail")
	}

	again, err := v.Create()
	if err != nil {
		t.Fatalf("Create after Delete: %v", err)
	}
	if again != idx {
		t.Fatalf("Create() after Delete() = %d, want reuse of %d", again, idx)
	}
	size, err := v.Stat(again)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if size != 0 {
		t.Fatalf("recycled inode size = %d, want 0", size)
	}
}

// TestDeleteReleasesBlocksForReuse checks that the blocks a deleted file
// held become available to a subsequent Create+Write, by driving the
// allocator to near-exhaustion, deleting, and confirming a write that would
// otherwise run out of space now succeeds.
func TestDeleteReleasesBlocksForReuse(t *testing.T) {
	// dataRegionStart for 1 inode block is 2; with 10 total sectors, there
	// are 8 data blocks.
	v, _ := newTestVolume(t, 10, 4)
	defer v.Unmount()

	idx, err := v.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := make([]byte, 8*int(blockSizeConst))
	if _, err := v.Write(idx, payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	other, err := v.Create()
	if err != nil {
		t.Fatalf("Create (second file): %v", err)
	}
	if _, err := v.Write(other, []byte{1}, 0); err == nil {
		t.Fatal("expected Write to fail with no free data blocks left")
	}

	if err := v.Delete(idx); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := v.Write(other, []byte{1}, 0); err != nil {
		t.Fatalf("Write after Delete freed blocks: %v", err)
	}
}
