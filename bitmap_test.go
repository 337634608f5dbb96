package simplefs

import "testing"

func TestAllocatorReservesSystemBlocks(t *testing.T) {
	a := newAllocator(20, 5)
	for b := uint32(0); b < 5; b++ {
		if !a.isUsed(b) {
			t.Fatalf("block %d should be pre-marked used (superblock/inode region)", b)
		}
	}
	if a.isUsed(5) {
		t.Fatal("first data block should start free")
	}
}

func TestAllocatorFindFreeThenFree(t *testing.T) {
	a := newAllocator(10, 2)

	first, err := a.findFree()
	if err != nil {
		t.Fatalf("findFree: %v", err)
	}
	if first != 2 {
		t.Fatalf("findFree() = %d, want 2 (first data block)", first)
	}
	if !a.isUsed(first) {
		t.Fatal("findFree did not mark the block used")
	}

	second, err := a.findFree()
	if err != nil {
		t.Fatalf("findFree: %v", err)
	}
	if second != 3 {
		t.Fatalf("findFree() = %d, want 3", second)
	}

	a.free(first)
	if a.isUsed(first) {
		t.Fatal("free() did not clear the block")
	}

	third, err := a.findFree()
	if err != nil {
		t.Fatalf("findFree: %v", err)
	}
	if third != first {
		t.Fatalf("findFree() after free() = %d, want reuse of %d (first-available policy)", third, first)
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	a := newAllocator(4, 2)
	if _, err := a.findFree(); err != nil {
		t.Fatalf("findFree (block 2): %v", err)
	}
	if _, err := a.findFree(); err != nil {
		t.Fatalf("findFree (block 3): %v", err)
	}
	_, err := a.findFree()
	if err == nil {
		t.Fatal("expected ErrOutOfSpace once the data region is exhausted")
	}
	if code, ok := AsCode(err); !ok || code != ErrOutOfSpace {
		t.Fatalf("got error %v, want ErrOutOfSpace", err)
	}
}

func TestAllocatorFreeIgnoresSystemBlocks(t *testing.T) {
	a := newAllocator(10, 3)
	a.free(1) // inside the reserved region
	if !a.isUsed(1) {
		t.Fatal("free() must never clear a superblock/inode-region block")
	}
}

func TestAllocatorMarkUsedIdempotent(t *testing.T) {
	a := newAllocator(10, 3)
	a.markUsed(5)
	a.markUsed(5)
	if !a.isUsed(5) {
		t.Fatal("markUsed(5) should leave block 5 used")
	}
}
