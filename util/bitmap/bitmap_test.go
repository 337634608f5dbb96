package bitmap

import "testing"

func TestSetClearIsSet(t *testing.T) {
	bm := NewBits(20)

	if set, err := bm.IsSet(5); err != nil || set {
		t.Fatalf("fresh bitmap bit 5: got (%v, %v), want (false, nil)", set, err)
	}

	if err := bm.Set(5); err != nil {
		t.Fatalf("Set(5): %v", err)
	}
	if set, err := bm.IsSet(5); err != nil || !set {
		t.Fatalf("after Set(5): got (%v, %v), want (true, nil)", set, err)
	}

	if err := bm.Clear(5); err != nil {
		t.Fatalf("Clear(5): %v", err)
	}
	if set, err := bm.IsSet(5); err != nil || set {
		t.Fatalf("after Clear(5): got (%v, %v), want (false, nil)", set, err)
	}
}

func TestOutOfRangeErrors(t *testing.T) {
	bm := NewBits(8)
	if _, err := bm.IsSet(8); err == nil {
		t.Fatal("expected an error for a location past the bitmap's size")
	}
	if _, err := bm.IsSet(-1); err == nil {
		t.Fatal("expected an error for a negative location")
	}
	if err := bm.Set(100); err == nil {
		t.Fatal("expected an error setting a location past the bitmap's size")
	}
}

func TestFirstFree(t *testing.T) {
	bm := NewBits(16)
	for _, i := range []int{0, 1, 2, 3} {
		if err := bm.Set(i); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}

	if got := bm.FirstFree(0); got != 4 {
		t.Fatalf("FirstFree(0) = %d, want 4", got)
	}
	if got := bm.FirstFree(5); got != 5 {
		t.Fatalf("FirstFree(5) = %d, want 5", got)
	}

	for i := 4; i < 16; i++ {
		_ = bm.Set(i)
	}
	if got := bm.FirstFree(0); got != -1 {
		t.Fatalf("FirstFree(0) on a full bitmap = %d, want -1", got)
	}
}

func TestFirstFreeCrossesByteBoundary(t *testing.T) {
	bm := NewBits(24)
	for i := 0; i < 16; i++ {
		_ = bm.Set(i)
	}
	if got := bm.FirstFree(0); got != 16 {
		t.Fatalf("FirstFree(0) = %d, want 16", got)
	}
}
