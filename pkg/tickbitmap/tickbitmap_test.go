package tickbitmap

import "testing"

func TestBitmapFlipAndIsInitialized(t *testing.T) {
	b := NewBitmap(60)
	arrayWidth := int32(TickArraySize) * 60

	init, err := b.IsInitialized(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if init {
		t.Fatal("expected uninitialized before flip")
	}

	if err := b.Flip(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init, err = b.IsInitialized(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !init {
		t.Fatal("expected initialized after flip")
	}

	if err := b.Flip(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init, err = b.IsInitialized(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if init {
		t.Fatal("expected uninitialized after second flip")
	}

	if err := b.Flip(arrayWidth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init, err = b.IsInitialized(arrayWidth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !init {
		t.Fatal("expected initialized array at positive start index")
	}
}

func TestBitmapRejectsUnalignedStart(t *testing.T) {
	b := NewBitmap(60)
	if err := b.Flip(1); err == nil {
		t.Fatal("expected error for unaligned start index")
	}
}

func TestNextInitializedStart(t *testing.T) {
	b := NewBitmap(10)
	arrayWidth := int32(TickArraySize) * 10

	if err := b.Flip(3 * arrayWidth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, found, err := b.NextInitializedStart(0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected to find initialized array")
	}
	if got != 3*arrayWidth {
		t.Errorf("got %d, want %d", got, 3*arrayWidth)
	}
}

func TestExtensionFlipAndIsInitialized(t *testing.T) {
	ext := NewExtension(60)
	arrayWidth := int32(TickArraySize) * 60
	far := arrayWidth * 600 // beyond the core bitmap's window

	init, err := ext.IsInitialized(far)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if init {
		t.Fatal("expected uninitialized before flip")
	}

	if err := ext.Flip(far); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	init, err = ext.IsInitialized(far)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !init {
		t.Fatal("expected initialized after flip")
	}
}
