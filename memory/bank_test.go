package memory

import "testing"

func TestBankGetSetAgainstNaiveArray(t *testing.T) {
	b := NewBank[int32](10, 0)
	naive := make([]int32, 10)

	set := func(i int, v int32) {
		if err := b.Set(i, v); err != nil {
			t.Fatalf("Set(%d,%d): %v", i, v, err)
		}
		naive[i] = v
	}
	fill := func(lo, hi int, v int32) {
		if err := b.Fill(lo, hi, v); err != nil {
			t.Fatalf("Fill(%d,%d,%d): %v", lo, hi, v, err)
		}
		for i := lo; i < hi; i++ {
			naive[i] = v
		}
	}

	set(0, 5)
	set(3, 7)
	fill(2, 6, 9)
	set(9, 1)
	fill(0, 10, 2)
	set(0, 99)

	for i := 0; i < 10; i++ {
		got, err := b.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got != naive[i] {
			t.Fatalf("index %d: got %d, want %d", i, got, naive[i])
		}
	}
}

func TestBankOutOfBounds(t *testing.T) {
	b := NewBank[int32](5, 0)
	if _, err := b.Get(5); err == nil {
		t.Fatal("expected OutOfRange")
	}
	if err := b.Set(-1, 1); err == nil {
		t.Fatal("expected OutOfRange")
	}
	if err := b.Fill(0, 6, 1); err == nil {
		t.Fatal("expected OutOfRange")
	}
}

func TestBankSnapshotRestore(t *testing.T) {
	b := NewBank[int32](5, 0)
	_ = b.Set(0, 1)
	m1 := b.Clone()

	_ = b.Set(1, 2)
	_ = b.Resize(500)
	_ = b.Fill(200, 500, 10)

	restored := m1.Clone()
	if v, _ := restored.Get(0); v != 1 {
		t.Fatalf("restored[0] = %d, want 1", v)
	}
	if v, _ := restored.Get(1); v != 0 {
		t.Fatalf("restored[1] = %d, want 0", v)
	}
	if restored.Size() != 5 {
		t.Fatalf("restored size = %d, want 5", restored.Size())
	}
}

func TestBankSerializationRoundTrip(t *testing.T) {
	b := NewBank[int32](20, 0)
	_ = b.Fill(2, 8, 5)
	_ = b.Set(15, -3)

	blob := SerializeInt(b)
	got, n, err := DeserializeInt(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(blob) {
		t.Fatalf("consumed %d bytes, want %d", n, len(blob))
	}
	if got.Size() != b.Size() {
		t.Fatalf("size mismatch: %d vs %d", got.Size(), b.Size())
	}
	for i := 0; i < b.Size(); i++ {
		want, _ := b.Get(i)
		have, _ := got.Get(i)
		if want != have {
			t.Fatalf("index %d: got %d, want %d", i, have, want)
		}
	}
}

func TestBankStrSerializationRoundTrip(t *testing.T) {
	b := NewBank[string](4, "")
	_ = b.Set(1, "hello")
	_ = b.Set(2, "world")

	blob := SerializeStr(b)
	got, n, err := DeserializeStr(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(blob) {
		t.Fatalf("consumed %d, want %d", n, len(blob))
	}
	for i := 0; i < b.Size(); i++ {
		want, _ := b.Get(i)
		have, _ := got.Get(i)
		if want != have {
			t.Fatalf("index %d: got %q, want %q", i, have, want)
		}
	}
}
