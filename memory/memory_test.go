package memory

import "testing"

func TestMemorySnapshotScenario(t *testing.T) {
	m := New()
	_ = m.F.Resize(5)
	_ = m.SetInt(TagF, 0, 1)

	m1 := m.Snapshot()

	_ = m.SetInt(TagF, 1, 2)
	_ = m.F.Resize(500)
	_ = m.F.Fill(200, 500, 10)

	restored := m1.F
	if v, _ := restored.Get(0); v != 1 {
		t.Fatalf("F[0] = %d, want 1", v)
	}
	if v, _ := restored.Get(1); v != 0 {
		t.Fatalf("F[1] = %d, want 0", v)
	}
	if restored.Size() != 5 {
		t.Fatalf("size = %d, want 5", restored.Size())
	}
}

func TestMemoryBBitWidthSubViews(t *testing.T) {
	m := New()
	if err := m.SetInt(TagBInt, 0, 0x1234); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := m.GetInt(TagBInt, 0)
	if err != nil || v != 0x1234 {
		t.Fatalf("got (%v,%v), want (0x1234,nil)", v, err)
	}

	// 0x1234 = ...0001 0010 0011 0100; bit 0 is 0, bit 2 is 1.
	bit, err := m.GetInt(TagB1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bit != 0 {
		t.Fatalf("bit 0 of 0x1234 = %d, want 0", bit)
	}
	bit, err = m.GetInt(TagB1, 2)
	if err != nil || bit != 1 {
		t.Fatalf("bit 2 of 0x1234 = %v, want 1 (err=%v)", bit, err)
	}

	if err := m.SetInt(TagB1, 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, _ := m.GetInt(TagBInt, 0)
	if v2 != 0x1235 {
		t.Fatalf("after setting bit 0, B[0] = %#x, want 0x1235", v2)
	}
}

func TestMemoryLocalSnapshotRestore(t *testing.T) {
	m := New()
	_ = m.SetInt(TagL, 0, 42)
	saved := m.CloneLocal()

	_ = m.SetInt(TagL, 0, 7)
	m.RestoreLocal(saved)

	v, _ := m.GetInt(TagL, 0)
	if v != 42 {
		t.Fatalf("L[0] after restore = %d, want 42", v)
	}
}
