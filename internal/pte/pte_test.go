package pte

import "testing"

func TestTablePostInitIsZero(t *testing.T) {
	tbl := NewTable(4)
	for p := 0; p < tbl.Len(); p++ {
		if tbl.Resident(p) {
			t.Fatalf("page %d: expected non-resident at init", p)
		}
		if tbl.Permission(p) != None {
			t.Fatalf("page %d: expected NONE permission at init, got %s", p, tbl.Permission(p))
		}
		if tbl.Accessed(p) || tbl.Dirty(p) {
			t.Fatalf("page %d: expected accessed/dirty clear at init", p)
		}
	}
}

func TestSettersTouchOnlyNamedField(t *testing.T) {
	tbl := NewTable(1)
	tbl.SetResident(0, true)
	tbl.SetPermission(0, ReadWrite)
	tbl.SetAccessed(0, true)
	tbl.SetDirty(0, true)

	if !tbl.Resident(0) || tbl.Permission(0) != ReadWrite || !tbl.Accessed(0) || !tbl.Dirty(0) {
		t.Fatalf("unexpected entry state: %08b", tbl.Get(0))
	}

	tbl.SetDirty(0, false)
	if !tbl.Resident(0) || tbl.Permission(0) != ReadWrite || !tbl.Accessed(0) {
		t.Fatalf("clearing dirty bit clobbered other fields: %08b", tbl.Get(0))
	}
	if tbl.Dirty(0) {
		t.Fatalf("dirty bit did not clear")
	}
}

func TestClearReturnsToPostInitState(t *testing.T) {
	tbl := NewTable(1)
	tbl.SetResident(0, true)
	tbl.SetPermission(0, ReadWrite)
	tbl.SetAccessed(0, true)
	tbl.SetDirty(0, true)

	tbl.Clear(0)

	if tbl.Get(0) != 0 {
		t.Fatalf("Clear left entry at %08b, want 0", tbl.Get(0))
	}
}

func TestResidentCount(t *testing.T) {
	tbl := NewTable(4)
	tbl.SetResident(1, true)
	tbl.SetResident(3, true)
	if got := tbl.ResidentCount(); got != 2 {
		t.Fatalf("ResidentCount() = %d, want 2", got)
	}
}

func TestOutOfBoundsPanics(t *testing.T) {
	tbl := NewTable(2)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range page id")
		}
	}()
	tbl.Get(2)
}
