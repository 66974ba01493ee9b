// Package pte implements the page table: a dense array of bit-packed
// page-table entries indexed by page id.
package pte

import "fmt"

// Permission is the access level recorded for a page. It maps directly to
// the kernel protection bits the protection controller applies.
type Permission uint8

const (
	None Permission = iota
	Read
	ReadWrite
)

func (p Permission) String() string {
	switch p {
	case None:
		return "NONE"
	case Read:
		return "READ"
	case ReadWrite:
		return "RDWR"
	default:
		return "INVALID"
	}
}

// Entry is a single page-table entry packed into one byte:
//
//	bits 0-1: permission
//	bit  2:   resident
//	bit  3:   accessed
//	bit  4:   dirty
type Entry uint8

const (
	permMask     = 0b0000_0011
	residentBit  = 0b0000_0100
	accessedBit  = 0b0000_1000
	dirtyBit     = 0b0001_0000
)

// Permission returns the entry's current permission.
func (e Entry) Permission() Permission { return Permission(e & permMask) }

// Resident reports whether the page currently has backing memory mapped.
func (e Entry) Resident() bool { return e&residentBit != 0 }

// Accessed reports whether the page has been read since the last aging clear.
func (e Entry) Accessed() bool { return e&accessedBit != 0 }

// Dirty reports whether the page has been written since it was last loaded.
func (e Entry) Dirty() bool { return e&dirtyBit != 0 }

// Table is a dense page table indexed by page id.
type Table struct {
	entries []Entry
}

// NewTable allocates a zeroed page table for numPages pages.
func NewTable(numPages int) *Table {
	return &Table{entries: make([]Entry, numPages)}
}

// Len returns the number of pages tracked by the table.
func (t *Table) Len() int { return len(t.entries) }

func (t *Table) checkBounds(p int) {
	if p < 0 || p >= len(t.entries) {
		panic(fmt.Sprintf("pte: page %d out of range [0,%d)", p, len(t.entries)))
	}
}

// Get returns the full entry for page p.
func (t *Table) Get(p int) Entry {
	t.checkBounds(p)
	return t.entries[p]
}

// Permission returns the permission field for page p.
func (t *Table) Permission(p int) Permission {
	return t.Get(p).Permission()
}

// Resident reports whether page p is resident.
func (t *Table) Resident(p int) bool {
	return t.Get(p).Resident()
}

// Accessed reports the accessed bit for page p.
func (t *Table) Accessed(p int) bool {
	return t.Get(p).Accessed()
}

// Dirty reports the dirty bit for page p.
func (t *Table) Dirty(p int) bool {
	return t.Get(p).Dirty()
}

// SetPermission updates only the permission field of page p.
func (t *Table) SetPermission(p int, perm Permission) {
	t.checkBounds(p)
	t.entries[p] = (t.entries[p] &^ permMask) | Entry(perm)
}

// SetResident sets or clears the resident bit of page p.
func (t *Table) SetResident(p int, v bool) {
	t.checkBounds(p)
	if v {
		t.entries[p] |= residentBit
	} else {
		t.entries[p] &^= residentBit
	}
}

// SetAccessed sets or clears the accessed bit of page p.
func (t *Table) SetAccessed(p int, v bool) {
	t.checkBounds(p)
	if v {
		t.entries[p] |= accessedBit
	} else {
		t.entries[p] &^= accessedBit
	}
}

// SetDirty sets or clears the dirty bit of page p.
func (t *Table) SetDirty(p int, v bool) {
	t.checkBounds(p)
	if v {
		t.entries[p] |= dirtyBit
	} else {
		t.entries[p] &^= dirtyBit
	}
}

// Clear atomically zeroes the whole entry for page p, returning it to its
// post-init state. It is the only way a PTE returns to that state.
func (t *Table) Clear(p int) {
	t.checkBounds(p)
	t.entries[p] = 0
}

// ResidentCount returns the number of pages currently marked resident.
// It is O(n); callers that need this on a hot path should track a counter
// alongside the table instead (the pager façade does).
func (t *Table) ResidentCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Resident() {
			n++
		}
	}
	return n
}
