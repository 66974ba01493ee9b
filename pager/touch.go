package pager

import (
	"runtime"
	"runtime/debug"
	"unsafe"

	"vmpager/internal/pte"
)

// rawAccess performs one raw byte access at addr, returning faulted=true
// if the access hit protected or unmapped memory instead of completing.
//
// debug.SetPanicOnFault only affects the goroutine that calls it, so it
// is set on every call rather than once at init: a touch issued from a
// goroutine that has never called it would otherwise crash the whole
// process instead of producing a recoverable fault, defeating the point
// of the simulator. The previous setting is restored before returning so
// a caller's own unrelated code does not keep running with panic-on-fault
// enabled after a Pager call returns.
func rawAccess(addr uintptr, write bool, value byte) (result byte, faulted bool) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				faulted = true
				return
			}
			panic(r)
		}
	}()

	ptr := (*byte)(unsafe.Pointer(addr))
	if write {
		*ptr = value
		return 0, false
	}
	return *ptr, false
}

// touchByte performs a single read or write at addr, transparently
// servicing however many page faults are needed first. It holds the
// pager's lock for its whole duration, which is what keeps the tick
// source from ever running concurrently with fault handling (see
// Pager.resolveFault).
func (p *Pager) touchByte(addr uintptr, write bool, value byte) (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}

	page, ok := p.ctrl.PageOf(addr)
	if !ok {
		p.abort("out-of-range access at %#x (range [%#x,%#x))", addr, p.ctrl.Base(), p.ctrl.End())
	}

	for {
		result, faulted := rawAccess(addr, write, value)
		if !faulted {
			return result, nil
		}
		p.numFaults++
		p.resolveFault(page)
	}
}

// resolveFault implements the fault decision table: it classifies the
// fault purely from the page table's own state (no kernel-provided
// si_code is available in pure Go), then services it.
func (p *Pager) resolveFault(page int) {
	entry := p.table.Get(page)

	if !entry.Resident() {
		// MAPERR: no mapping present yet.
		if p.residentCount >= p.cfg.MaxResident {
			victim, ok := p.policy.ChooseVictim()
			if !ok {
				p.abort("policy has no victim to evict with resident set full")
			}
			p.unmapPage(victim)
		}
		p.mapPage(page, pte.None)
		return
	}

	switch entry.Permission() {
	case pte.None:
		// ACCERR, first touch since becoming resident: reveal the read.
		p.setProtectionChecked(page, pte.Read)
		p.table.SetAccessed(page, true)
	case pte.Read:
		// ACCERR, first write since the last load: reveal the dirty.
		p.setProtectionChecked(page, pte.ReadWrite)
		p.table.SetDirty(page, true)
	case pte.ReadWrite:
		p.abort("fault delivered for page %d already at RDWR permission", page)
	default:
		p.abort("page %d has invalid permission value %d", page, entry.Permission())
	}
}

// mapPage makes page resident: it allocates a fresh mapping, loads the
// page's bytes from the backing store, resets the entry, applies
// initialPerm, and notifies the policy.
func (p *Pager) mapPage(page int, initialPerm pte.Permission) {
	if p.table.Resident(page) {
		p.abort("map_page: page %d already resident", page)
	}
	if p.residentCount >= p.cfg.MaxResident {
		p.abort("map_page: resident budget exceeded mapping page %d", page)
	}

	if err := p.ctrl.AllocateMapping(page); err != nil {
		p.abort("map_page: %v", err)
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(p.ctrl.Addr(page))), p.cfg.PageSize)
	if err := p.store.SlotRead(page, dst); err != nil {
		p.abort("map_page: %v", err)
	}

	p.table.Clear(page)
	p.table.SetResident(page, true)
	p.setProtectionChecked(page, initialPerm)

	p.residentCount++
	p.numLoads++
	p.policy.PageMapped(page)
}

// unmapPage evicts a resident page, writing it back first if dirty.
func (p *Pager) unmapPage(page int) {
	if !p.table.Resident(page) {
		p.abort("unmap_page: page %d not resident", page)
	}
	if p.residentCount <= 0 {
		p.abort("unmap_page: resident counter underflow evicting page %d", page)
	}

	if p.table.Dirty(page) {
		// The kernel must permit the outbound read regardless of the
		// page's current permission (CLOCK aging may have already
		// revoked it back to NONE while dirty stayed set).
		p.setProtectionChecked(page, pte.Read)
		src := unsafe.Slice((*byte)(unsafe.Pointer(p.ctrl.Addr(page))), p.cfg.PageSize)
		if err := p.store.SlotWrite(page, src); err != nil {
			p.abort("unmap_page: %v", err)
		}
	}

	if err := p.ctrl.ReleaseMapping(page); err != nil {
		p.abort("unmap_page: %v", err)
	}

	p.table.Clear(page)
	p.residentCount--
}

// setProtectionChecked applies a protection change through the
// controller and keeps the page table's permission field in lock-step;
// the two are never allowed to diverge (invariant 5).
func (p *Pager) setProtectionChecked(page int, perm pte.Permission) {
	if err := p.ctrl.SetProtection(page, perm); err != nil {
		p.abort("set_protection(page %d, %s): %v", page, perm, err)
	}
	p.table.SetPermission(page, perm)
}
