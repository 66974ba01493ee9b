// Package protection applies kernel-level memory-protection changes to a
// reserved virtual address range. It is the only component through which
// a page's recorded permission and the kernel's actual protection bits
// diverge or reconverge.
package protection

import (
	"fmt"

	"vmpager/internal/pte"
)

// ErrUnsupportedPlatform is returned by New on platforms this package has
// no mmap/mprotect backend for.
var ErrUnsupportedPlatform = fmt.Errorf("protection: unsupported platform")

// Protection bit values are POSIX-common across the Unix backends this
// package supports; kept here so protFor needs no build-tagged import.
const (
	protNone      = 0x0
	protRead      = 0x1
	protReadWrite = 0x3 // PROT_READ | PROT_WRITE
)

// Controller reserves NumPages*PageSize bytes of address space at
// construction time and exposes per-page mapping and protection
// operations within that reservation.
type Controller struct {
	base     uintptr
	size     uintptr
	pageSize int
	impl     backend
}

// backend is the OS-specific half of Controller; protection_linux.go and
// protection_darwin.go each provide one, protection_other.go refuses to
// build one at all.
type backend interface {
	reserve(size uintptr) (uintptr, error)
	mapFixed(addr, size uintptr, prot int) error
	mprotect(addr, size uintptr, prot int) error
	unreserve(addr, size uintptr) error
}

// New reserves a numPages*pageSize span of address space with no access,
// establishing the simulated VMEM_START. The whole span stays reserved
// (never handed to an unrelated mmap) for the Controller's lifetime.
func New(numPages, pageSize int) (*Controller, error) {
	impl, err := newBackend()
	if err != nil {
		return nil, err
	}
	size := uintptr(numPages) * uintptr(pageSize)
	base, err := impl.reserve(size)
	if err != nil {
		return nil, fmt.Errorf("protection: reserve %d bytes: %w", size, err)
	}
	return &Controller{base: base, size: size, pageSize: pageSize, impl: impl}, nil
}

// Base returns the reserved range's start address (VMEM_START).
func (c *Controller) Base() uintptr { return c.base }

// End returns the reserved range's exclusive end address (VMEM_END).
func (c *Controller) End() uintptr { return c.base + c.size }

// Addr returns the address of page p: base + p*PageSize.
func (c *Controller) Addr(p int) uintptr {
	return c.base + uintptr(p)*uintptr(c.pageSize)
}

// PageOf returns the page id containing addr, and whether addr falls
// inside the reserved range at all.
func (c *Controller) PageOf(addr uintptr) (page int, inRange bool) {
	if addr < c.base || addr >= c.base+c.size {
		return 0, false
	}
	return int((addr - c.base) / uintptr(c.pageSize)), true
}

// AllocateMapping materializes a private, anonymous, zero-filled mapping
// at exactly addr(p) with read+write protection. A mapping that lands
// anywhere else is a fatal condition the caller must abort on.
func (c *Controller) AllocateMapping(p int) error {
	addr := c.Addr(p)
	const rw = protReadWrite
	if err := c.impl.mapFixed(addr, uintptr(c.pageSize), rw); err != nil {
		return fmt.Errorf("protection: allocate mapping for page %d at %#x: %w", p, addr, err)
	}
	return nil
}

// ReleaseMapping removes the mapping for page p, re-establishing the
// no-access placeholder so the address stays reserved for the
// Controller's lifetime instead of being available for an unrelated
// later mapping in the same process.
func (c *Controller) ReleaseMapping(p int) error {
	addr := c.Addr(p)
	if err := c.impl.mapFixed(addr, uintptr(c.pageSize), protNone); err != nil {
		return fmt.Errorf("protection: release mapping for page %d at %#x: %w", p, addr, err)
	}
	return nil
}

// SetProtection applies the kernel protection corresponding to perm to
// page p's single-page region.
func (c *Controller) SetProtection(p int, perm pte.Permission) error {
	addr := c.Addr(p)
	prot, err := protFor(perm)
	if err != nil {
		return err
	}
	if err := c.impl.mprotect(addr, uintptr(c.pageSize), prot); err != nil {
		return fmt.Errorf("protection: set protection %s on page %d at %#x: %w", perm, p, addr, err)
	}
	return nil
}

// Close releases the whole reserved range.
func (c *Controller) Close() error {
	if err := c.impl.unreserve(c.base, c.size); err != nil {
		return fmt.Errorf("protection: release reservation: %w", err)
	}
	return nil
}

func protFor(perm pte.Permission) (int, error) {
	switch perm {
	case pte.None:
		return protNone, nil
	case pte.Read:
		return protRead, nil
	case pte.ReadWrite:
		return protReadWrite, nil
	default:
		return 0, fmt.Errorf("protection: invalid permission %d", perm)
	}
}
