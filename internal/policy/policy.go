// Package policy implements pluggable page-replacement policies. Each
// policy tracks exactly the resident set and is notified of every
// mapping and every aging tick; it never reaches into the page table or
// protection controller directly except through the small Environment it
// is constructed with, so a new policy can be added without touching the
// fault router.
package policy

import "vmpager/internal/pte"

// Environment is the minimal page-table/protection-controller surface a
// policy needs for aging. Passing it explicitly (rather than a
// process-wide global) keeps policies independently testable.
type Environment interface {
	Accessed(p int) bool
	SetAccessed(p int, v bool)
	SetProtection(p int, perm pte.Permission) error
}

// Policy decides which resident page to evict when the resident budget
// is saturated. Implementations must keep their internal tracked set
// exactly synchronized with the set of resident pages.
type Policy interface {
	// PageMapped records that p just became resident.
	PageMapped(p int)

	// TimerTick runs the policy's aging hook, if it has one. It is a
	// no-op for policies that do not age (FIFO).
	TimerTick()

	// ChooseVictim selects one resident page, removes it from the
	// policy's internal tracking, and returns its id. ok is false only
	// if the policy has nothing tracked, which the caller must never
	// trigger while the resident set is non-empty.
	ChooseVictim() (p int, ok bool)

	// Cleanup releases the policy's internal state. Safe to call once.
	Cleanup()
}
