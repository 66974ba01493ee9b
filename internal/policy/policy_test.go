package policy

import (
	"testing"

	"vmpager/internal/pte"
)

func TestFIFOEvictsOldestInsertionNotRecency(t *testing.T) {
	f := NewFIFO(3)
	for _, p := range []int{0, 1, 2} {
		f.PageMapped(p)
	}
	// Re-touching page 0 must not affect FIFO order: it only cares about
	// insertion time.
	f.PageMapped(0)
	f.PageMapped(3) // would only happen after an eviction in a real pager, fine standalone here

	victim, ok := f.ChooseVictim()
	if !ok || victim != 0 {
		t.Fatalf("ChooseVictim() = (%d, %v), want (0, true)", victim, ok)
	}
}

func TestFIFOOrderScenario(t *testing.T) {
	// Touch 0,1,2,0,3 with MAX_RESIDENT=3. The re-touch of page 0 does
	// not reinsert it, so page 0 is still the oldest insertion and the
	// fifth touch's victim must be page 0.
	f := NewFIFO(3)
	f.PageMapped(0)
	f.PageMapped(1)
	f.PageMapped(2)
	// Page 0 re-touched: already present, no reinsertion.
	f.PageMapped(0)

	victim, ok := f.ChooseVictim()
	if !ok || victim != 0 {
		t.Fatalf("ChooseVictim() = (%d, %v), want (0, true)", victim, ok)
	}
}

func TestFIFOEmpty(t *testing.T) {
	f := NewFIFO(1)
	if _, ok := f.ChooseVictim(); ok {
		t.Fatal("ChooseVictim() on empty FIFO returned ok=true")
	}
}

// fakeEnv is a minimal Environment for exercising Clock in isolation.
type fakeEnv struct {
	accessed map[int]bool
	revoked  []int
}

func newFakeEnv() *fakeEnv { return &fakeEnv{accessed: make(map[int]bool)} }

func (e *fakeEnv) Accessed(p int) bool    { return e.accessed[p] }
func (e *fakeEnv) SetAccessed(p int, v bool) { e.accessed[p] = v }
func (e *fakeEnv) SetProtection(p int, perm pte.Permission) error {
	if perm == pte.None {
		e.revoked = append(e.revoked, p)
	}
	return nil
}

func TestClockIdempotentTickLeavesResidentSetUnchanged(t *testing.T) {
	env := newFakeEnv()
	c := NewClock(3, env)
	c.PageMapped(0)
	c.PageMapped(1)

	c.TimerTick() // no accessed bits set: should be a pure no-op

	if len(env.revoked) != 0 {
		t.Fatalf("tick with nothing accessed revoked protection on %v", env.revoked)
	}
	// Resident tracking unchanged: victim order is still insertion order.
	victim, ok := c.ChooseVictim()
	if !ok || victim != 0 {
		t.Fatalf("ChooseVictim() = (%d, %v), want (0, true)", victim, ok)
	}
}

func TestClockAgingScenario(t *testing.T) {
	// Touch 0,1,2; tick while only page 0 is re-touched; then touch page
	// 3. Victim must be page 1, not page 0.
	env := newFakeEnv()
	c := NewClock(3, env)
	c.PageMapped(0)
	c.PageMapped(1)
	c.PageMapped(2)

	env.SetAccessed(0, true) // page 0 re-touched before the tick
	c.TimerTick()

	if !containsInt(env.revoked, 0) {
		t.Fatalf("tick did not revoke protection on re-accessed page 0, revoked=%v", env.revoked)
	}

	victim, ok := c.ChooseVictim()
	if !ok || victim != 1 {
		t.Fatalf("ChooseVictim() = (%d, %v), want (1, true)", victim, ok)
	}
}

func TestClockSinglePassDoesNotRevisitReenqueuedPage(t *testing.T) {
	env := newFakeEnv()
	c := NewClock(2, env)
	c.PageMapped(0)
	c.PageMapped(1)
	env.SetAccessed(0, true)
	env.SetAccessed(1, true)

	c.TimerTick()

	if len(env.revoked) != 2 {
		t.Fatalf("expected exactly one revocation per tracked page, got %v", env.revoked)
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
