package policy

import (
	"container/list"

	"vmpager/internal/pte"
)

// Clock approximates least-recently-used eviction with a single
// accessed-bit sweep per tick (the classic "second-chance" / CLOCK
// algorithm), rather than tracking exact recency on every access.
type Clock struct {
	order *list.List
	nodes map[int]*list.Element
	env   Environment
}

// NewClock constructs an empty Clock/LRU policy. env is used on every
// tick to read and clear accessed bits and to revoke protection on pages
// that age out.
func NewClock(maxResident int, env Environment) *Clock {
	return &Clock{
		order: list.New(),
		nodes: make(map[int]*list.Element, maxResident),
		env:   env,
	}
}

func (c *Clock) PageMapped(p int) {
	if _, ok := c.nodes[p]; ok {
		return
	}
	c.nodes[p] = c.order.PushBack(p)
}

// TimerTick walks the tracked sequence once, in order, using a
// length-snapshotted pass so a page re-enqueued at the tail during this
// tick is never revisited in the same pass. A page whose accessed bit is
// set is demoted to perm=NONE, its accessed bit cleared, and it is moved
// to the tail; pages with the bit clear are left in place.
//
// Clearing the accessed bit and revoking protection are not atomic with
// respect to a concurrent access to the same page by user code: a touch
// landing between the check and the protection change can be recorded as
// an access that this sweep then immediately undoes. The pager's single
// mutex (see Pager.touchByte) serializes tick and fault handling against each
// other, but a page's accessed bit can still be set and this sweep can
// still run for the *next* tick before that access's own fault has fully
// promoted the page — the race is inherent to emulating a hardware
// accessed bit in software and is accepted here rather than hidden.
func (c *Clock) TimerTick() {
	n := c.order.Len()
	e := c.order.Front()
	for i := 0; i < n && e != nil; i++ {
		next := e.Next()
		p := e.Value.(int)
		if c.env.Accessed(p) {
			c.env.SetAccessed(p, false)
			// Errors here abort the process inside the concrete
			// Environment (protection failure has no partial-success
			// case per the pager's fatal-error contract), so there is
			// nothing left for the policy to do with a returned error.
			_ = c.env.SetProtection(p, pte.None)
			c.order.MoveToBack(e)
		}
		e = next
	}
}

func (c *Clock) ChooseVictim() (int, bool) {
	front := c.order.Front()
	if front == nil {
		return 0, false
	}
	p := front.Value.(int)
	c.order.Remove(front)
	delete(c.nodes, p)
	return p, true
}

func (c *Clock) Cleanup() {
	c.order.Init()
	c.nodes = nil
}
