package policy

import "container/list"

// FIFO evicts the page that has been resident the longest, regardless of
// how recently it was touched.
type FIFO struct {
	order *list.List
	nodes map[int]*list.Element
}

// NewFIFO constructs an empty FIFO policy sized for at most maxResident
// tracked pages.
func NewFIFO(maxResident int) *FIFO {
	return &FIFO{
		order: list.New(),
		nodes: make(map[int]*list.Element, maxResident),
	}
}

func (f *FIFO) PageMapped(p int) {
	if _, ok := f.nodes[p]; ok {
		return
	}
	f.nodes[p] = f.order.PushBack(p)
}

// TimerTick is a no-op: FIFO orders purely by insertion time.
func (f *FIFO) TimerTick() {}

func (f *FIFO) ChooseVictim() (int, bool) {
	front := f.order.Front()
	if front == nil {
		return 0, false
	}
	p := front.Value.(int)
	f.order.Remove(front)
	delete(f.nodes, p)
	return p, true
}

func (f *FIFO) Cleanup() {
	f.order.Init()
	f.nodes = nil
}
