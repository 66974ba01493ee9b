// Package pager is the façade for the demand-paging virtual memory
// simulator: it wires together a page table, a backing store, a
// protection controller, a tick source, and a pluggable replacement
// policy, and exposes the reserved range to callers through byte-level
// accessors that transparently fault pages in and out.
package pager

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"vmpager/internal/backingstore"
	"vmpager/internal/policy"
	"vmpager/internal/protection"
	"vmpager/internal/pte"
	"vmpager/internal/ticksource"
)

// Compile-time defaults; override through Config for testing or for a
// host program with different scale requirements.
const (
	DefaultPageSize = 4096
	DefaultNumPages = 1024
)

// ReplacementPolicy selects which reference policy the pager uses.
type ReplacementPolicy int

const (
	// FIFOReplacement evicts the page resident longest, by insertion
	// order.
	FIFOReplacement ReplacementPolicy = iota
	// ClockReplacement approximates least-recently-used with a
	// second-chance accessed-bit sweep on every tick.
	ClockReplacement
)

// Config configures a Pager. MaxResident is required; everything else
// has a usable default.
type Config struct {
	MaxResident  int
	NumPages     int
	PageSize     int
	Policy       ReplacementPolicy
	TickInterval time.Duration
}

var (
	// ErrClosed is returned by operations on a Pager after Close.
	ErrClosed = fmt.Errorf("pager: closed")
	// ErrInvalidConfig is returned by Open for a Config that fails
	// validation before any OS resource has been acquired.
	ErrInvalidConfig = fmt.Errorf("pager: invalid config")
)

// Pager is the simulator instance. One process normally has at most one,
// but nothing here prevents several independent instances coexisting —
// each reserves its own address range and backing file.
type Pager struct {
	mu sync.Mutex

	cfg    Config
	table  *pte.Table
	store  *backingstore.Store
	ctrl   *protection.Controller
	policy policy.Policy
	tick   *ticksource.Source

	residentCount int
	numFaults     uint64
	numLoads      uint64
	closed        bool
}

// Open validates cfg, reserves the virtual range, constructs the page
// table and backing store, installs the replacement policy, and starts
// the tick source. It is the Go realization of vmem_init.
func Open(cfg Config) (*Pager, error) {
	if cfg.NumPages <= 0 {
		cfg.NumPages = DefaultNumPages
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize&(cfg.PageSize-1) != 0 {
		return nil, fmt.Errorf("%w: page size %d is not a power of two", ErrInvalidConfig, cfg.PageSize)
	}
	span := uintptr(cfg.NumPages) * uintptr(cfg.PageSize)
	if span/uintptr(cfg.PageSize) != uintptr(cfg.NumPages) {
		return nil, fmt.Errorf("%w: %d pages of %d bytes overflows uintptr", ErrInvalidConfig, cfg.NumPages, cfg.PageSize)
	}
	if cfg.MaxResident <= 0 || cfg.MaxResident > cfg.NumPages {
		return nil, fmt.Errorf("%w: max resident %d must be in (0,%d]", ErrInvalidConfig, cfg.MaxResident, cfg.NumPages)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = ticksource.DefaultInterval
	}

	ctrl, err := protection.New(cfg.NumPages, cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("pager: %w", err)
	}

	store, err := backingstore.Open(cfg.NumPages, cfg.PageSize)
	if err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("pager: %w", err)
	}

	p := &Pager{
		cfg:   cfg,
		table: pte.NewTable(cfg.NumPages),
		store: store,
		ctrl:  ctrl,
	}

	switch cfg.Policy {
	case ClockReplacement:
		p.policy = policy.NewClock(cfg.MaxResident, pagerEnvironment{p})
	default:
		p.policy = policy.NewFIFO(cfg.MaxResident)
	}

	p.tick = ticksource.Start(cfg.TickInterval, p.onTick)

	return p, nil
}

func (p *Pager) onTick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.policy.TimerTick()
}

// Close tears the simulator down: stops the tick source, releases the
// policy's state, closes the backing store, and releases the reserved
// range. Safe to call once; a second call is a no-op.
func (p *Pager) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Stop acquires no pager lock itself and must run unlocked: it waits
	// for the tick goroutine to exit, and that goroutine takes p.mu in
	// onTick to check p.closed.
	if err := p.tick.Stop(); err != nil {
		return fmt.Errorf("pager: stop tick source: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.policy.Cleanup()

	if err := p.store.Close(); err != nil {
		return fmt.Errorf("pager: close backing store: %w", err)
	}
	if err := p.ctrl.Close(); err != nil {
		return fmt.Errorf("pager: release reservation: %w", err)
	}
	return nil
}

// Start returns the reserved range's base address (VMEM_START).
func (p *Pager) Start() uintptr { return p.ctrl.Base() }

// End returns the reserved range's exclusive end address (VMEM_END).
func (p *Pager) End() uintptr { return p.ctrl.End() }

// NumFaults returns the monotone count of in-range faults delivered so
// far.
func (p *Pager) NumFaults() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numFaults
}

// NumLoads returns the monotone count of map_page invocations so far.
func (p *Pager) NumLoads() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numLoads
}

// ReadByte reads one byte at addr, paging it in if necessary.
func (p *Pager) ReadByte(addr uintptr) (byte, error) {
	return p.touchByte(addr, false, 0)
}

// WriteByte writes one byte at addr, paging it in if necessary.
func (p *Pager) WriteByte(addr uintptr, b byte) error {
	_, err := p.touchByte(addr, true, b)
	return err
}

// ReadAt fills dst starting at addr, one byte at a time.
func (p *Pager) ReadAt(addr uintptr, dst []byte) error {
	for i := range dst {
		b, err := p.ReadByte(addr + uintptr(i))
		if err != nil {
			return err
		}
		dst[i] = b
	}
	return nil
}

// WriteAt writes src starting at addr, one byte at a time.
func (p *Pager) WriteAt(addr uintptr, src []byte) error {
	for i, b := range src {
		if err := p.WriteByte(addr+uintptr(i), b); err != nil {
			return err
		}
	}
	return nil
}

// abort reports a fatal diagnostic and terminates the process. Every
// unrecoverable condition (out-of-range fault, unknown fault
// classification, kernel primitive failure, short I/O, budget overflow)
// goes through here rather than a returned error: there is no
// well-defined state to return to.
func (p *Pager) abort(format string, args ...any) {
	log.Output(2, "vmpager: fatal: "+fmt.Sprintf(format, args...))
	os.Exit(2)
}

// pagerEnvironment adapts a Pager to policy.Environment without exposing
// the pager's internals to the policy package directly.
type pagerEnvironment struct{ p *Pager }

func (e pagerEnvironment) Accessed(page int) bool        { return e.p.table.Accessed(page) }
func (e pagerEnvironment) SetAccessed(page int, v bool)  { e.p.table.SetAccessed(page, v) }
func (e pagerEnvironment) SetProtection(page int, perm pte.Permission) error {
	e.p.setProtectionChecked(page, perm)
	return nil
}
