package protection

import (
	"runtime"
	"testing"
	"unsafe"

	"vmpager/internal/pte"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skipf("no mmap backend for %s", runtime.GOOS)
	}
	c, err := New(4, 4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAddrBijection(t *testing.T) {
	c := newTestController(t)
	for p := 0; p < 4; p++ {
		addr := c.Addr(p)
		got, ok := c.PageOf(addr)
		if !ok || got != p {
			t.Fatalf("PageOf(Addr(%d)) = (%d, %v), want (%d, true)", p, got, ok, p)
		}
	}
	if _, ok := c.PageOf(c.End()); ok {
		t.Fatal("End() address reported in range")
	}
	if _, ok := c.PageOf(c.Base() - 1); ok {
		t.Fatal("address before Base() reported in range")
	}
}

func TestAllocateReadWriteRelease(t *testing.T) {
	c := newTestController(t)
	page := 2

	if err := c.AllocateMapping(page); err != nil {
		t.Fatalf("AllocateMapping: %v", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(c.Addr(page))), 4096)
	data[0] = 0xAB
	if data[0] != 0xAB {
		t.Fatal("write to freshly allocated mapping did not stick")
	}

	if err := c.SetProtection(page, pte.Read); err != nil {
		t.Fatalf("SetProtection(Read): %v", err)
	}
	if data[0] != 0xAB {
		t.Fatal("contents changed across a protection downgrade")
	}

	if err := c.ReleaseMapping(page); err != nil {
		t.Fatalf("ReleaseMapping: %v", err)
	}
}
