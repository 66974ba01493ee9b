//go:build linux

package protection

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func newBackend() (backend, error) {
	return unixBackend{}, nil
}

// unixBackend implements backend with raw mmap/mprotect/munmap calls.
// golang.org/x/sys/unix.Mmap has no way to request a fixed address, so
// address-pinned reservations go through the raw syscall, the same
// approach the Go runtime's own address-space reservation code uses
// internally (mmap with MAP_FIXED, retried only if the target range is
// still free).
type unixBackend struct{}

func (unixBackend) reserve(size uintptr) (uintptr, error) {
	addr, _, errno := unix.Syscall6(unix.SYS_MMAP, 0, size,
		uintptr(protNone), uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS), ^uintptr(0), 0)
	if errno != 0 {
		return 0, errno
	}
	return addr, nil
}

func (unixBackend) mapFixed(addr, size uintptr, prot int) error {
	got, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, size,
		uintptr(prot), uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_FIXED), ^uintptr(0), 0)
	if errno != 0 {
		return errno
	}
	if got != addr {
		return fmt.Errorf("mmap(MAP_FIXED) returned %#x, want %#x", got, addr)
	}
	return nil
}

func (unixBackend) mprotect(addr, size uintptr, prot int) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return unix.Mprotect(b, prot)
}

func (unixBackend) unreserve(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return unix.Munmap(b)
}
