//go:build darwin

package protection

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func newBackend() (backend, error) {
	return unixBackend{}, nil
}

// unixBackend mirrors the Linux implementation; darwin's mmap(2) accepts
// the same MAP_FIXED|MAP_PRIVATE|MAP_ANON combination, just under a
// different syscall number, which golang.org/x/sys/unix resolves for us.
type unixBackend struct{}

func (unixBackend) reserve(size uintptr) (uintptr, error) {
	addr, _, errno := unix.Syscall6(unix.SYS_MMAP, 0, size,
		uintptr(protNone), uintptr(unix.MAP_PRIVATE|unix.MAP_ANON), ^uintptr(0), 0)
	if errno != 0 {
		return 0, errno
	}
	return addr, nil
}

func (unixBackend) mapFixed(addr, size uintptr, prot int) error {
	got, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, size,
		uintptr(prot), uintptr(unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED), ^uintptr(0), 0)
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
