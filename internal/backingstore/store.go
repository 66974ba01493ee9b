// Package backingstore manages the per-process file that holds every
// page's bytes while the page is not resident. It is the sole source of
// page contents: created at init, unlinked immediately so the kernel
// reclaims it on exit, and addressed purely by slot number.
package backingstore

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sys/unix"
)

// FormatVersion is the on-disk layout version stamped into every backing
// store this package creates.
const FormatVersion = "1.0.0"

// formatConstraint is the range of backing-store layouts this build can
// read. Bumping FormatVersion's major component without widening this
// constraint is a deliberate compatibility break.
const formatConstraint = ">= 1.0.0, < 2.0.0"

const (
	magic      = "VMPAGERSTORE\x00\x00\x00\x00"
	headerSize = 32 // magic(16) + version(16, zero-padded ascii), slots start after this
)

var (
	// ErrShortIO is returned when a slot transfer moves fewer bytes than a
	// full page. Treated as fatal; callers at the pager façade boundary
	// turn it into process abort.
	ErrShortIO = fmt.Errorf("backingstore: short transfer")

	// ErrIncompatibleFormat is returned by Open when the version it has
	// just stamped into the header falls outside formatConstraint.
	ErrIncompatibleFormat = fmt.Errorf("backingstore: incompatible format version")
)

// Store is a fixed-size file, one slot per page.
type Store struct {
	file     *os.File
	pageSize int
	numPages int
}

var openCounter uint64

// Open creates a private backing-store file sized for numPages slots of
// pageSize bytes each, unlinks it immediately, and stamps the format
// header. The returned Store is the sole owner of the descriptor.
func Open(numPages, pageSize int) (*Store, error) {
	openCounter++
	path := fmt.Sprintf("%s/vmpager-%d-%d", os.TempDir(), os.Getpid(), openCounter)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("backingstore: create %s: %w", path, err)
	}

	// Unlink immediately: the descriptor is the only handle from here on,
	// and the kernel reclaims the space when the process exits.
	if err := unix.Unlink(path); err != nil {
		f.Close()
		return nil, fmt.Errorf("backingstore: unlink %s: %w", path, err)
	}

	total := int64(headerSize) + int64(numPages)*int64(pageSize)
	if err := unix.Ftruncate(int(f.Fd()), total); err != nil {
		f.Close()
		return nil, fmt.Errorf("backingstore: truncate to %d bytes: %w", total, err)
	}

	s := &Store{file: f, pageSize: pageSize, numPages: numPages}
	if err := s.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) writeHeader() error {
	hdr := make([]byte, headerSize)
	copy(hdr[0:16], magic)
	copy(hdr[16:32], FormatVersion)
	if _, err := unix.Pwrite(int(s.file.Fd()), hdr, 0); err != nil {
		return fmt.Errorf("backingstore: write header: %w", err)
	}
	return s.checkFormat(hdr)
}

func (s *Store) checkFormat(hdr []byte) error {
	v, err := semver.NewVersion(trimZero(hdr[16:32]))
	if err != nil {
		return fmt.Errorf("backingstore: parse stamped version: %w", err)
	}
	c, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		// formatConstraint is a compile-time literal; a parse failure here
		// is a programming error, not a runtime condition.
		panic(fmt.Sprintf("backingstore: invalid built-in constraint %q: %v", formatConstraint, err))
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: store version %s not in %s", ErrIncompatibleFormat, v, formatConstraint)
	}
	return nil
}

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// PageSize returns the slot size in bytes.
func (s *Store) PageSize() int { return s.pageSize }

// NumPages returns the number of slots.
func (s *Store) NumPages() int { return s.numPages }

func (s *Store) slotOffset(p int) int64 {
	return int64(headerSize) + int64(p)*int64(s.pageSize)
}

// SlotRead copies exactly PageSize bytes from slot p into dst. dst must be
// at least PageSize bytes long; a short read is fatal.
func (s *Store) SlotRead(p int, dst []byte) error {
	if p < 0 || p >= s.numPages {
		return fmt.Errorf("backingstore: slot %d out of range [0,%d)", p, s.numPages)
	}
	n, err := unix.Pread(int(s.file.Fd()), dst[:s.pageSize], s.slotOffset(p))
	if err != nil {
		return fmt.Errorf("backingstore: pread slot %d: %w", p, err)
	}
	if n != s.pageSize {
		return fmt.Errorf("%w: slot %d read %d of %d bytes", ErrShortIO, p, n, s.pageSize)
	}
	return nil
}

// SlotWrite copies exactly PageSize bytes from src into slot p. A short
// write is fatal.
func (s *Store) SlotWrite(p int, src []byte) error {
	if p < 0 || p >= s.numPages {
		return fmt.Errorf("backingstore: slot %d out of range [0,%d)", p, s.numPages)
	}
	n, err := unix.Pwrite(int(s.file.Fd()), src[:s.pageSize], s.slotOffset(p))
	if err != nil {
		return fmt.Errorf("backingstore: pwrite slot %d: %w", p, err)
	}
	if n != s.pageSize {
		return fmt.Errorf("%w: slot %d wrote %d of %d bytes", ErrShortIO, p, n, s.pageSize)
	}
	return nil
}

// Close releases the file descriptor. The path was already unlinked at
// Open, so this is the last reference to the storage.
func (s *Store) Close() error {
	return s.file.Close()
}
