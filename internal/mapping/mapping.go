// Package mapping memory-maps the input file read-write and private, so
// the packer can mutate an in-memory view of it without ever touching the
// file on disk; the emitter writes the result to a separate output file.
package mapping

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping owns a private read-write mmap of a file. Close must be called
// exactly once to release the mapping.
type Mapping struct {
	buf []byte
}

// Map opens path and maps its full contents MAP_PRIVATE|PROT_READ|PROT_WRITE.
// Modifications to Bytes() are never written back to path; only an
// explicit emitter write persists them, to a different file.
func Map(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("map %s: empty file", path)
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Mapping{buf: buf}, nil
}

// Bytes returns the mutable buffer aliasing the private mapping.
func (m *Mapping) Bytes() []byte { return m.buf }

// Close unmaps the buffer.
func (m *Mapping) Close() error {
	if m.buf == nil {
		return nil
	}
	err := unix.Munmap(m.buf)
	m.buf = nil
	return err
}

// PageSize returns the runtime page size, queried from the kernel: the
// packer pads its inserted stub to exactly one page rather than
// hardcoding 4096.
func PageSize() uint64 {
	return uint64(os.Getpagesize())
}
