// Package rewriter performs the single logical transaction that grows the
// executable segment by one page and shifts every offset the insertion
// displaces.
package rewriter

import "github.com/xyproto/woodpacker/internal/elfview"

// Result carries the values the cipher and emitter stages need, computed
// before the executable segment was grown.
type Result struct {
	CipherOff uint64 // xphdr.p_offset, pre-growth
	CipherLen uint64 // xphdr.p_filesz, pre-growth
	InsertOff uint64 // file offset at which the stub is spliced in
}

// Rewrite mutates e and xphdr in place: it redirects the entry point to
// the first byte of the inserted stub (the end of the original segment's
// virtual address range), grows the executable
// segment by one page and marks it writable, then shifts every header
// and section offset that the insertion displaces, growing the size of
// any PROGBITS section wholly contained in the original segment to
// match. xphdr must be an element of e.Phdrs (so the offset bump also
// applies to it via the shared slice).
func Rewrite(e *elfview.ELF, xphdr *elfview.Phdr, pagesize uint64) Result {
	cipherOff := xphdr.Offset
	cipherLen := xphdr.Filesz
	insertOff := xphdr.Offset + xphdr.Filesz

	e.Ehdr.Entry = xphdr.Vaddr + xphdr.Filesz

	xphdr.Filesz += pagesize
	xphdr.Memsz += pagesize
	xphdr.Flags |= elfview.PFWrite

	bump := func(off *uint64) {
		if *off >= insertOff {
			*off += pagesize
		}
	}
	bump(&e.Ehdr.Phoff)
	bump(&e.Ehdr.Shoff)
	for i := range e.Phdrs {
		bump(&e.Phdrs[i].Offset)
	}
	for i := range e.Shdrs {
		sh := &e.Shdrs[i]
		bump(&sh.Offset)
		if sh.Type == elfview.SHTProgbits && sh.Offset >= cipherOff && sh.Offset+sh.Size <= insertOff {
			sh.Size += pagesize
		}
	}

	return Result{CipherOff: cipherOff, CipherLen: cipherLen, InsertOff: insertOff}
}
