// Package elftest builds minimal, hand-laid-out ELF64 byte buffers for
// use in tests across the packer's packages. It writes bytes directly at
// fixed offsets rather than going through internal/elfview, so tests
// exercising elfview don't validate themselves against themselves.
package elftest

import "encoding/binary"

const (
	EhdrSize = 64
	PhdrSize = 56
)

// Options describes the single PT_LOAD|PF_X segment and entry point of a
// minimal test binary.
type Options struct {
	Type   uint16 // ET_EXEC (2) or ET_DYN (3)
	Entry  uint64
	Vaddr  uint64
	Offset uint64
	Filesz uint64
	NoExec bool // build only a PT_LOAD|PF_R segment, no executable one
	Shdrs  []ShdrOpt
}

// ShdrOpt describes one optional section header, for rewriter tests that
// check the PROGBITS size-bump policy.
type ShdrOpt struct {
	Type   uint32
	Offset uint64
	Size   uint64
}

const (
	PTLoad  = 1
	PFExec  = 0x1
	PFRead  = 0x4
	PFWrite = 0x2
)

// Build lays out ehdr at 0, one program header table right after it, and
// pads the file out to Offset+Filesz (plus room for any requested section
// headers). The returned buffer's length is the minimum needed to satisfy
// every declared offset.
func Build(o Options) []byte {
	phoff := uint64(EhdrSize)
	phnum := uint16(1)

	segFlags := uint32(PFRead)
	if !o.NoExec {
		segFlags |= PFExec
	}

	end := o.Offset + o.Filesz
	shoff := uint64(0)
	shnum := uint16(len(o.Shdrs))
	if shnum > 0 {
		shoff = end
		if shoff%8 != 0 {
			shoff += 8 - shoff%8
		}
		end = shoff + uint64(shnum)*64
	}

	b := make([]byte, end)

	// e_ident
	b[0], b[1], b[2], b[3] = 0x7f, 'E', 'L', 'F'
	b[4] = 2 // ELFCLASS64
	b[5] = 1 // ELFDATA2LSB
	b[6] = 1 // EV_CURRENT

	le := binary.LittleEndian
	le.PutUint16(b[16:], o.Type)
	le.PutUint16(b[18:], 0x3e) // EM_X86_64
	le.PutUint32(b[20:], 1)
	le.PutUint64(b[24:], o.Entry)
	le.PutUint64(b[32:], phoff)
	le.PutUint64(b[40:], shoff)
	le.PutUint32(b[48:], 0)
	le.PutUint16(b[52:], EhdrSize)
	le.PutUint16(b[54:], PhdrSize)
	le.PutUint16(b[56:], phnum)
	le.PutUint16(b[58:], 64) // sh_entsize
	le.PutUint16(b[60:], shnum)
	le.PutUint16(b[62:], 0)

	// single program header
	p := b[phoff:]
	le.PutUint32(p[0:], PTLoad)
	le.PutUint32(p[4:], segFlags)
	le.PutUint64(p[8:], o.Offset)
	le.PutUint64(p[16:], o.Vaddr)
	le.PutUint64(p[24:], o.Vaddr) // p_paddr, unused
	le.PutUint64(p[32:], o.Filesz)
	le.PutUint64(p[40:], o.Filesz)
	le.PutUint64(p[48:], 0x1000) // p_align

	for i, sh := range o.Shdrs {
		s := b[shoff+uint64(i)*64:]
		le.PutUint32(s[0:], 0) // sh_name
		le.PutUint32(s[4:], sh.Type)
		le.PutUint64(s[8:], 0) // sh_flags
		le.PutUint64(s[16:], 0)
		le.PutUint64(s[24:], sh.Offset)
		le.PutUint64(s[32:], sh.Size)
	}

	return b
}
