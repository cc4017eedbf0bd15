// Package stub assembles the packer stub: INIT ‖ LOOP ‖ WOODY, a small
// position-dependent or position-independent x86_64 machine-code prologue
// that decrypts the original executable segment in place, prints a
// banner, and jumps back to the original entry point.
//
// Byte templates are declared as package-level []byte literals with
// placeholder immediates, patched by slicing and encoding/binary, the
// same "byte template with known patch offsets" shape the packer's
// runtime-generated machine code throughout this repository uses.
package stub

import (
	"encoding/binary"

	"github.com/xyproto/woodpacker/internal/cipher"
	"github.com/xyproto/woodpacker/internal/elfview"
	"github.com/xyproto/woodpacker/internal/perr"
)

// Banner selects which WOODY payload variant to emit.
type Banner int

const (
	// BannerShort prints "woody\n" (74-byte WOODY payload).
	BannerShort Banner = iota
	// BannerVerbose prints "woodpacker!\n" (104-byte WOODY payload), used
	// when verbose diagnostics are enabled.
	BannerVerbose
)

const (
	noPIEInitLen = 21
	pieInitLen   = 14
	loopLen      = 12
	woodyLen     = 74
	woodyLongLen = 104
)

// noPIEInitInstr: mov rax, <start>; mov rdi, <end> (absolute 64-bit
// immediates, patched per target). Leading nop keeps the two 10-byte
// mov-immediate forms byte-aligned with how the original stub was authored.
var noPIEInitInstr = [noPIEInitLen]byte{
	0x90, 0x48, 0xb8,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // start placeholder
	0x48, 0xbf,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // end placeholder
}

// pieInitInstr: lea rax, [rip+disp]; lea rdi, [rip+disp] (RIP-relative,
// patched per target).
var pieInitInstr = [pieInitLen]byte{
	0x48, 0x8d, 0x05, 0xff, 0xff, 0xff, 0xff, // lea rax, [rip+disp]
	0x48, 0x8d, 0x3d, 0xff, 0xff, 0xff, 0xff, // lea rdi, [rip+disp]
}

// loopInstr: xor byte [rax], Key; add rax, 1; cmp rax, rdi; jne loop.
var loopInstr = [loopLen]byte{
	0x80, 0x30, cipher.Key,
	0x48, 0x83, 0xc0, 0x01,
	0x48, 0x39, 0xf8,
	0x75, 0xf4,
}

// woodyShortInstr prints "woody\n" then jumps to the original entry point.
var woodyShortInstr = [woodyLen]byte{
	0x48, 0x83, 0xec, 0x0a, // sub rsp, 10
	0xbf, 0x01, 0x00, 0x00, 0x00, // mov rdi, 1
	0xc6, 0x04, 0x24, 'w', // mov [rsp+0], 'w'
	0xc6, 0x44, 0x24, 0x01, 'o', // mov [rsp+1], 'o'
	0xc6, 0x44, 0x24, 0x02, 'o', // mov [rsp+2], 'o'
	0xc6, 0x44, 0x24, 0x03, 'd', // mov [rsp+3], 'd'
	0xc6, 0x44, 0x24, 0x04, 'y', // mov [rsp+4], 'y'
	0xc6, 0x44, 0x24, 0x05, '\n', // mov [rsp+5], '\n'
	0x48, 0x89, 0xe6, // mov rsi, rsp
	0xba, 0x06, 0x00, 0x00, 0x00, // mov rdx, 6
	0xb8, 0x01, 0x00, 0x00, 0x00, // mov rax, 1
	0x0f, 0x05, // syscall
	0x48, 0x83, 0xc4, 0x0a, // add rsp, 10
	0x48, 0x31, 0xff, // xor rdi, rdi
	0x48, 0x31, 0xf6, // xor rsi, rsi
	0x48, 0x31, 0xd2, // xor rdx, rdx
	0x48, 0x31, 0xc0, // xor rax, rax
	0xe9, 0xff, 0xff, 0xff, 0xff, // jmp <original entry> (placeholder)
}

// woodyLongInstr prints "woodpacker!\n" then jumps to the original entry
// point. Same shape as woodyShortInstr, one mov-byte-to-stack per banner
// character.
var woodyLongInstr = [woodyLongLen]byte{
	0x48, 0x83, 0xec, 0x10, // sub rsp, 16
	0xbf, 0x01, 0x00, 0x00, 0x00, // mov rdi, 1
	0xc6, 0x04, 0x24, 'w', // mov [rsp+0], 'w'
	0xc6, 0x44, 0x24, 0x01, 'o', // mov [rsp+1], 'o'
	0xc6, 0x44, 0x24, 0x02, 'o', // mov [rsp+2], 'o'
	0xc6, 0x44, 0x24, 0x03, 'd', // mov [rsp+3], 'd'
	0xc6, 0x44, 0x24, 0x04, 'p', // mov [rsp+4], 'p'
	0xc6, 0x44, 0x24, 0x05, 'a', // mov [rsp+5], 'a'
	0xc6, 0x44, 0x24, 0x06, 'c', // mov [rsp+6], 'c'
	0xc6, 0x44, 0x24, 0x07, 'k', // mov [rsp+7], 'k'
	0xc6, 0x44, 0x24, 0x08, 'e', // mov [rsp+8], 'e'
	0xc6, 0x44, 0x24, 0x09, 'r', // mov [rsp+9], 'r'
	0xc6, 0x44, 0x24, 0x0a, '!', // mov [rsp+10], '!'
	0xc6, 0x44, 0x24, 0x0b, '\n', // mov [rsp+11], '\n'
	0x48, 0x89, 0xe6, // mov rsi, rsp
	0xba, 0x0c, 0x00, 0x00, 0x00, // mov rdx, 12
	0xb8, 0x01, 0x00, 0x00, 0x00, // mov rax, 1
	0x0f, 0x05, // syscall
	0x48, 0x83, 0xc4, 0x10, // add rsp, 16
	0x48, 0x31, 0xff, // xor rdi, rdi
	0x48, 0x31, 0xf6, // xor rsi, rsi
	0x48, 0x31, 0xd2, // xor rdx, rdx
	0x48, 0x31, 0xc0, // xor rax, rax
	0xe9, 0xff, 0xff, 0xff, 0xff, // jmp <original entry> (placeholder)
}

func generateNoPIE(xphdr *elfview.Phdr) []byte {
	instr := noPIEInitInstr
	start := xphdr.Vaddr
	end := xphdr.Vaddr + xphdr.Memsz
	binary.LittleEndian.PutUint64(instr[3:11], start)
	binary.LittleEndian.PutUint64(instr[13:21], end)
	return instr[:]
}

func generatePIE(xphdr *elfview.Phdr) []byte {
	instr := pieInitInstr
	start := -(int32(7) + int32(xphdr.Memsz))
	end := int32(-14)
	binary.LittleEndian.PutUint32(instr[3:7], uint32(start))
	binary.LittleEndian.PutUint32(instr[10:14], uint32(end))
	return instr[:]
}

func woodyTemplate(b Banner) []byte {
	if b == BannerVerbose {
		cp := woodyLongInstr
		return cp[:]
	}
	cp := woodyShortInstr
	return cp[:]
}

// Generate returns INIT‖LOOP‖WOODY, patched for (ehdr, xphdr). ehdr and
// xphdr must still carry their pre-rewrite values: Generate must run
// before the rewriter grows xphdr and redirects ehdr.Entry, since the
// absolute addresses, RIP displacements, and closing relative jump here
// are all computed from those original values.
func Generate(ehdr *elfview.Ehdr, xphdr *elfview.Phdr, banner Banner) ([]byte, error) {
	var init []byte
	if ehdr.Type == elfview.ETExec {
		init = generateNoPIE(xphdr)
	} else {
		init = generatePIE(xphdr)
	}

	woody := append([]byte(nil), woodyTemplate(banner)...)

	total := uint64(len(init) + loopLen + len(woody))
	entryAfterJump := xphdr.Vaddr + xphdr.Memsz + total
	if entryAfterJump < ehdr.Entry {
		// original entry point is ahead of the stub; the signed subtraction
		// below would wrap the wrong way. Unreachable in the normal pipeline,
		// where the stub always immediately follows the executable segment.
		return nil, perr.New(perr.JumpOutOfRange)
	}
	diff := entryAfterJump - ehdr.Entry
	if diff > 1<<31-1 {
		return nil, perr.New(perr.JumpOutOfRange)
	}
	reljump32 := -int32(diff)
	binary.LittleEndian.PutUint32(woody[len(woody)-4:], uint32(reljump32))

	out := make([]byte, 0, total)
	out = append(out, init...)
	out = append(out, loopInstr[:]...)
	out = append(out, woody...)
	return out, nil
}
