package stub_test

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/woodpacker/internal/elfview"
	"github.com/xyproto/woodpacker/internal/stub"
)

func TestGenerateExecLength(t *testing.T) {
	ehdr := &elfview.Ehdr{Type: elfview.ETExec, Entry: 0x401000}
	xphdr := &elfview.Phdr{Vaddr: 0x401000, Memsz: 0x100}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	const want = 21 + 12 + 74
	if len(b) != want {
		t.Fatalf("len = %d, want %d", len(b), want)
	}
}

func TestGenerateDynLength(t *testing.T) {
	ehdr := &elfview.Ehdr{Type: elfview.ETDyn, Entry: 0x1000}
	xphdr := &elfview.Phdr{Vaddr: 0x1000, Memsz: 0x100}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	const want = 14 + 12 + 74
	if len(b) != want {
		t.Fatalf("len = %d, want %d", len(b), want)
	}
}

func TestGenerateVerboseBannerLength(t *testing.T) {
	ehdr := &elfview.Ehdr{Type: elfview.ETExec, Entry: 0x401000}
	xphdr := &elfview.Phdr{Vaddr: 0x401000, Memsz: 0x100}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerVerbose)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	const want = 21 + 12 + 104
	if len(b) != want {
		t.Fatalf("len = %d, want %d", len(b), want)
	}
}

func TestGenerateExecAbsoluteAddresses(t *testing.T) {
	xphdr := &elfview.Phdr{Vaddr: 0x401000, Memsz: 0x100}
	ehdr := &elfview.Ehdr{Type: elfview.ETExec, Entry: 0x401000}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// INIT: 0x90, 0x48 0xb8 <start:8>, 0x48 0xbf <end:8>
	start := binary.LittleEndian.Uint64(b[3:11])
	end := binary.LittleEndian.Uint64(b[13:21])
	if start != xphdr.Vaddr {
		t.Errorf("start = 0x%x, want 0x%x", start, xphdr.Vaddr)
	}
	if end != xphdr.Vaddr+xphdr.Memsz {
		t.Errorf("end = 0x%x, want 0x%x", end, xphdr.Vaddr+xphdr.Memsz)
	}
}

func TestGenerateDynRIPDisplacements(t *testing.T) {
	xphdr := &elfview.Phdr{Vaddr: 0x1000, Memsz: 0x100}
	ehdr := &elfview.Ehdr{Type: elfview.ETDyn, Entry: 0x1000}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// PIE INIT: 0x48 0x8d 0x05 <disp1:4> 0x48 0x8d 0x3d <disp2:4>
	disp1 := int32(binary.LittleEndian.Uint32(b[3:7]))
	disp2 := int32(binary.LittleEndian.Uint32(b[10:14]))

	wantDisp1 := -(int32(7) + int32(xphdr.Memsz))
	if disp1 != wantDisp1 {
		t.Errorf("start displacement = %d, want %d", disp1, wantDisp1)
	}
	if disp2 != -14 {
		t.Errorf("end displacement = %d, want -14", disp2)
	}
}

func TestGenerateRelativeJumpClosesLoop(t *testing.T) {
	xphdr := &elfview.Phdr{Vaddr: 0x401000, Memsz: 0x100}
	originalEntry := uint64(0x401050)
	ehdr := &elfview.Ehdr{Type: elfview.ETExec, Entry: originalEntry}

	b, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	reljump32 := int32(binary.LittleEndian.Uint32(b[len(b)-4:]))
	stubAddr := xphdr.Vaddr + xphdr.Memsz
	addrAfterJump := int64(stubAddr) + int64(len(b))
	target := addrAfterJump + int64(reljump32)
	if uint64(target) != originalEntry {
		t.Fatalf("jump resolves to 0x%x, want original entry 0x%x", target, originalEntry)
	}
}

func TestGenerateJumpOutOfRange(t *testing.T) {
	// Original entry far ahead of where the stub will sit: unreachable in
	// the real pipeline (the stub always follows the segment), but the
	// assembler must refuse rather than silently truncate.
	xphdr := &elfview.Phdr{Vaddr: 0x1000, Memsz: 0x100}
	ehdr := &elfview.Ehdr{Type: elfview.ETExec, Entry: 0x1000 + (1 << 32)}

	_, err := stub.Generate(ehdr, xphdr, stub.BannerShort)
	if err == nil {
		t.Fatal("expected JumpOutOfRange error")
	}
}
