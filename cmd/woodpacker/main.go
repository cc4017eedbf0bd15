// Command woodpacker is a static ELF64 binary packer for x86_64 Linux
// executables. It obfuscates an input executable's code segment and
// prefixes it with a stub that decrypts it in place at runtime before
// jumping to the original entry point.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/woodpacker/internal/buildinfo"
	"github.com/xyproto/woodpacker/internal/cipher"
	"github.com/xyproto/woodpacker/internal/elfview"
	"github.com/xyproto/woodpacker/internal/emitter"
	"github.com/xyproto/woodpacker/internal/mapping"
	"github.com/xyproto/woodpacker/internal/perr"
	"github.com/xyproto/woodpacker/internal/rewriter"
	"github.com/xyproto/woodpacker/internal/stub"
)

func main() {
	outputFlag := flag.String("o", "woody", "output executable path")
	verboseFlag := flag.Bool("v", false, "verbose diagnostic logging")
	verboseLongFlag := flag.Bool("verbose", false, "verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version and exit")
	versionShortFlag := flag.Bool("V", false, "print version and exit")
	flag.Parse()

	if *versionFlag || *versionShortFlag {
		fmt.Println(buildinfo.Version)
		return
	}

	buildinfo.Init(*verboseFlag || *verboseLongFlag)

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing path to an ELF file")
		os.Exit(1)
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "warning: ignoring options after %q\n", args[0])
	}

	if err := run(args[0], *outputFlag); err != nil {
		fmt.Fprintln(os.Stderr, "woodpacker: "+err.Error())
		os.Exit(1)
	}
}

func run(inputPath, outputPath string) error {
	m, err := mapping.Map(inputPath)
	if err != nil {
		return perr.Wrap(perr.IO, err)
	}
	defer m.Close()

	b := m.Bytes()
	buildinfo.Logf("mapped %s (%d bytes)", inputPath, len(b))

	elf, err := elfview.Parse(b)
	if err != nil {
		return err
	}

	xphdr, err := elfview.FindExecSegment(elf.Phdrs)
	if err != nil {
		return err
	}
	buildinfo.Logf("executable segment: offset=0x%x vaddr=0x%x filesz=0x%x", xphdr.Offset, xphdr.Vaddr, xphdr.Filesz)

	banner := stub.BannerShort
	if buildinfo.Verbose() {
		banner = stub.BannerVerbose
	}

	packerStub, err := stub.Generate(elf.Ehdr, xphdr, banner)
	if err != nil {
		return err
	}
	buildinfo.Logf("generated stub: %d bytes", len(packerStub))

	pagesize := mapping.PageSize()
	result := rewriter.Rewrite(elf, xphdr, pagesize)
	buildinfo.Logf("rewrote headers: insert_off=0x%x new entry=0x%x", result.InsertOff, elf.Ehdr.Entry)

	cipher.Apply(b[result.CipherOff : result.CipherOff+result.CipherLen])

	out, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o777)
	if err != nil {
		return perr.Wrap(perr.IO, err)
	}
	if err := os.Chmod(outputPath, 0o777); err != nil {
		out.Close()
		os.Remove(outputPath)
		return perr.Wrap(perr.IO, err)
	}

	if err := emitter.Write(out, b, packerStub, result.InsertOff, pagesize); err != nil {
		out.Close()
		os.Remove(outputPath)
		return perr.Wrap(perr.IO, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return perr.Wrap(perr.IO, err)
	}

	buildinfo.Logf("wrote %s (%d bytes)", outputPath, len(b)+int(pagesize))
	return nil
}
