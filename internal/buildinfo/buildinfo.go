// Package buildinfo holds the packer's own diagnostic configuration: the
// version string and the verbose-logging toggle. This is ambient tooling
// for the packer CLI itself, not part of the packed output's runtime
// behavior, which reads no environment variables at all.
package buildinfo

import (
	"fmt"
	"os"

	env "github.com/xyproto/env/v2"
)

// Version is the packer's own version string, reported by -version/-V.
const Version = "woodpacker 1.0.0"

var verbose bool

// Init resolves the verbose toggle from the -v/-verbose flag (flagValue)
// and, failing that, the WOODPACKER_VERBOSE environment variable, so CI
// can enable diagnostics without threading a flag through.
func Init(flagValue bool) {
	verbose = flagValue || env.Bool("WOODPACKER_VERBOSE")
}

// Verbose reports whether diagnostic logging and the longer banner
// variant are enabled.
func Verbose() bool { return verbose }

// Logf writes a diagnostic line to stderr when Verbose is enabled.
func Logf(format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "woodpacker: "+format+"\n", args...)
}
