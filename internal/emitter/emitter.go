// Package emitter splices the packed output stream together: original
// prefix, stub, zero padding, original suffix.
package emitter

import (
	"fmt"
	"io"
)

// Write streams prefix ‖ stub ‖ padding ‖ suffix to w. b is the full
// (already ciphered, header-rewritten) input buffer; insertOff is the
// splice point; pagesize bounds the padded stub region to exactly one
// page, so the output is always exactly pagesize bytes larger than the
// input.
func Write(w io.Writer, b []byte, stub []byte, insertOff uint64, pagesize uint64) error {
	if uint64(len(stub)) > pagesize {
		return fmt.Errorf("stub of %d bytes does not fit in one page (%d)", len(stub), pagesize)
	}
	if insertOff > uint64(len(b)) {
		return fmt.Errorf("insertion offset %d beyond input of %d bytes", insertOff, len(b))
	}

	if _, err := w.Write(b[:insertOff]); err != nil {
		return err
	}
	if _, err := w.Write(stub); err != nil {
		return err
	}
	padding := make([]byte, pagesize-uint64(len(stub)))
	if _, err := w.Write(padding); err != nil {
		return err
	}
	if _, err := w.Write(b[insertOff:]); err != nil {
		return err
	}
	return nil
}
