package emitter_test

import (
	"bytes"
	"testing"

	"github.com/xyproto/woodpacker/internal/emitter"
)

func TestWriteLayout(t *testing.T) {
	b := []byte("PREFIX|SUFFIX")
	insertOff := uint64(len("PREFIX|"))
	stub := []byte{0xde, 0xad, 0xbe, 0xef}
	pagesize := uint64(16)

	var out bytes.Buffer
	if err := emitter.Write(&out, b, stub, insertOff, pagesize); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := append([]byte{}, b[:insertOff]...)
	want = append(want, stub...)
	want = append(want, make([]byte, pagesize-uint64(len(stub)))...)
	want = append(want, b[insertOff:]...)

	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got %x, want %x", out.Bytes(), want)
	}
	if uint64(out.Len()) != uint64(len(b))+pagesize {
		t.Fatalf("output size law violated: got %d, want %d", out.Len(), uint64(len(b))+pagesize)
	}
}

func TestWriteStubTooLarge(t *testing.T) {
	var out bytes.Buffer
	err := emitter.Write(&out, []byte("x"), make([]byte, 20), 0, 16)
	if err == nil {
		t.Fatal("expected an error when stub exceeds pagesize")
	}
}

func TestWriteInsertOffBeyondBuffer(t *testing.T) {
	var out bytes.Buffer
	err := emitter.Write(&out, []byte("x"), []byte{0x90}, 100, 16)
	if err == nil {
		t.Fatal("expected an error when insertOff exceeds buffer length")
	}
}
