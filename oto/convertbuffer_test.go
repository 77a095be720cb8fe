package oto_test

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/vsariola/musicfile/oto"
)

type ramp struct{ next float32 }

func (r *ramp) Process(dst []float32) {
	for i := range dst {
		dst[i] = r.next
		r.next += 0.25
	}
}

func TestFloatBufferToFloat32LE(t *testing.T) {
	b := oto.FloatBufferToFloat32LE([]float32{0, -1, 0.5}, []byte{0xff})
	if len(b) != 13 || b[0] != 0xff {
		t.Fatalf("expected the prefix to be kept and 12 bytes appended, got %v", b)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(b[5:])); v != -1 {
		t.Fatalf("second value decoded as %v", v)
	}
}

func TestStreamReader(t *testing.T) {
	r := oto.NewStreamReader(&ramp{})
	p := make([]byte, 8*3+5)
	n, err := r.Read(p)
	if err != nil || n != 24 {
		t.Fatalf("expected 24 bytes, got %d, %v", n, err)
	}
	for i := 0; i < 6; i++ {
		if v := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:])); v != float32(i)*0.25 {
			t.Fatalf("value %d: got %v", i, v)
		}
	}
	if n, _ := r.Read(make([]byte, 7)); n != 0 {
		t.Fatalf("partial frames should not be read, got %d bytes", n)
	}
	if r.Frames() != 3 {
		t.Fatalf("expected 3 frames read, got %d", r.Frames())
	}
	r.Close()
	if _, err := r.Read(p); err != io.EOF {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}
