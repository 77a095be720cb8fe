package oto

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

type (
	// Source produces interleaved stereo float32 audio, overwriting dst.
	Source interface {
		Process(dst []float32)
	}

	// StreamReader turns a Source into the byte stream oto players pull
	// from.
	StreamReader struct {
		mu     sync.Mutex
		source Source
		buf    []float32
		bytes  int64
		closed bool
	}
)

// FloatBufferToFloat32LE appends buff to dst as little endian float32 values
// and returns the extended slice.
func FloatBufferToFloat32LE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

// Read fills p with whole stereo frames. It returns io.EOF once the reader
// is closed.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames*2 {
		r.buf = make([]float32, frames*2)
	}
	r.buf = r.buf[:frames*2]
	r.source.Process(r.buf)
	FloatBufferToFloat32LE(r.buf, p[:0])
	r.bytes += int64(frames * 8)
	return frames * 8, nil
}

// Frames returns the number of stereo frames read so far.
func (r *StreamReader) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes / 8
}

func (r *StreamReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
