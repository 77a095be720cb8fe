package sampler

import (
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/vsariola/musicfile/player"
)

// Bouncer renders a timeline through a Sampler faster than real time. It is
// a beep.Streamer: the stream ends once the last tick has played and the
// release tails of the voices still sounding have died out.
type Bouncer struct {
	timeline *player.Timeline
	sampler  *Sampler
	resolve  player.SampleResolver

	tick     int
	frame    int
	released bool
	buf      []float32
	err      error
}

// NewBouncer plays tl on s from the first tick. s should not be shared
// with a real time output while bouncing.
func NewBouncer(tl *player.Timeline, s *Sampler, resolve player.SampleResolver) *Bouncer {
	return &Bouncer{timeline: tl, sampler: s, resolve: resolve}
}

// boundary is the first frame of tick.
func (b *Bouncer) boundary(tick int) int {
	ms := float64(tick) * b.timeline.MusicFile().TickMs()
	return int(math.Round(ms * float64(b.sampler.SampleRate()) / 1000))
}

func (b *Bouncer) Stream(samples [][2]float64) (n int, ok bool) {
	if b.err != nil {
		return 0, false
	}
	numTicks := b.timeline.NumTicks()
	for n < len(samples) {
		if b.tick < numTicks && b.frame >= b.boundary(b.tick) {
			if err := player.Dispatch(b.sampler, b.timeline, b.tick, b.resolve, nil); err != nil {
				b.err = err
				return n, n > 0
			}
			b.tick++
			continue
		}
		if b.tick >= numTicks && !b.released {
			b.sampler.StopAllVoices()
			b.released = true
		}
		if b.released && b.sampler.Active() == 0 {
			return n, n > 0
		}
		k := len(samples) - n
		if b.tick < numTicks {
			k = min(k, b.boundary(b.tick)-b.frame)
		} else {
			k = min(k, b.sampler.Remaining())
		}
		if cap(b.buf) < 2*k {
			b.buf = make([]float32, 2*k)
		}
		buf := b.buf[:2*k]
		b.sampler.Process(buf)
		for i := 0; i < k; i++ {
			samples[n+i] = [2]float64{float64(buf[2*i]), float64(buf[2*i+1])}
		}
		n += k
		b.frame += k
	}
	return n, true
}

func (b *Bouncer) Err() error { return b.err }

// Frames returns the number of frames rendered so far.
func (b *Bouncer) Frames() int { return b.frame }

// BounceWAV renders tl through s into a 16-bit stereo WAV file.
func BounceWAV(w io.WriteSeeker, tl *player.Timeline, s *Sampler, resolve player.SampleResolver) error {
	b := NewBouncer(tl, s, resolve)
	format := beep.Format{SampleRate: beep.SampleRate(s.SampleRate()), NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, b, format); err != nil {
		return fmt.Errorf("could not encode wav: %w", err)
	}
	return b.Err()
}
