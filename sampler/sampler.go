// Package sampler plays the samples of a Registry as a player.SoundBackend.
// Its output is pulled with Process, e.g. through an oto.StreamReader.
package sampler

import (
	"fmt"
	"log"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/util"
)

type (
	Sampler struct {
		registry   *Registry
		sampleRate int
		maxVoices  int
		logger     *log.Logger

		mu       sync.Mutex
		voices   []*voice
		byHandle map[player.VoiceHandle]*voice
		// scratch buffers, one frame per element
		left, right, gains, tmp []float32
	}

	voice struct {
		handle       player.VoiceHandle
		sample       *Sample
		volume       float64
		pos          int // frames since sound on
		release      int // frame the release starts at, -1 if not known yet
		releaseLevel float64
		releaseEnd   int
	}

	Option func(*Sampler)
)

const DefaultSampleRate = 44100

func WithSampleRate(rate int) Option { return func(s *Sampler) { s.sampleRate = rate } }

// WithMaxVoices limits polyphony; the oldest voice is dropped to make room.
// Zero means no limit.
func WithMaxVoices(n int) Option { return func(s *Sampler) { s.maxVoices = n } }

func WithLogger(l *log.Logger) Option { return func(s *Sampler) { s.logger = l } }

func New(registry *Registry, opts ...Option) *Sampler {
	s := &Sampler{
		registry:   registry,
		sampleRate: DefaultSampleRate,
		logger:     log.Default(),
		byHandle:   make(map[player.VoiceHandle]*voice),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sampler) SampleRate() int { return s.sampleRate }

// PlayVoice starts the sample the voice names. A positive duration schedules
// the release; otherwise the sample plays until it runs out or is stopped.
func (s *Sampler) PlayVoice(v player.Voice) (player.VoiceHandle, error) {
	sample, err := s.registry.Resolve(v.Instrument.ResourceURI, v.Sample)
	if err != nil {
		return player.VoiceHandle{}, err
	}
	if sample.SampleRate != s.sampleRate {
		return player.VoiceHandle{}, fmt.Errorf("sample %q is at %d Hz, output is at %d Hz", v.Sample, sample.SampleRate, s.sampleRate)
	}
	vo := &voice{
		handle:  player.NewVoiceHandle(),
		sample:  sample,
		volume:  float64(util.Clamp(v.Volume, 0, 100)) / 100,
		release: -1,
	}
	if v.Duration > 0 {
		vo.releaseAt(s.frames(v.Duration))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxVoices > 0 && len(s.voices) >= s.maxVoices {
		dropped := s.voices[0]
		s.voices = s.voices[1:]
		delete(s.byHandle, dropped.handle)
		s.logger.Printf("sampler: %d voices sounding, dropped the oldest", s.maxVoices)
	}
	s.voices = append(s.voices, vo)
	s.byHandle[vo.handle] = vo
	return vo.handle, nil
}

// StopVoice releases a voice. Unknown or finished handles are ignored.
func (s *Sampler) StopVoice(h player.VoiceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.byHandle[h]; ok {
		v.releaseAt(v.pos)
	}
}

// StopAllVoices releases every sounding voice.
func (s *Sampler) StopAllVoices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voices {
		v.releaseAt(v.pos)
	}
}

// Active returns the number of sounding voices.
func (s *Sampler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// Remaining returns the number of frames until every voice with a known
// end has finished. Voices without a release count until their sample runs
// out.
func (s *Sampler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.voices {
		end := v.sample.Len()
		if v.release >= 0 {
			end = min(end, v.releaseEnd)
		}
		n = max(n, end-v.pos)
	}
	return n
}

// Process mixes the sounding voices into dst as interleaved stereo,
// overwriting it.
func (s *Sampler) Process(dst []float32) {
	n := len(dst) / 2
	s.mu.Lock()
	if cap(s.left) < n {
		s.left = make([]float32, n)
		s.right = make([]float32, n)
		s.gains = make([]float32, n)
		s.tmp = make([]float32, n)
	}
	left := vek32.Zeros_Into(s.left, n)
	right := vek32.Zeros_Into(s.right, n)
	s.voices = slices.DeleteFunc(s.voices, func(v *voice) bool {
		if s.render(v, left, right) {
			return false
		}
		delete(s.byHandle, v.handle)
		return true
	})
	s.mu.Unlock()
	for i := 0; i < n; i++ {
		dst[2*i] = util.Clamp(left[i], -1, 1)
		dst[2*i+1] = util.Clamp(right[i], -1, 1)
	}
}

// render adds the next len(left) frames of v into left and right and
// reports whether v is still sounding.
func (s *Sampler) render(v *voice, left, right []float32) bool {
	k := min(len(left), v.sample.Len()-v.pos)
	if v.release >= 0 {
		k = min(k, v.releaseEnd-v.pos)
	}
	if k <= 0 {
		return false
	}
	gains := s.gains[:k]
	for i := range gains {
		gains[i] = float32(v.volume * v.gain(v.pos+i))
	}
	tmp := s.tmp[:k]
	vek32.Add_Inplace(left[:k], vek32.Mul_Into(tmp, v.sample.Left[v.pos:v.pos+k], gains))
	vek32.Add_Inplace(right[:k], vek32.Mul_Into(tmp, v.sample.Right[v.pos:v.pos+k], gains))
	v.pos += k
	return v.pos < v.sample.Len() && (v.release < 0 || v.pos < v.releaseEnd)
}

func (s *Sampler) frames(d time.Duration) int {
	return int(d.Seconds() * float64(s.sampleRate))
}

// releaseAt starts the release at frame, unless an earlier one is set.
func (v *voice) releaseAt(frame int) {
	if v.release >= 0 && v.release <= frame {
		return
	}
	rate := float64(v.sample.SampleRate)
	v.release = frame
	v.releaseLevel = v.sample.ADSR.Level(float64(frame) / rate)
	v.releaseEnd = frame + int(math.Ceil(v.sample.ADSR.ReleaseTime*rate))
}

func (v *voice) gain(frame int) float64 {
	rate := float64(v.sample.SampleRate)
	if v.release < 0 || frame < v.release {
		return v.sample.ADSR.Level(float64(frame) / rate)
	}
	return v.sample.ADSR.Released(v.releaseLevel, float64(frame-v.release)/rate)
}
