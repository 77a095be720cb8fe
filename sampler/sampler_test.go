package sampler_test

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/sampler"
)

const rate = 1000

var piano = musicfile.Instrument{Name: "piano", ResourceURI: "instrument:piano"}

// flat has unit gain and a 10 frame release.
var flat = sampler.ADSR{AttackAmp: 1, DecayAmp: 1, SustainAmp: 1, ReleaseTime: 0.01}

func constSample(frames int, v float32) *sampler.Sample {
	data := make([]float32, frames)
	for i := range data {
		data[i] = v
	}
	s := sampler.NewSample(data, nil, rate)
	s.ADSR = flat
	return s
}

func newSampler(t *testing.T, opts ...sampler.Option) (*sampler.Sampler, *sampler.Registry) {
	t.Helper()
	reg := sampler.NewRegistry()
	reg.AddSample(piano.ResourceURI, "sample:C4", constSample(1000, 1))
	opts = append([]sampler.Option{sampler.WithSampleRate(rate), sampler.WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return sampler.New(reg, opts...), reg
}

func voice(volume int, d time.Duration) player.Voice {
	return player.Voice{Instrument: piano, Sample: "sample:C4", Volume: volume, Duration: d}
}

func TestEnvelope(t *testing.T) {
	assert := assert.New(t)
	a := sampler.DefaultADSR
	assert.InDelta(1.0, a.Level(0), 1e-9)
	assert.InDelta(0.85, a.Level(0.25), 1e-9)
	assert.InDelta(0.7, a.Level(0.5), 1e-9)
	assert.InDelta(0.75, a.Level(0.6), 1e-9)
	assert.InDelta(0.8, a.Level(0.7), 1e-9)
	assert.InDelta(0.8, a.Level(10), 1e-9)
	assert.InDelta(0.4, a.Released(0.8, 0.15), 1e-9)
	assert.InDelta(0.0, a.Released(0.8, 1), 1e-9)
	slow := sampler.ADSR{AttackAmp: 1, AttackTime: 1, DecayAmp: 0.5, DecayTime: 1, SustainAmp: 0.5, SustainTime: 1}
	assert.InDelta(0.0, slow.Level(0), 1e-9)
	assert.InDelta(0.5, slow.Level(0.5), 1e-9)
	assert.InDelta(0.75, slow.Level(1.5), 1e-9)
	assert.InDelta(0.5, slow.Level(3), 1e-9)
	assert.ErrorIs(sampler.ADSR{ReleaseTime: -1}.Validate(), musicfile.ErrInvalidValue)
	assert.NoError(a.Validate())
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)
	reg := sampler.NewRegistry()
	reg.AddInstrument("instrument:b")
	reg.AddSample("instrument:a", "sample:2", constSample(1, 0))
	reg.AddSample("instrument:a", "sample:1", constSample(1, 0))
	assert.Equal([]string{"instrument:a", "instrument:b"}, reg.Instruments())
	assert.Equal([]string{"sample:1", "sample:2"}, reg.Samples("instrument:a"))
	assert.Empty(reg.Samples("instrument:b"))
	assert.True(reg.HasSample("instrument:a", "sample:1"))
	reg.AddInstrument("instrument:a")
	assert.True(reg.HasSample("instrument:a", "sample:1"), "adding an instrument again should keep its samples")
	reg.DeleteSample("instrument:a", "sample:1")
	assert.False(reg.HasSample("instrument:a", "sample:1"))
	_, err := reg.Resolve("instrument:a", "sample:1")
	assert.ErrorIs(err, musicfile.ErrNotFound)
	reg.DeleteInstrument("instrument:a")
	assert.False(reg.HasInstrument("instrument:a"))
	_, err = reg.Resolve("instrument:a", "sample:2")
	assert.ErrorIs(err, musicfile.ErrNotFound)
}

func TestSamplerRendersEnvelope(t *testing.T) {
	assert := assert.New(t)
	s, _ := newSampler(t)
	_, err := s.PlayVoice(voice(50, 100*time.Millisecond))
	assert.NoError(err)
	buf := make([]float32, 2*200)
	s.Process(buf)
	for i := 0; i < 100; i++ {
		assert.InDelta(0.5, buf[2*i], 1e-6, "frame %d", i)
		assert.InDelta(0.5, buf[2*i+1], 1e-6, "frame %d", i)
	}
	for j := 0; j < 10; j++ {
		assert.InDelta(0.5*(1-float64(j)/10), buf[2*(100+j)], 1e-6, "release frame %d", j)
	}
	for i := 110; i < 200; i++ {
		assert.Equal(float32(0), buf[2*i], "frame %d", i)
	}
	assert.Equal(0, s.Active())
}

func TestSamplerMixesAndClips(t *testing.T) {
	assert := assert.New(t)
	s, _ := newSampler(t)
	for i := 0; i < 3; i++ {
		_, err := s.PlayVoice(voice(40, 0))
		assert.NoError(err)
	}
	buf := make([]float32, 2*10)
	s.Process(buf)
	assert.Equal(float32(1), buf[0], "three voices at 0.4 should clip")
	assert.Equal(3, s.Active())
	s.StopAllVoices()
	s.Process(make([]float32, 2*20))
	assert.Equal(0, s.Active())
}

func TestSamplerStopVoice(t *testing.T) {
	assert := assert.New(t)
	s, _ := newSampler(t)
	h, _ := s.PlayVoice(voice(100, 0))
	other, _ := s.PlayVoice(voice(100, 0))
	s.Process(make([]float32, 2*5))
	s.StopVoice(h)
	s.StopVoice(player.NewVoiceHandle())
	s.Process(make([]float32, 2*10))
	assert.Equal(1, s.Active())
	s.StopVoice(other)
	s.Process(make([]float32, 2*10))
	assert.Equal(0, s.Active())
}

func TestSamplerSampleEnds(t *testing.T) {
	s, reg := newSampler(t)
	reg.AddSample(piano.ResourceURI, "sample:short", constSample(5, 1))
	s.PlayVoice(player.Voice{Instrument: piano, Sample: "sample:short", Volume: 100})
	buf := make([]float32, 2*8)
	s.Process(buf)
	assert.Equal(t, float32(1), buf[8])
	assert.Equal(t, float32(0), buf[10])
	assert.Equal(t, 0, s.Active())
}

func TestSamplerMaxVoices(t *testing.T) {
	s, _ := newSampler(t, sampler.WithMaxVoices(2))
	for i := 0; i < 5; i++ {
		s.PlayVoice(voice(10, 0))
	}
	assert.Equal(t, 2, s.Active())
}

func TestSamplerErrors(t *testing.T) {
	assert := assert.New(t)
	s, reg := newSampler(t)
	_, err := s.PlayVoice(player.Voice{Instrument: piano, Sample: "sample:nope"})
	assert.ErrorIs(err, musicfile.ErrNotFound)
	reg.AddSample(piano.ResourceURI, "sample:hifi", sampler.NewSample(make([]float32, 10), nil, 48000))
	_, err = s.PlayVoice(player.Voice{Instrument: piano, Sample: "sample:hifi"})
	assert.Error(err)
}

func TestSamplerPlaysSchedule(t *testing.T) {
	s, reg := newSampler(t)
	reg.AddSample("instrument:drums", "sample:kick", constSample(100, 1))
	m, err := musicfile.New(musicfile.Params{
		Key:          musicfile.KeyC,
		Signature:    musicfile.MustSignature(4, 4),
		UnitNoteType: 16,
		BPM:          120,
		NumBars:      1,
		Tracks: musicfile.NewTracks(
			musicfile.NewTrack("lead", piano, musicfile.MustTrackItem(musicfile.MustNote(musicfile.Do, 4), 0, 1)),
			musicfile.NewTrack("drums", musicfile.Instrument{Name: "drums", ResourceURI: "instrument:drums"},
				musicfile.MustTrackItem(musicfile.Ref{Name: "kick", TypeURI: musicfile.SamplerSampleType, ResourceURI: "sample:kick"}, 0, 1)),
		),
	})
	require.NoError(t, err)
	sched := player.NewScheduler(s, player.WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, sched.Compile(m))
	require.NoError(t, sched.Start())
	defer sched.Dispose()
	assert.Equal(t, 2, s.Active())
	require.NoError(t, sched.Err())
}

func writeWAV(t *testing.T, path string, frames int, v float64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	left := frames
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left == 0 {
			return 0, false
		}
		n := min(len(samples), left)
		for i := range samples[:n] {
			samples[i] = [2]float64{v, v}
		}
		left -= n
		return n, true
	})
	require.NoError(t, wav.Encode(f, streamer, beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}))
}

func TestLoader(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "c4.wav"), 100, 0.5)
	reg := sampler.NewRegistry()

	require.NoError(t, sampler.NewLoader(reg, rate).LoadSample(piano.ResourceURI, "sample:C4", filepath.Join(dir, "c4.wav")))
	s, err := reg.Resolve(piano.ResourceURI, "sample:C4")
	require.NoError(t, err)
	assert.Equal(100, s.Len())
	assert.Equal(rate, s.SampleRate)
	assert.InDelta(0.5, s.Left[50], 1e-3)
	assert.Equal(s.Left, s.Right)
	assert.Equal(sampler.DefaultADSR, s.ADSR)

	require.NoError(t, sampler.NewLoader(reg, 2*rate).LoadSample("instrument:hifi", "sample:C4", filepath.Join(dir, "c4.wav")))
	hifi, _ := reg.Resolve("instrument:hifi", "sample:C4")
	assert.InDelta(200, hifi.Len(), 10)
	assert.Equal(2*rate, hifi.SampleRate)
}

func TestLoadInstrument(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "c4.wav"), 10, 0.5)
	structured := "adsr:\n  attackAmp: 1\n  sustainAmp: 0.5\n  releaseTime: 0.1\nsamples:\n  \"sample:C4\": c4.wav\n  \"sample:D4\": missing.wav\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "piano.yml"), []byte(structured), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "organ.json"), []byte(`{"sample:C4": "c4.wav"}`), 0644))
	reg := sampler.NewRegistry()
	l := sampler.NewLoader(reg, rate)

	err := l.LoadInstrument(piano.ResourceURI, filepath.Join(dir, "piano.yml"))
	assert.ErrorIs(err, os.ErrNotExist)
	assert.True(reg.HasSample(piano.ResourceURI, "sample:C4"))
	assert.False(reg.HasSample(piano.ResourceURI, "sample:D4"))
	s, _ := reg.Resolve(piano.ResourceURI, "sample:C4")
	assert.Equal(0.5, s.ADSR.SustainAmp)

	assert.NoError(l.LoadInstrument("instrument:organ", filepath.Join(dir, "organ.json")))
	assert.True(reg.HasSample("instrument:organ", "sample:C4"))

	err = l.LoadInstrument("instrument:x", filepath.Join(dir, "nope.yml"))
	assert.True(errors.Is(err, os.ErrNotExist))
}
