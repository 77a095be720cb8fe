package player

import (
	"time"

	"github.com/google/uuid"
	"github.com/vsariola/musicfile"
)

type (
	// Voice describes one sound to start on a SoundBackend.
	Voice struct {
		Track      int
		Instrument musicfile.Instrument
		// Sample is the sample id within the instrument, e.g. "sample:C4".
		Sample string
		// Pitch is valid only when Pitched is true; refs have no pitch.
		Pitch    musicfile.Pitch
		Pitched  bool
		Volume   int // 0..100
		Duration time.Duration
	}

	// VoiceHandle identifies a started voice.
	VoiceHandle uuid.UUID

	// SoundBackend plays voices. Implementations must not block: PlayVoice
	// starts the sound and arranges its own release after Voice.Duration (if
	// positive).
	SoundBackend interface {
		PlayVoice(v Voice) (VoiceHandle, error)
		StopVoice(h VoiceHandle)
		StopAllVoices()
	}

	// SampleResolver names the sample to play for a pitch of an instrument.
	SampleResolver func(instrument musicfile.Instrument, pitch musicfile.Pitch) string
)

// NewVoiceHandle returns a new random handle.
func NewVoiceHandle() VoiceHandle { return VoiceHandle(uuid.New()) }

func (h VoiceHandle) String() string { return uuid.UUID(h).String() }

// DefaultSampleResolver names samples "sample:" followed by the pitch, e.g.
// "sample:Eb4".
func DefaultSampleResolver(_ musicfile.Instrument, pitch musicfile.Pitch) string {
	return "sample:" + pitch.String()
}

// Voices returns the voices an item of a track starts. A note gives one
// voice, a chord one per note, and a sampler ref one unpitched voice. Other
// refs and fragments give none; compile fragments first.
func Voices(m *musicfile.MusicFile, track int, item musicfile.TrackItem, resolve SampleResolver) []Voice {
	t, err := m.Tracks().At(track)
	if err != nil {
		return nil
	}
	if resolve == nil {
		resolve = DefaultSampleResolver
	}
	base := Voice{
		Track:      track,
		Instrument: t.Instrument,
		Volume:     t.Volume,
		Duration:   time.Duration(float64(item.Duration()) * m.TickMs() * float64(time.Millisecond)),
	}
	pitched := func(p musicfile.Pitch) Voice {
		v := base
		v.Pitch, v.Pitched = p, true
		v.Sample = resolve(t.Instrument, p)
		return v
	}
	switch s := item.Source().(type) {
	case musicfile.Note:
		return []Voice{pitched(musicfile.PitchOf(s, m.Key()))}
	case musicfile.Chord:
		pitches := musicfile.ChordPitches(s, m.Key())
		ret := make([]Voice, len(pitches))
		for i, p := range pitches {
			ret[i] = pitched(p)
		}
		return ret
	case musicfile.Ref:
		if !s.IsSamplerSample() {
			return nil
		}
		v := base
		v.Sample = s.ResourceURI
		return []Voice{v}
	case musicfile.Fragment:
		return nil
	}
	return nil
}
