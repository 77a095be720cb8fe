// Package gomidi plays voices as notes on a MIDI output port.
package gomidi

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/util"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type (
	// Backend is a player.SoundBackend sending note on and note off messages.
	// Each instrument gets a channel of its own, in order of first use,
	// skipping the percussion channel. Unpitched voices have no MIDI
	// equivalent and are ignored.
	Backend struct {
		out    drivers.Out
		send   func(midi.Message) error
		logger *log.Logger

		mu       sync.Mutex
		channels map[string]uint8
		used     []uint8
		notes    map[player.VoiceHandle]sounding
	}

	sounding struct {
		channel, key uint8
		timer        *time.Timer
	}

	Option func(*Backend)
)

const (
	numChannels       = 16
	percussionChannel = 9
	allNotesOff       = 123
	maxVelocity       = 127
	maxKey            = 127
)

var ErrNoFreeChannel = errors.New("all MIDI channels are in use")

// WithChannel fixes the channel of an instrument, e.g. 9 for drums.
func WithChannel(instrumentURI string, channel uint8) Option {
	return func(b *Backend) {
		b.channels[instrumentURI] = channel % numChannels
		if !slices.Contains(b.used, channel%numChannels) {
			b.used = append(b.used, channel%numChannels)
		}
	}
}

func WithLogger(l *log.Logger) Option { return func(b *Backend) { b.logger = l } }

// New opens out if needed and returns a backend sending to it.
func New(out drivers.Out, opts ...Option) (*Backend, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("opening MIDI output failed: %w", err)
	}
	b := &Backend{
		out:      out,
		send:     send,
		logger:   log.Default(),
		channels: make(map[string]uint8),
		notes:    make(map[player.VoiceHandle]sounding),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// PlayVoice sends a note on, and a note off after the voice duration if it
// is positive. The note on goes out before the voice can be stopped, so its
// note off never overtakes it.
func (b *Backend) PlayVoice(v player.Voice) (player.VoiceHandle, error) {
	h := player.NewVoiceHandle()
	if !v.Pitched {
		return h, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, err := b.channelFor(v.Instrument.ResourceURI)
	if err != nil {
		return h, err
	}
	key := uint8(util.Clamp(v.Pitch.MIDINote(), 0, maxKey))
	vel := uint8(util.Clamp(v.Volume, 0, 100) * maxVelocity / 100)
	if err := b.send(midi.NoteOn(ch, key, vel)); err != nil {
		return h, fmt.Errorf("sending note on failed: %w", err)
	}
	n := sounding{channel: ch, key: key}
	if v.Duration > 0 {
		n.timer = time.AfterFunc(v.Duration, func() { b.StopVoice(h) })
	}
	b.notes[h] = n
	return h, nil
}

// StopVoice sends the note off of a sounding voice.
func (b *Backend) StopVoice(h player.VoiceHandle) {
	b.mu.Lock()
	n, ok := b.notes[h]
	delete(b.notes, h)
	b.mu.Unlock()
	if !ok {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	if err := b.send(midi.NoteOff(n.channel, n.key)); err != nil {
		b.logger.Printf("sending note off failed: %v", err)
	}
}

// StopAllVoices sends note offs for all sounding voices and an all notes off
// on every channel used.
func (b *Backend) StopAllVoices() {
	b.mu.Lock()
	notes := b.notes
	b.notes = make(map[player.VoiceHandle]sounding)
	used := slices.Clone(b.used)
	b.mu.Unlock()
	var errs []error
	for _, n := range notes {
		if n.timer != nil {
			n.timer.Stop()
		}
		errs = append(errs, b.send(midi.NoteOff(n.channel, n.key)))
	}
	slices.Sort(used)
	for _, ch := range used {
		errs = append(errs, b.send(midi.ControlChange(ch, allNotesOff, 0)))
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Printf("silencing MIDI output failed: %v", err)
	}
}

// Sounding returns the number of notes not yet turned off.
func (b *Backend) Sounding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.notes)
}

// Channel returns the channel assigned to an instrument.
func (b *Backend) Channel(instrumentURI string) (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[instrumentURI]
	return ch, ok
}

// Close silences the output and closes the port.
func (b *Backend) Close() error {
	b.StopAllVoices()
	if err := b.out.Close(); err != nil {
		return fmt.Errorf("closing MIDI output failed: %w", err)
	}
	return nil
}

func (b *Backend) channelFor(instrumentURI string) (uint8, error) {
	if ch, ok := b.channels[instrumentURI]; ok {
		return ch, nil
	}
	for ch := uint8(0); ch < numChannels; ch++ {
		if ch == percussionChannel || slices.Contains(b.used, ch) {
			continue
		}
		b.channels[instrumentURI] = ch
		b.used = append(b.used, ch)
		return ch, nil
	}
	return 0, fmt.Errorf("instrument %q: %w", instrumentURI, ErrNoFreeChannel)
}
