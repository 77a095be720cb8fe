package player

import (
	"fmt"
	"slices"

	"github.com/vsariola/musicfile"
)

type (
	// Event is a track item due at a tick, with fragments already expanded:
	// Item.Begin is the absolute tick.
	Event struct {
		Track int
		Item  musicfile.TrackItem
	}

	// Timeline maps ticks to the events that start on them. It is built once
	// per music file by Compile and never modified afterwards.
	Timeline struct {
		file     *musicfile.MusicFile
		events   map[int][]Event
		ticks    []int
		audible  []bool
		muteSolo bool
	}

	// CompileOption configures Compile.
	CompileOption func(*Timeline)
)

// MuteSolo makes the timeline honor the mute and solo flags of the tracks:
// muted tracks are silent, and while any track is solo only solo tracks
// sound. Without it every track is dispatched.
func MuteSolo() CompileOption { return func(t *Timeline) { t.muteSolo = true } }

// Compile flattens every track of m into a tick-indexed timeline. Events on
// the same tick are ordered by track and then by item order; nothing is
// merged or dropped.
func Compile(m *musicfile.MusicFile, opts ...CompileOption) *Timeline {
	t := &Timeline{file: m, events: make(map[int][]Event)}
	for _, opt := range opts {
		opt(t)
	}
	tracks := m.Tracks()
	anySolo := tracks.AnySolo()
	for i, track := range tracks.All() {
		t.audible = append(t.audible, !t.muteSolo || (!track.Muted && (!anySolo || track.Solo)))
		for _, item := range track.Items.All() {
			for _, flat := range item.Flatten() {
				t.events[flat.Begin()] = append(t.events[flat.Begin()], Event{Track: i, Item: flat})
			}
		}
	}
	for tick := range t.events {
		t.ticks = append(t.ticks, tick)
	}
	slices.Sort(t.ticks)
	return t
}

func (t *Timeline) MusicFile() *musicfile.MusicFile { return t.file }

// NumTicks is the length of the music file in ticks. Events at or after
// NumTicks are never played.
func (t *Timeline) NumTicks() int { return t.file.NumTicks() }

// At returns the events starting at tick.
func (t *Timeline) At(tick int) []Event { return t.events[tick] }

// Ticks returns the ticks having at least one event, in ascending order.
func (t *Timeline) Ticks() []int { return slices.Clone(t.ticks) }

// Len returns the total number of events.
func (t *Timeline) Len() int {
	n := 0
	for _, e := range t.events {
		n += len(e)
	}
	return n
}

// Audible reports whether the track is played. Only timelines compiled with
// MuteSolo silence any track.
func (t *Timeline) Audible(track int) bool {
	return track >= 0 && track < len(t.audible) && t.audible[track]
}

// Dispatch starts the voices of the audible events at tick on backend, in
// event order. Before every voice it asks live whether to go on and returns
// nil once it says no; a nil live never stops.
func Dispatch(backend SoundBackend, tl *Timeline, tick int, resolve SampleResolver, live func() bool) error {
	m := tl.MusicFile()
	for _, e := range tl.At(tick) {
		if !tl.Audible(e.Track) {
			continue
		}
		for _, v := range Voices(m, e.Track, e.Item, resolve) {
			if live != nil && !live() {
				return nil
			}
			if _, err := backend.PlayVoice(v); err != nil {
				return fmt.Errorf("tick %d, track %d, item %v: %w", tick, e.Track, e.Item, err)
			}
		}
	}
	return nil
}
