package musicfile

import (
	"fmt"
	"time"
)

const (
	// CurrentVersion is written to the __version field of every encoded
	// music file.
	CurrentVersion = "0.1-alpha"
)

// SupportedVersions lists the __version values Decode accepts.
var SupportedVersions = []string{"0.1-alpha"}

type (
	// Params holds the stored fields of a MusicFile. Everything else is
	// derived from them by New.
	Params struct {
		Name         string
		Key          Key
		Signature    Signature
		UnitNoteType UnitNoteType
		BPM          int
		NumBars      int
		Tracks       Tracks
	}

	// MusicFile is the root of the data model: the tracks of a song together
	// with its key, time signature, tempo and length. A tick is one
	// 1/UnitNoteType note. All timing figures are computed once by New; to
	// change a music file, take its Params, modify them and call New again.
	MusicFile struct {
		params Params

		ticksPerBeat     int
		ticksPerBar      int
		numTicks         int
		tickMs           float64
		totalMs          float64
		minValidNumTicks int
		minValidNumBars  int
	}
)

// New validates p and derives the timing of the music file.
func New(p Params) (*MusicFile, error) {
	if !p.Key.Valid() {
		return nil, invalid("key", int(p.Key))
	}
	if _, err := NewSignature(p.Signature.numBeats, p.Signature.beatNoteType); err != nil {
		return nil, err
	}
	if !p.UnitNoteType.Valid() {
		return nil, invalid("unit note type", int(p.UnitNoteType))
	}
	if p.BPM <= 0 {
		return nil, invalid("bpm", p.BPM)
	}
	if p.NumBars < 0 {
		return nil, invalid("number of bars", p.NumBars)
	}
	for i, t := range p.Tracks.All() {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}
	m := &MusicFile{params: p}
	m.ticksPerBeat = int(p.UnitNoteType) / p.Signature.beatNoteType
	m.ticksPerBar = p.Signature.numBeats * m.ticksPerBeat
	m.numTicks = p.NumBars * m.ticksPerBar
	m.tickMs = 60000 / float64(m.ticksPerBeat*p.BPM)
	m.totalMs = float64(m.numTicks) * m.tickMs
	for _, t := range p.Tracks.All() {
		m.minValidNumTicks = max(m.minValidNumTicks, t.Items.MaxEnd())
	}
	m.minValidNumBars = (m.minValidNumTicks + m.ticksPerBar - 1) / m.ticksPerBar
	return m, nil
}

// Params returns a copy of the stored fields, for building a modified
// music file.
func (m *MusicFile) Params() Params { return m.params }

func (m *MusicFile) Name() string               { return m.params.Name }
func (m *MusicFile) Key() Key                   { return m.params.Key }
func (m *MusicFile) Signature() Signature       { return m.params.Signature }
func (m *MusicFile) UnitNoteType() UnitNoteType { return m.params.UnitNoteType }
func (m *MusicFile) BPM() int                   { return m.params.BPM }
func (m *MusicFile) NumBars() int               { return m.params.NumBars }
func (m *MusicFile) Tracks() Tracks             { return m.params.Tracks }

func (m *MusicFile) TicksPerBeat() int { return m.ticksPerBeat }
func (m *MusicFile) TicksPerBar() int  { return m.ticksPerBar }
func (m *MusicFile) NumTicks() int     { return m.numTicks }

// TickMs is the length of one tick in milliseconds.
func (m *MusicFile) TickMs() float64  { return m.tickMs }
func (m *MusicFile) TotalMs() float64 { return m.totalMs }

func (m *MusicFile) TickDuration() time.Duration {
	return time.Duration(m.tickMs * float64(time.Millisecond))
}

func (m *MusicFile) Duration() time.Duration {
	return time.Duration(m.totalMs * float64(time.Millisecond))
}

// MinValidNumTicks is the largest End of any item on any track.
func (m *MusicFile) MinValidNumTicks() int { return m.minValidNumTicks }

// MinValidNumBars is the number of bars needed to hold every item.
func (m *MusicFile) MinValidNumBars() int { return m.minValidNumBars }

// Valid reports whether NumBars is long enough for all the items. New does
// not enforce this; see EnsureMinValidNumBars.
func (m *MusicFile) Valid() bool { return m.params.NumBars >= m.minValidNumBars }

// EnsureMinValidNumBars returns m if it is valid, otherwise a copy grown to
// MinValidNumBars.
func (m *MusicFile) EnsureMinValidNumBars() *MusicFile {
	if m.Valid() {
		return m
	}
	p := m.params
	p.NumBars = m.minValidNumBars
	ret := *m
	ret.params = p
	ret.numTicks = p.NumBars * ret.ticksPerBar
	ret.totalMs = float64(ret.numTicks) * ret.tickMs
	return &ret
}

// LocateTrack returns the index of the first track equal to t.
func (m *MusicFile) LocateTrack(t Track) (int, error) {
	if i := m.params.Tracks.Index(t); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("track %q: %w", t.Name, ErrNotFound)
}

// LocateItem returns the track and item indices of the first item equal to
// item.
func (m *MusicFile) LocateItem(item TrackItem) (track, index int, err error) {
	for i, t := range m.params.Tracks.All() {
		if j := t.Items.Index(item); j >= 0 {
			return i, j, nil
		}
	}
	return -1, -1, fmt.Errorf("track item %v: %w", item, ErrNotFound)
}

func (m *MusicFile) Equal(o *MusicFile) bool {
	if m == nil || o == nil {
		return m == o
	}
	a, b := m.params, o.params
	return a.Name == b.Name &&
		a.Key == b.Key &&
		a.Signature == b.Signature &&
		a.UnitNoteType == b.UnitNoteType &&
		a.BPM == b.BPM &&
		a.NumBars == b.NumBars &&
		a.Tracks.Equal(b.Tracks)
}
