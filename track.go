package musicfile

import (
	"fmt"
	"iter"
	"slices"
)

type (
	// Track is a named channel of a music file: an instrument, mixing flags
	// and the items played on it. Tracks are values; modify a copy and put it
	// back with Tracks.ReplaceAt.
	Track struct {
		Name       string
		Instrument Instrument
		Volume     int // 0..100
		Solo       bool
		Muted      bool
		Items      TrackItems
	}

	// Tracks is an immutable ordered list of tracks. Modifying methods return
	// a new list.
	Tracks struct {
		tracks []Track
	}
)

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = MaxVolume
)

// NewTrack returns an empty track at full volume.
func NewTrack(name string, instrument Instrument, items ...TrackItem) Track {
	return Track{Name: name, Instrument: instrument, Volume: DefaultVolume, Items: NewTrackItems(items...)}
}

// Validate checks the volume and the item order of the track.
func (t Track) Validate() error {
	if t.Volume < MinVolume || t.Volume > MaxVolume {
		return invalid("volume", t.Volume)
	}
	if !t.Items.Sorted() {
		return fmt.Errorf("track %q: items out of order: %w", t.Name, ErrInvalidValue)
	}
	return nil
}

func (t Track) Equal(o Track) bool {
	return t.Name == o.Name &&
		t.Instrument == o.Instrument &&
		t.Volume == o.Volume &&
		t.Solo == o.Solo &&
		t.Muted == o.Muted &&
		t.Items.Equal(o.Items)
}

func NewTracks(tracks ...Track) Tracks {
	return Tracks{tracks: slices.Clone(tracks)}
}

func (s Tracks) Len() int       { return len(s.tracks) }
func (s Tracks) IsEmpty() bool  { return len(s.tracks) == 0 }
func (s Tracks) Slice() []Track { return slices.Clone(s.tracks) }

func (s Tracks) At(i int) (Track, error) {
	if i < 0 || i >= len(s.tracks) {
		return Track{}, fmt.Errorf("track %d: %w", i, ErrNotFound)
	}
	return s.tracks[i], nil
}

func (s Tracks) All() iter.Seq2[int, Track] {
	return func(yield func(int, Track) bool) {
		for i, t := range s.tracks {
			if !yield(i, t) {
				return
			}
		}
	}
}

func (s Tracks) Index(t Track) int {
	return s.IndexFunc(t.Equal)
}

func (s Tracks) IndexFunc(f func(Track) bool) int {
	return slices.IndexFunc(s.tracks, f)
}

func (s Tracks) Contains(t Track) bool { return s.Index(t) >= 0 }

// Insert appends the track.
func (s Tracks) Insert(t Track) Tracks {
	ret := make([]Track, 0, len(s.tracks)+1)
	return Tracks{tracks: append(append(ret, s.tracks...), t)}
}

// InsertAt inserts the track before index i; i == Len() appends.
func (s Tracks) InsertAt(i int, t Track) (Tracks, error) {
	if i < 0 || i > len(s.tracks) {
		return s, fmt.Errorf("track %d: %w", i, ErrNotFound)
	}
	return Tracks{tracks: slices.Insert(slices.Clone(s.tracks), i, t)}, nil
}

func (s Tracks) Delete(t Track) (Tracks, error) {
	i := s.Index(t)
	if i < 0 {
		return s, fmt.Errorf("track %q: %w", t.Name, ErrNotFound)
	}
	return s.DeleteAt(i)
}

func (s Tracks) DeleteAt(i int) (Tracks, error) {
	if i < 0 || i >= len(s.tracks) {
		return s, fmt.Errorf("track %d: %w", i, ErrNotFound)
	}
	return Tracks{tracks: slices.Delete(slices.Clone(s.tracks), i, i+1)}, nil
}

func (s Tracks) Replace(old, replacement Track) (Tracks, error) {
	i := s.Index(old)
	if i < 0 {
		return s, fmt.Errorf("track %q: %w", old.Name, ErrNotFound)
	}
	return s.ReplaceAt(i, replacement)
}

func (s Tracks) ReplaceAt(i int, replacement Track) (Tracks, error) {
	return s.UpdateAt(i, func(Track) Track { return replacement })
}

// UpdateAt replaces the track at index i with f applied to it.
func (s Tracks) UpdateAt(i int, f func(Track) Track) (Tracks, error) {
	if i < 0 || i >= len(s.tracks) {
		return s, fmt.Errorf("track %d: %w", i, ErrNotFound)
	}
	ret := slices.Clone(s.tracks)
	ret[i] = f(ret[i])
	return Tracks{tracks: ret}, nil
}

func (s Tracks) Swap(a, b int) (Tracks, error) {
	if a < 0 || a >= len(s.tracks) {
		return s, fmt.Errorf("track %d: %w", a, ErrNotFound)
	}
	if b < 0 || b >= len(s.tracks) {
		return s, fmt.Errorf("track %d: %w", b, ErrNotFound)
	}
	ret := slices.Clone(s.tracks)
	ret[a], ret[b] = ret[b], ret[a]
	return Tracks{tracks: ret}, nil
}

func (s Tracks) Equal(o Tracks) bool {
	return slices.EqualFunc(s.tracks, o.tracks, Track.Equal)
}

// AnySolo reports whether at least one track is soloed.
func (s Tracks) AnySolo() bool {
	return slices.ContainsFunc(s.tracks, func(t Track) bool { return t.Solo })
}
