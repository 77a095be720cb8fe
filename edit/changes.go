// Package edit applies batches of copy-on-write edits to music files.
package edit

import (
	"fmt"

	"github.com/vsariola/musicfile"
)

type (
	// Changes holds the working copy of a music file during Apply. Every
	// edit replaces the working copy with a new, validated music file; the
	// file passed to Apply is never modified.
	Changes struct {
		m *musicfile.MusicFile
	}

	// TrackChanges edits one track, selected by index at the time of
	// selection.
	TrackChanges struct {
		c     *Changes
		index int
	}

	// ItemChanges edits one item of a track, selected by position.
	ItemChanges struct {
		t   *TrackChanges
		pos int
	}
)

// Apply runs f on a working copy of m and returns the result. If f returns
// an error, m is returned unchanged together with the error.
func Apply(m *musicfile.MusicFile, f func(c *Changes) error) (*musicfile.MusicFile, error) {
	c := &Changes{m: m}
	if err := f(c); err != nil {
		return m, err
	}
	return c.m, nil
}

func (c *Changes) MusicFile() *musicfile.MusicFile { return c.m }

func (c *Changes) set(p musicfile.Params) error {
	m, err := musicfile.New(p)
	if err != nil {
		return err
	}
	c.m = m
	return nil
}

// Update modifies the stored fields of the music file.
func (c *Changes) Update(f func(p *musicfile.Params)) error {
	p := c.m.Params()
	f(&p)
	return c.set(p)
}

// EnsureMinValidNumBars grows the music file to hold all its items.
func (c *Changes) EnsureMinValidNumBars() {
	c.m = c.m.EnsureMinValidNumBars()
}

func (c *Changes) Tracks() musicfile.Tracks { return c.m.Tracks() }

// Track selects the track at index i.
func (c *Changes) Track(i int) (*TrackChanges, error) {
	if _, err := c.m.Tracks().At(i); err != nil {
		return nil, err
	}
	return &TrackChanges{c: c, index: i}, nil
}

// TrackOf selects the first track equal to t.
func (c *Changes) TrackOf(t musicfile.Track) (*TrackChanges, error) {
	i, err := c.m.LocateTrack(t)
	if err != nil {
		return nil, err
	}
	return &TrackChanges{c: c, index: i}, nil
}

// InsertTrack appends a track and returns its index.
func (c *Changes) InsertTrack(t musicfile.Track) (int, error) {
	p := c.m.Params()
	p.Tracks = p.Tracks.Insert(t)
	if err := c.set(p); err != nil {
		return -1, err
	}
	return p.Tracks.Len() - 1, nil
}

func (c *Changes) InsertTrackAt(i int, t musicfile.Track) error {
	p := c.m.Params()
	tracks, err := p.Tracks.InsertAt(i, t)
	if err != nil {
		return err
	}
	p.Tracks = tracks
	return c.set(p)
}

func (c *Changes) SwapTracks(a, b int) error {
	p := c.m.Params()
	tracks, err := p.Tracks.Swap(a, b)
	if err != nil {
		return err
	}
	p.Tracks = tracks
	return c.set(p)
}

func (t *TrackChanges) Index() int { return t.index }

func (t *TrackChanges) Get() (musicfile.Track, error) { return t.c.m.Tracks().At(t.index) }

// Update modifies the track and returns the updated track.
func (t *TrackChanges) Update(f func(tr *musicfile.Track)) (musicfile.Track, error) {
	tr, err := t.Get()
	if err != nil {
		return musicfile.Track{}, err
	}
	f(&tr)
	if err := t.replace(tr); err != nil {
		return musicfile.Track{}, err
	}
	return tr, nil
}

func (t *TrackChanges) Delete() error {
	p := t.c.m.Params()
	tracks, err := p.Tracks.DeleteAt(t.index)
	if err != nil {
		return err
	}
	p.Tracks = tracks
	return t.c.set(p)
}

func (t *TrackChanges) Items() (musicfile.TrackItems, error) {
	tr, err := t.Get()
	return tr.Items, err
}

// Item selects the item at position pos of the track.
func (t *TrackChanges) Item(pos int) (*ItemChanges, error) {
	items, err := t.Items()
	if err != nil {
		return nil, err
	}
	if _, err := items.At(pos); err != nil {
		return nil, err
	}
	return &ItemChanges{t: t, pos: pos}, nil
}

// ItemOf selects the first item of the track equal to item.
func (t *TrackChanges) ItemOf(item musicfile.TrackItem) (*ItemChanges, error) {
	items, err := t.Items()
	if err != nil {
		return nil, err
	}
	pos := items.Index(item)
	if pos < 0 {
		return nil, fmt.Errorf("track item %v: %w", item, musicfile.ErrNotFound)
	}
	return &ItemChanges{t: t, pos: pos}, nil
}

// InsertItem adds an item at its sorted position and returns that
// position.
func (t *TrackChanges) InsertItem(item musicfile.TrackItem) (int, error) {
	tr, err := t.Get()
	if err != nil {
		return -1, err
	}
	before := tr.Items
	tr.Items = tr.Items.Insert(item)
	if err := t.replace(tr); err != nil {
		return -1, err
	}
	// the new item sits where the lists first differ
	pos := tr.Items.Len() - 1
	for i, it := range tr.Items.All() {
		if i >= before.Len() || !it.Equal(mustAt(before, i)) {
			pos = i
			break
		}
	}
	return pos, nil
}

func (t *TrackChanges) replace(tr musicfile.Track) error {
	p := t.c.m.Params()
	tracks, err := p.Tracks.ReplaceAt(t.index, tr)
	if err != nil {
		return err
	}
	p.Tracks = tracks
	return t.c.set(p)
}

func (i *ItemChanges) Pos() int { return i.pos }

func (i *ItemChanges) Get() (musicfile.TrackItem, error) {
	items, err := i.t.Items()
	if err != nil {
		return musicfile.TrackItem{}, err
	}
	return items.At(i.pos)
}

// Update replaces the item with the result of f, keeping the items sorted.
// The selection follows the item to its new position.
func (i *ItemChanges) Update(f func(item musicfile.TrackItem) (musicfile.TrackItem, error)) (musicfile.TrackItem, error) {
	old, err := i.Get()
	if err != nil {
		return musicfile.TrackItem{}, err
	}
	updated, err := f(old)
	if err != nil {
		return musicfile.TrackItem{}, err
	}
	tr, _ := i.t.Get()
	items, err := tr.Items.DeleteAt(i.pos)
	if err != nil {
		return musicfile.TrackItem{}, err
	}
	tr.Items = items
	if err := i.t.replace(tr); err != nil {
		return musicfile.TrackItem{}, err
	}
	pos, err := i.t.InsertItem(updated)
	if err != nil {
		return musicfile.TrackItem{}, err
	}
	i.pos = pos
	return updated, nil
}

func (i *ItemChanges) Delete() error {
	tr, err := i.t.Get()
	if err != nil {
		return err
	}
	items, err := tr.Items.DeleteAt(i.pos)
	if err != nil {
		return err
	}
	tr.Items = items
	return i.t.replace(tr)
}

func mustAt(items musicfile.TrackItems, i int) musicfile.TrackItem {
	it, _ := items.At(i)
	return it
}
