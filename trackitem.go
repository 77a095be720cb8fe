package musicfile

import (
	"cmp"
	"fmt"
)

type (
	// Source is what a track item plays: a Note, a Chord, a Ref or a nested
	// Fragment. The set is closed; switch on the concrete type.
	Source interface {
		isSource()
	}

	// TrackItem is a source placed on a track at tick Begin, sounding for
	// Duration ticks.
	TrackItem struct {
		source   Source
		begin    int
		duration int
	}

	// Fragment groups track items into a reusable unit. The begin ticks of
	// its items are relative to the begin of the track item holding the
	// fragment.
	Fragment struct {
		duration int
		items    TrackItems
	}
)

func NewTrackItem(source Source, begin, duration int) (TrackItem, error) {
	if source == nil {
		return TrackItem{}, invalid("track item source", nil)
	}
	if begin < 0 {
		return TrackItem{}, invalid("track item begin", begin)
	}
	if duration < 0 {
		return TrackItem{}, invalid("track item duration", duration)
	}
	return TrackItem{source: source, begin: begin, duration: duration}, nil
}

func MustTrackItem(source Source, begin, duration int) TrackItem {
	t, err := NewTrackItem(source, begin, duration)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TrackItem) Source() Source { return t.source }
func (t TrackItem) Begin() int     { return t.begin }
func (t TrackItem) Duration() int  { return t.duration }
func (t TrackItem) End() int       { return t.begin + t.duration }

// Compare orders items by begin, then by end. It returns -1, 0 or +1.
func (t TrackItem) Compare(o TrackItem) int {
	if c := cmp.Compare(t.begin, o.begin); c != 0 {
		return c
	}
	return cmp.Compare(t.End(), o.End())
}

// Overlaps reports whether the [Begin, End) ranges of the items intersect.
func (t TrackItem) Overlaps(o TrackItem) bool {
	return (t.begin <= o.begin && t.End() > o.begin) || (o.begin <= t.begin && o.End() > t.begin)
}

// ConsecutiveTo reports whether o begins exactly where t ends.
func (t TrackItem) ConsecutiveTo(o TrackItem) bool {
	return t.End() == o.begin
}

func (t TrackItem) Equal(o TrackItem) bool {
	return t.begin == o.begin && t.duration == o.duration && SourceEqual(t.source, o.source)
}

func (t TrackItem) WithSource(s Source) (TrackItem, error) { return NewTrackItem(s, t.begin, t.duration) }
func (t TrackItem) WithBegin(b int) (TrackItem, error)     { return NewTrackItem(t.source, b, t.duration) }
func (t TrackItem) WithDuration(d int) (TrackItem, error) {
	return NewTrackItem(t.source, t.begin, d)
}

// Flatten expands fragment sources into items with absolute begin ticks.
// An item with any other source yields itself. Nested fragments are
// expanded recursively, adding up the begin ticks of every level.
func (t TrackItem) Flatten() []TrackItem {
	return t.appendFlat(nil, 0)
}

func (t TrackItem) appendFlat(dst []TrackItem, base int) []TrackItem {
	f, ok := t.source.(Fragment)
	if !ok {
		t.begin += base
		return append(dst, t)
	}
	for _, inner := range f.items.items {
		dst = inner.appendFlat(dst, base+t.begin)
	}
	return dst
}

func (t TrackItem) String() string {
	return fmt.Sprintf("%v@%d+%d", t.source, t.begin, t.duration)
}

func NewFragment(duration int, items TrackItems) (Fragment, error) {
	if duration < 0 {
		return Fragment{}, invalid("fragment duration", duration)
	}
	return Fragment{duration: duration, items: items}, nil
}

func (f Fragment) Duration() int     { return f.duration }
func (f Fragment) Items() TrackItems { return f.items }
func (f Fragment) Equal(o Fragment) bool {
	return f.duration == o.duration && f.items.Equal(o.items)
}

func (f Fragment) WithDuration(d int) (Fragment, error) { return NewFragment(d, f.items) }
func (f Fragment) WithItems(items TrackItems) Fragment {
	f.items = items
	return f
}

func (f Fragment) String() string {
	return fmt.Sprintf("fragment(%d items, %d ticks)", f.items.Len(), f.duration)
}

func (Fragment) isSource() {}

// SourceEqual compares two sources structurally.
func SourceEqual(a, b Source) bool {
	switch a := a.(type) {
	case Note:
		b, ok := b.(Note)
		return ok && a == b
	case Chord:
		b, ok := b.(Chord)
		return ok && a == b
	case Ref:
		b, ok := b.(Ref)
		return ok && a == b
	case Fragment:
		b, ok := b.(Fragment)
		return ok && a.Equal(b)
	case nil:
		return b == nil
	}
	return false
}
