package musicfile

import (
	"fmt"
	"iter"
	"slices"
)

// TrackItems is an immutable sequence of track items, kept sorted by
// TrackItem.Compare. Every modifying method returns a new sequence and
// leaves the receiver untouched.
type TrackItems struct {
	items []TrackItem
}

// NewTrackItems builds a sorted sequence by inserting the items one by one.
func NewTrackItems(items ...TrackItem) TrackItems {
	var ret TrackItems
	for _, item := range items {
		ret = ret.Insert(item)
	}
	return ret
}

func (s TrackItems) Len() int           { return len(s.items) }
func (s TrackItems) IsEmpty() bool      { return len(s.items) == 0 }
func (s TrackItems) Slice() []TrackItem { return slices.Clone(s.items) }

func (s TrackItems) At(i int) (TrackItem, error) {
	if i < 0 || i >= len(s.items) {
		return TrackItem{}, fmt.Errorf("track item %d: %w", i, ErrNotFound)
	}
	return s.items[i], nil
}

func (s TrackItems) First() (TrackItem, error) { return s.At(0) }
func (s TrackItems) Last() (TrackItem, error)  { return s.At(len(s.items) - 1) }

func (s TrackItems) All() iter.Seq2[int, TrackItem] {
	return func(yield func(int, TrackItem) bool) {
		for i, item := range s.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Index returns the index of the first item equal to item, or -1.
func (s TrackItems) Index(item TrackItem) int {
	return s.IndexFunc(item.Equal)
}

func (s TrackItems) IndexFunc(f func(TrackItem) bool) int {
	return slices.IndexFunc(s.items, f)
}

func (s TrackItems) Contains(item TrackItem) bool { return s.Index(item) >= 0 }

// Range returns the items from index start (inclusive) to end (exclusive).
func (s TrackItems) Range(start, end int) TrackItems {
	start = max(0, min(start, len(s.items)))
	end = max(start, min(end, len(s.items)))
	return TrackItems{items: s.items[start:end:end]}
}

// Insert places the item at its sorted position. Among items that compare
// equal, the new item goes after the existing ones.
func (s TrackItems) Insert(item TrackItem) TrackItems {
	i := s.insertPos(item)
	ret := make([]TrackItem, 0, len(s.items)+1)
	ret = append(ret, s.items[:i]...)
	ret = append(ret, item)
	ret = append(ret, s.items[i:]...)
	return TrackItems{items: ret}
}

// insertPos scans backward from the end and stops right after the last item
// that does not compare greater than item. Items sharing a begin tick but
// ending later are stepped over too, so the order holds for any insert. An
// item equal in rank to existing ones goes after all of them rather than
// before the last.
func (s TrackItems) insertPos(item TrackItem) int {
	if len(s.items) == 0 || s.items[0].begin > item.begin {
		return 0
	}
	i := len(s.items)
	for i > 0 && s.items[i-1].Compare(item) > 0 {
		i--
	}
	return i
}

// Delete removes the first item equal to item.
func (s TrackItems) Delete(item TrackItem) (TrackItems, error) {
	i := s.Index(item)
	if i < 0 {
		return s, fmt.Errorf("track item %v: %w", item, ErrNotFound)
	}
	return s.DeleteAt(i)
}

func (s TrackItems) DeleteAt(i int) (TrackItems, error) {
	if i < 0 || i >= len(s.items) {
		return s, fmt.Errorf("track item %d: %w", i, ErrNotFound)
	}
	return TrackItems{items: slices.Delete(slices.Clone(s.items), i, i+1)}, nil
}

// Replace deletes old and inserts replacement at its own sorted position.
func (s TrackItems) Replace(old, replacement TrackItem) (TrackItems, error) {
	d, err := s.Delete(old)
	if err != nil {
		return s, err
	}
	return d.Insert(replacement), nil
}

func (s TrackItems) ReplaceAt(i int, replacement TrackItem) (TrackItems, error) {
	d, err := s.DeleteAt(i)
	if err != nil {
		return s, err
	}
	return d.Insert(replacement), nil
}

func (s TrackItems) Equal(o TrackItems) bool {
	return slices.EqualFunc(s.items, o.items, TrackItem.Equal)
}

// Sorted reports whether adjacent items are in non-decreasing order.
func (s TrackItems) Sorted() bool {
	for i := 1; i < len(s.items); i++ {
		if s.items[i-1].Compare(s.items[i]) > 0 {
			return false
		}
	}
	return true
}

// MaxEnd returns the largest End of the items, or 0 for an empty sequence.
func (s TrackItems) MaxEnd() int {
	ret := 0
	for _, item := range s.items {
		ret = max(ret, item.End())
	}
	return ret
}
