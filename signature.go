package musicfile

import "fmt"

type (
	// Signature is a time signature: NumBeats beats per bar, each beat being a
	// 1/BeatNoteType note.
	Signature struct {
		numBeats     int
		beatNoteType int
	}

	// UnitNoteType is the note division of one tick, e.g. 16 means a tick is
	// a sixteenth note.
	UnitNoteType int
)

var signatures = [...]Signature{{2, 2}, {2, 4}, {3, 4}, {4, 4}, {6, 8}, {9, 8}, {12, 8}}

var unitNoteTypes = [...]UnitNoteType{128, 64, 32, 16}

// Signatures lists every supported time signature.
func Signatures() []Signature {
	return append([]Signature(nil), signatures[:]...)
}

func NewSignature(numBeats, beatNoteType int) (Signature, error) {
	s := Signature{numBeats: numBeats, beatNoteType: beatNoteType}
	for _, v := range signatures {
		if v == s {
			return s, nil
		}
	}
	return Signature{}, invalid("signature", fmt.Sprintf("%d/%d", numBeats, beatNoteType))
}

func MustSignature(numBeats, beatNoteType int) Signature {
	s, err := NewSignature(numBeats, beatNoteType)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Signature) NumBeats() int     { return s.numBeats }
func (s Signature) BeatNoteType() int { return s.beatNoteType }

func (s Signature) WithNumBeats(n int) (Signature, error) { return NewSignature(n, s.beatNoteType) }
func (s Signature) WithBeatNoteType(t int) (Signature, error) {
	return NewSignature(s.numBeats, t)
}

func (s Signature) String() string {
	return fmt.Sprintf("%d/%d", s.numBeats, s.beatNoteType)
}

func ParseUnitNoteType(v int) (UnitNoteType, error) {
	u := UnitNoteType(v)
	if !u.Valid() {
		return 0, invalid("unit note type", v)
	}
	return u, nil
}

func (u UnitNoteType) Valid() bool {
	for _, v := range unitNoteTypes {
		if v == u {
			return true
		}
	}
	return false
}
