package musicfile

import "fmt"

type (
	// ChordName is one of the harmonic function symbols a chord can have.
	ChordName int

	// Chord is a harmonic function symbol rooted in an octave. Its notes are
	// derived from a fixed note name pattern per chord name.
	Chord struct {
		name   ChordName
		octave Octave
	}
)

const (
	ChordI ChordName = iota
	ChordII
	ChordIII
	ChordIV
	ChordV
	ChordVI
	ChordVII
	ChordI7
	ChordII7
	ChordIII7
	ChordIV7
	ChordV7
	ChordVI7
	ChordVII7
	Chordi
	Chordii
	Chordiii
	Chordiv
	Chordv
	Chordvi
	Chordvii
	ChordviiDim
	ChordVOfV
	Chordi7
	Chordii7
	Chordiii7
	Chordiv7
	Chordv7
	Chordvi7
	Chordvii7
)

var chordNames = [...]string{
	"I", "II", "III", "IV", "V", "VI", "VII",
	"I7", "II7", "III7", "IV7", "V7", "VI7", "VII7",
	"i", "ii", "iii", "iv", "v", "vi", "vii", "vii-dim", "V/V",
	"i7", "ii7", "iii7", "iv7", "v7", "vi7", "vii7",
}

var chordPatterns = [...][]NoteName{
	ChordI:      {Do, Mi, Sol},
	ChordII:     {Re, FaSharp, La},
	ChordIII:    {Mi, SolSharp, Ti},
	ChordIV:     {Fa, La, Do},
	ChordV:      {Sol, Ti, Re},
	ChordVI:     {La, DoSharp, Mi},
	ChordVII:    {Ti, ReSharp, FaSharp},
	ChordI7:     {Do, Mi, Sol, Ti},
	ChordII7:    {Re, FaSharp, La, DoSharp},
	ChordIII7:   {Mi, SolSharp, Ti, ReSharp},
	ChordIV7:    {Fa, La, Do, Mi},
	ChordV7:     {Sol, Ti, Re, FaSharp},
	ChordVI7:    {La, DoSharp, Mi, SolSharp},
	ChordVII7:   {Ti, ReSharp, FaSharp, LaSharp},
	Chordi:      {Do, ReSharp, Sol},
	Chordii:     {Re, Fa, La},
	Chordiii:    {Mi, Sol, Ti},
	Chordiv:     {Fa, SolSharp, Do},
	Chordv:      {Sol, LaSharp, Re},
	Chordvi:     {La, Do, Mi},
	Chordvii:    {Ti, Re, FaSharp},
	ChordviiDim: {Ti, Re, Fa},
	ChordVOfV:   {Re, FaSharp, La},
	Chordi7:     {Do, ReSharp, Sol, LaSharp},
	Chordii7:    {Re, Fa, La, Do},
	Chordiii7:   {Mi, Sol, Ti, Re},
	Chordiv7:    {Fa, SolSharp, Do, ReSharp},
	Chordv7:     {Sol, LaSharp, Re, Fa},
	Chordvi7:    {La, Do, Mi, Sol},
	Chordvii7:   {Ti, Re, FaSharp, La},
}

func ParseChordName(s string) (ChordName, error) {
	for i, n := range chordNames {
		if n == s {
			return ChordName(i), nil
		}
	}
	return 0, invalid("chord name", s)
}

func (c ChordName) Valid() bool { return c >= ChordI && c <= Chordvii7 }

func (c ChordName) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ChordName(%d)", int(c))
	}
	return chordNames[c]
}

func NewChord(name ChordName, octave Octave) (Chord, error) {
	if !name.Valid() {
		return Chord{}, invalid("chord name", int(name))
	}
	if !octave.Valid() {
		return Chord{}, invalid("octave", int(octave))
	}
	return Chord{name: name, octave: octave}, nil
}

func MustChord(name ChordName, octave Octave) Chord {
	c, err := NewChord(name, octave)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Chord) Name() ChordName { return c.name }
func (c Chord) Octave() Octave  { return c.octave }

// Notes expands the chord into its notes, starting from the chord's octave.
// Whenever a note name is lower than the previous one in the pattern, the
// octave is incremented, up to MaxOctave.
func (c Chord) Notes() []Note {
	pattern := chordPatterns[c.name]
	ret := make([]Note, 0, len(pattern))
	octave := c.octave
	prev := NoteName(-1)
	for _, name := range pattern {
		if name < prev && octave < MaxOctave {
			octave++
		}
		prev = name
		ret = append(ret, Note{name: name, octave: octave})
	}
	return ret
}

// Span is the number of semitones covered by the chord, counting both the
// lowest and the highest note.
func (c Chord) Span() int {
	notes := c.Notes()
	return notes[len(notes)-1].Offset() - notes[0].Offset() + 1
}

func (c Chord) WithName(name ChordName) (Chord, error) { return NewChord(name, c.octave) }
func (c Chord) WithOctave(o Octave) (Chord, error)     { return NewChord(c.name, o) }

func (c Chord) String() string {
	return fmt.Sprintf("%s%d", c.name, c.octave)
}

func (Chord) isSource() {}
