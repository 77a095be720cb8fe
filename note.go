package musicfile

import "fmt"

type (
	// NoteName is one of the twelve solfège names of the chromatic scale. Its
	// integer value is the semitone index within an octave, starting from do.
	NoteName int

	// Octave is the octave number of a note. Valid octaves are
	// MinOctave..MaxOctave.
	Octave int

	// Note is a pitch relative to the key of the music file: a note name in an
	// octave. The zero value is not a valid note; use NewNote.
	Note struct {
		name   NoteName
		octave Octave
	}
)

const (
	Do NoteName = iota
	DoSharp
	Re
	ReSharp
	Mi
	Fa
	FaSharp
	Sol
	SolSharp
	La
	LaSharp
	Ti
)

const (
	MinOctave Octave = 1
	MaxOctave Octave = 7

	// NotesPerOctave is the number of note names in an octave.
	NotesPerOctave = 12
	MinNoteOffset  = int(MinOctave) * NotesPerOctave
	MaxNoteOffset  = (int(MaxOctave)+1)*NotesPerOctave - 1
)

var noteNames = [NotesPerOctave]string{"do", "do#", "re", "re#", "mi", "fa", "fa#", "sol", "sol#", "la", "la#", "ti"}

// ParseNoteName returns the NoteName for one of "do", "do#", ..., "ti".
func ParseNoteName(s string) (NoteName, error) {
	for i, n := range noteNames {
		if n == s {
			return NoteName(i), nil
		}
	}
	return 0, invalid("note name", s)
}

func (n NoteName) Valid() bool { return n >= Do && n <= Ti }

func (n NoteName) String() string {
	if !n.Valid() {
		return fmt.Sprintf("NoteName(%d)", int(n))
	}
	return noteNames[n]
}

// Accidental reports whether the name is a sharp.
func (n NoteName) Accidental() bool {
	switch n {
	case DoSharp, ReSharp, FaSharp, SolSharp, LaSharp:
		return true
	}
	return false
}

func (o Octave) Valid() bool { return o >= MinOctave && o <= MaxOctave }

// NewNote returns a validated note.
func NewNote(name NoteName, octave Octave) (Note, error) {
	if !name.Valid() {
		return Note{}, invalid("note name", int(name))
	}
	if !octave.Valid() {
		return Note{}, invalid("octave", int(octave))
	}
	return Note{name: name, octave: octave}, nil
}

// MustNote is like NewNote but panics on invalid input. It is meant for
// literals in code and tests.
func MustNote(name NoteName, octave Octave) Note {
	n, err := NewNote(name, octave)
	if err != nil {
		panic(err)
	}
	return n
}

// NoteFromOffset is the inverse of Note.Offset.
func NoteFromOffset(offset int) (Note, error) {
	if offset < MinNoteOffset || offset > MaxNoteOffset {
		return Note{}, invalid("note offset", offset)
	}
	return Note{name: NoteName(offset % NotesPerOctave), octave: Octave(offset / NotesPerOctave)}, nil
}

func (n Note) Name() NoteName   { return n.name }
func (n Note) Octave() Octave   { return n.octave }
func (n Note) Accidental() bool { return n.name.Accidental() }

// Offset is octave*12 + the semitone index of the name. It is monotonic over
// the whole range MinNoteOffset..MaxNoteOffset.
func (n Note) Offset() int {
	return int(n.octave)*NotesPerOctave + int(n.name)
}

// Upper transposes the note up by steps semitones. If the result would fall
// outside the note range, the note is returned unchanged.
func (n Note) Upper(steps int) Note {
	t, err := NoteFromOffset(n.Offset() + steps)
	if err != nil {
		return n
	}
	return t
}

// Lower transposes the note down by steps semitones, with the same clamping
// as Upper.
func (n Note) Lower(steps int) Note {
	return n.Upper(-steps)
}

func (n Note) WithName(name NoteName) (Note, error) { return NewNote(name, n.octave) }
func (n Note) WithOctave(o Octave) (Note, error)    { return NewNote(n.name, o) }

func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.name, n.octave)
}

func (Note) isSource() {}
