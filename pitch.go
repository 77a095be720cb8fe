package musicfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is an absolute pitch counted in semitones from C1. It is what a
// note becomes once the key of the music file is applied.
type Pitch int

var tones = [NotesPerOctave]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// midiC1 is the MIDI note number of C1.
const midiC1 = 24

// PitchOf returns the absolute pitch of note when played in key.
func PitchOf(note Note, key Key) Pitch {
	return Pitch(note.Offset() + key.Offset() - MinNoteOffset)
}

// ChordPitches returns the pitches of every note of the chord in key.
func ChordPitches(chord Chord, key Key) []Pitch {
	notes := chord.Notes()
	ret := make([]Pitch, len(notes))
	for i, n := range notes {
		ret[i] = PitchOf(n, key)
	}
	return ret
}

// ParsePitch parses names such as "C4" or "Bb2".
func ParsePitch(s string) (Pitch, error) {
	i := strings.IndexAny(s, "0123456789-")
	if i <= 0 {
		return 0, invalid("pitch", s)
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return 0, invalid("pitch", s)
	}
	for t, name := range tones {
		if name == s[:i] {
			return Pitch((octave-1)*NotesPerOctave + t), nil
		}
	}
	return 0, invalid("pitch", s)
}

func (p Pitch) Tone() string {
	return tones[((int(p)%NotesPerOctave)+NotesPerOctave)%NotesPerOctave]
}

func (p Pitch) Octave() int {
	i := int(p)
	if i < 0 {
		i -= NotesPerOctave - 1
	}
	return i/NotesPerOctave + 1
}

// MIDINote returns the MIDI note number, C4 being 60.
func (p Pitch) MIDINote() int {
	return int(p) + midiC1
}

func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", p.Tone(), p.Octave())
}
