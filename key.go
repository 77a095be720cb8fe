package musicfile

import "fmt"

// Key is the key of a music file. Its semitone offset transposes the
// solfège offset of a note into an absolute pitch.
type Key int

const (
	KeyC Key = iota
	KeyD
	KeyE
	KeyF
	KeyG
	KeyA
	KeyB
	KeyCSharp
	KeyCFlat
	KeyDFlat
	KeyEFlat
	KeyFSharp
	KeyGFlat
	KeyAFlat
	KeyBFlat
)

var keyNames = [...]string{"C", "D", "E", "F", "G", "A", "B", "C#", "Cb", "Db", "Eb", "F#", "Gb", "Ab", "Bb"}

var keyOffsets = [...]int{0, 2, 4, 5, 7, 9, 11, 1, 11, 1, 3, 6, 6, 8, 10}

// orderedKeys lists one key per semitone, used for transposition.
var orderedKeys = [NotesPerOctave]Key{KeyC, KeyCSharp, KeyD, KeyEFlat, KeyE, KeyF, KeyFSharp, KeyG, KeyAFlat, KeyA, KeyBFlat, KeyB}

// Keys returns all keys in declaration order.
func Keys() []Key {
	ret := make([]Key, len(keyNames))
	for i := range ret {
		ret[i] = Key(i)
	}
	return ret
}

func ParseKey(s string) (Key, error) {
	for i, n := range keyNames {
		if n == s {
			return Key(i), nil
		}
	}
	return 0, invalid("key name", s)
}

func (k Key) Valid() bool { return k >= KeyC && k <= KeyBFlat }

func (k Key) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Offset returns the semitone offset of the key from C, in 0..11.
func (k Key) Offset() int {
	if !k.Valid() {
		return 0
	}
	return keyOffsets[k]
}

// Upper returns the key steps semitones above. When the result would leave
// the C..B range, k is returned unchanged.
func (k Key) Upper(steps int) Key {
	o := k.Offset() + steps
	if o < 0 || o >= len(orderedKeys) {
		return k
	}
	return orderedKeys[o]
}

func (k Key) Lower(steps int) Key {
	return k.Upper(-steps)
}
