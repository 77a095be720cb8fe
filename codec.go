package musicfile

import (
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Interchange documents. Every object carries a __type tag; the music file
// root also carries __version. The same structs serve JSON and YAML.

const (
	typeNote       = "note"
	typeChord      = "chord"
	typeKey        = "key"
	typeSignature  = "signature"
	typeInstrument = "instrument"
	typeRef        = "ref"
	typeTrack      = "track"
	typeTrackItem  = "trackItem"
	typeFragment   = "trackItemFragment"
	typeMusicFile  = "musicFile"
)

type (
	noteDoc struct {
		Type   string `json:"__type" yaml:"__type"`
		Name   string `json:"name" yaml:"name"`
		Octave int    `json:"octave" yaml:"octave"`
	}

	keyDoc struct {
		Type string `json:"__type" yaml:"__type"`
		Name string `json:"name" yaml:"name"`
	}

	signatureDoc struct {
		Type         string `json:"__type" yaml:"__type"`
		NumBeats     int    `json:"numBeats" yaml:"numBeats"`
		BeatNoteType int    `json:"beatNoteType" yaml:"beatNoteType"`
	}

	instrumentDoc struct {
		Type        string `json:"__type" yaml:"__type"`
		Name        string `json:"name" yaml:"name"`
		ResourceURI string `json:"resourceURI" yaml:"resourceURI"`
	}

	refDoc struct {
		Type        string `json:"__type" yaml:"__type"`
		Name        string `json:"name" yaml:"name"`
		TypeURI     string `json:"typeURI" yaml:"typeURI"`
		ResourceURI string `json:"resourceURI" yaml:"resourceURI"`
	}

	fragmentDoc struct {
		Type     string         `json:"__type" yaml:"__type"`
		Duration int            `json:"duration" yaml:"duration"`
		Items    []trackItemDoc `json:"items" yaml:"items"`
	}

	// sourceDoc is the union of the note, chord, ref and fragment documents,
	// used when the kind of source is only known after reading __type.
	sourceDoc struct {
		Type        string         `json:"__type" yaml:"__type"`
		Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
		Octave      int            `json:"octave,omitempty" yaml:"octave,omitempty"`
		TypeURI     string         `json:"typeURI,omitempty" yaml:"typeURI,omitempty"`
		ResourceURI string         `json:"resourceURI,omitempty" yaml:"resourceURI,omitempty"`
		Duration    int            `json:"duration,omitempty" yaml:"duration,omitempty"`
		Items       []trackItemDoc `json:"items,omitempty" yaml:"items,omitempty"`
	}

	trackItemDoc struct {
		Type     string    `json:"__type" yaml:"__type"`
		Source   sourceDoc `json:"source" yaml:"source"`
		Begin    int       `json:"begin" yaml:"begin"`
		Duration int       `json:"duration" yaml:"duration"`
	}

	trackDoc struct {
		Type       string         `json:"__type" yaml:"__type"`
		Name       string         `json:"name" yaml:"name"`
		Instrument instrumentDoc  `json:"instrument" yaml:"instrument"`
		Volume     int            `json:"volume" yaml:"volume"`
		Solo       bool           `json:"solo" yaml:"solo"`
		Muted      bool           `json:"muted" yaml:"muted"`
		Items      []trackItemDoc `json:"items" yaml:"items"`
	}

	musicFileDoc struct {
		Type         string       `json:"__type" yaml:"__type"`
		Version      string       `json:"__version" yaml:"__version"`
		Name         string       `json:"name" yaml:"name"`
		Key          keyDoc       `json:"key" yaml:"key"`
		Signature    signatureDoc `json:"signature" yaml:"signature"`
		UnitNoteType int          `json:"unitNoteType" yaml:"unitNoteType"`
		BPM          int          `json:"bpm" yaml:"bpm"`
		NumBars      int          `json:"numBars" yaml:"numBars"`
		Tracks       []trackDoc   `json:"tracks" yaml:"tracks"`
	}
)

func checkType(expected, got string) error {
	if got != expected {
		return formatError(expected, got)
	}
	return nil
}

func (n Note) doc() noteDoc {
	return noteDoc{Type: typeNote, Name: n.name.String(), Octave: int(n.octave)}
}

func (d noteDoc) note() (Note, error) {
	if err := checkType(typeNote, d.Type); err != nil {
		return Note{}, err
	}
	name, err := ParseNoteName(d.Name)
	if err != nil {
		return Note{}, err
	}
	return NewNote(name, Octave(d.Octave))
}

func (c Chord) doc() noteDoc {
	return noteDoc{Type: typeChord, Name: c.name.String(), Octave: int(c.octave)}
}

func (d noteDoc) chord() (Chord, error) {
	if err := checkType(typeChord, d.Type); err != nil {
		return Chord{}, err
	}
	name, err := ParseChordName(d.Name)
	if err != nil {
		return Chord{}, err
	}
	return NewChord(name, Octave(d.Octave))
}

func (k Key) doc() keyDoc { return keyDoc{Type: typeKey, Name: k.String()} }

func (d keyDoc) key() (Key, error) {
	if err := checkType(typeKey, d.Type); err != nil {
		return 0, err
	}
	return ParseKey(d.Name)
}

func (s Signature) doc() signatureDoc {
	return signatureDoc{Type: typeSignature, NumBeats: s.numBeats, BeatNoteType: s.beatNoteType}
}

func (d signatureDoc) signature() (Signature, error) {
	if err := checkType(typeSignature, d.Type); err != nil {
		return Signature{}, err
	}
	return NewSignature(d.NumBeats, d.BeatNoteType)
}

func (i Instrument) doc() instrumentDoc {
	return instrumentDoc{Type: typeInstrument, Name: i.Name, ResourceURI: i.ResourceURI}
}

func (d instrumentDoc) instrument() (Instrument, error) {
	if err := checkType(typeInstrument, d.Type); err != nil {
		return Instrument{}, err
	}
	return Instrument{Name: d.Name, ResourceURI: d.ResourceURI}, nil
}

func (r Ref) doc() refDoc {
	return refDoc{Type: typeRef, Name: r.Name, TypeURI: r.TypeURI, ResourceURI: r.ResourceURI}
}

func (d refDoc) ref() (Ref, error) {
	if err := checkType(typeRef, d.Type); err != nil {
		return Ref{}, err
	}
	return Ref{Name: d.Name, TypeURI: d.TypeURI, ResourceURI: d.ResourceURI}, nil
}

func (f Fragment) doc() fragmentDoc {
	return fragmentDoc{Type: typeFragment, Duration: f.duration, Items: itemsDoc(f.items)}
}

func (d fragmentDoc) fragment() (Fragment, error) {
	if err := checkType(typeFragment, d.Type); err != nil {
		return Fragment{}, err
	}
	items, err := itemsFromDoc(d.Items)
	if err != nil {
		return Fragment{}, err
	}
	return NewFragment(d.Duration, items)
}

func sourceToDoc(s Source) sourceDoc {
	switch s := s.(type) {
	case Note:
		return sourceDoc{Type: typeNote, Name: s.name.String(), Octave: int(s.octave)}
	case Chord:
		return sourceDoc{Type: typeChord, Name: s.name.String(), Octave: int(s.octave)}
	case Ref:
		return sourceDoc{Type: typeRef, Name: s.Name, TypeURI: s.TypeURI, ResourceURI: s.ResourceURI}
	case Fragment:
		return sourceDoc{Type: typeFragment, Duration: s.duration, Items: itemsDoc(s.items)}
	}
	panic(fmt.Sprintf("musicfile: unknown source type %T", s))
}

func (d sourceDoc) source() (Source, error) {
	switch d.Type {
	case typeNote:
		return noteDoc{Type: d.Type, Name: d.Name, Octave: d.Octave}.note()
	case typeChord:
		return noteDoc{Type: d.Type, Name: d.Name, Octave: d.Octave}.chord()
	case typeRef:
		return refDoc{Type: d.Type, Name: d.Name, TypeURI: d.TypeURI, ResourceURI: d.ResourceURI}.ref()
	case typeFragment:
		return fragmentDoc{Type: d.Type, Duration: d.Duration, Items: d.Items}.fragment()
	case "":
		return nil, fmt.Errorf("%w: track item source without __type", ErrInvalidFormat)
	}
	return nil, fmt.Errorf("%w: unknown track item source __type %q", ErrInvalidFormat, d.Type)
}

func (t TrackItem) doc() trackItemDoc {
	return trackItemDoc{Type: typeTrackItem, Source: sourceToDoc(t.source), Begin: t.begin, Duration: t.duration}
}

func (d trackItemDoc) trackItem() (TrackItem, error) {
	if err := checkType(typeTrackItem, d.Type); err != nil {
		return TrackItem{}, err
	}
	s, err := d.Source.source()
	if err != nil {
		return TrackItem{}, err
	}
	return NewTrackItem(s, d.Begin, d.Duration)
}

func itemsDoc(s TrackItems) []trackItemDoc {
	ret := make([]trackItemDoc, len(s.items))
	for i, item := range s.items {
		ret[i] = item.doc()
	}
	return ret
}

// itemsFromDoc keeps the stored order when it is already sorted and sorts
// the items otherwise.
func itemsFromDoc(docs []trackItemDoc) (TrackItems, error) {
	items := make([]TrackItem, len(docs))
	for i, d := range docs {
		item, err := d.trackItem()
		if err != nil {
			return TrackItems{}, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = item
	}
	ret := TrackItems{items: items}
	if !ret.Sorted() {
		slices.SortStableFunc(items, TrackItem.Compare)
	}
	return ret, nil
}

func (t Track) doc() trackDoc {
	return trackDoc{
		Type:       typeTrack,
		Name:       t.Name,
		Instrument: t.Instrument.doc(),
		Volume:     t.Volume,
		Solo:       t.Solo,
		Muted:      t.Muted,
		Items:      itemsDoc(t.Items),
	}
}

func (d trackDoc) track() (Track, error) {
	if err := checkType(typeTrack, d.Type); err != nil {
		return Track{}, err
	}
	instrument, err := d.Instrument.instrument()
	if err != nil {
		return Track{}, err
	}
	items, err := itemsFromDoc(d.Items)
	if err != nil {
		return Track{}, fmt.Errorf("track %q: %w", d.Name, err)
	}
	t := Track{Name: d.Name, Instrument: instrument, Volume: d.Volume, Solo: d.Solo, Muted: d.Muted, Items: items}
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}

func (m *MusicFile) doc() musicFileDoc {
	tracks := make([]trackDoc, 0, m.params.Tracks.Len())
	for _, t := range m.params.Tracks.All() {
		tracks = append(tracks, t.doc())
	}
	return musicFileDoc{
		Type:         typeMusicFile,
		Version:      CurrentVersion,
		Name:         m.params.Name,
		Key:          m.params.Key.doc(),
		Signature:    m.params.Signature.doc(),
		UnitNoteType: int(m.params.UnitNoteType),
		BPM:          m.params.BPM,
		NumBars:      m.params.NumBars,
		Tracks:       tracks,
	}
}

func (d musicFileDoc) musicFile() (*MusicFile, error) {
	if err := checkType(typeMusicFile, d.Type); err != nil {
		return nil, err
	}
	if !slices.Contains(SupportedVersions, d.Version) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, d.Version)
	}
	key, err := d.Key.key()
	if err != nil {
		return nil, err
	}
	sig, err := d.Signature.signature()
	if err != nil {
		return nil, err
	}
	unit, err := ParseUnitNoteType(d.UnitNoteType)
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, len(d.Tracks))
	for i, td := range d.Tracks {
		if tracks[i], err = td.track(); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}
	return New(Params{
		Name:         d.Name,
		Key:          key,
		Signature:    sig,
		UnitNoteType: unit,
		BPM:          d.BPM,
		NumBars:      d.NumBars,
		Tracks:       Tracks{tracks: tracks},
	})
}

// JSON and YAML (un)marshalers. Each type round trips through its document.

func (n Note) MarshalJSON() ([]byte, error)      { return json.Marshal(n.doc()) }
func (n Note) MarshalYAML() (any, error)         { return n.doc(), nil }
func (c Chord) MarshalJSON() ([]byte, error)     { return json.Marshal(c.doc()) }
func (c Chord) MarshalYAML() (any, error)        { return c.doc(), nil }
func (k Key) MarshalJSON() ([]byte, error)       { return json.Marshal(k.doc()) }
func (k Key) MarshalYAML() (any, error)          { return k.doc(), nil }
func (s Signature) MarshalJSON() ([]byte, error) { return json.Marshal(s.doc()) }
func (s Signature) MarshalYAML() (any, error)    { return s.doc(), nil }
func (i Instrument) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.doc())
}
func (i Instrument) MarshalYAML() (any, error)   { return i.doc(), nil }
func (r Ref) MarshalJSON() ([]byte, error)       { return json.Marshal(r.doc()) }
func (r Ref) MarshalYAML() (any, error)          { return r.doc(), nil }
func (f Fragment) MarshalJSON() ([]byte, error)  { return json.Marshal(f.doc()) }
func (f Fragment) MarshalYAML() (any, error)     { return f.doc(), nil }
func (t TrackItem) MarshalJSON() ([]byte, error) { return json.Marshal(t.doc()) }
func (t TrackItem) MarshalYAML() (any, error)    { return t.doc(), nil }
func (t Track) MarshalJSON() ([]byte, error)     { return json.Marshal(t.doc()) }
func (t Track) MarshalYAML() (any, error)        { return t.doc(), nil }
func (m *MusicFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.doc())
}
func (m *MusicFile) MarshalYAML() (any, error) { return m.doc(), nil }

// unmarshal decodes a document of type D from JSON or YAML and converts it.
func unmarshalJSON[D any, T any](data []byte, conv func(D) (T, error), dst *T) error {
	var d D
	if err := json.Unmarshal(data, &d); err != nil {
		return &decodeError{err}
	}
	v, err := conv(d)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func unmarshalYAML[D any, T any](node *yaml.Node, conv func(D) (T, error), dst *T) error {
	var d D
	if err := node.Decode(&d); err != nil {
		return &decodeError{err}
	}
	v, err := conv(d)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (n *Note) UnmarshalJSON(b []byte) error     { return unmarshalJSON(b, noteDoc.note, n) }
func (n *Note) UnmarshalYAML(v *yaml.Node) error { return unmarshalYAML(v, noteDoc.note, n) }
func (c *Chord) UnmarshalJSON(b []byte) error    { return unmarshalJSON(b, noteDoc.chord, c) }
func (c *Chord) UnmarshalYAML(v *yaml.Node) error {
	return unmarshalYAML(v, noteDoc.chord, c)
}
func (k *Key) UnmarshalJSON(b []byte) error     { return unmarshalJSON(b, keyDoc.key, k) }
func (k *Key) UnmarshalYAML(v *yaml.Node) error { return unmarshalYAML(v, keyDoc.key, k) }
func (s *Signature) UnmarshalJSON(b []byte) error {
	return unmarshalJSON(b, signatureDoc.signature, s)
}
func (s *Signature) UnmarshalYAML(v *yaml.Node) error {
	return unmarshalYAML(v, signatureDoc.signature, s)
}
func (i *Instrument) UnmarshalJSON(b []byte) error {
	return unmarshalJSON(b, instrumentDoc.instrument, i)
}
func (i *Instrument) UnmarshalYAML(v *yaml.Node) error {
	return unmarshalYAML(v, instrumentDoc.instrument, i)
}
func (r *Ref) UnmarshalJSON(b []byte) error     { return unmarshalJSON(b, refDoc.ref, r) }
func (r *Ref) UnmarshalYAML(v *yaml.Node) error { return unmarshalYAML(v, refDoc.ref, r) }
func (f *Fragment) UnmarshalJSON(b []byte) error {
	return unmarshalJSON(b, fragmentDoc.fragment, f)
}
func (f *Fragment) UnmarshalYAML(v *yaml.Node) error {
	return unmarshalYAML(v, fragmentDoc.fragment, f)
}
func (t *TrackItem) UnmarshalJSON(b []byte) error {
	return unmarshalJSON(b, trackItemDoc.trackItem, t)
}
func (t *TrackItem) UnmarshalYAML(v *yaml.Node) error {
	return unmarshalYAML(v, trackItemDoc.trackItem, t)
}
func (t *Track) UnmarshalJSON(b []byte) error     { return unmarshalJSON(b, trackDoc.track, t) }
func (t *Track) UnmarshalYAML(v *yaml.Node) error { return unmarshalYAML(v, trackDoc.track, t) }

func (m *MusicFile) UnmarshalJSON(b []byte) error {
	var d musicFileDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return &decodeError{err}
	}
	v, err := d.musicFile()
	if err != nil {
		return err
	}
	*m = *v
	return nil
}

func (m *MusicFile) UnmarshalYAML(node *yaml.Node) error {
	var d musicFileDoc
	if err := node.Decode(&d); err != nil {
		return &decodeError{err}
	}
	v, err := d.musicFile()
	if err != nil {
		return err
	}
	*m = *v
	return nil
}
