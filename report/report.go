// Package report describes music files with text templates.
package report

import (
	"embed"
	"fmt"
	"io"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/musicfile"
)

type (
	Data struct {
		File   *musicfile.MusicFile
		Tracks []TrackData
	}

	TrackData struct {
		Index      int
		Name       string
		Instrument string
		Volume     int
		Solo       bool
		Muted      bool
		// Items counts the items after expanding fragments.
		Items int
	}
)

//go:embed templates/*
var templateFS embed.FS

var builtin = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*"))

// Names lists the built-in templates.
func Names() []string {
	var ret []string
	for _, t := range builtin.Templates() {
		if t.Name() != "base" {
			ret = append(ret, t.Name())
		}
	}
	slices.Sort(ret)
	return ret
}

func NewData(m *musicfile.MusicFile) Data {
	d := Data{File: m}
	for i, t := range m.Tracks().All() {
		n := 0
		for _, item := range t.Items.All() {
			n += len(item.Flatten())
		}
		d.Tracks = append(d.Tracks, TrackData{
			Index:      i,
			Name:       t.Name,
			Instrument: t.Instrument.Name,
			Volume:     t.Volume,
			Solo:       t.Solo,
			Muted:      t.Muted,
			Items:      n,
		})
	}
	return d
}

// Execute writes the report of m using the built-in template name.
func Execute(w io.Writer, m *musicfile.MusicFile, name string) error {
	t := builtin.Lookup(name)
	if t == nil {
		return fmt.Errorf("no report template %q: %w", name, musicfile.ErrNotFound)
	}
	return t.Execute(w, NewData(m))
}

// ExecuteText writes the report of m using a template given as text.
func ExecuteText(w io.Writer, m *musicfile.MusicFile, text string) error {
	t, err := template.New("custom").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}
	return t.Execute(w, NewData(m))
}
