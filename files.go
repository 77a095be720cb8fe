package musicfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an encoding of the interchange document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return 0, invalid("format", s)
}

// FormatForPath picks the format from the file extension: .json is JSON,
// everything else YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Marshal encodes the music file as an interchange document.
func Marshal(m *MusicFile, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(m, "", "  ")
	case FormatYAML:
		return yaml.Marshal(m)
	}
	return nil, invalid("format", int(f))
}

// Unmarshal decodes a music file from either JSON or YAML.
func Unmarshal(b []byte) (*MusicFile, error) {
	var m MusicFile
	errJSON := json.Unmarshal(b, &m)
	if errJSON == nil {
		return &m, nil
	}
	if modelError(errJSON) {
		return nil, errJSON
	}
	errYaml := yaml.Unmarshal(b, &m)
	if errYaml == nil {
		return &m, nil
	}
	if modelError(errYaml) {
		return nil, errYaml
	}
	return nil, fmt.Errorf("%w: the music file could not be parsed as .json (%v) or .yml (%v)", ErrInvalidFormat, errJSON, errYaml)
}

// modelError tells errors raised by the document content apart from syntax
// errors of the encoding.
func modelError(err error) bool {
	var d *decodeError
	if errors.As(err, &d) {
		return false
	}
	return errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrUnsupportedVersion) || errors.Is(err, ErrInvalidFormat)
}

func Read(r io.Reader) (*MusicFile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read music file: %w", err)
	}
	return Unmarshal(b)
}

func Write(w io.Writer, m *MusicFile, f Format) error {
	b, err := Marshal(m, f)
	if err != nil {
		return fmt.Errorf("could not marshal music file: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("could not write music file: %w", err)
	}
	return nil
}

func ReadFile(path string) (*MusicFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %v: %w", path, err)
	}
	m, err := Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return m, nil
}

// WriteFile writes the music file in the format given by the extension of
// path.
func WriteFile(path string, m *MusicFile) error {
	b, err := Marshal(m, FormatForPath(path))
	if err != nil {
		return fmt.Errorf("could not marshal music file: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	return nil
}
