package sampler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"gopkg.in/yaml.v3"
)

type (
	// Loader decodes WAV files into a Registry, resampling them to the
	// sample rate of the output.
	Loader struct {
		registry   *Registry
		sampleRate int
		quality    int
	}

	// Manifest lists the samples of one instrument. Paths are relative to
	// the manifest file. A manifest may also be a bare mapping from sample
	// URI to path.
	Manifest struct {
		ADSR    *ADSR             `yaml:"adsr,omitempty" json:"adsr,omitempty"`
		Samples map[string]string `yaml:"samples" json:"samples"`
	}
)

const DefaultResampleQuality = 4

func NewLoader(registry *Registry, sampleRate int) *Loader {
	return &Loader{registry: registry, sampleRate: sampleRate, quality: DefaultResampleQuality}
}

// Decode reads a WAV stream into a sample at the given rate.
func Decode(r io.Reader, sampleRate, quality int) (*Sample, error) {
	s, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode wav: %w", err)
	}
	defer s.Close()
	var streamer beep.Streamer = s
	if int(format.SampleRate) != sampleRate {
		streamer = beep.Resample(quality, format.SampleRate, beep.SampleRate(sampleRate), s)
	}
	var left, right []float32
	buf := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(buf)
		for _, f := range buf[:n] {
			left = append(left, float32(f[0]))
			right = append(right, float32(f[1]))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("could not decode wav: %w", err)
	}
	if format.NumChannels == 1 {
		right = left
	}
	return NewSample(left, right, sampleRate), nil
}

// LoadSample decodes a WAV file and registers it.
func (l *Loader) LoadSample(instrumentURI, sampleURI, path string) error {
	s, err := l.decodeFile(path)
	if err != nil {
		return err
	}
	l.registry.AddSample(instrumentURI, sampleURI, s)
	return nil
}

func (l *Loader) decodeFile(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sample: %w", err)
	}
	defer f.Close()
	s, err := Decode(f, l.sampleRate, l.quality)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadInstrument reads a manifest and loads all its samples concurrently.
// Samples that fail to load are skipped; the errors of all of them are
// returned joined.
func (l *Loader) LoadInstrument(instrumentURI, manifestPath string) error {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return err
	}
	if m.ADSR != nil {
		if err := m.ADSR.Validate(); err != nil {
			return fmt.Errorf("%s: %w", manifestPath, err)
		}
	}
	l.registry.AddInstrument(instrumentURI)
	dir := filepath.Dir(manifestPath)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for sampleURI, path := range m.Samples {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := l.decodeFile(path)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			if m.ADSR != nil {
				s.ADSR = *m.ADSR
			}
			l.registry.AddSample(instrumentURI, sampleURI, s)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest: %w", err)
	}
	var m Manifest
	// yaml is a superset of json, so this reads both
	if err := yaml.Unmarshal(b, &m); err != nil || m.Samples == nil {
		var bare map[string]string
		if err2 := yaml.Unmarshal(b, &bare); err2 != nil {
			return nil, fmt.Errorf("could not parse manifest %s: %w", path, errors.Join(err, err2))
		}
		m = Manifest{Samples: bare}
	}
	return &m, nil
}
