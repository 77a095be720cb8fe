// Package cmd builds what the musicfile commands share from the
// configuration: the sample registry and the sound backends.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/vsariola/musicfile/config"
	"github.com/vsariola/musicfile/oto"
	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/sampler"
	"github.com/vsariola/musicfile/util"
)

type (
	// Backend is a sound backend owning an output device.
	Backend interface {
		player.SoundBackend
		io.Closer
	}

	samplerBackend struct {
		*sampler.Sampler
		context *oto.OtoContext
		output  *oto.OtoOutput
	}
)

// NewBackend plays through MIDI if an output is configured and through the
// sampler otherwise.
func NewBackend(cfg config.Config, logger *log.Logger) (Backend, error) {
	if cfg.MIDIOut != "" {
		return NewMIDIBackend(cfg, logger)
	}
	return NewSamplerBackend(cfg, logger)
}

// LoadInstruments loads every configured instrument manifest into registry.
func LoadInstruments(cfg config.Config, registry *sampler.Registry) error {
	loader := sampler.NewLoader(registry, cfg.SampleRate)
	var errs []error
	for _, uri := range util.Keys(cfg.Instruments) {
		if err := loader.LoadInstrument(uri, cfg.Instruments[uri]); err != nil {
			errs = append(errs, fmt.Errorf("instrument %v: %w", uri, err))
		}
	}
	return errors.Join(errs...)
}

// NewSampler returns a sampler with the configured instruments loaded.
func NewSampler(cfg config.Config, logger *log.Logger) (*sampler.Sampler, error) {
	registry := sampler.NewRegistry()
	if err := LoadInstruments(cfg, registry); err != nil {
		return nil, err
	}
	return sampler.New(registry,
		sampler.WithSampleRate(cfg.SampleRate),
		sampler.WithMaxVoices(cfg.MaxVoices),
		sampler.WithLogger(logger),
	), nil
}

// NewSamplerBackend plays the sampler on the default audio device.
func NewSamplerBackend(cfg config.Config, logger *log.Logger) (Backend, error) {
	s, err := NewSampler(cfg, logger)
	if err != nil {
		return nil, err
	}
	context, err := oto.NewContext(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	return &samplerBackend{Sampler: s, context: context, output: context.Output(s)}, nil
}

func (b *samplerBackend) Close() error {
	b.StopAllVoices()
	return b.output.Close()
}
