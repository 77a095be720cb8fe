//go:build cgo

package cmd

import (
	"log"

	"github.com/vsariola/musicfile/config"
	"github.com/vsariola/musicfile/gomidi"
	"github.com/vsariola/musicfile/util"
)

type midiBackend struct {
	*gomidi.Backend
	context *gomidi.RTMIDIContext
}

// NewMIDIBackend opens the configured MIDI output.
func NewMIDIBackend(cfg config.Config, logger *log.Logger) (Backend, error) {
	context := gomidi.NewContext()
	opts := []gomidi.Option{gomidi.WithLogger(logger)}
	for _, uri := range util.Keys(cfg.MIDIChannels) {
		opts = append(opts, gomidi.WithChannel(uri, cfg.MIDIChannels[uri]))
	}
	b, err := context.OpenBy(cfg.MIDIOut, opts...)
	if err != nil {
		context.Close()
		return nil, err
	}
	return &midiBackend{Backend: b, context: context}, nil
}

func (b *midiBackend) Close() error {
	err := b.Backend.Close()
	b.context.Close()
	return err
}

// MIDIOutputs lists the names of the MIDI outputs of the system.
func MIDIOutputs() []string {
	context := gomidi.NewContext()
	defer context.Close()
	var ret []string
	for device := range context.OutputDevices {
		ret = append(ret, device.String())
	}
	return ret
}
