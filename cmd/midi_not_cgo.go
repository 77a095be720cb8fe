//go:build !cgo

package cmd

import (
	"errors"
	"log"

	"github.com/vsariola/musicfile/config"
)

// NewMIDIBackend fails: with no cgo, there is no MIDI driver.
func NewMIDIBackend(cfg config.Config, logger *log.Logger) (Backend, error) {
	return nil, errors.New("MIDI output needs a build with cgo enabled")
}

func MIDIOutputs() []string {
	return nil
}
