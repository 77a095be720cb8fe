//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext lists and opens the MIDI outputs of the system.
	RTMIDIContext struct {
		driver *rtmididrv.Driver
	}

	RTMIDIDevice struct {
		out drivers.Out
	}
)

// NewContext opens the driver. If that fails, the context has no devices.
func NewContext() *RTMIDIContext {
	var m RTMIDIContext
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) OutputDevices(yield func(RTMIDIDevice) bool) {
	if m.driver == nil {
		return
	}
	outs, err := m.driver.Outs()
	if err != nil {
		return
	}
	for _, out := range outs {
		if !yield(RTMIDIDevice{out: out}) {
			break
		}
	}
}

// OpenBy returns a backend on the first output whose name starts with
// namePrefix. An empty prefix takes the first output.
func (m *RTMIDIContext) OpenBy(namePrefix string, opts ...Option) (*Backend, error) {
	if m.driver == nil {
		return nil, errors.New("no MIDI driver available")
	}
	for device := range m.OutputDevices {
		if strings.HasPrefix(device.String(), namePrefix) {
			return New(device.out, opts...)
		}
	}
	if namePrefix == "" {
		return nil, errors.New("could not find any MIDI output")
	}
	return nil, fmt.Errorf("could not find any MIDI output starting with %q", namePrefix)
}

func (d RTMIDIDevice) String() string {
	return d.out.String()
}

func (m *RTMIDIContext) Close() {
	if m.driver == nil {
		return
	}
	m.driver.Close()
}
