package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

type (
	// OtoContext is the audio device. Only one may exist per process.
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	// OtoOutput plays one Source on the device.
	OtoOutput struct {
		player *oto.Player
		reader *StreamReader
	}
)

const otoBufferSizeFrames = 2048

// NewContext opens the audio device for stereo float32 output at sampleRate
// and waits until it is ready. bufferFrames <= 0 uses a default size.
func NewContext(sampleRate, bufferFrames int) (*OtoContext, error) {
	if bufferFrames <= 0 {
		bufferFrames = otoBufferSizeFrames
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate),
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) SampleRate() int { return c.sampleRate }

// Output starts playing source and returns a handle to stop it.
func (c *OtoContext) Output(source Source) *OtoOutput {
	reader := NewStreamReader(source)
	player := c.context.NewPlayer(reader)
	player.Play()
	return &OtoOutput{player: player, reader: reader}
}

// Suspend pauses all outputs of the device.
func (c *OtoContext) Suspend() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (c *OtoContext) Resume() error {
	if err := c.context.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	return nil
}

// Err returns the asynchronous error of the device, if any.
func (c *OtoContext) Err() error { return c.context.Err() }

// Frames returns the number of frames handed to the device so far.
func (o *OtoOutput) Frames() int64 { return o.reader.Frames() }

// Close disposes of resources
func (o *OtoOutput) Close() error {
	o.player.Pause()
	o.reader.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
