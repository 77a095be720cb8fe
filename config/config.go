// Package config reads the settings shared by the musicfile commands.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsariola/musicfile/player"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		SampleRate int `yaml:"sampleRate"`
		// BufferSize is the audio output buffer in frames.
		BufferSize int `yaml:"bufferSize"`
		MaxVoices  int `yaml:"maxVoices"`
		// MIDIOut selects the first MIDI output whose name starts with it.
		// Empty plays through the sampler instead.
		MIDIOut      string           `yaml:"midiOut"`
		MIDIChannels map[string]uint8 `yaml:"midiChannels"`
		// Instruments maps instrument resource URIs to manifest files.
		Instruments map[string]string `yaml:"instruments"`
		Player      PlayerConfig      `yaml:"player"`
		Edit        EditConfig        `yaml:"edit"`
		Server      ServerConfig      `yaml:"server"`
	}

	PlayerConfig struct {
		InitialTick int `yaml:"initialTick"`
		// MuteSolo makes playback and rendering honor the mute and solo
		// flags of the tracks.
		MuteSolo bool `yaml:"muteSolo"`
	}

	EditConfig struct {
		RecompileDelay time.Duration `yaml:"recompileDelay"`
	}

	ServerConfig struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	}
)

//go:embed config.yml
var defaultConfigYaml []byte

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := decode(bytes.NewReader(defaultConfigYaml), &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// UserPath is where the per-user configuration lives.
func UserPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "musicfile", "config.yml"), nil
}

// Load layers the user configuration and then the file at path, if not
// empty, over the defaults. A missing user configuration is not an error; a
// missing explicit one is.
func Load(path string) (Config, error) {
	c := Default()
	if user, err := UserPath(); err == nil {
		if err := overlay(user, &c); err != nil && !errors.Is(err, os.ErrNotExist) {
			return c, err
		}
	}
	if path != "" {
		if err := overlay(path, &c); err != nil {
			return c, err
		}
	}
	return c, c.Validate()
}

func overlay(path string, c *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decode(f, c); err != nil {
		return fmt.Errorf("config %v: %w", path, err)
	}
	return nil
}

func decode(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// CompileOptions returns the timeline options the player settings ask for.
func (c Config) CompileOptions() []player.CompileOption {
	if c.Player.MuteSolo {
		return []player.CompileOption{player.MuteSolo()}
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sampleRate must be positive, got %d", c.SampleRate))
	}
	if c.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("bufferSize must not be negative, got %d", c.BufferSize))
	}
	if c.Player.InitialTick < 0 {
		errs = append(errs, fmt.Errorf("player.initialTick must not be negative, got %d", c.Player.InitialTick))
	}
	for uri, ch := range c.MIDIChannels {
		if ch > 15 {
			errs = append(errs, fmt.Errorf("midiChannels[%q] must be 0-15, got %d", uri, ch))
		}
	}
	return errors.Join(errs...)
}
