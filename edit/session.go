package edit

import (
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/vsariola/musicfile"
)

type (
	// Compiler is what a Session keeps up to date, usually a
	// *player.Scheduler.
	Compiler interface {
		Compile(m *musicfile.MusicFile) error
		Recompile(m *musicfile.MusicFile) error
	}

	// Session owns the music file being edited. Edits take effect at once
	// for readers of the session; the compiler sees them after the edits
	// have paused for the recompile delay.
	Session struct {
		compiler  Compiler
		debounced func(func())
		logger    *log.Logger

		mu      sync.Mutex
		m       *musicfile.MusicFile
		dirty   bool
		version int
	}
)

const DefaultRecompileDelay = 100 * time.Millisecond

// NewSession compiles m and returns a session editing it.
func NewSession(m *musicfile.MusicFile, compiler Compiler, delay time.Duration, logger *log.Logger) (*Session, error) {
	if delay <= 0 {
		delay = DefaultRecompileDelay
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := compiler.Compile(m); err != nil {
		return nil, err
	}
	return &Session{
		compiler:  compiler,
		debounced: debounce.New(delay),
		logger:    logger,
		m:         m,
	}, nil
}

func (s *Session) MusicFile() *musicfile.MusicFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

// Version counts the edits applied so far.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Apply edits the music file. Nothing changes if f fails.
func (s *Session) Apply(f func(c *Changes) error) error {
	s.mu.Lock()
	m, err := Apply(s.m, f)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.m = m
	s.dirty = true
	s.version++
	s.mu.Unlock()
	s.debounced(s.recompile)
	return nil
}

// Load replaces the music file and compiles it right away, rewinding
// playback.
func (s *Session) Load(m *musicfile.MusicFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.compiler.Compile(m); err != nil {
		return err
	}
	s.m = m
	s.dirty = false
	s.version++
	return nil
}

// Flush recompiles pending edits without waiting for the delay.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompileLocked()
}

func (s *Session) recompile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.recompileLocked(); err != nil {
		s.logger.Printf("recompile failed: %v", err)
	}
}

func (s *Session) recompileLocked() error {
	if !s.dirty {
		return nil
	}
	if err := s.compiler.Recompile(s.m); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
