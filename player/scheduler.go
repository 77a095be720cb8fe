package player

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/vsariola/musicfile"
)

type (
	// Scheduler plays a compiled music file in real time. It advances one
	// tick at a time on timer callbacks, starting the voices of every event
	// due at the tick on its SoundBackend and then notifying observers.
	//
	// All methods are safe to call from any goroutine, including from
	// observers. Ticks of one scheduler never run concurrently: a tick due
	// while another is still dispatching or notifying waits for it, and an
	// outdated tick stops before its next voice.
	Scheduler struct {
		backend     SoundBackend
		clock       Clock
		logger      *log.Logger
		resolve     SampleResolver
		initialTick int
		compileOpts []CompileOption

		tickMu sync.Mutex // held for the whole of a tick, taken before mu

		mu        sync.Mutex
		timeline  *Timeline
		state     State
		tick      int
		gen       uint64 // bumped whenever the running tick loop must die
		start     time.Time
		startTick int
		timer     Timer
		observers map[int]Observer
		nextObs   int
		err       error
		disposed  bool
		silenced  bool
	}

	// State is the playback state of a Scheduler.
	State int

	// Observer is called after every tick with the tick just played. When
	// playback reaches the end, it is called once more with ended set.
	Observer func(tick int, ended bool)

	// Option configures a Scheduler.
	Option func(*Scheduler)
)

const (
	Idle State = iota
	Compiled
	Playing
	Ended
)

var (
	ErrNotCompiled = errors.New("no music file compiled")
	ErrDisposed    = errors.New("scheduler disposed")
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Compiled:
		return "compiled"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithLogger(l *log.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// WithSampleResolver sets how note and chord pitches are turned into sample
// ids. The default is DefaultSampleResolver.
func WithSampleResolver(r SampleResolver) Option { return func(s *Scheduler) { s.resolve = r } }

// WithCompileOptions sets the options Compile and Recompile build the
// timeline with.
func WithCompileOptions(opts ...CompileOption) Option {
	return func(s *Scheduler) { s.compileOpts = append(s.compileOpts, opts...) }
}

// WithInitialTick sets the tick Compile rewinds to.
func WithInitialTick(tick int) Option {
	return func(s *Scheduler) { s.initialTick = max(tick, 0) }
}

func NewScheduler(backend SoundBackend, opts ...Option) *Scheduler {
	s := &Scheduler{
		backend:   backend,
		clock:     RealClock,
		logger:    log.Default(),
		resolve:   DefaultSampleResolver,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile replaces the timeline with one compiled from m. Playback stops and
// the position goes back to the initial tick.
func (s *Scheduler) Compile(m *musicfile.MusicFile) error {
	tl := Compile(m, s.compileOpts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	s.haltLocked()
	s.timeline = tl
	s.tick = s.initialTick
	s.state = Compiled
	s.err = nil
	return nil
}

// Recompile replaces the timeline but keeps the position and the playback
// state. A running scheduler continues with the new timeline from its next
// tick. On an idle scheduler it is the same as Compile.
func (s *Scheduler) Recompile(m *musicfile.MusicFile) error {
	tl := Compile(m, s.compileOpts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.timeline == nil {
		s.timeline = tl
		s.tick = s.initialTick
		s.state = Compiled
		return nil
	}
	if s.state == Playing {
		// the pending tick keeps its deadline; the tempo may change after it
		s.start = deadline(s.start, s.startTick, s.tick, s.timeline.MusicFile().TickMs())
		s.startTick = s.tick
	}
	s.timeline = tl
	return nil
}

// Start begins playback from the current tick. The first tick is played
// before Start returns, unless another tick is still in progress; then it
// follows that one. Starting an ended scheduler without moving the position
// ends it again at once.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == Playing {
		s.mu.Unlock()
		return nil
	}
	s.state = Playing
	s.err = nil
	s.gen++
	gen := s.gen
	s.start = s.clock.Now()
	s.startTick = s.tick
	s.mu.Unlock()
	if !s.tickMu.TryLock() {
		// the running tick may be the one whose observer called Start
		s.mu.Lock()
		if s.gen == gen {
			s.timer = s.clock.AfterFunc(0, func() { s.step(gen) })
		}
		s.mu.Unlock()
		return nil
	}
	defer s.endTick()
	s.play(gen)
	return nil
}

// Stop halts playback, keeping the position.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	if s.state == Playing {
		s.haltLocked()
		s.state = Compiled
	}
	return nil
}

// SetCurrentTick moves the position without changing whether the scheduler
// plays. A playing scheduler plays the new tick right away.
func (s *Scheduler) SetCurrentTick(tick int) error {
	if tick < 0 {
		return &musicfile.ValueError{Field: "tick", Value: tick}
	}
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.tick = tick
	if s.state == Ended {
		s.state = Compiled
	}
	if s.state != Playing {
		s.mu.Unlock()
		return nil
	}
	s.haltLocked()
	gen := s.gen
	s.start = s.clock.Now()
	s.startTick = tick
	s.timer = s.clock.AfterFunc(0, func() { s.step(gen) })
	s.mu.Unlock()
	return nil
}

// Dispose stops playback for good and silences every voice of the backend.
// Later calls to other methods return ErrDisposed. A tick in progress is not
// waited for: it starts no more voices and silences the backend itself when
// it finishes, after its last PlayVoice.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.haltLocked()
	idle := s.tickMu.TryLock()
	if idle {
		s.silenced = true
		s.tickMu.Unlock()
	}
	s.mu.Unlock()
	if idle {
		s.backend.StopAllVoices()
	}
}

// Subscribe adds an observer and returns a function removing it.
func (s *Scheduler) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) CurrentTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

func (s *Scheduler) Timeline() *Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline
}

// Err returns the dispatch error that last stopped playback, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduler) checkLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.timeline == nil {
		return ErrNotCompiled
	}
	return nil
}

// haltLocked kills the running tick loop, if any.
func (s *Scheduler) haltLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// step waits for the tick in progress, if any, and plays the next one.
func (s *Scheduler) step(gen uint64) {
	s.tickMu.Lock()
	defer s.endTick()
	s.play(gen)
}

// endTick releases tickMu, silencing the backend if the scheduler was
// disposed while the tick ran. Checking and releasing under mu pairs with
// the TryLock in Dispose, so exactly one of them silences.
func (s *Scheduler) endTick() {
	s.mu.Lock()
	silence := s.disposed && !s.silenced
	if silence {
		s.silenced = true
	}
	s.tickMu.Unlock()
	s.mu.Unlock()
	if silence {
		s.backend.StopAllVoices()
	}
}

func (s *Scheduler) live(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// play plays the current tick and arms the timer for the next one. It does
// nothing if gen is stale, i.e. the scheduler was stopped, moved, compiled
// or disposed since the tick was scheduled. The caller holds tickMu.
func (s *Scheduler) play(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != Playing {
		s.mu.Unlock()
		return
	}
	tl, tick := s.timeline, s.tick
	if tick >= tl.NumTicks() {
		s.state = Ended
		s.timer = nil
		obs := s.observersLocked()
		s.mu.Unlock()
		s.notify(obs, tick, true)
		return
	}
	s.mu.Unlock()

	live := func() bool { return s.live(gen) }
	if err := Dispatch(s.backend, tl, tick, s.resolve, live); err != nil {
		s.logger.Printf("playback stopped: %v", err)
		s.mu.Lock()
		if s.gen == gen {
			s.haltLocked()
			s.state = Compiled
			s.err = err
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.tick = tick + 1
	obs := s.observersLocked()
	s.mu.Unlock()

	s.notify(obs, tick, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	tickMs := s.timeline.MusicFile().TickMs()
	wait := deadline(s.start, s.startTick, s.tick, tickMs).Sub(s.clock.Now())
	s.timer = s.clock.AfterFunc(max(wait, 0), func() { s.step(gen) })
}

func (s *Scheduler) observersLocked() []Observer {
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ret := make([]Observer, len(ids))
	for i, id := range ids {
		ret[i] = s.observers[id]
	}
	return ret
}

func (s *Scheduler) notify(obs []Observer, tick int, ended bool) {
	for _, o := range obs {
		s.call(o, tick, ended)
	}
}

func (s *Scheduler) call(o Observer, tick int, ended bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("observer panicked at tick %d: %v", tick, r)
		}
	}()
	o(tick, ended)
}
