package player_test

import (
	"errors"
	"io"
	"log"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/player"
)

const tickMs = 125 * time.Millisecond // 4/4, unit 16, 120 bpm

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) player.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = end
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

type played struct {
	tick   int
	track  int
	sample string
}

type recordingBackend struct {
	mu      sync.Mutex
	clock   *manualClock
	origin  time.Time
	played  []played
	voices  []player.Voice
	failOn  string
	stopped int
}

func (b *recordingBackend) PlayVoice(v player.Voice) (player.VoiceHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v.Sample == b.failOn {
		return player.VoiceHandle{}, errors.New("no such sample")
	}
	tick := int(b.clock.Now().Sub(b.origin) / tickMs)
	b.played = append(b.played, played{tick, v.Track, v.Sample})
	b.voices = append(b.voices, v)
	return player.NewVoiceHandle(), nil
}

func (b *recordingBackend) StopVoice(player.VoiceHandle) {}

func (b *recordingBackend) StopAllVoices() {
	b.mu.Lock()
	b.stopped++
	b.mu.Unlock()
}

func (b *recordingBackend) Played() []played {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]played(nil), b.played...)
}

func testSong(t *testing.T, numBars int, mutate func(tracks []musicfile.Track)) *musicfile.MusicFile {
	t.Helper()
	frag, err := musicfile.NewFragment(4, musicfile.NewTrackItems(
		musicfile.MustTrackItem(musicfile.MustNote(musicfile.Sol, 4), 1, 1),
	))
	if err != nil {
		t.Fatalf("NewFragment failed: %v", err)
	}
	tracks := []musicfile.Track{
		musicfile.NewTrack("lead", musicfile.Instrument{Name: "piano", ResourceURI: "instrument:piano"},
			musicfile.MustTrackItem(musicfile.MustNote(musicfile.Do, 4), 0, 2),
			musicfile.MustTrackItem(musicfile.MustNote(musicfile.Mi, 4), 3, 1),
			musicfile.MustTrackItem(frag, 8, 4),
		),
		musicfile.NewTrack("pads", musicfile.Instrument{Name: "strings", ResourceURI: "instrument:strings"},
			musicfile.MustTrackItem(musicfile.MustChord(musicfile.ChordI, 4), 5, 4),
		),
		musicfile.NewTrack("drums", musicfile.Instrument{Name: "drums", ResourceURI: "instrument:drums"},
			musicfile.MustTrackItem(musicfile.Ref{Name: "kick", TypeURI: musicfile.SamplerSampleType, ResourceURI: "sample:kick"}, 0, 1),
			musicfile.MustTrackItem(musicfile.Ref{Name: "clip", TypeURI: "type:midi:clip", ResourceURI: "clip:1"}, 2, 1),
		),
	}
	if mutate != nil {
		mutate(tracks)
	}
	m, err := musicfile.New(musicfile.Params{
		Key:          musicfile.KeyC,
		Signature:    musicfile.MustSignature(4, 4),
		UnitNoteType: 16,
		BPM:          120,
		NumBars:      numBars,
		Tracks:       musicfile.NewTracks(tracks...),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func newScheduler(t *testing.T, opts ...player.Option) (*player.Scheduler, *recordingBackend, *manualClock) {
	t.Helper()
	clock := newManualClock()
	backend := &recordingBackend{clock: clock, origin: clock.Now()}
	opts = append([]player.Option{player.WithClock(clock), player.WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return player.NewScheduler(backend, opts...), backend, clock
}

var fullSong = []played{
	{0, 0, "sample:C4"},
	{0, 2, "sample:kick"},
	{3, 0, "sample:E4"},
	{5, 1, "sample:C4"},
	{5, 1, "sample:E4"},
	{5, 1, "sample:G4"},
	{9, 0, "sample:G4"},
}

func TestCompileTimeline(t *testing.T) {
	tl := player.Compile(testSong(t, 1, nil))
	if expected := []int{0, 2, 3, 5, 9}; !reflect.DeepEqual(tl.Ticks(), expected) {
		t.Fatalf("ticks %v, expected %v", tl.Ticks(), expected)
	}
	if tl.Len() != 6 {
		t.Fatalf("expected 6 events, got %d", tl.Len())
	}
	at0 := tl.At(0)
	if len(at0) != 2 || at0[0].Track != 0 || at0[1].Track != 2 {
		t.Fatalf("events at tick 0 not in track order: %v", at0)
	}
	if e := tl.At(9); len(e) != 1 || e[0].Item.Begin() != 9 || e[0].Item.Duration() != 1 {
		t.Fatalf("fragment was not expanded to an absolute tick: %v", e)
	}
	if tl.NumTicks() != 16 {
		t.Fatalf("expected 16 ticks, got %d", tl.NumTicks())
	}
}

func TestAudible(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func([]musicfile.Track)
		expected []bool
	}{
		{"none", nil, []bool{true, true, true}},
		{"muted", func(tr []musicfile.Track) { tr[1].Muted = true }, []bool{true, false, true}},
		{"solo", func(tr []musicfile.Track) { tr[2].Solo = true }, []bool{false, false, true}},
		{"muted solo", func(tr []musicfile.Track) { tr[0].Solo, tr[0].Muted = true, true }, []bool{false, false, false}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := testSong(t, 1, c.mutate)
			for i := range c.expected {
				if !player.Compile(m).Audible(i) {
					t.Fatalf("track %d should be audible without MuteSolo", i)
				}
			}
			tl := player.Compile(m, player.MuteSolo())
			for i, e := range c.expected {
				if tl.Audible(i) != e {
					t.Fatalf("track %d: audible %v, expected %v", i, !e, e)
				}
			}
			if tl.Audible(3) || tl.Audible(-1) {
				t.Fatalf("nonexistent tracks should not be audible")
			}
		})
	}
}

func TestVoices(t *testing.T) {
	m := testSong(t, 1, nil)
	lead, _ := m.Tracks().At(0)
	first, _ := lead.Items.At(0)
	v := player.Voices(m, 0, first, nil)
	if len(v) != 1 || !v[0].Pitched || v[0].Sample != "sample:C4" || v[0].Pitch.MIDINote() != 60 {
		t.Fatalf("unexpected note voice %+v", v)
	}
	if v[0].Duration != 2*tickMs || v[0].Volume != musicfile.DefaultVolume || v[0].Instrument.Name != "piano" {
		t.Fatalf("unexpected note voice %+v", v[0])
	}
	frag, _ := lead.Items.At(2)
	if v := player.Voices(m, 0, frag, nil); v != nil {
		t.Fatalf("fragments should give no voices, got %v", v)
	}
	drums, _ := m.Tracks().At(2)
	kick, _ := drums.Items.At(0)
	if v := player.Voices(m, 2, kick, nil); len(v) != 1 || v[0].Pitched || v[0].Sample != "sample:kick" {
		t.Fatalf("unexpected ref voice %+v", v)
	}
	clip, _ := drums.Items.At(1)
	if v := player.Voices(m, 2, clip, nil); v != nil {
		t.Fatalf("non-sampler refs should give no voices, got %v", v)
	}
	custom := func(i musicfile.Instrument, p musicfile.Pitch) string { return i.Name + "/" + p.String() }
	if v := player.Voices(m, 0, first, custom); v[0].Sample != "piano/C4" {
		t.Fatalf("custom resolver ignored, got %q", v[0].Sample)
	}
}

func TestSchedulerPlaysToEnd(t *testing.T) {
	s, backend, clock := newScheduler(t)
	var ticks []int
	ends := 0
	s.Subscribe(func(tick int, ended bool) {
		if ended {
			ends++
			return
		}
		ticks = append(ticks, tick)
	})
	if err := s.Compile(testSong(t, 1, nil)); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(ticks) != 1 || ticks[0] != 0 {
		t.Fatalf("first tick should be played by Start, got %v", ticks)
	}
	clock.Advance(20 * tickMs)
	if s.State() != player.Ended {
		t.Fatalf("expected ended, got %v", s.State())
	}
	if ends != 1 {
		t.Fatalf("expected a single end notification, got %d", ends)
	}
	if len(ticks) != 16 || ticks[15] != 15 {
		t.Fatalf("expected ticks 0..15, got %v", ticks)
	}
	if got := backend.Played(); !reflect.DeepEqual(got, fullSong) {
		t.Fatalf("played %v, expected %v", got, fullSong)
	}
	if s.CurrentTick() != 16 {
		t.Fatalf("expected position 16, got %d", s.CurrentTick())
	}
}

func TestSchedulerEmptyFile(t *testing.T) {
	s, backend, _ := newScheduler(t)
	var calls [][2]any
	s.Subscribe(func(tick int, ended bool) { calls = append(calls, [2]any{tick, ended}) })
	s.Compile(testSong(t, 0, nil))
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != player.Ended {
		t.Fatalf("expected ended, got %v", s.State())
	}
	if !reflect.DeepEqual(calls, [][2]any{{0, true}}) {
		t.Fatalf("expected one end notification, got %v", calls)
	}
	if len(backend.Played()) != 0 {
		t.Fatalf("nothing should be played")
	}
}

func TestSchedulerSolo(t *testing.T) {
	s, backend, clock := newScheduler(t, player.WithCompileOptions(player.MuteSolo()))
	s.Compile(testSong(t, 1, func(tr []musicfile.Track) { tr[1].Solo = true }))
	s.Start()
	clock.Advance(16 * tickMs)
	for _, p := range backend.Played() {
		if p.track != 1 {
			t.Fatalf("track %d played while track 1 is solo", p.track)
		}
	}
	if len(backend.Played()) != 3 {
		t.Fatalf("expected the three chord notes, got %v", backend.Played())
	}
}

func TestSchedulerDispatchError(t *testing.T) {
	s, backend, clock := newScheduler(t)
	backend.failOn = "sample:E4"
	var ticks []int
	s.Subscribe(func(tick int, ended bool) { ticks = append(ticks, tick) })
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(16 * tickMs)
	if s.State() != player.Compiled {
		t.Fatalf("expected playback to stop, got %v", s.State())
	}
	if s.Err() == nil {
		t.Fatalf("expected the dispatch error to be kept")
	}
	if s.CurrentTick() != 3 {
		t.Fatalf("expected the position to stay at the failing tick, got %d", s.CurrentTick())
	}
	if len(ticks) != 3 {
		t.Fatalf("the failing tick should not be notified, got %v", ticks)
	}
	backend.failOn = ""
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.Err() != nil {
		t.Fatalf("Start should clear the error")
	}
	clock.Advance(16 * tickMs)
	if s.State() != player.Ended {
		t.Fatalf("expected ended, got %v", s.State())
	}
}

func TestSchedulerObserverPanic(t *testing.T) {
	s, _, clock := newScheduler(t)
	count := 0
	s.Subscribe(func(int, bool) { panic("boom") })
	s.Subscribe(func(tick int, ended bool) { count++ })
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(16 * tickMs)
	if count != 17 {
		t.Fatalf("second observer should see 16 ticks and the end, got %d calls", count)
	}
}

func TestSchedulerUnsubscribe(t *testing.T) {
	s, _, clock := newScheduler(t)
	count := 0
	unsubscribe := s.Subscribe(func(int, bool) { count++ })
	s.Compile(testSong(t, 1, nil))
	s.Start()
	unsubscribe()
	clock.Advance(16 * tickMs)
	if count != 1 {
		t.Fatalf("expected one call before unsubscribing, got %d", count)
	}
}

func TestSchedulerStopAndSeek(t *testing.T) {
	s, backend, clock := newScheduler(t)
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(4*tickMs + tickMs/2)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.State() != player.Compiled || s.CurrentTick() != 5 {
		t.Fatalf("expected stopped at tick 5, got %v at %d", s.State(), s.CurrentTick())
	}
	clock.Advance(10 * tickMs)
	if len(backend.Played()) != 3 {
		t.Fatalf("nothing should play while stopped, got %v", backend.Played())
	}
	if err := s.SetCurrentTick(-1); !errors.Is(err, musicfile.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
	if err := s.SetCurrentTick(9); err != nil {
		t.Fatalf("SetCurrentTick failed: %v", err)
	}
	if s.State() != player.Compiled {
		t.Fatalf("seeking should not start playback")
	}
	s.Start()
	got := backend.Played()
	if last := got[len(got)-1]; last.sample != "sample:G4" || last.track != 0 {
		t.Fatalf("expected the fragment note right after seeking, got %v", last)
	}
	if len(got) != 4 {
		t.Fatalf("the chord at tick 5 was skipped by the seek, got %v", got)
	}
}

func TestSchedulerSeekWhilePlaying(t *testing.T) {
	s, backend, clock := newScheduler(t)
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(tickMs)
	s.SetCurrentTick(0)
	if s.State() != player.Playing {
		t.Fatalf("seeking should keep playing, got %v", s.State())
	}
	clock.Advance(0)
	if n := len(backend.Played()); n != 4 {
		t.Fatalf("tick 0 should be replayed at once, got %v", backend.Played())
	}
	clock.Advance(16 * tickMs)
	if s.State() != player.Ended {
		t.Fatalf("expected ended, got %v", s.State())
	}
}

func TestSchedulerRestartAfterEnd(t *testing.T) {
	s, _, clock := newScheduler(t)
	ends := 0
	s.Subscribe(func(_ int, ended bool) {
		if ended {
			ends++
		}
	})
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(16 * tickMs)
	s.Start()
	if s.State() != player.Ended || ends != 2 {
		t.Fatalf("starting at the end should end again, got %v with %d ends", s.State(), ends)
	}
	s.SetCurrentTick(0)
	if s.State() != player.Compiled {
		t.Fatalf("seeking an ended scheduler should make it playable, got %v", s.State())
	}
}

func TestSchedulerIgnoresSoloByDefault(t *testing.T) {
	s, backend, clock := newScheduler(t)
	s.Compile(testSong(t, 1, func(tr []musicfile.Track) { tr[1].Solo = true; tr[0].Muted = true }))
	s.Start()
	clock.Advance(16 * tickMs)
	if got := backend.Played(); !reflect.DeepEqual(got, fullSong) {
		t.Fatalf("played %v, expected %v", got, fullSong)
	}
}

func TestSchedulerRecompile(t *testing.T) {
	s, backend, clock := newScheduler(t, player.WithCompileOptions(player.MuteSolo()))
	s.Compile(testSong(t, 1, nil))
	s.Start()
	clock.Advance(tickMs)
	muted := testSong(t, 1, func(tr []musicfile.Track) { tr[0].Muted = true })
	if err := s.Recompile(muted); err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}
	if s.State() != player.Playing || s.CurrentTick() != 2 {
		t.Fatalf("Recompile should keep playing from tick 2, got %v at %d", s.State(), s.CurrentTick())
	}
	clock.Advance(16 * tickMs)
	for _, p := range backend.Played()[2:] {
		if p.track == 0 {
			t.Fatalf("muted track played after recompiling: %v", p)
		}
	}
	if err := s.Compile(muted); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if s.State() != player.Compiled || s.CurrentTick() != 0 {
		t.Fatalf("Compile should rewind, got %v at %d", s.State(), s.CurrentTick())
	}
}

func TestSchedulerInitialTick(t *testing.T) {
	s, _, _ := newScheduler(t, player.WithInitialTick(4))
	s.Compile(testSong(t, 1, nil))
	if s.CurrentTick() != 4 {
		t.Fatalf("expected position 4, got %d", s.CurrentTick())
	}
}

func TestSchedulerNotCompiled(t *testing.T) {
	s, _, _ := newScheduler(t)
	for name, f := range map[string]func() error{
		"Start": s.Start,
		"Stop":  s.Stop,
		"Seek":  func() error { return s.SetCurrentTick(0) },
	} {
		if err := f(); !errors.Is(err, player.ErrNotCompiled) {
			t.Fatalf("%s: expected ErrNotCompiled, got %v", name, err)
		}
	}
	if s.State() != player.Idle {
		t.Fatalf("expected idle, got %v", s.State())
	}
}

func TestSchedulerDispose(t *testing.T) {
	s, backend, clock := newScheduler(t)
	s.Compile(testSong(t, 1, nil))
	s.Start()
	s.Dispose()
	s.Dispose()
	if backend.stopped != 1 {
		t.Fatalf("expected StopAllVoices once, got %d", backend.stopped)
	}
	clock.Advance(16 * tickMs)
	if len(backend.Played()) != 2 {
		t.Fatalf("nothing should play after Dispose, got %v", backend.Played())
	}
	if err := s.Start(); !errors.Is(err, player.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

// blockingBackend holds every PlayVoice until release is closed.
type blockingBackend struct {
	entered chan string
	release chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	samples   []string
	stopped   int
	afterStop int
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{entered: make(chan string, 16), release: make(chan struct{})}
}

func (b *blockingBackend) PlayVoice(v player.Voice) (player.VoiceHandle, error) {
	b.mu.Lock()
	b.active++
	b.maxActive = max(b.maxActive, b.active)
	b.samples = append(b.samples, v.Sample)
	if b.stopped > 0 {
		b.afterStop++
	}
	b.mu.Unlock()
	b.entered <- v.Sample
	<-b.release
	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return player.NewVoiceHandle(), nil
}

func (b *blockingBackend) StopVoice(player.VoiceHandle) {}

func (b *blockingBackend) StopAllVoices() {
	b.mu.Lock()
	b.stopped++
	b.mu.Unlock()
}

func (b *blockingBackend) snapshot() (maxActive int, samples []string, stopped, afterStop int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive, append([]string(nil), b.samples...), b.stopped, b.afterStop
}

func (b *blockingBackend) waitEntered(t *testing.T) string {
	t.Helper()
	select {
	case sample := <-b.entered:
		return sample
	case <-time.After(time.Second):
		t.Fatalf("PlayVoice was not called")
		return ""
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for deadline := time.Now().Add(2 * time.Second); !cond(); time.Sleep(time.Millisecond) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func startBlocked(t *testing.T) (*player.Scheduler, *blockingBackend, chan struct{}) {
	t.Helper()
	backend := newBlockingBackend()
	s := player.NewScheduler(backend, player.WithLogger(log.New(io.Discard, "", 0)))
	t.Cleanup(s.Dispose)
	if err := s.Compile(testSong(t, 1, nil)); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	started := make(chan struct{})
	go func() {
		defer close(started)
		s.Start()
	}()
	if first := backend.waitEntered(t); first != "sample:C4" {
		t.Fatalf("expected tick 0 to start with sample:C4, got %v", first)
	}
	return s, backend, started
}

func TestSchedulerSeekWaitsForRunningTick(t *testing.T) {
	s, backend, started := startBlocked(t)
	if err := s.SetCurrentTick(5); err != nil {
		t.Fatalf("SetCurrentTick failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if maxActive, _, _, _ := backend.snapshot(); maxActive != 1 {
		t.Fatalf("two ticks dispatched at once")
	}
	close(backend.release)
	<-started
	waitFor(t, "the chord at tick 5", func() bool {
		_, samples, _, _ := backend.snapshot()
		return len(samples) >= 4
	})
	maxActive, samples, _, _ := backend.snapshot()
	if maxActive != 1 {
		t.Fatalf("two ticks dispatched at once")
	}
	if expected := []string{"sample:C4", "sample:C4", "sample:E4", "sample:G4"}; !reflect.DeepEqual(samples[:4], expected) {
		t.Fatalf("played %v, expected %v first; the rest of tick 0 should be dropped", samples, expected)
	}
}

func TestSchedulerDisposeDuringTick(t *testing.T) {
	s, backend, started := startBlocked(t)
	notified := 0
	s.Subscribe(func(int, bool) { notified++ })
	s.Dispose()
	if _, _, stopped, _ := backend.snapshot(); stopped != 0 {
		t.Fatalf("voices were silenced before the running tick finished")
	}
	close(backend.release)
	<-started
	_, samples, stopped, afterStop := backend.snapshot()
	if stopped != 1 || afterStop != 0 {
		t.Fatalf("expected one StopAllVoices after the last voice, got %d with %d voices after it", stopped, afterStop)
	}
	if !reflect.DeepEqual(samples, []string{"sample:C4"}) {
		t.Fatalf("the disposed tick should start no more voices, got %v", samples)
	}
	if notified != 0 {
		t.Fatalf("observers should not hear a disposed tick")
	}
}
