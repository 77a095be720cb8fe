package player

import "time"

type (
	// Clock is the time source of a Scheduler.
	Clock interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}

	Timer interface {
		Stop() bool
	}

	realClock struct{}
)

// RealClock uses the time package.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// deadline returns when tick should fire, counting from start at startTick.
// Deadlines are absolute so that timer jitter does not accumulate.
func deadline(start time.Time, startTick, tick int, tickMs float64) time.Time {
	return start.Add(time.Duration(float64(tick-startTick) * tickMs * float64(time.Millisecond)))
}
