package sampler

import (
	"time"

	"github.com/vsariola/musicfile"
)

type (
	// ADSR is the gain envelope of a sample. Amps are relative to the voice
	// volume and times are in seconds, all measured from sound on: the gain
	// rises to AttackAmp at AttackTime, moves to DecayAmp at AttackTime +
	// DecayTime and to SustainAmp at AttackTime + SustainTime, where it
	// stays. On release it ramps from wherever it is to that level times
	// ReleaseAmp in ReleaseTime, and the voice ends.
	ADSR struct {
		AttackAmp   float64 `yaml:"attackAmp" json:"attackAmp"`
		AttackTime  float64 `yaml:"attackTime" json:"attackTime"`
		DecayAmp    float64 `yaml:"decayAmp" json:"decayAmp"`
		DecayTime   float64 `yaml:"decayTime" json:"decayTime"`
		SustainAmp  float64 `yaml:"sustainAmp" json:"sustainAmp"`
		SustainTime float64 `yaml:"sustainTime" json:"sustainTime"`
		ReleaseAmp  float64 `yaml:"releaseAmp" json:"releaseAmp"`
		ReleaseTime float64 `yaml:"releaseTime" json:"releaseTime"`
	}

	// Sample is decoded stereo audio ready for mixing. Left and Right have the
	// same length; mono sources share one slice.
	Sample struct {
		Left, Right []float32
		SampleRate  int
		ADSR        ADSR
	}

	point struct{ t, v float64 }
)

var DefaultADSR = ADSR{
	AttackAmp:   1,
	AttackTime:  0,
	DecayAmp:    0.7,
	DecayTime:   0.5,
	SustainAmp:  0.8,
	SustainTime: 0.7,
	ReleaseAmp:  0,
	ReleaseTime: 0.3,
}

// NewSample returns a sample with the default envelope.
func NewSample(left, right []float32, sampleRate int) *Sample {
	if right == nil {
		right = left
	}
	return &Sample{Left: left, Right: right, SampleRate: sampleRate, ADSR: DefaultADSR}
}

func (s *Sample) Len() int { return min(len(s.Left), len(s.Right)) }

func (s *Sample) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(s.Len()) * time.Second / time.Duration(s.SampleRate)
}

// Validate rejects negative times.
func (a ADSR) Validate() error {
	for _, t := range [...]float64{a.AttackTime, a.DecayTime, a.SustainTime, a.ReleaseTime} {
		if t < 0 {
			return &musicfile.ValueError{Field: "envelope time", Value: t}
		}
	}
	return nil
}

// Level returns the envelope gain t seconds after sound on, assuming no
// release.
func (a ADSR) Level(t float64) float64 {
	pts := [...]point{
		{0, 0},
		{a.AttackTime, a.AttackAmp},
		{a.AttackTime + a.DecayTime, a.DecayAmp},
		// a sustain ramp ending before the decay does is a jump
		{a.AttackTime + max(a.SustainTime, a.DecayTime), a.SustainAmp},
	}
	return ramp(pts[:], t)
}

// Released returns the gain t seconds after a release that started at
// level.
func (a ADSR) Released(level, t float64) float64 {
	target := level * a.ReleaseAmp
	if a.ReleaseTime <= 0 || t >= a.ReleaseTime {
		return target
	}
	return level + (target-level)*max(t, 0)/a.ReleaseTime
}

// ramp interpolates linearly between time-ordered points. Points sharing a
// time make a step.
func ramp(pts []point, t float64) float64 {
	if t < pts[0].t {
		return pts[0].v
	}
	for i := 1; i < len(pts); i++ {
		if t < pts[i].t {
			p, q := pts[i-1], pts[i]
			return p.v + (q.v-p.v)*(t-p.t)/(q.t-p.t)
		}
	}
	return pts[len(pts)-1].v
}
