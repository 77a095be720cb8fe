package sampler

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/util"
)

// Registry maps instrument URIs to their samples, which are in turn keyed by
// sample URI (e.g. "sample:C4"). It is safe for concurrent use, so samples
// may be loaded while the sampler plays.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]map[string]*Sample
}

func NewRegistry() *Registry {
	return &Registry{instruments: make(map[string]map[string]*Sample)}
}

// AddInstrument registers an instrument with no samples. Adding an existing
// instrument keeps its samples.
func (r *Registry) AddInstrument(instrumentURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instruments[instrumentURI]; !ok {
		r.instruments[instrumentURI] = make(map[string]*Sample)
	}
}

// AddSample registers a sample, adding the instrument if needed. An existing
// sample with the same URI is replaced.
func (r *Registry) AddSample(instrumentURI, sampleURI string, sample *Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples, ok := r.instruments[instrumentURI]
	if !ok {
		samples = make(map[string]*Sample)
		r.instruments[instrumentURI] = samples
	}
	samples[sampleURI] = sample
}

func (r *Registry) DeleteInstrument(instrumentURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instruments, instrumentURI)
}

func (r *Registry) DeleteSample(instrumentURI, sampleURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instruments[instrumentURI], sampleURI)
}

func (r *Registry) HasInstrument(instrumentURI string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instruments[instrumentURI]
	return ok
}

func (r *Registry) HasSample(instrumentURI, sampleURI string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instruments[instrumentURI][sampleURI]
	return ok
}

// Instruments returns the registered instrument URIs in sorted order.
func (r *Registry) Instruments() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := util.Keys(r.instruments)
	slices.Sort(ret)
	return ret
}

// Samples returns the sample URIs of an instrument in sorted order.
func (r *Registry) Samples(instrumentURI string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := util.Keys(r.instruments[instrumentURI])
	slices.Sort(ret)
	return ret
}

// Resolve returns the sample registered for the instrument. The error
// matches musicfile.ErrNotFound if either URI is unknown.
func (r *Registry) Resolve(instrumentURI, sampleURI string) (*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	samples, ok := r.instruments[instrumentURI]
	if !ok {
		return nil, fmt.Errorf("instrument %q: %w", instrumentURI, musicfile.ErrNotFound)
	}
	s, ok := samples[sampleURI]
	if !ok {
		return nil, fmt.Errorf("sample %q of instrument %q: %w", sampleURI, instrumentURI, musicfile.ErrNotFound)
	}
	return s, nil
}
