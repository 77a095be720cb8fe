package musicfile

import "strings"

type (
	// Instrument binds a track to an external sound resource, typically a
	// sampler instrument.
	Instrument struct {
		Name        string
		ResourceURI string
	}

	// Ref is a track item source pointing to an external resource. TypeURI
	// tells what kind of resource it is; only SamplerSampleType refs are
	// played directly.
	Ref struct {
		Name        string
		TypeURI     string
		ResourceURI string
	}
)

// SamplerSampleType is the TypeURI of refs that name a single sampler
// sample.
const SamplerSampleType = "type:sampler:sample"

// IsSamplerSample reports whether the ref names a directly playable sample.
// Both "type:sampler:sample" and the shorter "sampler:sample" are accepted.
func (r Ref) IsSamplerSample() bool {
	return strings.TrimPrefix(r.TypeURI, "type:") == strings.TrimPrefix(SamplerSampleType, "type:")
}

func (Ref) isSource() {}
