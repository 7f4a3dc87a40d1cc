package fingerprint

// TargetSampleRate is the fixed rate of the mono buffers every algorithm
// variant is fed with.
const TargetSampleRate = 11025

// Algorithm converts a mono 16-bit sample buffer at TargetSampleRate into an
// opaque fingerprint string. A zero-length result means the audio produced
// no identifiable fingerprint; that is not an error.
type Algorithm interface {
	Fingerprint(mono []int16) (string, error)
	Name() string
	Version() string
}
