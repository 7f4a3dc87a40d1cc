package probe

import "codeberg.org/thomiel/adored/internal/fingerprint"

// TargetSampleRate is the output rate of MonoMix.
const TargetSampleRate = fingerprint.TargetSampleRate

// MonoMix converts interleaved multi-channel PCM into mono PCM at
// TargetSampleRate by nearest-frame selection: each target sample maps back
// to a source position and takes the integer mean of the channel samples
// there. No interpolation filter is applied; fingerprinting tolerates the
// aliasing this introduces.
//
// numSamples is the sample count the caller wants interpreted as the
// conversion basis; the output length is
// numSamples * TargetSampleRate / channels / sourceRate, truncating.
func MonoMix(source []int16, numSamples, channels, sourceRate int) []int16 {
	if channels <= 0 || sourceRate <= 0 || numSamples <= 0 {
		return nil
	}

	// Integer ratio avoids floating point drift over large buffers.
	targetLen := int(int64(numSamples) * TargetSampleRate / int64(channels) / int64(sourceRate))
	target := make([]int16, 0, targetLen)

	for t := 0; t < targetLen; t++ {
		idx := int(int64(t) * int64(channels) * int64(sourceRate) / TargetSampleRate)
		if idx+channels > len(source) {
			break
		}

		// Wider accumulator; int16 would overflow with two or more channels.
		var mixed int
		for c := 0; c < channels; c++ {
			mixed += int(source[idx+c])
		}
		target = append(target, int16(mixed/channels))
	}
	return target
}
