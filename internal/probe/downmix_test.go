package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stereoConstant(frames int, left, right int16) []int16 {
	buf := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		buf[i*2] = left
		buf[i*2+1] = right
	}
	return buf
}

func TestMonoMixOutputLength(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		channels   int
		sourceRate int
		wantLen    int
	}{
		{"one second stereo 44100", 44100, 2, 44100, 11025},
		{"one second stereo 22050", 22050, 2, 22050, 11025},
		{"downmix only", 11025, 2, 11025, 11025},
		{"upsample from 8000", 8000, 2, 8000, 11025},
		{"ten seconds stereo 44100", 441000, 2, 44100, 110250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := stereoConstant(tt.frames, 0, 0)
			mono := MonoMix(source, len(source), tt.channels, tt.sourceRate)
			assert.Len(t, mono, tt.wantLen)
		})
	}
}

func TestMonoMixAveragesChannels(t *testing.T) {
	source := stereoConstant(44100, 100, 200)
	mono := MonoMix(source, len(source), 2, 44100)
	require.NotEmpty(t, mono)
	for _, s := range mono {
		assert.Equal(t, int16(150), s)
	}
}

func TestMonoMixTruncatesMean(t *testing.T) {
	source := stereoConstant(22050, 1, 2)
	mono := MonoMix(source, len(source), 2, 22050)
	require.NotEmpty(t, mono)
	assert.Equal(t, int16(1), mono[0], "integer mean truncates")
}

func TestMonoMixWideAccumulator(t *testing.T) {
	// Two full-scale samples would overflow an int16 accumulator.
	source := stereoConstant(22050, 32767, 32767)
	mono := MonoMix(source, len(source), 2, 22050)
	require.NotEmpty(t, mono)
	assert.Equal(t, int16(32767), mono[0])
}

func TestMonoMixInvalidArgs(t *testing.T) {
	assert.Nil(t, MonoMix(nil, 0, 2, 44100))
	assert.Nil(t, MonoMix(make([]int16, 16), 16, 0, 44100))
	assert.Nil(t, MonoMix(make([]int16, 16), 16, 2, 0))
}
