package probe

import (
	"testing"
	"time"

	"codeberg.org/thomiel/adored/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlgo struct {
	calls [][]int16
}

func (a *recordingAlgo) Fingerprint(mono []int16) (string, error) {
	buf := make([]int16, len(mono))
	copy(buf, mono)
	a.calls = append(a.calls, buf)
	return "test-fingerprint", nil
}

func (a *recordingAlgo) Name() string    { return "test" }
func (a *recordingAlgo) Version() string { return "1" }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(algo *recordingAlgo, window time.Duration) (*Session, *fakeClock) {
	s := NewSession(algo, Config{MinimumDuration: window})
	clock := &fakeClock{t: time.Now()}
	s.now = clock.now
	return s, clock
}

func silenceBuffer(frames, channels, rate int) *audio.Buffer {
	return &audio.Buffer{
		Data:     make([]byte, frames*channels*2),
		Channels: channels,
		Duration: time.Duration(frames) * time.Second / time.Duration(rate),
	}
}

func TestConsumeIsNoOpWhenIdle(t *testing.T) {
	algo := &recordingAlgo{}
	s, _ := newTestSession(algo, 40*time.Second)

	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	assert.Empty(t, s.buf)
	assert.Empty(t, algo.calls)
}

func TestStartClearsAccumulatedSamples(t *testing.T) {
	algo := &recordingAlgo{}
	s, _ := newTestSession(algo, 40*time.Second)

	s.StartProbing()
	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	require.NotEmpty(t, s.buf)

	s.StartProbing()
	assert.Empty(t, s.buf, "restart drops the accumulated window")
}

func TestSampleRateChangeRestartsOnce(t *testing.T) {
	algo := &recordingAlgo{}
	s, _ := newTestSession(algo, 40*time.Second)

	s.StartProbing()
	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	require.Equal(t, 44100, s.sampleRate)
	lenBefore := len(s.buf)

	// Discontinuity: the window restarts and only the new chunk remains.
	s.ConsumeBuffer(silenceBuffer(4096, 2, 48000))
	assert.Equal(t, 48000, s.sampleRate)
	assert.Equal(t, 4096*2*2, len(s.buf))
	assert.Less(t, len(s.buf), lenBefore+4096*2*2)

	// Same rate again: no further restart, buffer keeps growing.
	s.ConsumeBuffer(silenceBuffer(4096, 2, 48000))
	assert.Equal(t, 4096*2*2*2, len(s.buf))
	assert.Empty(t, algo.calls, "no fingerprint from a mixed-rate window")
}

func TestStopProbingIsIdempotent(t *testing.T) {
	algo := &recordingAlgo{}
	s, _ := newTestSession(algo, 40*time.Second)

	s.StartProbing()
	s.StopProbing()
	s.StopProbing()

	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	assert.Empty(t, algo.calls)
}

func TestWindowCompletionComputesFingerprint(t *testing.T) {
	algo := &recordingAlgo{}
	s, clock := newTestSession(algo, 40*time.Second)

	const (
		chunkFrames = 4096
		channels    = 2
		rate        = 44100
	)
	chunkDuration := time.Duration(chunkFrames) * time.Second / rate

	s.StartProbing()

	framesFed := 0
	for i := 0; i < 1000; i++ {
		s.ConsumeBuffer(silenceBuffer(chunkFrames, channels, rate))
		framesFed += chunkFrames
		if _, ok := s.LastFingerprint(); ok {
			break
		}
		clock.advance(chunkDuration)
	}

	fprint, ok := s.LastFingerprint()
	require.True(t, ok, "window completion must compute a fingerprint")
	assert.Equal(t, "test-fingerprint", fprint)
	require.Len(t, algo.calls, 1, "exactly one fingerprint call per window")

	// Stereo 44100 Hz resampled to 11025 Hz mono.
	wantMonoLen := framesFed / channels * TargetSampleRate / rate
	assert.Len(t, algo.calls[0], wantMonoLen)

	assert.False(t, s.probing, "session returns to idle after completion")
	assert.Empty(t, s.buf, "window buffer is cleared exactly once after computation")
}

func TestResetLastFingerprint(t *testing.T) {
	algo := &recordingAlgo{}
	s, clock := newTestSession(algo, time.Second)

	s.StartProbing()
	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))
	clock.advance(2 * time.Second)
	s.ConsumeBuffer(silenceBuffer(4096, 2, 44100))

	_, ok := s.LastFingerprint()
	require.True(t, ok)

	s.ResetLastFingerprint()
	fprint, ok := s.LastFingerprint()
	assert.False(t, ok)
	assert.Empty(t, fprint)
}

func TestAlgorithmMetadataPassThrough(t *testing.T) {
	s := NewSession(&recordingAlgo{}, DefaultConfig())
	assert.Equal(t, "test", s.AlgorithmName())
	assert.Equal(t, "1", s.AlgorithmVersion())
}
