package probe

import (
	"encoding/binary"
	"sync"
	"time"

	"codeberg.org/thomiel/adored/internal/audio"
	"codeberg.org/thomiel/adored/internal/fingerprint"
	"codeberg.org/thomiel/adored/internal/logger"
)

// MinimumProbingDuration is the default probe window: long enough for a
// discriminating fingerprint, short enough that a match can be reported
// within the first minute of playback.
const MinimumProbingDuration = 40 * time.Second

type Config struct {
	MinimumDuration time.Duration
}

func DefaultConfig() Config {
	return Config{MinimumDuration: MinimumProbingDuration}
}

// Session accumulates raw PCM buffers for a minimum duration window and
// computes a fingerprint once the window is complete. It implements
// audio.Consumer; ConsumeBuffer runs on the engine's delivery goroutine and
// performs no I/O. The expensive algorithm work happens once per window,
// not per buffer.
type Session struct {
	algo fingerprint.Algorithm
	cfg  Config
	now  func() time.Time

	mu             sync.Mutex
	probing        bool
	startTime      time.Time
	sampleRate     int
	buf            []byte
	lastPrint      string
	hasFingerprint bool
}

func NewSession(algo fingerprint.Algorithm, cfg Config) *Session {
	if cfg.MinimumDuration <= 0 {
		cfg.MinimumDuration = MinimumProbingDuration
	}
	return &Session{algo: algo, cfg: cfg, now: time.Now}
}

// StartProbing begins collecting audio buffers for later fingerprinting.
// Starting while already probing drops the current window and restarts.
func (s *Session) StartProbing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Session) startLocked() {
	if s.probing {
		s.stopLocked()
	}
	s.probing = true
	s.startTime = s.now()
	s.buf = s.buf[:0]
}

// StopProbing stops collecting buffers. Idempotent. The accumulated data is
// kept until the next fingerprint computation or restart.
func (s *Session) StopProbing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.probing = false
}

// ConsumeBuffer collects audio data until the probe window is complete,
// then computes the fingerprint. A sample rate change mid-window is a
// discontinuity: the window restarts so samples of two different rates are
// never mixed into one downmix.
func (s *Session) ConsumeBuffer(buf *audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.probing {
		return
	}

	frames := buf.Frames()
	if frames == 0 || buf.Duration <= 0 {
		return
	}
	// Round to the nearest integer rate; duration hints carry jitter.
	sampleRate := int((int64(frames)*10_000_000_000/int64(buf.Duration) + 5) / 10)

	if s.sampleRate != 0 && s.sampleRate != sampleRate {
		logger.Debug().Msgf("Sample rate changed from %d to %d, restarting probe", s.sampleRate, sampleRate)
		s.startLocked()
	}
	s.sampleRate = sampleRate

	// Reserve the expected window size once so the buffer won't have to
	// grow on every chunk. +20% overhead.
	if cap(s.buf) == 0 {
		windowSeconds := int(s.cfg.MinimumDuration / time.Second)
		s.buf = make([]byte, 0, sampleRate*2*buf.Channels*windowSeconds*6/5)
	}
	s.buf = append(s.buf, buf.Data...)

	if s.now().Sub(s.startTime) >= s.cfg.MinimumDuration {
		channels := buf.Channels
		s.stopLocked()
		s.computeLocked(channels)
	}
}

// LastFingerprint returns the most recently computed fingerprint and
// whether one has been computed since the last reset. The fingerprint
// itself may be empty when the audio produced no identifiable output.
func (s *Session) LastFingerprint() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrint, s.hasFingerprint
}

func (s *Session) ResetLastFingerprint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrint = ""
	s.hasFingerprint = false
}

func (s *Session) AlgorithmName() string    { return s.algo.Name() }
func (s *Session) AlgorithmVersion() string { return s.algo.Version() }

func (s *Session) computeLocked(channels int) {
	if s.probing || len(s.buf) == 0 {
		return
	}

	samples := make([]int16, len(s.buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(s.buf[i*2:]))
	}

	numSamples := len(samples) / channels
	mono := MonoMix(samples, numSamples, channels, s.sampleRate)

	fprint, err := s.algo.Fingerprint(mono)
	if err != nil {
		// Non-fatal: the record is still reported, with an empty
		// fingerprint.
		logger.Warn().Err(err).Msg("Fingerprint computation failed")
		fprint = ""
	}
	s.lastPrint = fprint
	s.hasFingerprint = true
	s.buf = nil

	logger.Debug().
		Str("algorithm", s.algo.Name()).
		Int("mono_samples", len(mono)).
		Msg("New fingerprint computed")
}
