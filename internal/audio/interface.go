package audio

import "time"

// Buffer is one chunk of raw interleaved PCM as delivered by the host
// player's audio engine. Samples are signed 16-bit little-endian.
type Buffer struct {
	Data     []byte
	Channels int
	// Duration is the playback time covered by Data and is the only
	// source of sample rate information a consumer gets.
	Duration time.Duration
}

// Frames returns the number of sample frames (samples per channel) in the buffer.
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / bytesPerSample / b.Channels
}

// Consumer receives every audio buffer in flight. ConsumeBuffer runs on the
// engine's delivery goroutine and must not block on I/O or storage.
type Consumer interface {
	ConsumeBuffer(buf *Buffer)
}

// Engine is the surface of the host audio engine the reporting client hooks
// into. Callers must ensure RemoveBufferConsumer is called before the engine
// reference becomes invalid.
type Engine interface {
	AddBufferConsumer(c Consumer)
	RemoveBufferConsumer(c Consumer)
}

const bytesPerSample = 2
