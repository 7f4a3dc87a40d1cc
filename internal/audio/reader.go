package audio

import (
	"context"
	"io"
	"sync"
	"time"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
)

const defaultChunkFrames = 4096

type Config struct {
	SampleRate  int
	Channels    int
	ChunkFrames int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:  44100,
		Channels:    2,
		ChunkFrames: defaultChunkFrames,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.SampleRate <= 0 || c.Channels <= 0 || c.ChunkFrames <= 0 {
		return errFactory.New(ErrInvalidConfig)
	}
	return nil
}

// ReaderEngine frames raw s16le interleaved PCM from an io.Reader and fans
// each chunk out to the registered consumers, standing in for the host
// player's buffer delivery. Typical use is a pipe from a decoder:
//
//	ffmpeg -i song.flac -f s16le -ac 2 -ar 44100 - | adored ...
type ReaderEngine struct {
	src io.Reader
	cfg Config

	mu        sync.RWMutex
	consumers []Consumer
}

func NewReaderEngine(src io.Reader, cfg Config) (*ReaderEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ReaderEngine{src: src, cfg: cfg}, nil
}

func (e *ReaderEngine) AddBufferConsumer(c Consumer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consumers = append(e.consumers, c)
}

func (e *ReaderEngine) RemoveBufferConsumer(c Consumer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, registered := range e.consumers {
		if registered == c {
			e.consumers = append(e.consumers[:i], e.consumers[i+1:]...)
			return
		}
	}
}

// Run delivers buffers until the source is exhausted or the context is
// cancelled. A short trailing chunk is still delivered.
func (e *ReaderEngine) Run(ctx context.Context) error {
	errFactory := errors.New()

	chunkBytes := e.cfg.ChunkFrames * e.cfg.Channels * bytesPerSample
	chunk := make([]byte, chunkBytes)

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Audio engine stopped by context")
			return nil
		default:
		}

		n, err := io.ReadFull(e.src, chunk)
		if n > 0 {
			data := make([]byte, n)
			copy(data, chunk[:n])
			e.deliver(&Buffer{
				Data:     data,
				Channels: e.cfg.Channels,
				Duration: e.duration(n),
			})
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			logger.Debug().Msg("Audio source exhausted")
			return nil
		}
		if err != nil {
			return errFactory.Wrap(ErrReadFailed, err)
		}
	}
}

func (e *ReaderEngine) deliver(buf *Buffer) {
	e.mu.RLock()
	consumers := make([]Consumer, len(e.consumers))
	copy(consumers, e.consumers)
	e.mu.RUnlock()

	for _, c := range consumers {
		c.ConsumeBuffer(buf)
	}
}

func (e *ReaderEngine) duration(nbytes int) time.Duration {
	frames := nbytes / bytesPerSample / e.cfg.Channels
	return time.Duration(frames) * time.Second / time.Duration(e.cfg.SampleRate)
}
