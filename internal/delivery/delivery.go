package delivery

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
	"codeberg.org/thomiel/adored/internal/queue"
)

// Coordinator owns the submission side of the pipeline: it turns playback
// events into utilization records, submits them, classifies the outcome,
// persists every attempt to the queue store and drains previously failed
// records after each success.
//
// The playback path never blocks on the network: NowPlaying hands the
// submission to a goroutine and returns. Delivery failures are absorbed
// here; the only caller-visible signal is ConnectionProblems.
type Coordinator struct {
	cfg    Config
	store  queue.Store
	prober Prober
	client *http.Client
	logger logger.Logger
	now    func() time.Time

	wg           sync.WaitGroup
	registerOnce sync.Once
	draining     atomic.Bool
	connProblems atomic.Bool
}

func NewCoordinator(cfg Config, store queue.Store, prober Prober, log logger.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Coordinator{
		cfg:    cfg,
		store:  store,
		prober: prober,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
		now:    time.Now,
	}, nil
}

// NowPlaying reports a track change. If the previous track's probe window
// completed, its fingerprint is wrapped in a record and submitted
// asynchronously. Probing then restarts for the new track.
func (c *Coordinator) NowPlaying(track Track) {
	fprint, ok := c.prober.LastFingerprint()
	if ok {
		now := c.now().Format(queue.TimeLayout)
		rec := &queue.Record{
			TimePlayed:              now,
			TimeSubmitted:           now,
			Artist:                  track.Artist,
			Title:                   track.Title,
			Release:                 track.Release,
			TrackNumber:             track.TrackNumber,
			Duration:                track.Duration,
			FingerprintingAlgorithm: c.prober.AlgorithmName(),
			FingerprintingVersion:   c.prober.AlgorithmVersion(),
			Fingerprint:             fprint,
			Status:                  "OK",
			Type:                    queue.DeliveryUnknown,
		}
		c.prober.ResetLastFingerprint()

		c.logger.Debug().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("Adoring track")

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.Submit(rec)
		}()
	}

	c.prober.StartProbing()
}

// Submit delivers one record and, when the delivery succeeded, drains the
// queue of earlier failures.
func (c *Coordinator) Submit(rec *queue.Record) {
	typ, stored := c.submitOnce(rec)
	if typ == queue.DeliverySuccess && stored {
		c.drainQueue()
	}
}

// submitOnce performs a single submission attempt: POST, classify, persist.
// It reports the classified outcome and whether the attempt was durably
// recorded. The record is always written to the store before the attempt
// counts as closed; the durable copy is the retry mechanism.
func (c *Coordinator) submitOnce(rec *queue.Record) (queue.DeliveryType, bool) {
	resp, err := c.post(utilizeImpPath, utilizationPayloadFrom(c.cfg.ClientUUID, rec))
	if err != nil {
		rec.Type = queue.DeliveryError
		rec.Status = err.Error()
		rec.TimeSubmitted = ""
		c.connProblems.Store(true)
		c.logger.Warn().Err(err).Msg("Submission failed")
	} else {
		rec.Type = classify(resp.StatusCode)
		if rec.Type != queue.DeliverySuccess {
			rec.Status = resp.Status
		}
		drainBody(resp)

		c.logger.Debug().
			Int("status", resp.StatusCode).
			Int("type", int(rec.Type)).
			Str("time_played", rec.TimePlayed).
			Msg("Submission response")
	}

	if rec.Type == queue.DeliverySuccess {
		c.connProblems.Store(false)
		c.registerOnce.Do(c.registerClient)
	}

	if err := c.store.Add(rec); err != nil {
		c.logger.Error().Err(err).
			Str("time_played", rec.TimePlayed).
			Msg("Failed to persist submission outcome")
		return rec.Type, false
	}

	return rec.Type, true
}

// classify maps an HTTP response status onto a delivery outcome. Rate
// limiting and server-side failures are worth retrying later; any other
// rejection means the payload itself is suspect and a retry would fail the
// same way.
func classify(statusCode int) queue.DeliveryType {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return queue.DeliverySuccess
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return queue.DeliveryDelay
	default:
		return queue.DeliveryWarning
	}
}

// drainQueue re-submits queued records one at a time, oldest first,
// stopping at the first attempt that does not succeed. At most one drain
// cycle runs at a time; concurrent triggers are coalesced.
func (c *Coordinator) drainQueue() {
	if !c.draining.CompareAndSwap(false, true) {
		return
	}
	defer c.draining.Store(false)

	for {
		rec, ok, err := c.store.GetQueued()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to read queued records")
			return
		}
		if !ok {
			return
		}

		rec.TimeSubmitted = c.now().Format(queue.TimeLayout)

		c.logger.Debug().
			Str("artist", rec.Artist).
			Str("title", rec.Title).
			Msg("Adoring queued track")

		typ, stored := c.submitOnce(rec)
		if typ != queue.DeliverySuccess || !stored {
			return
		}
	}
}

func (c *Coordinator) post(path string, payload any) (*http.Response, error) {
	errFactory := errors.New()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errFactory.Wrap(ErrEncodeFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, errFactory.Wrap(ErrTransportFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", playerName)
	req.Header.Set("Accept-Language", "en-us")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(ErrTransportFailed, err)
	}
	return resp, nil
}

// ConnectionProblems reports whether the most recent submission attempt
// failed at the transport level.
func (c *Coordinator) ConnectionProblems() bool {
	return c.connProblems.Load()
}

// Close waits for in-flight submissions to finish.
func (c *Coordinator) Close() error {
	c.wg.Wait()
	return nil
}

func drainBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
