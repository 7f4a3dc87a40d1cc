package delivery_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"codeberg.org/thomiel/adored/internal/delivery"
	"codeberg.org/thomiel/adored/internal/logger"
	"codeberg.org/thomiel/adored/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	fprint     string
	has        bool
	startCalls int
}

func (p *fakeProber) StartProbing()                   { p.startCalls++ }
func (p *fakeProber) LastFingerprint() (string, bool) { return p.fprint, p.has }
func (p *fakeProber) ResetLastFingerprint()           { p.has = false }
func (p *fakeProber) AlgorithmName() string           { return "echoprint" }
func (p *fakeProber) AlgorithmVersion() string        { return "4.12" }

// countingHandler records requests per path and serves a fixed status.
type countingHandler struct {
	mu     sync.Mutex
	status func(n int) int
	paths  []string
	bodies [][]byte
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.paths = append(h.paths, r.URL.Path)
	n := len(h.bodies)
	h.bodies = append(h.bodies, body)
	h.mu.Unlock()
	w.WriteHeader(h.status(n))
}

func (h *countingHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, p := range h.paths {
		if p == path {
			n++
		}
	}
	return n
}

func alwaysStatus(code int) func(int) int {
	return func(int) int { return code }
}

func newTestStore(t *testing.T) queue.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "queue.sqlite")
	store, err := queue.NewStore(queue.Config{DBPath: dbPath}, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestCoordinator(t *testing.T, serverURL string, store queue.Store, prober delivery.Prober) *delivery.Coordinator {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := delivery.Config{
		ClientUUID: "11111111-2222-3333-4444-555555555555",
		BaseURL:    u.Scheme + "://" + u.Hostname(),
		Port:       port,
		Timeout:    5 * time.Second,
	}
	coord, err := delivery.NewCoordinator(cfg, store, prober, logger.Default())
	require.NoError(t, err)
	return coord
}

func queuedRecord(timePlayed string) *queue.Record {
	return &queue.Record{
		TimePlayed:              timePlayed,
		Artist:                  "Queued Artist",
		Title:                   "Queued Title",
		FingerprintingAlgorithm: "echoprint",
		FingerprintingVersion:   "4.12",
		Fingerprint:             "cXVldWVk",
		Status:                  "connection refused",
		Type:                    queue.DeliveryError,
	}
}

func TestSubmitClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantType   queue.DeliveryType
	}{
		{"accepted", http.StatusOK, queue.DeliverySuccess},
		{"created", http.StatusCreated, queue.DeliverySuccess},
		{"rate_limited", http.StatusTooManyRequests, queue.DeliveryDelay},
		{"server_error", http.StatusServiceUnavailable, queue.DeliveryDelay},
		{"rejected", http.StatusTeapot, queue.DeliveryWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &countingHandler{status: alwaysStatus(tt.statusCode)}
			ts := httptest.NewServer(handler)
			defer ts.Close()

			store := newTestStore(t)
			coord := newTestCoordinator(t, ts.URL, store, &fakeProber{})

			rec := queuedRecord("2026-08-30 12:00:00")
			rec.TimeSubmitted = "2026-08-30 12:00:00"
			coord.Submit(rec)
			require.NoError(t, coord.Close())

			assert.Equal(t, tt.wantType, rec.Type)
			assert.NotEmpty(t, rec.TimeSubmitted)

			_, ok, err := store.GetQueued()
			require.NoError(t, err)
			assert.Equal(t, tt.wantType != queue.DeliverySuccess, ok,
				"only a delivered record leaves the queue")
		})
	}
}

func TestSubmitTransportErrorClearsTimeSubmitted(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	serverURL := ts.URL
	ts.Close()

	store := newTestStore(t)
	coord := newTestCoordinator(t, serverURL, store, &fakeProber{})

	rec := queuedRecord("2026-08-30 12:00:00")
	rec.TimeSubmitted = "2026-08-30 12:00:00"
	coord.Submit(rec)

	assert.Equal(t, queue.DeliveryError, rec.Type)
	assert.Empty(t, rec.TimeSubmitted, "a failed attempt must not look submitted")
	assert.NotEqual(t, "OK", rec.Status)
	assert.True(t, coord.ConnectionProblems())

	got, ok, err := store.GetQueued()
	require.NoError(t, err)
	require.True(t, ok, "the failed record stays queued")
	assert.Equal(t, rec.TimePlayed, got.TimePlayed)
	assert.Empty(t, got.TimeSubmitted)
}

func TestSubmitSuccessDrainsQueue(t *testing.T) {
	handler := &countingHandler{status: alwaysStatus(http.StatusOK)}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	require.NoError(t, store.Add(queuedRecord("2026-08-30 11:00:00")))
	require.NoError(t, store.Add(queuedRecord("2026-08-30 11:05:00")))

	coord := newTestCoordinator(t, ts.URL, store, &fakeProber{})

	rec := queuedRecord("2026-08-30 12:00:00")
	coord.Submit(rec)
	require.NoError(t, coord.Close())

	// One live submission plus the two drained records.
	assert.Equal(t, 3, handler.count("/v1/util_imp"))

	_, ok, err := store.GetQueued()
	require.NoError(t, err)
	assert.False(t, ok, "queue is empty after the drain")
	assert.False(t, coord.ConnectionProblems())
}

func TestDrainStopsOnFailure(t *testing.T) {
	// First request (the live one) succeeds, everything after fails.
	handler := &countingHandler{status: func(n int) int {
		if n == 0 {
			return http.StatusOK
		}
		return http.StatusServiceUnavailable
	}}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	require.NoError(t, store.Add(queuedRecord("2026-08-30 11:00:00")))
	require.NoError(t, store.Add(queuedRecord("2026-08-30 11:05:00")))

	coord := newTestCoordinator(t, ts.URL, store, &fakeProber{})

	coord.Submit(queuedRecord("2026-08-30 12:00:00"))
	require.NoError(t, coord.Close())

	// Live submission plus exactly one drain attempt; the failure stops
	// the loop before the second queued record.
	assert.Equal(t, 2, handler.count("/v1/util_imp"))

	_, ok, err := store.GetQueued()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistrationHappensOnce(t *testing.T) {
	handler := &countingHandler{status: alwaysStatus(http.StatusOK)}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	coord := newTestCoordinator(t, ts.URL, store, &fakeProber{})

	coord.Submit(queuedRecord("2026-08-30 12:00:00"))
	coord.Submit(queuedRecord("2026-08-30 12:05:00"))
	require.NoError(t, coord.Close())

	assert.Equal(t, 1, handler.count("/v1/register"))
}

func TestNoRegistrationWithoutSuccess(t *testing.T) {
	handler := &countingHandler{status: alwaysStatus(http.StatusServiceUnavailable)}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	coord := newTestCoordinator(t, ts.URL, store, &fakeProber{})

	coord.Submit(queuedRecord("2026-08-30 12:00:00"))
	require.NoError(t, coord.Close())

	assert.Equal(t, 0, handler.count("/v1/register"))
}

func TestNowPlayingSubmitsCompletedFingerprint(t *testing.T) {
	handler := &countingHandler{status: alwaysStatus(http.StatusOK)}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	prober := &fakeProber{fprint: "ZmluZ2VycHJpbnQ=", has: true}
	coord := newTestCoordinator(t, ts.URL, store, prober)

	coord.NowPlaying(delivery.Track{
		Artist:      "Test Artist",
		Title:       "Test Title",
		Release:     "Test Release",
		TrackNumber: 7,
		Duration:    240,
	})
	require.NoError(t, coord.Close())

	assert.Equal(t, 1, prober.startCalls, "probing restarts for the new track")
	assert.False(t, prober.has, "the fingerprint is consumed")

	require.Equal(t, 1, handler.count("/v1/util_imp"))

	var payload map[string]string
	handler.mu.Lock()
	body := handler.bodies[0]
	handler.mu.Unlock()
	require.NoError(t, json.Unmarshal(body, &payload))

	assert.Equal(t, "11111111-2222-3333-4444-555555555555", payload["client_uuid"])
	assert.Equal(t, "Test Artist", payload["artist"])
	assert.Equal(t, "Test Release", payload["release"])
	assert.Equal(t, "7", payload["track_number"])
	assert.Equal(t, "240", payload["duration"])
	assert.Equal(t, "echoprint", payload["fingerprinting_algorithm"])
	assert.Equal(t, "4.12", payload["fingerprinting_version"])
	assert.Equal(t, "ZmluZ2VycHJpbnQ=", payload["fingerprint"])
	assert.NotEmpty(t, payload["time_played"])
	assert.Equal(t, payload["time_played"], payload["time_submitted"])
}

func TestNowPlayingWithoutFingerprintOnlyStartsProbing(t *testing.T) {
	handler := &countingHandler{status: alwaysStatus(http.StatusOK)}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	store := newTestStore(t)
	prober := &fakeProber{}
	coord := newTestCoordinator(t, ts.URL, store, prober)

	coord.NowPlaying(delivery.Track{Artist: "A", Title: "B"})
	require.NoError(t, coord.Close())

	assert.Equal(t, 1, prober.startCalls)
	assert.Equal(t, 0, handler.count("/v1/util_imp"))
}

func TestNewCoordinatorInvalidConfig(t *testing.T) {
	_, err := delivery.NewCoordinator(delivery.Config{}, newTestStore(t), &fakeProber{}, logger.Default())
	assert.Error(t, err)
}
