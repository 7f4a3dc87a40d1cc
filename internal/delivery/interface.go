package delivery

// Track carries the playback metadata reported alongside a fingerprint.
type Track struct {
	Artist      string
	Title       string
	Release     string
	TrackNumber int
	Duration    int
}

// Prober is the fingerprint source the coordinator drives. A call to
// NowPlaying consumes the fingerprint of the previous track (if one
// completed) and starts probing the new one.
type Prober interface {
	StartProbing()
	LastFingerprint() (string, bool)
	ResetLastFingerprint()
	AlgorithmName() string
	AlgorithmVersion() string
}
