package queue

// DeliveryType classifies the outcome of a submission attempt as recorded
// alongside the impression.
type DeliveryType int

const (
	DeliveryUnknown DeliveryType = iota
	// DeliveryDelay means the service asked us to back off (rate limited
	// or temporarily unavailable); the record stays queued.
	DeliveryDelay
	// DeliverySuccess means the service accepted the record.
	DeliverySuccess
	// DeliveryWarning means the service rejected the record; it stays
	// queued for manual inspection but still blocks nothing.
	DeliveryWarning
	// DeliveryError means the record never reached the service.
	DeliveryError
)

// TimeLayout is the timestamp format used both in the database and on the
// wire.
const TimeLayout = "2006-01-02 15:04:05"

// Record is one played-track impression awaiting or past delivery.
// TimePlayed uniquely identifies the record: a client cannot play two
// tracks at the same second.
type Record struct {
	TimePlayed              string
	TimeSubmitted           string
	Artist                  string
	Title                   string
	Release                 string
	TrackNumber             int
	Duration                int
	FingerprintingAlgorithm string
	FingerprintingVersion   string
	Fingerprint             string
	Status                  string
	Type                    DeliveryType
}

// Store persists impression records across restarts so that failed
// submissions can be retried later.
type Store interface {
	// Add inserts the record, or replaces the existing record with the
	// same TimePlayed. A read-only store rejects the write.
	Add(rec *Record) error
	// GetQueued returns the oldest record not yet delivered successfully,
	// or false when the queue holds no such record.
	GetQueued() (*Record, bool, error)
	IsReadOnly() bool
	Close() error
}
