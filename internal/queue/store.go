package queue

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type sqliteStore struct {
	db       *sql.DB
	logger   logger.Logger
	cfg      Config
	mu       sync.Mutex
	readOnly bool
}

func NewStore(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	// Open database with specific pragmas for better performance and safety
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	readOnly, err := ValidateSchema(db, cfg.DBPath, log)
	if err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Bool("read_only", readOnly).
		Msg("Queue store initialized")

	return &sqliteStore{
		db:       db,
		logger:   log,
		cfg:      cfg,
		readOnly: readOnly,
	}, nil
}

// Add upserts the record keyed by TimePlayed. Resubmitting an impression
// after a retry therefore updates its delivery state instead of creating a
// duplicate. A read-only store rejects the write: an old release must not
// touch a file written by a newer one.
func (s *sqliteStore) Add(rec *Record) error {
	errFactory := errors.New()

	if rec == nil || rec.TimePlayed == "" {
		return errFactory.New(ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return errFactory.WithData(ErrStorageReadOnly, struct {
			TimePlayed string
		}{
			TimePlayed: rec.TimePlayed,
		})
	}

	if _, err := s.db.Exec(upsertRecordSQL,
		rec.TimePlayed,
		rec.TimeSubmitted,
		rec.Artist,
		rec.Title,
		rec.Release,
		rec.TrackNumber,
		rec.Duration,
		rec.FingerprintingAlgorithm,
		rec.FingerprintingVersion,
		rec.Fingerprint,
		rec.Status,
		int(rec.Type),
	); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

// GetQueued returns the oldest record whose last attempt did not succeed.
func (s *sqliteStore) GetQueued() (*Record, bool, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	var rec Record
	var recType int
	err := s.db.QueryRow(selectQueuedSQL, int(DeliverySuccess)).Scan(
		&rec.TimePlayed,
		&rec.TimeSubmitted,
		&rec.Artist,
		&rec.Title,
		&rec.Release,
		&rec.TrackNumber,
		&rec.Duration,
		&rec.FingerprintingAlgorithm,
		&rec.FingerprintingVersion,
		&rec.Fingerprint,
		&rec.Status,
		&recType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errFactory.Wrap(ErrStorageAccess, err)
	}
	rec.Type = DeliveryType(recType)

	return &rec, true, nil
}

func (s *sqliteStore) IsReadOnly() bool {
	return s.readOnly
}

func (s *sqliteStore) Close() error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	if !s.readOnly {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return errFactory.WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
		}
	}

	if err := s.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.logger.Debug().Msg("Queue store closed")

	return nil
}
