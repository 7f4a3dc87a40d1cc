package queue

import (
	"database/sql"
	"strconv"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
)

const (
	// SchemaVersion encodes major*100+minor. A minor bump is compatible
	// both ways; a major bump means older releases must not write to the
	// file.
	SchemaVersion = 101

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS config (
	       cfgkey    TEXT PRIMARY KEY,
	       cfgvalue  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS log (
	       time_played              TEXT PRIMARY KEY,
	       time_submitted           TEXT NOT NULL DEFAULT '',
	       artist                   TEXT NOT NULL DEFAULT '',
	       title                    TEXT NOT NULL DEFAULT '',
	       "release"                TEXT NOT NULL DEFAULT '',
	       track_number             INTEGER NOT NULL DEFAULT 0,
	       duration                 INTEGER NOT NULL DEFAULT 0,
	       fingerprinting_algorithm TEXT NOT NULL DEFAULT '',
	       fingerprinting_version   TEXT NOT NULL DEFAULT '',
	       fingerprint              TEXT NOT NULL DEFAULT '',
	       status                   TEXT NOT NULL DEFAULT '',
	       type                     INTEGER NOT NULL DEFAULT 0
	   );`

	upsertRecordSQL = `
    INSERT INTO log (
        time_played, time_submitted,
        artist, title, "release", track_number, duration,
        fingerprinting_algorithm, fingerprinting_version, fingerprint,
        status, type
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(time_played) DO UPDATE SET
        time_submitted           = excluded.time_submitted,
        artist                   = excluded.artist,
        title                    = excluded.title,
        "release"                = excluded."release",
        track_number             = excluded.track_number,
        duration                 = excluded.duration,
        fingerprinting_algorithm = excluded.fingerprinting_algorithm,
        fingerprinting_version   = excluded.fingerprinting_version,
        fingerprint              = excluded.fingerprint,
        status                   = excluded.status,
        type                     = excluded.type`

	selectQueuedSQL = `
    SELECT time_played, time_submitted,
           artist, title, "release", track_number, duration,
           fingerprinting_algorithm, fingerprinting_version, fingerprint,
           status, type
    FROM log
    WHERE type <> ?
    ORDER BY time_played
    LIMIT 1`
)

// majorVersion strips the compatibility-irrelevant minor part.
func majorVersion(v int) int {
	return v / 100
}

// InitSchema creates the tables and records the current schema version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating queue database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO config (cfgkey, cfgvalue) VALUES ('version', ?)
        ON CONFLICT(cfgkey) DO UPDATE SET cfgvalue = excluded.cfgvalue
    `, strconv.Itoa(SchemaVersion)); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Queue schema initialized")

	return nil
}

// GetSchemaVersion returns the schema version stored in the database, or 0
// for a fresh database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "config")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var raw string
	err = db.QueryRow(`
        SELECT cfgvalue FROM config WHERE cfgkey = 'version'
    `).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Value string
		}{
			Phase: "parse_version",
			Value: raw,
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
