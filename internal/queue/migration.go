package queue

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/thomiel/adored/internal/errors"
	"codeberg.org/thomiel/adored/internal/logger"
)

func backupDatabase(db *sql.DB, dbPath string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  backupDir,
			Error: err.Error(),
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("queue_v%d_%s.sqlite", version, timestamp))

	// VACUUM INTO requires no active transaction
	_, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath))
	if err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Queue database backup created")

	return backupPath, nil
}

// ValidateSchema checks the stored schema version against the one this
// release writes. It returns readOnly=true when the file was written by a
// newer major version: the file is left untouched so the newer release can
// keep using it, and this process only reads.
//
// An older major version is backed up, dropped and recreated. A minor
// difference within the same major version is compatible and updated in
// place.
func ValidateSchema(db *sql.DB, dbPath string, log logger.Logger) (readOnly bool, err error) {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to get schema version")
		return false, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	log.Debug().
		Int("version", version).
		Bool("init_db", version == 0).
		Msg("Current queue schema version")

	switch {
	case version == 0:
		return false, InitSchema(db, log)
	case majorVersion(version) > majorVersion(SchemaVersion):
		log.Warn().
			Int("file_version", version).
			Int("code_version", SchemaVersion).
			Msg("Queue database written by a newer release; opening read-only")
		return true, nil
	case majorVersion(version) < majorVersion(SchemaVersion):
		backupPath, err := backupDatabase(db, dbPath, version, log)
		if err != nil {
			return false, errFactory.WithData(ErrSchemaMigrationFailed, struct {
				Phase string
				Error string
				Path  string
			}{
				Phase: "backup",
				Error: err.Error(),
				Path:  backupPath,
			})
		}
		if err := dropTables(db, log); err != nil {
			return false, err
		}
		return false, InitSchema(db, log)
	case version != SchemaVersion:
		// Same major, different minor: bump the stored version.
		return false, InitSchema(db, log)
	}

	log.Debug().
		Int("version", version).
		Msg("Queue schema version is current")
	return false, nil
}

func dropTables(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback drop tables")
				}
			}
		}
	}()

	tables := []string{"log", "config"}
	for _, table := range tables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errFactory.WithData(ErrSchemaMigrationFailed, struct {
				Phase string
				Table string
				Error string
			}{
				Phase: "drop_table",
				Table: table,
				Error: err.Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "commit_changes",
			Error: err.Error(),
		})
	}
	committed = true

	return nil
}
