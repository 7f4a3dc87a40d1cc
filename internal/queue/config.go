package queue

import (
	"os"
	"path/filepath"

	"codeberg.org/thomiel/adored/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBName  = "queue.sqlite"
	defaultDirName = "adored"
)

type Config struct {
	DBPath string
}

// DefaultConfig places the queue database in the per-user configuration
// directory. Falls back to the working directory when the home directory
// cannot be determined.
func DefaultConfig() Config {
	base, err := os.UserConfigDir()
	if err != nil {
		return Config{DBPath: defaultDBName}
	}
	return Config{DBPath: filepath.Join(base, defaultDirName, defaultDBName)}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
