package history

import "codeberg.org/mutker/formctl/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm   = 0o755
	defaultDBPath    = "/var/lib/formctl/history.db"
	defaultBackupDir = "/var/lib/formctl/backups"
	defaultRetain    = 20
)

type Config struct {
	DBPath    string
	BackupDir string
	// Retain is the number of most recent sessions kept.
	Retain  int
	Enabled bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:    defaultDBPath,
		BackupDir: defaultBackupDir,
		Retain:    defaultRetain,
		Enabled:   true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate storage settings if history is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.Retain <= 0 {
		return errFactory.WithData(ErrInvalidRetention, c.Retain)
	}

	return nil
}
