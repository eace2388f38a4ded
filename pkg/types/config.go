package types

import "errors"

// Config holds the parameters for opening a local store.
type Config struct {
	DataDir       string `json:"data_dir" yaml:"data_dir"`             // Directory holding the database file.
	DBFile        string `json:"db_file" yaml:"db_file"`               // Database file name inside DataDir.
	MigrationsDir string `json:"migrations_dir" yaml:"migrations_dir"` // Optional on-disk migrations; embedded scripts when empty.
}

// DefaultDBFile is the database file name used when Config.DBFile is empty.
const DefaultDBFile = "cling.db"

// Config validation errors.
var (
	ErrDataDirEmpty = errors.New("data directory must not be empty")
	ErrDBFileName   = errors.New("database file must be a plain file name")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	for _, r := range c.DBFile {
		if r == '/' || r == '\\' {
			return ErrDBFileName
		}
	}
	return nil
}

// DBFileName returns the configured file name or DefaultDBFile.
func (c Config) DBFileName() string {
	if c.DBFile == "" {
		return DefaultDBFile
	}
	return c.DBFile
}
