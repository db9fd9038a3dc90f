package kv

import (
	"fmt"

	"github.com/newthinker/pairdash/internal/core"
)

// Config selects and configures a backend.
type Config struct {
	Type string // "memory", "localfs", "s3" or "sqlite"
	Path string // localfs base directory
	DSN  string // sqlite database path
	S3   S3Config
}

// Open builds the Store named by cfg.Type.
func Open(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "localfs":
		if cfg.Path == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("localfs path required"))
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	case "sqlite":
		if cfg.DSN == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("sqlite dsn required"))
		}
		return NewSQLite(cfg.DSN)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type: %s", cfg.Type))
	}
}
