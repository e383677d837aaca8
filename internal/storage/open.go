package storage

import (
	"fmt"
	"os"
)

// Engine names accepted by Open.
const (
	EngineBadger  = "badger"
	EngineBolt    = "bolt"
	EngineLevelDB = "leveldb"
	EngineMemory  = "memory"
)

// Open opens the named engine rooted at path. The memory engine ignores path.
func Open(engine, path string) (DB, error) {
	if engine != EngineMemory {
		if err := os.MkdirAll(path, 0700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	switch engine {
	case EngineBadger:
		return NewBadger(path)
	case EngineBolt:
		return NewBolt(path)
	case EngineLevelDB:
		return NewLevelDB(path)
	case EngineMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", engine)
	}
}
