package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Klingon-tech/stockchain/config"
	"github.com/Klingon-tech/stockchain/internal/chain"
	"github.com/Klingon-tech/stockchain/internal/storage"
	"github.com/rs/zerolog"
)

// Key namespaces inside the node database.
var (
	ledgerPrefix = []byte("ledger/")
	metaPrefix   = []byte("meta/")

	difficultyKey = []byte("difficulty")
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// openStore opens the configured chain store. db is nil for the file
// engine, which keeps no metadata.
func openStore(cfg *config.Config) (chain.Store, storage.DB, error) {
	if cfg.Storage.Engine == config.EngineFile {
		return chain.NewFileStore(expandHome(cfg.ChainFile())), nil, nil
	}
	db, err := storage.Open(cfg.Storage.Engine, expandHome(cfg.ChainDir()))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database at %s: %w", cfg.Storage.Engine, cfg.ChainDir(), err)
	}
	return chain.NewBlockStore(storage.NewPrefixDB(db, ledgerPrefix)), db, nil
}

// checkDifficulty records the difficulty a database was first mined at and
// warns when the node is started with a different one.
func checkDifficulty(meta storage.DB, difficulty int, logger zerolog.Logger) error {
	raw, err := meta.Get(difficultyKey)
	if errors.Is(err, storage.ErrNotFound) {
		return meta.Put(difficultyKey, []byte(strconv.Itoa(difficulty)))
	}
	if err != nil {
		return err
	}
	stored, err := strconv.Atoi(string(raw))
	if err != nil {
		return fmt.Errorf("corrupt difficulty record %q", raw)
	}
	if stored != difficulty {
		logger.Warn().
			Int("stored", stored).
			Int("configured", difficulty).
			Msg("Difficulty differs from the one this ledger was created with; stored blocks may fail validation")
	}
	return nil
}
