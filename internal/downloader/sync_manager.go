package downloader

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/db"
	"github.com/goran-ethernal/GovIndexor/internal/downloader/migrations"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	pkgdownloader "github.com/goran-ethernal/GovIndexor/pkg/downloader"
	"github.com/goran-ethernal/GovIndexor/pkg/fetcher"
	"github.com/russross/meddler"
)

// Compile-time check to ensure SyncManager implements pkgdownloader.SyncManager interface.
var _ pkgdownloader.SyncManager = (*SyncManager)(nil)

const syncStateTable = "sync_state"

// SyncManager keeps the downloader checkpoint in its own SQLite database.
type SyncManager struct {
	db  *sql.DB
	log *logger.Logger
}

// SyncState is a type alias for the public SyncState type.
type SyncState = pkgdownloader.SyncState

// NewSyncManager migrates and opens the checkpoint database described by cfg.
func NewSyncManager(cfg config.DatabaseConfig, log *logger.Logger) (*SyncManager, error) {
	if err := migrations.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run downloader migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open downloader database: %w", err)
	}

	return NewSyncManagerFromDB(database, log), nil
}

// NewSyncManagerFromDB wraps an already migrated database.
func NewSyncManagerFromDB(database *sql.DB, log *logger.Logger) *SyncManager {
	sm := &SyncManager{
		db:  database,
		log: log.WithComponent(icommon.ComponentSyncManager),
	}

	sm.log.Info("sync manager initialized")

	return sm
}

// GetState returns the current synchronization state.
func (sm *SyncManager) GetState() (*SyncState, error) {
	start := time.Now()
	defer func() { metrics.DBQueryDuration("downloader", "select", time.Since(start)) }()
	metrics.DBQueryInc("downloader", "select")

	var state SyncState
	if err := meddler.QueryRow(sm.db, &state, `SELECT * FROM sync_state WHERE id = 1`); err != nil {
		metrics.DBErrorsInc("downloader", "select")
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	sm.log.Debugf("retrieved sync state: started=%t, last_block=%d, last_block_hash=%s, mode=%s",
		state.Started,
		state.LastIndexedBlock,
		state.LastIndexedBlockHash.Hex(),
		state.Mode,
	)

	return &state, nil
}

// SaveCheckpoint saves a checkpoint with the given block number, hash, and mode.
func (sm *SyncManager) SaveCheckpoint(blockNum uint64, blockHash common.Hash, mode fetcher.FetchMode) error {
	state := SyncState{
		ID:                   1,
		Started:              true,
		LastIndexedBlock:     blockNum,
		LastIndexedBlockHash: blockHash,
		LastIndexedTimestamp: time.Now().Unix(),
		Mode:                 string(mode),
	}

	if err := sm.update(&state); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	sm.log.Debugf("saved checkpoint: block=%d, block_hash=%s, mode=%s",
		blockNum,
		blockHash.Hex(),
		mode,
	)

	return nil
}

// Reset rewinds the sync state so that the next fetch starts at nextBlock.
func (sm *SyncManager) Reset(nextBlock uint64) error {
	state := SyncState{
		ID:                   1,
		LastIndexedTimestamp: time.Now().Unix(),
		Mode:                 string(fetcher.ModeBackfill),
	}
	if nextBlock > 0 {
		state.Started = true
		state.LastIndexedBlock = nextBlock - 1
	}

	if err := sm.update(&state); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}

	sm.log.Warnf("sync state reset: next_block=%d, mode=%s", nextBlock, fetcher.ModeBackfill)

	return nil
}

func (sm *SyncManager) update(state *SyncState) error {
	start := time.Now()
	defer func() { metrics.DBQueryDuration("downloader", "update", time.Since(start)) }()
	metrics.DBQueryInc("downloader", "update")

	if err := meddler.Update(sm.db, syncStateTable, state); err != nil {
		metrics.DBErrorsInc("downloader", "update")
		return err
	}
	return nil
}

// Close closes the database connection.
func (sm *SyncManager) Close() error {
	return sm.db.Close()
}
