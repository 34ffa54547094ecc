package downloader

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/fetcher"
	"github.com/stretchr/testify/require"
)

func newTestSyncManager(t *testing.T) *SyncManager {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "downloader.db")}
	cfg.ApplyDefaults()

	sm, err := NewSyncManager(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })

	return sm
}

func TestSyncManager(t *testing.T) {
	sm := newTestSyncManager(t)

	state, err := sm.GetState()
	require.NoError(t, err)
	require.False(t, state.Started)
	require.Equal(t, fetcher.ModeBackfill, state.GetMode())
	require.Equal(t, uint64(500), state.NextBlock(500))

	hash := common.HexToHash("0xabcdef")
	require.NoError(t, sm.SaveCheckpoint(1000, hash, fetcher.ModeLive))

	state, err = sm.GetState()
	require.NoError(t, err)
	require.True(t, state.Started)
	require.Equal(t, uint64(1000), state.LastIndexedBlock)
	require.Equal(t, hash, state.LastIndexedBlockHash)
	require.Equal(t, fetcher.ModeLive, state.GetMode())
	require.NotZero(t, state.LastIndexedTimestamp)
	require.Equal(t, uint64(1001), state.NextBlock(500))
}

func TestSyncManager_Reset(t *testing.T) {
	sm := newTestSyncManager(t)

	require.NoError(t, sm.SaveCheckpoint(1000, common.HexToHash("0x01"), fetcher.ModeLive))

	require.NoError(t, sm.Reset(200))
	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(200), state.NextBlock(0))
	require.Equal(t, fetcher.ModeBackfill, state.GetMode())
	require.Equal(t, common.Hash{}, state.LastIndexedBlockHash)

	// resetting to genesis forgets all progress
	require.NoError(t, sm.Reset(0))
	state, err = sm.GetState()
	require.NoError(t, err)
	require.False(t, state.Started)
	require.Equal(t, uint64(7), state.NextBlock(7))
}

func TestSyncManager_SurvivesReopen(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "downloader.db")}
	cfg.ApplyDefaults()

	sm, err := NewSyncManager(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sm.SaveCheckpoint(42, common.HexToHash("0x42"), fetcher.ModeBackfill))
	require.NoError(t, sm.Close())

	sm, err = NewSyncManager(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer sm.Close()

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(42), state.LastIndexedBlock)
}
