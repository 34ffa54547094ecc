package downloader

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/pkg/fetcher"
)

// SyncManager defines the interface for managing synchronization state and checkpoints.
type SyncManager interface {
	// GetState returns the current synchronization state.
	GetState() (*SyncState, error)

	// SaveCheckpoint saves a checkpoint with the given block number, hash, and mode.
	SaveCheckpoint(blockNum uint64, blockHash common.Hash, mode fetcher.FetchMode) error

	// Reset rewinds the sync state so that the next fetch starts at nextBlock.
	Reset(nextBlock uint64) error

	// Close closes the sync manager and releases any resources.
	Close() error
}

// SyncState represents the current synchronization state.
// Uses meddler tags for automatic struct-to-db mapping.
type SyncState struct {
	ID                   int         `meddler:"id,pk" json:"-"`
	Started              bool        `meddler:"started" json:"started"`
	LastIndexedBlock     uint64      `meddler:"last_indexed_block" json:"last_indexed_block"`
	LastIndexedBlockHash common.Hash `meddler:"last_indexed_block_hash,hash" json:"last_indexed_block_hash"`
	LastIndexedTimestamp int64       `meddler:"last_indexed_timestamp" json:"last_indexed_timestamp"`
	Mode                 string      `meddler:"mode" json:"mode"`
}

// GetMode returns the Mode as a fetcher.FetchMode type.
func (s *SyncState) GetMode() fetcher.FetchMode {
	return fetcher.FetchMode(s.Mode)
}

// NextBlock returns the first block that has not been indexed yet,
// or startBlock when nothing was indexed.
func (s *SyncState) NextBlock(startBlock uint64) uint64 {
	if !s.Started {
		return startBlock
	}
	return s.LastIndexedBlock + 1
}
