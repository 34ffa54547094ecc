package fetcher

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
)

// LogFetcher defines the interface for fetching logs and block timestamps from the chain.
type LogFetcher interface {
	// SetMode changes the fetcher's operating mode.
	SetMode(mode FetchMode)

	// GetMode returns the current operating mode.
	GetMode() FetchMode

	// FetchRange fetches logs and block timestamps for a specific block range.
	FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*FetchResult, error)

	// FetchNext fetches the next chunk starting at nextBlock based on the current mode.
	// For backfill mode, it fetches up to chunk_size blocks below the final head.
	// For live mode, it waits until nextBlock is final.
	FetchNext(ctx context.Context, nextBlock uint64) (*FetchResult, error)
}

// FetchMode represents the operating mode of the log fetcher.
type FetchMode string

const (
	// ModeBackfill fetches historical blocks in chunks
	ModeBackfill FetchMode = "backfill"
	// ModeLive tails new blocks as they become final
	ModeLive FetchMode = "live"
)

// String returns the string representation of the mode.
func (m FetchMode) String() string {
	return string(m)
}

// FetchResult contains the results of a log fetch operation.
// The range may be narrower than requested when the node rejects a large query.
type FetchResult struct {
	// Logs are ordered by block number and log index
	Logs []types.Log

	// BlockTimes holds the timestamp of every block that has a log, plus ToBlock
	BlockTimes indexer.BlockTimes

	// ToBlockHash is the hash of ToBlock, used for the sync checkpoint
	ToBlockHash common.Hash

	FromBlock uint64
	ToBlock   uint64
}
