package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// Indexer defines the interface that all indexers must implement.
// Each indexer is one shard: the logs it receives are handled strictly in chain order.
type Indexer interface {
	// Name returns the unique name of the indexer.
	Name() string

	// Type returns the registry type the indexer was created from.
	Type() string

	// EventsToIndex returns a map of contract addresses to their event topic hashes.
	// This is used by the coordinator to determine which logs should be sent to this indexer.
	// The inner map is a set of topic hashes for each address; an empty set means every topic.
	EventsToIndex() map[common.Address]map[common.Hash]struct{}

	// HandleLogs processes a batch of logs received from the downloader.
	// Logs are ordered by block number and log index; blockTimes holds the
	// timestamp of every block that has a log.
	HandleLogs(ctx context.Context, logs []types.Log, blockTimes BlockTimes) error

	// StartBlock returns the block number from which this indexer wants to start processing logs.
	// The downloader will use the minimum StartBlock across all registered indexers to determine
	// the earliest block to fetch. Each indexer will only receive logs from blocks >= its StartBlock.
	StartBlock() uint64

	// Close releases the resources held by the indexer.
	Close() error
}

// Queryable is implemented by indexers whose ledger can be read by the query API.
type Queryable interface {
	Indexer

	// Store returns the entity store the indexer writes to.
	Store() ledger.Store
}

// BlockTimes maps block numbers to block timestamps.
type BlockTimes map[uint64]uint64

// Get returns the timestamp of a block.
func (b BlockTimes) Get(block uint64) (uint64, bool) {
	t, ok := b[block]
	return t, ok
}
