package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"golang.org/x/sync/errgroup"
)

// IndexerCoordinator routes logs to indexers by address and topic.
// Indexers are independent shards and handle their batches concurrently.
type IndexerCoordinator struct {
	mu  sync.RWMutex
	log *logger.Logger

	// addressTopics maps address -> topic -> indexers for specific topic filters
	addressTopics map[common.Address]map[common.Hash][]indexer.Indexer

	// addressAllTopics maps address -> indexers that want ALL topics from that address
	addressAllTopics map[common.Address][]indexer.Indexer

	// indexers holds all registered indexers in registration order
	indexers []indexer.Indexer

	// startBlocks maps each indexer to its start block
	startBlocks map[indexer.Indexer]uint64
}

// NewIndexerCoordinator creates a new IndexerCoordinator.
func NewIndexerCoordinator(log *logger.Logger) *IndexerCoordinator {
	return &IndexerCoordinator{
		log:              log.WithComponent(icommon.ComponentCoordinator),
		indexers:         make([]indexer.Indexer, 0),
		addressTopics:    make(map[common.Address]map[common.Hash][]indexer.Indexer),
		addressAllTopics: make(map[common.Address][]indexer.Indexer),
		startBlocks:      make(map[indexer.Indexer]uint64),
	}
}

// RegisterIndexer registers a new indexer.
func (ic *IndexerCoordinator) RegisterIndexer(idx indexer.Indexer) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.startBlocks[idx] = idx.StartBlock()

	for addr, topics := range idx.EventsToIndex() {
		if len(topics) == 0 {
			// Empty topic set means indexer wants ALL events from this address
			ic.addressAllTopics[addr] = append(ic.addressAllTopics[addr], idx)
			continue
		}

		if _, exists := ic.addressTopics[addr]; !exists {
			ic.addressTopics[addr] = make(map[common.Hash][]indexer.Indexer)
		}
		for topic := range topics {
			ic.addressTopics[addr][topic] = append(ic.addressTopics[addr][topic], idx)
		}
	}

	ic.indexers = append(ic.indexers, idx)

	ic.log.Infow("indexer registered", "indexer", idx.Name(), "start_block", idx.StartBlock())
}

// route groups logs per interested indexer, dropping logs below the indexer's start block.
// The order of logs is preserved within every group.
func (ic *IndexerCoordinator) route(logs []types.Log) map[indexer.Indexer][]types.Log {
	indexerLogs := make(map[indexer.Indexer][]types.Log)

	for _, log := range logs {
		interested := make(map[indexer.Indexer]struct{})
		for _, idx := range ic.addressAllTopics[log.Address] {
			interested[idx] = struct{}{}
		}

		if len(log.Topics) > 0 {
			// first topic is the event signature
			for _, idx := range ic.addressTopics[log.Address][log.Topics[0]] {
				interested[idx] = struct{}{}
			}
		}

		for idx := range interested {
			if log.BlockNumber >= ic.startBlocks[idx] {
				indexerLogs[idx] = append(indexerLogs[idx], log)
			}
		}
	}

	return indexerLogs
}

// HandleLogs routes a batch covering blocks [from, to] to the interested indexers.
// Every indexer receives its logs in chain order; different indexers run concurrently
// and the first failure cancels the others.
func (ic *IndexerCoordinator) HandleLogs(
	ctx context.Context,
	logs []types.Log,
	blockTimes indexer.BlockTimes,
	from, to uint64,
) error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	indexerLogs := ic.route(logs)

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range ic.indexers {
		relevant := indexerLogs[idx]
		if to < ic.startBlocks[idx] {
			continue
		}

		g.Go(func() error {
			start := time.Now()
			name := idx.Name()

			if len(relevant) > 0 {
				if err := idx.HandleLogs(gctx, relevant, blockTimes); err != nil {
					return fmt.Errorf("indexer %s failed to handle logs: %w", name, err)
				}
			}

			metrics.BlockProcessingTimeLog(name, time.Since(start))
			logMetrics(name, len(relevant), start, max(from, ic.startBlocks[idx]), to)

			return nil
		})
	}

	return g.Wait()
}

// IndexerStartBlocks returns a slice of start blocks for all registered indexers.
func (ic *IndexerCoordinator) IndexerStartBlocks() []uint64 {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	startBlocks := make([]uint64, 0, len(ic.indexers))
	for _, idx := range ic.indexers {
		startBlocks = append(startBlocks, ic.startBlocks[idx])
	}
	return startBlocks
}

// ListAll returns the registered indexers in registration order.
func (ic *IndexerCoordinator) ListAll() []indexer.Indexer {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	return append([]indexer.Indexer(nil), ic.indexers...)
}

// GetByName returns the registered indexer with the given name, or nil.
func (ic *IndexerCoordinator) GetByName(name string) indexer.Indexer {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	for _, idx := range ic.indexers {
		if idx.Name() == name {
			return idx
		}
	}
	return nil
}

// logMetrics records metrics for the indexing operation.
func logMetrics(indexer string, numOfLogsIndexed int, processingStart time.Time, fromBlock, toBlock uint64) {
	blocksProcessed := toBlock - fromBlock + 1
	metrics.LogsIndexedInc(indexer, numOfLogsIndexed)
	metrics.BlocksProcessedInc(indexer, blocksProcessed)
	metrics.LastIndexedBlockInc(indexer, toBlock)

	elapsed := time.Since(processingStart).Seconds()
	if elapsed == 0 {
		elapsed = 1 // prevent division by zero
	}

	metrics.IndexingRateLog(indexer, float64(blocksProcessed)/elapsed)
}
