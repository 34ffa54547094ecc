package downloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/indexer"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/internal/types"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	pkgdownloader "github.com/goran-ethernal/GovIndexor/pkg/downloader"
	"github.com/goran-ethernal/GovIndexor/pkg/fetcher"
	idx "github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"github.com/goran-ethernal/GovIndexor/pkg/rpc"
)

// Compile-time check to ensure Downloader implements pkgdownloader.Downloader interface.
var _ pkgdownloader.Downloader = (*Downloader)(nil)

// Downloader orchestrates the log downloading process.
// It coordinates LogFetcher, SyncManager, and IndexerCoordinator to stream
// final logs to registered indexers.
type Downloader struct {
	cfg         config.DownloaderConfig
	rpc         rpc.EthClient
	syncManager pkgdownloader.SyncManager
	log         *logger.Logger
	coordinator *indexer.IndexerCoordinator

	// Filter configuration built from registered indexers
	mu     sync.RWMutex
	topics map[common.Address]map[common.Hash]struct{}

	// Per-address start blocks (minimum across all indexers for that address)
	addressStartBlocks map[common.Address]uint64
}

// New creates a new Downloader instance.
func New(
	cfg config.DownloaderConfig,
	rpcClient rpc.EthClient,
	syncManager pkgdownloader.SyncManager,
	log *logger.Logger,
) (*Downloader, error) {
	if rpcClient == nil {
		return nil, errors.New("RPC client is required")
	}
	if syncManager == nil {
		return nil, errors.New("SyncManager is required")
	}
	if log == nil {
		return nil, errors.New("Logger is required")
	}

	d := &Downloader{
		cfg:                cfg,
		rpc:                rpcClient,
		syncManager:        syncManager,
		log:                log.WithComponent(icommon.ComponentDownloader),
		coordinator:        indexer.NewIndexerCoordinator(log),
		topics:             make(map[common.Address]map[common.Hash]struct{}),
		addressStartBlocks: make(map[common.Address]uint64),
	}

	d.log.Info("downloader initialized")

	return d, nil
}

// RegisterIndexer registers an indexer to receive logs.
// The downloader will use the indexer's EventsToIndex method to determine
// which logs to fetch and forward.
func (d *Downloader) RegisterIndexer(indexer idx.Indexer) {
	startBlock := indexer.StartBlock()

	d.mu.Lock()
	for addr, topicSet := range indexer.EventsToIndex() {
		if existing, exists := d.addressStartBlocks[addr]; !exists || startBlock < existing {
			d.addressStartBlocks[addr] = startBlock
		}

		known, exists := d.topics[addr]
		if !exists {
			known = make(map[common.Hash]struct{})
			d.topics[addr] = known
		}
		if len(topicSet) == 0 {
			// every topic of this address is wanted
			d.topics[addr] = make(map[common.Hash]struct{})
			continue
		}
		if exists && len(known) == 0 {
			continue
		}
		maps.Copy(known, topicSet)
	}
	totalAddresses := len(d.topics)
	d.mu.Unlock()

	d.coordinator.RegisterIndexer(indexer)

	d.log.Infow("indexer registered",
		"indexer", indexer.Name(),
		"start_block", startBlock,
		"total_addresses", totalAddresses,
	)
}

// filter returns the sorted addresses and their topic sets.
func (d *Downloader) filter() ([]common.Address, [][]common.Hash, map[common.Address]uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addresses := slices.SortedFunc(maps.Keys(d.topics), func(a, b common.Address) int {
		return a.Cmp(b)
	})

	topics := make([][]common.Hash, len(addresses))
	for i, addr := range addresses {
		topics[i] = slices.SortedFunc(maps.Keys(d.topics[addr]), func(a, b common.Hash) int {
			return a.Cmp(b)
		})
	}

	return addresses, topics, maps.Clone(d.addressStartBlocks)
}

func (d *Downloader) startBlock() uint64 {
	startBlocks := d.coordinator.IndexerStartBlocks()
	if len(startBlocks) == 0 {
		return 0
	}
	return slices.Min(startBlocks)
}

// Download starts the download process, streaming logs to registered indexers.
// It continues until the context is cancelled or an error occurs.
func (d *Downloader) Download(ctx context.Context) error {
	d.log.Info("starting download process")

	finality, err := types.ParseBlockFinality(d.cfg.Finality)
	if err != nil {
		return fmt.Errorf("invalid finality configuration: %w", err)
	}

	addresses, topics, addressStartBlocks := d.filter()
	if len(addresses) == 0 {
		return errors.New("no indexers registered")
	}

	logFetcher := NewLogFetcher(LogFetcherConfig{
		ChunkSize:          d.cfg.ChunkSize,
		Finality:           finality,
		FinalizedLag:       d.cfg.FinalizedLag,
		PollInterval:       d.cfg.PollInterval.Duration,
		Addresses:          addresses,
		Topics:             topics,
		AddressStartBlocks: addressStartBlocks,
	}, d.log.WithComponent(icommon.ComponentLogFetcher), d.rpc)

	state, err := d.syncManager.GetState()
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	nextBlock := state.NextBlock(d.startBlock())
	if state.Started {
		d.log.Infow("resuming download", "last_indexed_block", state.LastIndexedBlock, "mode", state.Mode)
	} else {
		d.log.Infow("starting fresh download", "start_block", nextBlock)
	}

	// Always start in backfill mode, it switches to live once caught up
	logFetcher.SetMode(fetcher.ModeBackfill)
	metrics.ComponentHealthSet(icommon.ComponentDownloader, true)
	defer metrics.ComponentHealthSet(icommon.ComponentDownloader, false)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("download cancelled")
			return ctx.Err()
		default:
		}

		result, err := logFetcher.FetchNext(ctx, nextBlock)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Errorw("failed to fetch logs", "error", err, "next_block", nextBlock)
			metrics.ErrorsInc(icommon.ComponentDownloader, "fetch")
			return fmt.Errorf("failed to fetch logs: %w", err)
		}

		if len(result.Logs) > 0 {
			d.log.Debugw("processing logs",
				"count", len(result.Logs),
				"from_block", result.FromBlock,
				"to_block", result.ToBlock,
			)
		}

		if err := d.coordinator.HandleLogs(ctx, result.Logs, result.BlockTimes,
			result.FromBlock, result.ToBlock); err != nil {
			metrics.ErrorsInc(icommon.ComponentDownloader, "handle_logs")
			return fmt.Errorf("failed to handle logs: %w", err)
		}

		if err := d.syncManager.SaveCheckpoint(result.ToBlock, result.ToBlockHash, logFetcher.GetMode()); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		nextBlock = result.ToBlock + 1

		d.log.Infow("checkpoint saved",
			"block", result.ToBlock,
			"block_hash", result.ToBlockHash.Hex(),
			"mode", logFetcher.GetMode(),
			"logs_processed", len(result.Logs),
		)
	}
}

// Coordinator returns the coordinator the registered indexers are kept in.
func (d *Downloader) Coordinator() *indexer.IndexerCoordinator {
	return d.coordinator
}

// Close closes the downloader, its checkpoint database and the RPC client.
// Registered indexers are owned and closed by the caller.
func (d *Downloader) Close() error {
	d.log.Info("closing downloader")

	var errs []error
	if d.syncManager != nil {
		if err := d.syncManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sync manager: %w", err))
		}
	}

	if d.rpc != nil {
		d.rpc.Close()
	}

	return errors.Join(errs...)
}
