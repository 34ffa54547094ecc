package downloader

import (
	"cmp"
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	irpc "github.com/goran-ethernal/GovIndexor/internal/rpc"
	itypes "github.com/goran-ethernal/GovIndexor/internal/types"
	"github.com/goran-ethernal/GovIndexor/pkg/fetcher"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"github.com/goran-ethernal/GovIndexor/pkg/rpc"
)

// Compile-time check to ensure LogFetcher implements fetcher.LogFetcher interface.
var _ fetcher.LogFetcher = (*LogFetcher)(nil)

// LogFetcherConfig contains configuration for the LogFetcher.
type LogFetcherConfig struct {
	// ChunkSize is the number of blocks to fetch per request
	ChunkSize uint64

	// Finality specifies the finality mode
	Finality itypes.BlockFinality

	// FinalizedLag is blocks behind head to consider final (only for "latest" mode)
	FinalizedLag uint64

	// PollInterval is how long live mode waits for a new final block
	PollInterval time.Duration

	// Addresses are the contract addresses to filter
	Addresses []ethcommon.Address

	// Topics are the event topic filters, one set per address
	Topics [][]ethcommon.Hash

	// AddressStartBlocks maps each address to its minimum start block
	AddressStartBlocks map[ethcommon.Address]uint64
}

// LogFetcher fetches logs and block timestamps up to the final head.
type LogFetcher struct {
	cfg  LogFetcherConfig
	rpc  rpc.EthClient
	log  *logger.Logger
	mode fetcher.FetchMode
}

// NewLogFetcher creates a new LogFetcher instance.
func NewLogFetcher(cfg LogFetcherConfig, log *logger.Logger, rpcClient rpc.EthClient) *LogFetcher {
	return &LogFetcher{
		cfg:  cfg,
		rpc:  rpcClient,
		log:  log,
		mode: fetcher.ModeBackfill,
	}
}

// SetMode changes the fetcher's operating mode.
func (lf *LogFetcher) SetMode(mode fetcher.FetchMode) {
	if lf.mode != mode {
		lf.log.Infof("switching fetch mode from %v to %v", lf.mode, mode)
	}
	lf.mode = mode
}

// GetMode returns the current operating mode.
func (lf *LogFetcher) GetMode() fetcher.FetchMode {
	return lf.mode
}

// FetchRange fetches logs and block timestamps for a specific block range.
func (lf *LogFetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*fetcher.FetchResult, error) {
	lf.log.Debugf("fetching range from %d to %d in mode %v", fromBlock, toBlock, lf.mode)

	// Only addresses that reached their start block take part in the filter
	activeAddresses := make([]ethcommon.Address, 0, len(lf.cfg.Addresses))
	activeTopics := make([]ethcommon.Hash, 0)
	seenTopics := make(map[ethcommon.Hash]struct{})
	allTopics := false

	for i, addr := range lf.cfg.Addresses {
		startBlock, exists := lf.cfg.AddressStartBlocks[addr]
		if exists && toBlock < startBlock {
			continue
		}
		activeAddresses = append(activeAddresses, addr)
		if len(lf.cfg.Topics[i]) == 0 {
			allTopics = true
		}
		for _, topic := range lf.cfg.Topics[i] {
			if _, ok := seenTopics[topic]; !ok {
				seenTopics[topic] = struct{}{}
				activeTopics = append(activeTopics, topic)
			}
		}
	}

	var (
		logs           []types.Log
		newFrom, newTo = fromBlock, toBlock
		err            error
	)

	if len(activeAddresses) > 0 {
		// eth_getLogs matches position 0 against any of the topics; routing by
		// address and topic happens in the coordinator
		var topics [][]ethcommon.Hash
		if !allTopics && len(activeTopics) > 0 {
			topics = [][]ethcommon.Hash{activeTopics}
		}

		logs, newFrom, newTo, err = lf.fetchLogsWithRetry(ctx, fromBlock, toBlock, activeAddresses, topics)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs: %w", err)
		}
	} else {
		lf.log.Debugf("skipped log fetch from %d to %d, no active addresses yet", fromBlock, toBlock)
	}

	slices.SortStableFunc(logs, func(a, b types.Log) int {
		return cmp.Or(cmp.Compare(a.BlockNumber, b.BlockNumber), cmp.Compare(a.Index, b.Index))
	})

	blockTimes, toHash, err := lf.blockTimes(ctx, logs, newTo)
	if err != nil {
		return nil, err
	}

	lf.log.Infof("fetched range from %d to %d with %d logs", newFrom, newTo, len(logs))

	return &fetcher.FetchResult{
		Logs:        logs,
		BlockTimes:  blockTimes,
		ToBlockHash: toHash,
		FromBlock:   newFrom,
		ToBlock:     newTo,
	}, nil
}

// blockTimes fetches the headers of every block holding a log, plus toBlock.
func (lf *LogFetcher) blockTimes(
	ctx context.Context,
	logs []types.Log,
	toBlock uint64,
) (indexer.BlockTimes, ethcommon.Hash, error) {
	blockNums := make([]uint64, 0, len(logs)+1)
	for _, l := range logs {
		if len(blockNums) == 0 || blockNums[len(blockNums)-1] != l.BlockNumber {
			blockNums = append(blockNums, l.BlockNumber)
		}
	}
	if len(blockNums) == 0 || blockNums[len(blockNums)-1] != toBlock {
		blockNums = append(blockNums, toBlock)
	}

	headers, err := lf.rpc.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return nil, ethcommon.Hash{}, fmt.Errorf("failed to fetch headers: %w", err)
	}
	if len(headers) != len(blockNums) {
		return nil, ethcommon.Hash{}, fmt.Errorf("expected %d headers, got %d", len(blockNums), len(headers))
	}

	times := make(indexer.BlockTimes, len(headers))
	for i, h := range headers {
		times[blockNums[i]] = h.Time
	}

	return times, headers[len(headers)-1].Hash(), nil
}

// FetchNext fetches the next chunk starting at nextBlock based on the current mode.
func (lf *LogFetcher) FetchNext(ctx context.Context, nextBlock uint64) (*fetcher.FetchResult, error) {
	switch lf.mode {
	case fetcher.ModeBackfill:
		return lf.fetchBackfill(ctx, nextBlock)
	case fetcher.ModeLive:
		return lf.fetchLive(ctx, nextBlock)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", lf.mode)
	}
}

// fetchBackfill fetches historical blocks in chunks.
func (lf *LogFetcher) fetchBackfill(ctx context.Context, nextBlock uint64) (*fetcher.FetchResult, error) {
	finalized, err := lf.getFinalizedBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalized block: %w", err)
	}

	if nextBlock > finalized {
		lf.log.Info("backfill complete, switching to live mode")
		lf.SetMode(fetcher.ModeLive)
		return lf.fetchLive(ctx, nextBlock)
	}

	toBlock := min(nextBlock+lf.cfg.ChunkSize-1, finalized)
	return lf.FetchRange(ctx, nextBlock, toBlock)
}

// fetchLive tails new blocks as they become final.
func (lf *LogFetcher) fetchLive(ctx context.Context, nextBlock uint64) (*fetcher.FetchResult, error) {
	for {
		finalized, err := lf.getFinalizedBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get finalized block: %w", err)
		}

		if nextBlock <= finalized {
			// Chunk even in live mode to avoid huge fetches after falling behind
			toBlock := min(nextBlock+lf.cfg.ChunkSize-1, finalized)
			return lf.FetchRange(ctx, nextBlock, toBlock)
		}

		lf.log.Debugf("waiting for new blocks, next: %d, finalized: %d", nextBlock, finalized)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lf.cfg.PollInterval):
		}
	}
}

// getFinalizedBlock returns the number of the newest block considered final.
func (lf *LogFetcher) getFinalizedBlock(ctx context.Context) (uint64, error) {
	var (
		header *types.Header
		err    error
	)

	switch lf.cfg.Finality {
	case itypes.FinalityFinalized:
		header, err = lf.rpc.GetFinalizedBlockHeader(ctx)
	case itypes.FinalitySafe:
		header, err = lf.rpc.GetSafeBlockHeader(ctx)
	case itypes.FinalityLatest:
		header, err = lf.rpc.GetLatestBlockHeader(ctx)
		if err != nil {
			return 0, err
		}
		head := header.Number.Uint64()
		if head < lf.cfg.FinalizedLag {
			return 0, nil
		}
		return head - lf.cfg.FinalizedLag, nil
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", lf.cfg.Finality)
	}

	if err != nil {
		return 0, err
	}

	return header.Number.Uint64(), nil
}

// fetchLogsWithRetry fetches logs and retries with a smaller range if the node reports too many results.
// It returns the range that was actually covered.
func (lf *LogFetcher) fetchLogsWithRetry(
	ctx context.Context,
	fromBlock, toBlock uint64,
	addresses []ethcommon.Address,
	topics [][]ethcommon.Hash,
) ([]types.Log, uint64, uint64, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
		Topics:    topics,
	}

	logs, err := lf.rpc.GetLogs(ctx, query)
	if err == nil {
		return logs, fromBlock, toBlock, nil
	}

	hint, ok := irpc.LogRangeHint(err)
	if !ok {
		return nil, 0, 0, err
	}

	newTo := toBlock
	if hint.Suggested && hint.From == fromBlock && hint.To < toBlock {
		newTo = hint.To
	} else {
		if fromBlock == toBlock {
			return nil, 0, 0, fmt.Errorf("cannot split range further, single block %d has too many logs", fromBlock)
		}
		newTo = fromBlock + (toBlock-fromBlock)/2 //nolint:mnd
	}

	lf.log.Infof("too many logs, retrying with block range from %d to %d (original range %d to %d)",
		fromBlock, newTo, fromBlock, toBlock)

	return lf.fetchLogsWithRetry(ctx, fromBlock, newTo, addresses, topics)
}
