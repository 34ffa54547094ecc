package downloader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// fakeChain is an in-memory EthClient serving a fixed set of logs.
type fakeChain struct {
	mu        sync.Mutex
	head      uint64
	finalized uint64
	safe      uint64
	logs      []types.Log

	// maxRange makes GetLogs fail with a too-many-results error above this width
	maxRange uint64

	queries      []ethereum.FilterQuery
	headerBlocks []uint64
	closed       bool
}

// tooManyResults mimics the data error returned by public RPC providers.
type tooManyResults struct {
	from, to uint64
}

func (e tooManyResults) Error() string  { return "query returned more than 10000 results" }
func (e tooManyResults) ErrorCode() int { return -32005 }
func (e tooManyResults) ErrorData() any {
	return fmt.Sprintf("Query returned more than 10000 results. Try with this block range [0x%x, 0x%x].", e.from, e.to)
}

var _ rpc.DataError = tooManyResults{}

func (f *fakeChain) header(num uint64) *types.Header {
	return &types.Header{
		Number:     new(big.Int).SetUint64(num),
		Time:       1_000 + num,
		Difficulty: big.NewInt(0),
	}
}

func (f *fakeChain) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeChain) GetLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, q)

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	if f.maxRange > 0 && to-from+1 > f.maxRange {
		return nil, tooManyResults{from: from, to: from + f.maxRange - 1}
	}

	wanted := make(map[common.Address]struct{}, len(q.Addresses))
	for _, a := range q.Addresses {
		wanted[a] = struct{}{}
	}

	var out []types.Log
	// served newest first to check the fetcher sorts them
	for i := len(f.logs) - 1; i >= 0; i-- {
		l := f.logs[i]
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if _, ok := wanted[l.Address]; !ok {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeChain) GetBlockHeader(_ context.Context, blockNum uint64) (*types.Header, error) {
	return f.header(blockNum), nil
}

func (f *fakeChain) GetLatestBlockHeader(context.Context) (*types.Header, error) {
	return f.header(f.head), nil
}

func (f *fakeChain) GetFinalizedBlockHeader(context.Context) (*types.Header, error) {
	return f.header(f.finalized), nil
}

func (f *fakeChain) GetSafeBlockHeader(context.Context) (*types.Header, error) {
	return f.header(f.safe), nil
}

func (f *fakeChain) BatchGetBlockHeaders(_ context.Context, blockNums []uint64) ([]*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	headers := make([]*types.Header, 0, len(blockNums))
	for _, n := range blockNums {
		if n > f.head {
			return nil, errors.New("block not found")
		}
		f.headerBlocks = append(f.headerBlocks, n)
		headers = append(headers, f.header(n))
	}
	return headers, nil
}
