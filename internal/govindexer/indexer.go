// Package govindexer wires the log decoder, the ledger engine and the entity
// store into one indexer shard.
package govindexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	icommon "github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/decoder"
	iledger "github.com/goran-ethernal/GovIndexor/internal/ledger"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/internal/rewards"
	"github.com/goran-ethernal/GovIndexor/internal/store"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// Compile-time check to ensure Indexer implements indexer.Queryable interface.
var _ indexer.Queryable = (*Indexer)(nil)

func init() {
	indexer.Register(config.IndexerTypeGovernance, func(cfg config.IndexerConfig, log *logger.Logger) (indexer.Indexer, error) {
		return New(cfg, log)
	})
}

// Indexer applies the governance events of one DAO to its ledger store.
type Indexer struct {
	cfg     config.IndexerConfig
	log     *logger.Logger
	decoder *decoder.Decoder
	engine  *iledger.Engine
	store   ledger.Store
	events  map[common.Address]map[common.Hash]struct{}
}

// New opens the SQLite store configured for the indexer and creates the indexer.
func New(cfg config.IndexerConfig, log *logger.Logger) (*Indexer, error) {
	cfg.ApplyDefaults()

	st, err := store.NewSQLiteStore(cfg.DB, cfg.Name, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for indexer %s: %w", cfg.Name, err)
	}

	idx, err := NewWithStore(cfg, st, log)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}

	return idx, nil
}

// NewWithStore creates an indexer writing to st. The indexer owns st and closes it.
func NewWithStore(cfg config.IndexerConfig, st ledger.Store, log *logger.Logger) (*Indexer, error) {
	cfg.ApplyDefaults()

	dec, err := decoder.New()
	if err != nil {
		return nil, err
	}

	events := make(map[common.Address]map[common.Hash]struct{}, len(cfg.Contracts))
	for _, c := range cfg.Contracts {
		role := icommon.ToLowerWithTrim(c.Role)
		topics := dec.TopicsForRole(role)
		if len(topics) == 0 {
			return nil, fmt.Errorf("indexer %s: unknown contract role %q", cfg.Name, c.Role)
		}

		addr := common.HexToAddress(c.Address)
		if _, ok := events[addr]; !ok {
			events[addr] = make(map[common.Hash]struct{})
		}
		for _, topic := range topics {
			events[addr][topic] = struct{}{}
		}
	}

	return &Indexer{
		cfg:     cfg,
		log:     log.WithComponent(icommon.ComponentLedger),
		decoder: dec,
		engine:  NewEngine(cfg, log),
		store:   st,
		events:  events,
	}, nil
}

// NewEngine creates the ledger engine for cfg. Integrity faults are logged and
// counted under the indexer name.
func NewEngine(cfg config.IndexerConfig, log *logger.Logger) *iledger.Engine {
	cfg.ApplyDefaults()

	opts := iledger.Options{
		Name:             cfg.Name,
		Decimals:         int32(cfg.TokenDecimals),
		StrictLifecycle:  cfg.Lifecycle == config.LifecycleStrict,
		ResetVoterOnVote: cfg.ResetVoterOnVote,
	}

	log = log.WithComponent(icommon.ComponentLedger)

	return iledger.NewEngine(log, opts,
		iledger.NewLogReporter(log, cfg.Name, nil),
		rewards.NewAccountant(log))
}

// ApplyEvents applies already decoded events to the store in order and returns
// how many of them changed the ledger.
func (i *Indexer) ApplyEvents(ctx context.Context, events []ledger.Event) (int, error) {
	return i.engine.ApplyAll(ctx, i.store, events)
}

// Name returns the unique name of the indexer.
func (i *Indexer) Name() string {
	return i.cfg.Name
}

// Type returns the registry type of the indexer.
func (i *Indexer) Type() string {
	return config.IndexerTypeGovernance
}

// StartBlock returns the first block the indexer wants logs from.
func (i *Indexer) StartBlock() uint64 {
	return i.cfg.StartBlock
}

// EventsToIndex returns the topics of every configured contract role.
func (i *Indexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return i.events
}

// Store returns the ledger store of the indexer.
func (i *Indexer) Store() ledger.Store {
	return i.store
}

// HandleLogs decodes logs and applies them to the ledger one event at a time.
// Logs that cannot be decoded are logged, counted and skipped; a store failure
// aborts the batch.
func (i *Indexer) HandleLogs(ctx context.Context, logs []types.Log, blockTimes indexer.BlockTimes) error {
	applied := 0

	for _, log := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if log.Removed {
			i.log.Warnf("ignoring removed log at block %d index %d", log.BlockNumber, log.Index)
			continue
		}

		blockTime, ok := blockTimes.Get(log.BlockNumber)
		if !ok {
			i.log.Warnf("no timestamp for block %d, using 0", log.BlockNumber)
		}

		ev, err := i.decoder.Decode(log, blockTime)
		if err != nil {
			metrics.DecodeFailureInc(i.cfg.Name)
			i.log.Warnf("failed to decode log at block %d index %d tx %s: %v",
				log.BlockNumber, log.Index, log.TxHash.Hex(), err)
			continue
		}

		changed, err := i.engine.Apply(ctx, i.store, ev)
		if err != nil {
			return err
		}
		if changed {
			applied++
		}
	}

	i.log.Debugf("indexer %s applied %d of %d logs", i.cfg.Name, applied, len(logs))

	return nil
}

// Close closes the ledger store.
func (i *Indexer) Close() error {
	return i.store.Close()
}
