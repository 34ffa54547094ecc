package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// Options tune how the engine derives state.
type Options struct {
	// Name labels metrics and logs; it is the shard (indexer) name.
	Name string

	// Decimals scales raw token amounts into derived decimal fields.
	Decimals int32

	// StrictLifecycle skips proposal transitions the governor lifecycle does
	// not allow instead of applying them.
	StrictLifecycle bool

	// ResetVoterOnVote recreates the voter's Delegate record on every vote,
	// discarding its other fields.
	ResetVoterOnVote bool
}

// DefaultOptions returns permissive options with 18 decimals.
func DefaultOptions(name string) Options {
	return Options{Name: name, Decimals: ledger.DefaultDecimals}
}

// Engine applies decoded events to a ledger store.
// One engine serves one shard; Apply must not be called concurrently for the same store.
type Engine struct {
	log     *logger.Logger
	opts    Options
	faults  ledger.FaultReporter
	rewards ledger.RewardAccountant
}

// NewEngine creates an engine. A nil faults reporter discards faults and a nil
// rewards accountant ignores staking events.
func NewEngine(log *logger.Logger, opts Options,
	faults ledger.FaultReporter, rewards ledger.RewardAccountant) *Engine {
	if faults == nil {
		faults = ledger.FaultReporterFunc(func(ledger.Fault) {})
	}

	return &Engine{
		log:     log.WithComponent(common.ComponentLedger),
		opts:    opts,
		faults:  faults,
		rewards: rewards,
	}
}

// Apply applies one event inside a single store transaction.
// Events at or before the stored cursor were applied already and are skipped;
// the returned bool reports whether ev changed the ledger.
func (e *Engine) Apply(ctx context.Context, store ledger.Store, ev ledger.Event) (bool, error) {
	start := time.Now()
	evCtx := ev.Context()

	var (
		s       *step
		applied bool
		stored  ledger.Cursor
	)

	err := store.Atomic(ctx, func(repo ledger.Repository) error {
		applied = false

		cursor, found, err := repo.Cursor(ctx)
		if err != nil {
			return fmt.Errorf("failed to load applied cursor: %w", err)
		}
		if found && !cursor.Before(evCtx.Cursor()) {
			stored = cursor
			return nil
		}

		gov, found, err := repo.Governance(ctx)
		if err != nil {
			return fmt.Errorf("failed to load governance: %w", err)
		}
		if !found {
			gov = ledger.NewGovernance()
		}

		s = newStep(ctx, repo, gov, evCtx, e.opts.Decimals)

		if err := e.dispatch(s, ev); err != nil {
			return err
		}

		if err := s.flush(); err != nil {
			return err
		}
		if err := repo.SaveGovernance(ctx, gov); err != nil {
			return fmt.Errorf("failed to save governance: %w", err)
		}
		if err := repo.SaveCursor(ctx, evCtx.Cursor()); err != nil {
			return fmt.Errorf("failed to save applied cursor: %w", err)
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply %s at block %d log %d: %w",
			ev.Kind(), evCtx.BlockNumber, evCtx.LogIndex, err)
	}

	if !applied {
		metrics.EventSkippedInc(e.opts.Name)
		if evCtx.Cursor().Before(stored) {
			e.log.Warnw("skipping event behind the applied cursor",
				"indexer", e.opts.Name, "kind", string(ev.Kind()),
				"block", evCtx.BlockNumber, "log_index", evCtx.LogIndex,
				"cursor_block", stored.Block, "cursor_log_index", stored.LogIndex)
		} else {
			e.log.Debugf("skipping %s at block %d log %d: already applied", ev.Kind(), evCtx.BlockNumber, evCtx.LogIndex)
		}
		return false, nil
	}

	for _, f := range s.faults {
		e.faults.Report(f)
	}

	metrics.EventAppliedInc(e.opts.Name, string(ev.Kind()))
	metrics.TransitionDuration(e.opts.Name, string(ev.Kind()), time.Since(start))

	return true, nil
}

// ApplyAll applies events in order and returns how many changed the ledger.
// Context cancellation is observed between events only.
func (e *Engine) ApplyAll(ctx context.Context, store ledger.Store, events []ledger.Event) (int, error) {
	applied := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		ok, err := e.Apply(ctx, store, ev)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

func (e *Engine) dispatch(s *step, ev ledger.Event) error {
	switch ev := ev.(type) {
	case *ledger.Transfer:
		return e.applyTransfer(s, ev)
	case *ledger.DelegateChanged:
		return e.applyDelegateChanged(s, ev)
	case *ledger.DelegateVotesChanged:
		return e.applyDelegateVotesChanged(s, ev)
	case *ledger.ProposalCreated:
		return e.applyProposalCreated(s, ev)
	case *ledger.ProposalCanceled:
		return e.applyProposalCanceled(s, ev)
	case *ledger.ProposalQueued:
		return e.applyProposalQueued(s, ev)
	case *ledger.ProposalExecuted:
		return e.applyProposalExecuted(s, ev)
	case *ledger.QuorumNumeratorUpdated:
		return e.applyQuorumNumeratorUpdated(s, ev)
	case *ledger.VoteCast:
		return e.applyVoteCast(s, ev)
	case *ledger.Deposit:
		return e.applyPoolDelta(s, ev.PoolEvent, orZero(ev.Amount))
	case *ledger.Withdraw:
		return e.applyPoolDelta(s, ev.PoolEvent, neg(ev.Amount))
	case *ledger.EmergencyWithdraw:
		return e.applyPoolDelta(s, ev.PoolEvent, neg(ev.Amount))
	default:
		return fmt.Errorf("no transition for event %T", ev)
	}
}
