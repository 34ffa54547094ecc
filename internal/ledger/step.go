package ledger

import (
	"context"
	"fmt"
	"maps"
	"math"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// step is the working set of one event: the repository of its transaction,
// the governance aggregate, and the holders and delegates it touched.
// Touched entities are cached so an event that names the same address twice
// mutates a single record.
type step struct {
	ctx      context.Context
	repo     ledger.Repository
	gov      *ledger.Governance
	ev       ledger.EventContext
	decimals int32

	holders   map[string]*ledger.TokenHolder
	delegates map[string]*ledger.Delegate
	faults    []ledger.Fault
}

func newStep(ctx context.Context, repo ledger.Repository, gov *ledger.Governance,
	ev ledger.EventContext, decimals int32) *step {
	return &step{
		ctx:       ctx,
		repo:      repo,
		gov:       gov,
		ev:        ev,
		decimals:  decimals,
		holders:   make(map[string]*ledger.TokenHolder),
		delegates: make(map[string]*ledger.Delegate),
	}
}

// Report records a fault raised by a collaborator during this event.
func (s *step) Report(f ledger.Fault) {
	if f.Event == (ledger.EventContext{}) {
		f.Event = s.ev
	}
	s.faults = append(s.faults, f)
}

func (s *step) fault(kind ledger.FaultKind, msg string, fields map[string]any) {
	s.Report(ledger.Fault{Kind: kind, Message: msg, Event: s.ev, Fields: fields})
}

// holderOrNew returns the holder for addr, materializing a zero-valued one
// when the store has none.
func (s *step) holderOrNew(addr common.Address) (*ledger.TokenHolder, error) {
	id := ledger.AccountID(addr)
	if h, ok := s.holders[id]; ok {
		return h, nil
	}

	h, found, err := s.repo.TokenHolder(s.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load token holder %s: %w", id, err)
	}
	if !found {
		h = ledger.NewTokenHolder(id)
		s.gov.TotalTokenHolders++
	}
	if h.TokenBalanceRaw == nil {
		h.SetTokenBalance(new(big.Int), s.decimals)
	}
	if h.TotalTokensHeldRaw == nil {
		h.SetTotalTokensHeld(new(big.Int), s.decimals)
	}

	s.holders[id] = h
	return h, nil
}

// delegate looks a delegate up without materializing it.
func (s *step) delegate(id string) (*ledger.Delegate, bool, error) {
	if d, ok := s.delegates[id]; ok {
		return d, true, nil
	}

	d, found, err := s.repo.Delegate(s.ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load delegate %s: %w", id, err)
	}
	return d, found, nil
}

// delegateOrNew returns the delegate for addr, materializing a zero-valued one
// when the store has none.
func (s *step) delegateOrNew(addr common.Address) (*ledger.Delegate, error) {
	id := ledger.AccountID(addr)
	d, found, err := s.delegate(id)
	if err != nil {
		return nil, err
	}
	if !found {
		d = ledger.NewDelegate(id)
		s.gov.TotalDelegates++
	}
	if d.DelegatedVotesRaw == nil {
		d.SetDelegatedVotes(new(big.Int), s.decimals)
	}

	s.delegates[id] = d
	return d, nil
}

// putDelegate replaces the cached delegate record.
func (s *step) putDelegate(d *ledger.Delegate) {
	s.delegates[d.ID] = d
}

// flush saves every touched holder and delegate in id order.
func (s *step) flush() error {
	for _, id := range slices.Sorted(maps.Keys(s.holders)) {
		if err := s.repo.SaveTokenHolder(s.ctx, s.holders[id]); err != nil {
			return fmt.Errorf("failed to save token holder %s: %w", id, err)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(s.delegates)) {
		if err := s.repo.SaveDelegate(s.ctx, s.delegates[id]); err != nil {
			return fmt.Errorf("failed to save delegate %s: %w", id, err)
		}
	}
	return nil
}

// crossing returns +1 when a value moves from non-positive to positive,
// -1 for the opposite move, and 0 otherwise.
func crossing(prev, next *big.Int) int64 {
	wasPositive := prev.Sign() > 0
	isPositive := next.Sign() > 0

	switch {
	case !wasPositive && isPositive:
		return 1
	case wasPositive && !isPositive:
		return -1
	default:
		return 0
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func neg(v *big.Int) *big.Int {
	return new(big.Int).Neg(orZero(v))
}

// toUint64 converts a block number, saturating at the largest value SQLite can store.
func toUint64(v *big.Int) uint64 {
	if v == nil || v.Sign() < 0 {
		return 0
	}
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Uint64()
}
