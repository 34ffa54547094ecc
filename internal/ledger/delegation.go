package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

func (e *Engine) applyDelegateChanged(s *step, ev *ledger.DelegateChanged) error {
	holder, err := s.holderOrNew(ev.Delegator)
	if err != nil {
		return err
	}

	var recorded, claimed string
	if holder.Delegate != nil {
		recorded = *holder.Delegate
	}
	if ev.FromDelegate != (common.Address{}) {
		claimed = ledger.AccountID(ev.FromDelegate)
	}
	if recorded != claimed {
		s.fault(ledger.FaultDelegateMismatch,
			"holder {holder} was delegating to {recorded} but the event moves it away from {claimed}",
			map[string]any{"holder": holder.ID, "recorded": recorded, "claimed": claimed})
	}

	if ev.ToDelegate == (common.Address{}) {
		holder.Delegate = nil
	} else {
		id := ledger.AccountID(ev.ToDelegate)
		holder.Delegate = &id
	}

	if ev.FromDelegate != (common.Address{}) {
		prev, err := s.delegateOrNew(ev.FromDelegate)
		if err != nil {
			return err
		}

		prev.TokenHoldersRepresentedAmount--
		if prev.TokenHoldersRepresentedAmount < 0 {
			s.fault(ledger.FaultNegativeRepresented,
				"delegate {delegate} represents {amount} token holders",
				map[string]any{"delegate": prev.ID, "amount": prev.TokenHoldersRepresentedAmount})
		}
	}

	if ev.ToDelegate != (common.Address{}) {
		next, err := s.delegateOrNew(ev.ToDelegate)
		if err != nil {
			return err
		}
		next.TokenHoldersRepresentedAmount++
	}

	return nil
}

func (e *Engine) applyDelegateVotesChanged(s *step, ev *ledger.DelegateVotesChanged) error {
	d, err := s.delegateOrNew(ev.Delegate)
	if err != nil {
		return err
	}

	previous := orZero(ev.PreviousBalance)
	next := orZero(ev.NewBalance)
	current := d.DelegatedVotesRaw

	if current.Cmp(previous) != 0 {
		s.fault(ledger.FaultDelegatedVotesMismatch,
			"delegate {delegate} had {current} votes but the event reports {previous}",
			map[string]any{"delegate": d.ID, "current": current.String(), "previous": previous.String()})
	}

	d.SetDelegatedVotes(next, s.decimals)
	s.gov.CurrentDelegates += crossing(current, next)

	delta := new(big.Int).Sub(next, previous)
	s.gov.SetDelegatedVotes(new(big.Int).Add(orZero(s.gov.DelegatedVotesRaw), delta), s.decimals)

	return nil
}
