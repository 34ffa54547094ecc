package ledger

import (
	"math/big"

	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// applyPoolDelta forwards a signed staking amount to the reward accountant.
func (e *Engine) applyPoolDelta(s *step, ev ledger.PoolEvent, delta *big.Int) error {
	if e.rewards == nil {
		e.log.Debugf("no reward accountant configured, ignoring staking event at block %d", ev.BlockNumber)
		return nil
	}

	return e.rewards.ApplyPoolDelta(s.ctx, s.repo, s, ev.EventContext, ev.User, orZero(ev.PoolID), delta)
}
