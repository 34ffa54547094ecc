package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// applyTransfer moves value between holders. Mints skip the debit. Burns credit
// the zero-address holder so the sum of all balances stays equal to the minted supply.
func (e *Engine) applyTransfer(s *step, ev *ledger.Transfer) error {
	value := orZero(ev.Value)

	if ev.From != (common.Address{}) {
		from, err := s.holderOrNew(ev.From)
		if err != nil {
			return err
		}

		prev := from.TokenBalanceRaw
		next := new(big.Int).Sub(prev, value)
		from.SetTokenBalance(next, s.decimals)
		s.gov.CurrentTokenHolders += crossing(prev, next)

		if next.Sign() < 0 {
			s.fault(ledger.FaultNegativeBalance,
				"transfer of {value} from {holder} exceeds its balance of {balance}",
				map[string]any{
					"holder":  from.ID,
					"value":   value.String(),
					"balance": prev.String(),
					"result":  next.String(),
				})
		}
	}

	to, err := s.holderOrNew(ev.To)
	if err != nil {
		return err
	}

	prev := to.TokenBalanceRaw
	next := new(big.Int).Add(prev, value)
	to.SetTokenBalance(next, s.decimals)
	to.SetTotalTokensHeld(new(big.Int).Add(to.TotalTokensHeldRaw, value), s.decimals)
	s.gov.CurrentTokenHolders += crossing(prev, next)

	return nil
}
