package rewards

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// Compile-time check to ensure Accountant implements ledger.RewardAccountant.
var _ ledger.RewardAccountant = (*Accountant)(nil)

// Accountant keeps staked totals per pool and per user position.
type Accountant struct {
	log *logger.Logger
}

// NewAccountant creates a new Accountant.
func NewAccountant(log *logger.Logger) *Accountant {
	return &Accountant{log: log.WithComponent(internalcommon.ComponentRewards)}
}

// ApplyPoolDelta adds delta (negative for withdrawals) to the user's position
// and to the pool total. A position dropping below zero is reported and kept.
func (a *Accountant) ApplyPoolDelta(ctx context.Context, repo ledger.Repository, report ledger.FaultReporter,
	ev ledger.EventContext, user common.Address, poolID, delta *big.Int) error {
	pid := poolID.String()

	pool, found, err := repo.Pool(ctx, pid)
	if err != nil {
		return fmt.Errorf("failed to load pool %s: %w", pid, err)
	}
	if !found {
		pool = ledger.NewPool(pid)
	}

	positionID := ledger.PoolPositionID(pid, user)
	position, found, err := repo.PoolPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to load pool position %s: %w", positionID, err)
	}
	if !found {
		position = ledger.NewPoolPosition(pid, user)
	}

	before := position.Amount
	position.Amount = new(big.Int).Add(before, delta)
	position.LastBlock = ev.BlockNumber
	if delta.Sign() >= 0 {
		position.Deposits++
	} else {
		position.Withdrawals++
	}

	switch {
	case before.Sign() <= 0 && position.Amount.Sign() > 0:
		pool.Positions++
	case before.Sign() > 0 && position.Amount.Sign() <= 0:
		pool.Positions--
	}
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, delta)

	if position.Amount.Sign() < 0 {
		report.Report(ledger.Fault{
			Kind:    ledger.FaultNegativePosition,
			Message: "withdrawal of {amount} from pool {pool} exceeds the stake of {user}",
			Event:   ev,
			Fields: map[string]any{
				"pool":   pid,
				"user":   position.User,
				"amount": new(big.Int).Neg(delta).String(),
				"result": position.Amount.String(),
			},
		})
	}

	a.log.Debugf("pool %s position %s: %s -> %s", pid, position.User, before, position.Amount)

	if err := repo.SavePoolPosition(ctx, position); err != nil {
		return fmt.Errorf("failed to save pool position %s: %w", positionID, err)
	}
	if err := repo.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("failed to save pool %s: %w", pid, err)
	}

	return nil
}
