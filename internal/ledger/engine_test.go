package ledger

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/rewards"
	"github.com/goran-ethernal/GovIndexor/internal/store"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	zeroAddr = common.Address{}
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	dave     = common.HexToAddress("0x0000000000000000000000000000000000000da3")
)

// harness applies events with increasing positions to a memory store.
type harness struct {
	t      *testing.T
	ctx    context.Context
	store  *store.MemoryStore
	engine *Engine
	faults *ledger.FaultCollector
	block  uint64
	index  uint
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	faults := &ledger.FaultCollector{}
	log := logger.NewNopLogger()
	return &harness{
		t:      t,
		ctx:    context.Background(),
		store:  store.NewMemoryStore(),
		engine: NewEngine(log, opts, faults, rewards.NewAccountant(log)),
		faults: faults,
		block:  100,
	}
}

// at returns the context of the next event in the current block.
func (h *harness) at() ledger.EventContext {
	h.index++
	return ledger.EventContext{
		BlockNumber: h.block,
		BlockTime:   1_700_000_000 + h.block*12,
		TxHash:      common.BigToHash(big.NewInt(int64(h.block*1000) + int64(h.index))),
		LogIndex:    h.index,
	}
}

// nextBlock moves the event position to block n.
func (h *harness) nextBlock(n uint64) {
	h.block = n
	h.index = 0
}

func (h *harness) apply(events ...ledger.Event) {
	h.t.Helper()
	for _, ev := range events {
		applied, err := h.engine.Apply(h.ctx, h.store, ev)
		require.NoError(h.t, err)
		require.True(h.t, applied)
	}
}

func (h *harness) transfer(from, to common.Address, value int64) *ledger.Transfer {
	return &ledger.Transfer{EventContext: h.at(), From: from, To: to, Value: big.NewInt(value)}
}

func (h *harness) holder(addr common.Address) *ledger.TokenHolder {
	h.t.Helper()
	th, found, err := h.store.TokenHolder(h.ctx, ledger.AccountID(addr))
	require.NoError(h.t, err)
	require.True(h.t, found, "holder %s not found", addr)
	return th
}

func (h *harness) delegate(addr common.Address) *ledger.Delegate {
	h.t.Helper()
	d, found, err := h.store.Delegate(h.ctx, ledger.AccountID(addr))
	require.NoError(h.t, err)
	require.True(h.t, found, "delegate %s not found", addr)
	return d
}

func (h *harness) proposal(id string) *ledger.Proposal {
	h.t.Helper()
	p, found, err := h.store.Proposal(h.ctx, id)
	require.NoError(h.t, err)
	require.True(h.t, found, "proposal %s not found", id)
	return p
}

func (h *harness) governance() *ledger.Governance {
	h.t.Helper()
	g, found, err := h.store.Governance(h.ctx)
	require.NoError(h.t, err)
	require.True(h.t, found)
	return g
}

func (h *harness) created(id int64, proposer common.Address, startBlock uint64) *ledger.ProposalCreated {
	return &ledger.ProposalCreated{
		EventContext: h.at(),
		ProposalID:   big.NewInt(id),
		Proposer:     proposer,
		Targets:      []common.Address{carol},
		Values:       []*big.Int{big.NewInt(0)},
		Signatures:   []string{"transfer(address,uint256)"},
		Calldatas:    []hexutil.Bytes{{0xca, 0xfe}},
		StartBlock:   new(big.Int).SetUint64(startBlock),
		EndBlock:     new(big.Int).SetUint64(startBlock + 100),
		Description:  "fund the grants program",
	}
}

func (h *harness) vote(voter common.Address, id int64, support uint8, weight int64) *ledger.VoteCast {
	return &ledger.VoteCast{
		EventContext: h.at(),
		Voter:        voter,
		ProposalID:   big.NewInt(id),
		Support:      support,
		Weight:       big.NewInt(weight),
		Reason:       "because",
	}
}

func TestTransfer_MintAndMove(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		h.transfer(zeroAddr, alice, 1000),
		h.transfer(alice, bob, 400),
	)

	a := h.holder(alice)
	require.Equal(t, "600", a.TokenBalanceRaw.String())
	require.Equal(t, "1000", a.TotalTokensHeldRaw.String())
	require.Equal(t, "0.0000000000000006", a.TokenBalance.String())

	b := h.holder(bob)
	require.Equal(t, "400", b.TokenBalanceRaw.String())
	require.Equal(t, "400", b.TotalTokensHeldRaw.String())

	_, found, err := h.store.TokenHolder(h.ctx, ledger.AccountID(zeroAddr))
	require.NoError(t, err)
	require.False(t, found, "the zero address must not materialize on mint")

	g := h.governance()
	require.Equal(t, int64(2), g.CurrentTokenHolders)
	require.Equal(t, int64(2), g.TotalTokenHolders)
	require.Empty(t, h.faults.Faults)
}

func TestTransfer_DerivedDecimalFollowsRaw(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	oneToken, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)

	h.apply(&ledger.Transfer{EventContext: h.at(), From: zeroAddr, To: alice, Value: oneToken})

	a := h.holder(alice)
	require.Equal(t, "1.5", a.TokenBalance.String())
	require.Equal(t, "1.5", a.TotalTokensHeld.String())
}

func TestTransfer_BurnCreditsZeroAddress(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		h.transfer(zeroAddr, alice, 100),
		h.transfer(alice, zeroAddr, 40),
	)

	require.Equal(t, "60", h.holder(alice).TokenBalanceRaw.String())

	burned := h.holder(zeroAddr)
	require.Equal(t, "40", burned.TokenBalanceRaw.String())
	require.Equal(t, "40", burned.TotalTokensHeldRaw.String())

	gov := h.governance()
	require.Equal(t, int64(2), gov.CurrentTokenHolders)
	require.Equal(t, int64(2), gov.TotalTokenHolders)
	require.Empty(t, h.faults.Faults)
}

func TestTransfer_SelfTransfer(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		h.transfer(zeroAddr, alice, 10),
		h.transfer(alice, alice, 10),
	)

	a := h.holder(alice)
	require.Equal(t, "10", a.TokenBalanceRaw.String())
	require.Equal(t, "20", a.TotalTokensHeldRaw.String())
	require.Equal(t, int64(1), h.governance().CurrentTokenHolders)
}

func TestTransfer_OverdraftRaisesFaultAndContinues(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		h.transfer(zeroAddr, alice, 100),
		h.transfer(alice, bob, 150),
	)

	require.Equal(t, "-50", h.holder(alice).TokenBalanceRaw.String())
	require.Equal(t, []ledger.FaultKind{ledger.FaultNegativeBalance}, h.faults.Kinds())

	f := h.faults.Faults[0]
	require.Equal(t, ledger.AccountID(alice), f.Fields["holder"])
	require.Equal(t, "-50", f.Fields["result"])
	require.Equal(t, "transfer of 150 from "+ledger.AccountID(alice)+" exceeds its balance of 100", f.Text())

	// processing continues
	h.apply(h.transfer(bob, carol, 20))
	require.Equal(t, "130", h.holder(bob).TokenBalanceRaw.String())
	require.Equal(t, "20", h.holder(carol).TokenBalanceRaw.String())

	// only bob and carol hold a positive balance
	require.Equal(t, int64(2), h.governance().CurrentTokenHolders)
}

func TestTransfer_SupplyConservedAndHolderCount(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))
	rng := rand.New(rand.NewSource(7)) //nolint:gosec

	accounts := []common.Address{alice, bob, carol, dave}
	balances := make(map[common.Address]int64)
	var minted int64

	for i := range 300 {
		if i%25 == 0 {
			h.nextBlock(h.block + 1)
		}

		to := accounts[rng.Intn(len(accounts))]
		if rng.Intn(4) == 0 {
			v := int64(rng.Intn(1000))
			minted += v
			balances[to] += v
			h.apply(h.transfer(zeroAddr, to, v))
			continue
		}

		from := accounts[rng.Intn(len(accounts))]
		if balances[from] == 0 {
			continue
		}
		if rng.Intn(6) == 0 {
			to = zeroAddr
		}
		v := rng.Int63n(balances[from] + 1)
		balances[from] -= v
		balances[to] += v
		h.apply(h.transfer(from, to, v))
	}

	var sum, positive int64
	for _, a := range append(accounts, zeroAddr) {
		th, found, err := h.store.TokenHolder(h.ctx, ledger.AccountID(a))
		require.NoError(t, err)
		if !found {
			continue
		}
		require.Equal(t, balances[a], th.TokenBalanceRaw.Int64())
		sum += th.TokenBalanceRaw.Int64()
		if th.TokenBalanceRaw.Sign() > 0 {
			positive++
		}
	}

	require.Equal(t, minted, sum)
	require.Equal(t, positive, h.governance().CurrentTokenHolders)
	require.Empty(t, h.faults.Faults)
}

func TestDelegateChanged(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		&ledger.DelegateChanged{EventContext: h.at(), Delegator: alice, FromDelegate: zeroAddr, ToDelegate: carol},
		&ledger.DelegateChanged{EventContext: h.at(), Delegator: bob, FromDelegate: zeroAddr, ToDelegate: carol},
		&ledger.DelegateChanged{EventContext: h.at(), Delegator: alice, FromDelegate: carol, ToDelegate: dave},
	)

	require.Equal(t, ledger.AccountID(dave), *h.holder(alice).Delegate)
	require.Equal(t, ledger.AccountID(carol), *h.holder(bob).Delegate)
	require.Equal(t, int64(1), h.delegate(carol).TokenHoldersRepresentedAmount)
	require.Equal(t, int64(1), h.delegate(dave).TokenHoldersRepresentedAmount)
	require.Equal(t, int64(2), h.governance().TotalDelegates)

	_, found, err := h.store.Delegate(h.ctx, ledger.AccountID(zeroAddr))
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, h.faults.Faults)

	h.apply(&ledger.DelegateChanged{EventContext: h.at(), Delegator: alice, FromDelegate: dave, ToDelegate: zeroAddr})
	require.Nil(t, h.holder(alice).Delegate)
	require.Equal(t, int64(0), h.delegate(dave).TokenHoldersRepresentedAmount)
}

func TestDelegateChanged_OutOfOrderIsReported(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	// the event that pointed alice at carol was never seen
	h.apply(&ledger.DelegateChanged{EventContext: h.at(), Delegator: alice, FromDelegate: carol, ToDelegate: dave})

	require.Equal(t, int64(-1), h.delegate(carol).TokenHoldersRepresentedAmount)
	require.ElementsMatch(t,
		[]ledger.FaultKind{ledger.FaultDelegateMismatch, ledger.FaultNegativeRepresented},
		h.faults.Kinds())
}

func TestDelegateVotesChanged_CurrentDelegates(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	changed := func(d common.Address, prev, next int64) *ledger.DelegateVotesChanged {
		return &ledger.DelegateVotesChanged{
			EventContext:    h.at(),
			Delegate:        d,
			PreviousBalance: big.NewInt(prev),
			NewBalance:      big.NewInt(next),
		}
	}

	h.apply(
		changed(carol, 0, 100),
		changed(dave, 0, 50),
		changed(carol, 100, 120),
	)
	g := h.governance()
	require.Equal(t, int64(2), g.CurrentDelegates)
	require.Equal(t, "170", g.DelegatedVotesRaw.String())
	require.Equal(t, "120", h.delegate(carol).DelegatedVotesRaw.String())

	h.apply(changed(dave, 50, 0))
	g = h.governance()
	require.Equal(t, int64(1), g.CurrentDelegates)
	require.Equal(t, "120", g.DelegatedVotesRaw.String())
	require.Empty(t, h.faults.Faults)

	h.apply(changed(dave, 0, 0))
	require.Equal(t, int64(1), h.governance().CurrentDelegates)

	// a stale previous balance is reported but the new balance still wins
	h.apply(changed(carol, 90, 10))
	require.Equal(t, "10", h.delegate(carol).DelegatedVotesRaw.String())
	require.Equal(t, []ledger.FaultKind{ledger.FaultDelegatedVotesMismatch}, h.faults.Kinds())
}

func TestDelegateVotesChanged_RandomSequence(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))
	rng := rand.New(rand.NewSource(11)) //nolint:gosec

	accounts := []common.Address{alice, bob, carol, dave}
	votes := make(map[common.Address]int64)

	for range 200 {
		d := accounts[rng.Intn(len(accounts))]
		next := int64(rng.Intn(3)) * int64(rng.Intn(500))
		h.apply(&ledger.DelegateVotesChanged{
			EventContext:    h.at(),
			Delegate:        d,
			PreviousBalance: big.NewInt(votes[d]),
			NewBalance:      big.NewInt(next),
		})
		votes[d] = next
	}

	var positive, total int64
	for _, v := range votes {
		total += v
		if v > 0 {
			positive++
		}
	}

	g := h.governance()
	require.Equal(t, positive, g.CurrentDelegates)
	require.Equal(t, total, g.DelegatedVotesRaw.Int64())
}

func TestProposal_CreateQueueExecute(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(&ledger.DelegateVotesChanged{EventContext: h.at(), Delegate: alice,
		PreviousBalance: big.NewInt(0), NewBalance: big.NewInt(10)})
	h.apply(h.created(1, alice, 50))

	p := h.proposal("1")
	require.Equal(t, ledger.StateActive, p.State)
	require.Equal(t, ledger.AccountID(alice), *p.Proposer)
	require.Equal(t, []string{ledger.AccountID(carol)}, p.Targets)
	require.Equal(t, []string{"0"}, p.Values)
	require.Equal(t, []string{"0xcafe"}, p.Calldatas)
	require.Equal(t, uint64(100), p.CreationBlock)
	require.Equal(t, uint64(150), p.EndBlock)

	before := h.governance()

	h.nextBlock(200)
	h.apply(&ledger.ProposalQueued{EventContext: h.at(), ProposalID: big.NewInt(1), ETA: big.NewInt(1_800_000_000)})
	require.Equal(t, ledger.StateQueued, h.proposal("1").State)
	require.Equal(t, "1800000000", h.proposal("1").ExecutionETA.String())

	h.nextBlock(300)
	h.apply(&ledger.ProposalExecuted{EventContext: h.at(), ProposalID: big.NewInt(1)})

	p = h.proposal("1")
	require.Equal(t, ledger.StateExecuted, p.State)
	require.Nil(t, p.ExecutionETA)
	require.Equal(t, uint64(300), p.ExecutionBlock)
	require.NotZero(t, p.ExecutionTime)

	after := h.governance()
	require.Equal(t, before.ProposalsQueued, after.ProposalsQueued)
	require.Equal(t, before.ProposalsExecuted+1, after.ProposalsExecuted)
	require.Equal(t, int64(1), after.Proposals)
	require.Empty(t, h.faults.Faults)
}

func TestProposal_CreatedPendingAndMissingProposer(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(7, bob, 500))

	p := h.proposal("7")
	require.Equal(t, ledger.StatePending, p.State)
	require.Nil(t, p.Proposer)
	require.Equal(t, []ledger.FaultKind{ledger.FaultMissingProposer}, h.faults.Kinds())

	_, found, err := h.store.Delegate(h.ctx, ledger.AccountID(bob))
	require.NoError(t, err)
	require.False(t, found, "a missing proposer must not be materialized")
}

func TestProposal_DuplicateCreateIgnored(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(1, alice, 50))
	dup := h.created(1, bob, 50)
	dup.Description = "other"
	h.apply(dup)

	require.Equal(t, "fund the grants program", h.proposal("1").Description)
	require.Equal(t, int64(1), h.governance().Proposals)
	require.Contains(t, h.faults.Kinds(), ledger.FaultDuplicateProposal)
}

func TestProposal_Canceled(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(1, alice, 50))
	h.nextBlock(120)
	h.apply(&ledger.ProposalCanceled{EventContext: h.at(), ProposalID: big.NewInt(1)})

	p := h.proposal("1")
	require.Equal(t, ledger.StateCanceled, p.State)
	require.Equal(t, uint64(120), p.CancellationBlock)
	require.Equal(t, int64(1), h.governance().ProposalsCanceled)
}

func TestProposal_UnknownProposalLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(
		&ledger.ProposalQueued{EventContext: h.at(), ProposalID: big.NewInt(9), ETA: big.NewInt(1)},
		&ledger.ProposalExecuted{EventContext: h.at(), ProposalID: big.NewInt(9)},
		&ledger.ProposalCanceled{EventContext: h.at(), ProposalID: big.NewInt(9)},
	)

	_, found, err := h.store.Proposal(h.ctx, "9")
	require.NoError(t, err)
	require.False(t, found)

	g := h.governance()
	require.Zero(t, g.ProposalsQueued)
	require.Zero(t, g.ProposalsExecuted)
	require.Zero(t, g.ProposalsCanceled)
	require.Equal(t, []ledger.FaultKind{
		ledger.FaultUnknownProposal, ledger.FaultUnknownProposal, ledger.FaultUnknownProposal,
	}, h.faults.Kinds())
}

func TestProposal_IllegalTransition(t *testing.T) {
	tests := []struct {
		name          string
		strict        bool
		expectedState ledger.ProposalState
		executed      int64
		queued        int64
	}{
		{
			name:          "permissive applies and reports",
			expectedState: ledger.StateExecuted,
			executed:      1,
			queued:        -1,
		},
		{
			name:          "strict reports and skips",
			strict:        true,
			expectedState: ledger.StateActive,
			executed:      0,
			queued:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions("test")
			opts.StrictLifecycle = tt.strict
			h := newHarness(t, opts)

			h.apply(h.created(1, alice, 50))
			h.apply(&ledger.ProposalExecuted{EventContext: h.at(), ProposalID: big.NewInt(1)})

			require.Equal(t, tt.expectedState, h.proposal("1").State)
			g := h.governance()
			require.Equal(t, tt.executed, g.ProposalsExecuted)
			require.Equal(t, tt.queued, g.ProposalsQueued)
			require.Contains(t, h.faults.Kinds(), ledger.FaultIllegalTransition)
		})
	}
}

func TestQuorumNumeratorUpdated(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(&ledger.QuorumNumeratorUpdated{EventContext: h.at(),
		OldQuorumNumerator: big.NewInt(0), NewQuorumNumerator: big.NewInt(4)})

	require.Equal(t, "4", h.governance().QuorumNumerator.String())
}

func TestVoteCast_ThreeVotesOnPendingProposal(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(1, alice, 500))
	require.Equal(t, ledger.StatePending, h.proposal("1").State)

	h.apply(
		h.vote(alice, 1, ledger.SupportAgainst, 10),
		h.vote(bob, 1, ledger.SupportFor, 20),
		h.vote(carol, 1, ledger.SupportAbstain, 30),
	)

	p := h.proposal("1")
	require.Equal(t, ledger.StateActive, p.State)
	require.Equal(t, int64(1), p.AgainstVotes)
	require.Equal(t, int64(1), p.ForVotes)
	require.Equal(t, int64(1), p.AbstainVotes)

	votes, total, err := h.store.ListVotes(h.ctx, "1", ledger.Page{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, []string{
		ledger.AccountID(alice) + "-1",
		ledger.AccountID(bob) + "-1",
		ledger.AccountID(carol) + "-1",
	}, []string{votes[0].ID, votes[1].ID, votes[2].ID})
	require.Equal(t, "20", votes[1].Weight.String())

	require.Equal(t, int64(1), h.delegate(bob).NumberVotes)
}

func TestVoteCast_InvalidSupportCode(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(1, alice, 50))
	h.apply(h.vote(bob, 1, 7, 5))

	p := h.proposal("1")
	require.Zero(t, p.AgainstVotes)
	require.Zero(t, p.ForVotes)
	require.Zero(t, p.AbstainVotes)

	v, found, err := h.store.Vote(h.ctx, ledger.VoteID(bob, "1"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint8(7), v.Choice)
}

func TestVoteCast_DuplicateIgnored(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	h.apply(h.created(1, alice, 50))
	h.apply(h.vote(bob, 1, ledger.SupportFor, 5))
	h.apply(h.vote(bob, 1, ledger.SupportAgainst, 5))

	p := h.proposal("1")
	require.Equal(t, int64(1), p.ForVotes)
	require.Zero(t, p.AgainstVotes)
	require.Equal(t, int64(1), h.delegate(bob).NumberVotes)
	require.Contains(t, h.faults.Kinds(), ledger.FaultDuplicateVote)
}

func TestVoteCast_VoterRecord(t *testing.T) {
	tests := []struct {
		name           string
		reset          bool
		expectedVotes  string
		expectedNumber int64
		expectedFaults []ledger.FaultKind
		expectedActive int64
	}{
		{
			name:           "load modify save keeps delegate state",
			expectedVotes:  "500",
			expectedNumber: 2,
			expectedActive: 1,
		},
		{
			name:           "reset recreates the delegate",
			reset:          true,
			expectedVotes:  "0",
			expectedNumber: 1,
			expectedFaults: []ledger.FaultKind{ledger.FaultVoterReset, ledger.FaultVoterReset},
			expectedActive: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions("test")
			opts.ResetVoterOnVote = tt.reset
			h := newHarness(t, opts)

			h.apply(&ledger.DelegateVotesChanged{EventContext: h.at(), Delegate: carol,
				PreviousBalance: big.NewInt(0), NewBalance: big.NewInt(500)})
			h.apply(h.created(1, carol, 50), h.created(2, carol, 50))
			h.apply(h.vote(carol, 1, ledger.SupportFor, 500), h.vote(carol, 2, ledger.SupportFor, 500))

			d := h.delegate(carol)
			require.Equal(t, tt.expectedVotes, d.DelegatedVotesRaw.String())
			require.Equal(t, tt.expectedNumber, d.NumberVotes)
			require.Equal(t, tt.expectedActive, h.governance().CurrentDelegates)
			require.Equal(t, tt.expectedFaults, faultsOrNil(h.faults))
		})
	}
}

func faultsOrNil(c *ledger.FaultCollector) []ledger.FaultKind {
	if len(c.Faults) == 0 {
		return nil
	}
	return c.Kinds()
}

func TestPoolEvents(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	pool := func(amount int64) ledger.PoolEvent {
		return ledger.PoolEvent{EventContext: h.at(), User: alice, PoolID: big.NewInt(0), Amount: big.NewInt(amount)}
	}

	h.apply(
		&ledger.Deposit{PoolEvent: pool(100)},
		&ledger.Withdraw{PoolEvent: pool(30)},
		&ledger.EmergencyWithdraw{PoolEvent: pool(20)},
	)

	pos, found, err := h.store.PoolPosition(h.ctx, ledger.PoolPositionID("0", alice))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "50", pos.Amount.String())

	p, found, err := h.store.Pool(h.ctx, "0")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "50", p.TotalStaked.String())
}

func TestApply_ReplayIsIdempotent(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	events := []ledger.Event{
		h.transfer(zeroAddr, alice, 100),
		h.transfer(alice, bob, 40),
	}
	h.apply(events...)

	applied, err := h.engine.ApplyAll(h.ctx, h.store, events)
	require.NoError(t, err)
	require.Zero(t, applied)

	require.Equal(t, "60", h.holder(alice).TokenBalanceRaw.String())
	require.Equal(t, "40", h.holder(bob).TokenBalanceRaw.String())

	cursor, found, err := h.store.Cursor(h.ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, events[1].Context().Cursor(), cursor)
}

func TestApply_SkipLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, DefaultOptions("dao"))
	h.engine = NewEngine(logger.NewFromZap(zap.New(core)), DefaultOptions("dao"), h.faults, nil)

	early := h.transfer(zeroAddr, alice, 100)
	late := h.transfer(zeroAddr, bob, 50)
	h.apply(early, late)

	// redelivery of the last applied event
	changed, err := h.engine.Apply(h.ctx, h.store, late)
	require.NoError(t, err)
	require.False(t, changed)
	require.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	require.Equal(t, 1, logs.FilterMessageSnippet("already applied").Len())

	// an event older than the cursor arrives out of order
	changed, err = h.engine.Apply(h.ctx, h.store, early)
	require.NoError(t, err)
	require.False(t, changed)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	require.Equal(t, "skipping event behind the applied cursor", warnings[0].Message)
	fields := warnings[0].ContextMap()
	require.EqualValues(t, early.LogIndex, fields["log_index"])
	require.EqualValues(t, late.LogIndex, fields["cursor_log_index"])
	require.Equal(t, "dao", fields["indexer"])

	require.Equal(t, "100", h.holder(alice).TokenBalanceRaw.String())
}

// failingStore fails every transaction after fn ran, so nothing commits.
type failingStore struct {
	*store.MemoryStore
}

var errInjected = errors.New("disk full")

func (f failingStore) Atomic(ctx context.Context, fn func(repo ledger.Repository) error) error {
	return f.MemoryStore.Atomic(ctx, func(repo ledger.Repository) error {
		if err := fn(repo); err != nil {
			return err
		}
		return errInjected
	})
}

func TestApply_FailedTransactionReportsNothing(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))
	broken := failingStore{MemoryStore: h.store}

	_, err := h.engine.Apply(h.ctx, broken, h.transfer(alice, bob, 10))
	require.ErrorIs(t, err, errInjected)
	require.Empty(t, h.faults.Faults)

	_, found, err := h.store.TokenHolder(h.ctx, ledger.AccountID(alice))
	require.NoError(t, err)
	require.False(t, found)
}

func TestApplyAll_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, DefaultOptions("test"))

	ctx, cancel := context.WithCancel(h.ctx)
	cancel()

	applied, err := h.engine.ApplyAll(ctx, h.store, []ledger.Event{h.transfer(zeroAddr, alice, 1)})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, applied)
}
