package store

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "ledger.sqlite")}
	cfg.ApplyDefaults()

	st, err := NewSQLiteStore(cfg, "test", logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func stores(t *testing.T) map[string]ledger.Store {
	t.Helper()

	return map[string]ledger.Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func TestStore_EntitiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	alice := common.HexToAddress("0xa11ce")

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			delegateID := "0xdelegate"
			holder := ledger.NewTokenHolder(ledger.AccountID(alice))
			holder.SetTokenBalance(big.NewInt(-50), 18)
			holder.SetTotalTokensHeld(big.NewInt(100), 18)
			holder.Delegate = &delegateID

			delegate := ledger.NewDelegate(delegateID)
			delegate.SetDelegatedVotes(big.NewInt(2_000_000_000_000_000_000), 18)
			delegate.TokenHoldersRepresentedAmount = -1
			delegate.NumberVotes = 3

			proposal := &ledger.Proposal{
				ID:           "42",
				Proposer:     &delegateID,
				Targets:      []string{"0x01", "0x02"},
				Values:       []string{"0", "1"},
				Signatures:   []string{"", "f()"},
				Calldatas:    []string{"0x", "0xabcd"},
				Description:  "# title",
				State:        ledger.StateQueued,
				StartBlock:   10,
				EndBlock:     20,
				ExecutionETA: big.NewInt(99),
				ForVotes:     4,
			}

			gov := ledger.NewGovernance()
			gov.Proposals = 1
			gov.SetDelegatedVotes(big.NewInt(5), 0)
			gov.QuorumNumerator = big.NewInt(4)

			vote := &ledger.Vote{
				ID: "v1", ProposalID: "42", Voter: delegateID, Weight: big.NewInt(7),
				Choice: 9, Block: 11, Time: 12, TxHash: common.HexToHash("0xbeef"),
			}

			err := st.Atomic(ctx, func(repo ledger.Repository) error {
				require.NoError(t, repo.SaveTokenHolder(ctx, holder))
				require.NoError(t, repo.SaveDelegate(ctx, delegate))
				require.NoError(t, repo.SaveProposal(ctx, proposal))
				require.NoError(t, repo.SaveGovernance(ctx, gov))
				require.NoError(t, repo.CreateVote(ctx, vote))
				require.NoError(t, repo.SaveCursor(ctx, ledger.Cursor{Block: 11, LogIndex: 3}))

				// reads inside the transaction see staged writes
				_, found, err := repo.Proposal(ctx, "42")
				require.NoError(t, err)
				require.True(t, found)
				return nil
			})
			require.NoError(t, err)

			gotHolder, found, err := st.TokenHolder(ctx, holder.ID)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "-50", gotHolder.TokenBalanceRaw.String())
			require.True(t, holder.TokenBalance.Equal(gotHolder.TokenBalance))
			require.Equal(t, delegateID, *gotHolder.Delegate)

			gotDelegate, found, err := st.Delegate(ctx, delegateID)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "2", gotDelegate.DelegatedVotes.String())
			require.Equal(t, int64(-1), gotDelegate.TokenHoldersRepresentedAmount)

			gotProposal, found, err := st.Proposal(ctx, "42")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, proposal.Targets, gotProposal.Targets)
			require.Equal(t, proposal.Signatures, gotProposal.Signatures)
			require.Equal(t, ledger.StateQueued, gotProposal.State)
			require.Equal(t, "99", gotProposal.ExecutionETA.String())

			gotGov, found, err := st.Governance(ctx)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "5", gotGov.DelegatedVotes.String())
			require.Equal(t, "4", gotGov.QuorumNumerator.String())

			gotVote, found, err := st.Vote(ctx, "v1")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, uint8(9), gotVote.Choice)
			require.Equal(t, vote.TxHash, gotVote.TxHash)

			cursor, found, err := st.Cursor(ctx)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, ledger.Cursor{Block: 11, LogIndex: 3}, cursor)

			_, found, err = st.TokenHolder(ctx, "0xmissing")
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestStore_UpdateOverwrites(t *testing.T) {
	ctx := context.Background()

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, v := range []int64{1, 2} {
				err := st.Atomic(ctx, func(repo ledger.Repository) error {
					d := ledger.NewDelegate("0xd")
					d.NumberVotes = v
					p := ledger.NewPool("0")
					p.TotalStaked = big.NewInt(v)
					pos := ledger.NewPoolPosition("0", common.HexToAddress("0x1"))
					pos.Amount = big.NewInt(v)
					require.NoError(t, repo.SavePool(ctx, p))
					require.NoError(t, repo.SavePoolPosition(ctx, pos))
					require.NoError(t, repo.SaveCursor(ctx, ledger.Cursor{Block: uint64(v)}))
					return repo.SaveDelegate(ctx, d)
				})
				require.NoError(t, err)
			}

			d, _, err := st.Delegate(ctx, "0xd")
			require.NoError(t, err)
			require.Equal(t, int64(2), d.NumberVotes)

			p, _, err := st.Pool(ctx, "0")
			require.NoError(t, err)
			require.Equal(t, "2", p.TotalStaked.String())

			pos, found, err := st.PoolPosition(ctx, ledger.PoolPositionID("0", common.HexToAddress("0x1")))
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "2", pos.Amount.String())

			cursor, _, err := st.Cursor(ctx)
			require.NoError(t, err)
			require.Equal(t, uint64(2), cursor.Block)
		})
	}
}

func TestStore_AtomicRollback(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := st.Atomic(ctx, func(repo ledger.Repository) error {
				require.NoError(t, repo.SaveDelegate(ctx, ledger.NewDelegate("0xd")))
				require.NoError(t, repo.CreateVote(ctx, &ledger.Vote{ID: "v", ProposalID: "1", Weight: big.NewInt(1)}))
				require.NoError(t, repo.SaveCursor(ctx, ledger.Cursor{Block: 5}))
				return boom
			})
			require.ErrorIs(t, err, boom)

			_, found, err := st.Delegate(ctx, "0xd")
			require.NoError(t, err)
			require.False(t, found)

			_, found, err = st.Vote(ctx, "v")
			require.NoError(t, err)
			require.False(t, found)

			_, found, err = st.Cursor(ctx)
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestStore_CreateVoteTwice(t *testing.T) {
	ctx := context.Background()

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v := &ledger.Vote{ID: "v", ProposalID: "1", Weight: big.NewInt(1)}

			require.NoError(t, st.Atomic(ctx, func(repo ledger.Repository) error {
				return repo.CreateVote(ctx, v)
			}))

			err := st.Atomic(ctx, func(repo ledger.Repository) error {
				return repo.CreateVote(ctx, v)
			})
			require.ErrorIs(t, err, ledger.ErrVoteExists)
		})
	}
}

func TestStore_Listings(t *testing.T) {
	ctx := context.Background()

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.Atomic(ctx, func(repo ledger.Repository) error {
				for i, block := range []uint64{30, 10, 20} {
					p := &ledger.Proposal{
						ID:            big.NewInt(int64(i + 1)).String(),
						State:         ledger.StateActive,
						CreationBlock: block,
					}
					if err := repo.SaveProposal(ctx, p); err != nil {
						return err
					}
				}
				for _, voter := range []string{"0xc", "0xa", "0xb"} {
					v := &ledger.Vote{ID: voter + "-1", ProposalID: "1", Voter: voter, Weight: big.NewInt(1)}
					if err := repo.CreateVote(ctx, v); err != nil {
						return err
					}
				}
				return repo.CreateVote(ctx, &ledger.Vote{ID: "0xa-2", ProposalID: "2", Weight: big.NewInt(1)})
			}))

			proposals, total, err := st.ListProposals(ctx, ledger.Page{Limit: 2})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.Len(t, proposals, 2)
			require.Equal(t, "1", proposals[0].ID)
			require.Equal(t, "3", proposals[1].ID)

			proposals, _, err = st.ListProposals(ctx, ledger.Page{Limit: 2, Offset: 2})
			require.NoError(t, err)
			require.Len(t, proposals, 1)
			require.Equal(t, "2", proposals[0].ID)

			votes, total, err := st.ListVotes(ctx, "1", ledger.Page{Limit: 10})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.Equal(t, "0xc", votes[0].Voter)
			require.Equal(t, "0xa", votes[1].Voter)
			require.Equal(t, "0xb", votes[2].Voter)

			votes, total, err = st.ListVotes(ctx, "9", ledger.Page{Limit: 10})
			require.NoError(t, err)
			require.Zero(t, total)
			require.Empty(t, votes)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.Atomic(ctx, func(repo ledger.Repository) error {
		h := ledger.NewTokenHolder("0x1")
		h.SetTokenBalance(big.NewInt(10), 18)
		return repo.SaveTokenHolder(ctx, h)
	}))

	h, _, err := st.TokenHolder(ctx, "0x1")
	require.NoError(t, err)
	h.TokenBalanceRaw.SetInt64(999)

	again, _, err := st.TokenHolder(ctx, "0x1")
	require.NoError(t, err)
	require.Equal(t, "10", again.TokenBalanceRaw.String())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore().Atomic(ctx, func(ledger.Repository) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
