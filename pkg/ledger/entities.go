package ledger

import (
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GovernanceID is the fixed id of the Governance aggregate.
const GovernanceID = "GOVERNANCE"

// DefaultDecimals is the scale used for derived decimal fields when a token
// does not configure its own.
const DefaultDecimals int32 = 18

// AccountID returns the entity id used for an address (lowercase hex).
func AccountID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// VoteID returns the id of the vote cast by voter on proposalID.
func VoteID(voter common.Address, proposalID string) string {
	return AccountID(voter) + "-" + proposalID
}

// PoolPositionID returns the id of a user's position inside a staking pool.
func PoolPositionID(poolID string, user common.Address) string {
	return poolID + "-" + AccountID(user)
}

// Scale converts a raw integer amount into its decimal representation.
func Scale(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// TokenHolder is an address holding the governance token.
type TokenHolder struct {
	ID                 string          `meddler:"id" json:"id"`
	TokenBalanceRaw    *big.Int        `meddler:"token_balance_raw,bigint" json:"token_balance_raw"`
	TokenBalance       decimal.Decimal `meddler:"token_balance" json:"token_balance"`
	TotalTokensHeldRaw *big.Int        `meddler:"total_tokens_held_raw,bigint" json:"total_tokens_held_raw"`
	TotalTokensHeld    decimal.Decimal `meddler:"total_tokens_held" json:"total_tokens_held"`
	Delegate           *string         `meddler:"delegate" json:"delegate,omitempty"`
}

// NewTokenHolder returns a zero-valued holder.
func NewTokenHolder(id string) *TokenHolder {
	return &TokenHolder{
		ID:                 id,
		TokenBalanceRaw:    new(big.Int),
		TotalTokensHeldRaw: new(big.Int),
	}
}

// SetTokenBalance sets the raw balance and its derived decimal.
func (h *TokenHolder) SetTokenBalance(raw *big.Int, decimals int32) {
	h.TokenBalanceRaw = new(big.Int).Set(raw)
	h.TokenBalance = Scale(raw, decimals)
}

// SetTotalTokensHeld sets the raw lifetime received amount and its derived decimal.
func (h *TokenHolder) SetTotalTokensHeld(raw *big.Int, decimals int32) {
	h.TotalTokensHeldRaw = new(big.Int).Set(raw)
	h.TotalTokensHeld = Scale(raw, decimals)
}

// Clone returns a deep copy.
func (h *TokenHolder) Clone() *TokenHolder {
	c := *h
	c.TokenBalanceRaw = cloneInt(h.TokenBalanceRaw)
	c.TotalTokensHeldRaw = cloneInt(h.TotalTokensHeldRaw)
	c.Delegate = cloneString(h.Delegate)
	return &c
}

// Delegate is an address that can receive delegated voting power and vote.
type Delegate struct {
	ID                            string          `meddler:"id" json:"id"`
	DelegatedVotesRaw             *big.Int        `meddler:"delegated_votes_raw,bigint" json:"delegated_votes_raw"`
	DelegatedVotes                decimal.Decimal `meddler:"delegated_votes" json:"delegated_votes"`
	TokenHoldersRepresentedAmount int64           `meddler:"token_holders_represented_amount" json:"token_holders_represented_amount"`
	NumberVotes                   int64           `meddler:"number_votes" json:"number_votes"`
}

// NewDelegate returns a zero-valued delegate.
func NewDelegate(id string) *Delegate {
	return &Delegate{ID: id, DelegatedVotesRaw: new(big.Int)}
}

// SetDelegatedVotes sets the raw voting power and its derived decimal.
func (d *Delegate) SetDelegatedVotes(raw *big.Int, decimals int32) {
	d.DelegatedVotesRaw = new(big.Int).Set(raw)
	d.DelegatedVotes = Scale(raw, decimals)
}

// IsZero reports whether every field still holds its default value.
func (d *Delegate) IsZero() bool {
	return (d.DelegatedVotesRaw == nil || d.DelegatedVotesRaw.Sign() == 0) &&
		d.TokenHoldersRepresentedAmount == 0 &&
		d.NumberVotes == 0
}

// Clone returns a deep copy.
func (d *Delegate) Clone() *Delegate {
	c := *d
	c.DelegatedVotesRaw = cloneInt(d.DelegatedVotesRaw)
	return &c
}

// Proposal is a governor proposal and its running tallies.
type Proposal struct {
	ID                string        `meddler:"id" json:"id"`
	Proposer          *string       `meddler:"proposer" json:"proposer,omitempty"`
	Targets           []string      `meddler:"targets,json" json:"targets"`
	Values            []string      `meddler:"payload_values,json" json:"values"`
	Signatures        []string      `meddler:"signatures,json" json:"signatures"`
	Calldatas         []string      `meddler:"calldatas,json" json:"calldatas"`
	Description       string        `meddler:"description" json:"description"`
	State             ProposalState `meddler:"state" json:"state"`
	CreationBlock     uint64        `meddler:"creation_block" json:"creation_block"`
	CreationTime      uint64        `meddler:"creation_time" json:"creation_time"`
	StartBlock        uint64        `meddler:"start_block" json:"start_block"`
	EndBlock          uint64        `meddler:"end_block" json:"end_block"`
	ExecutionETA      *big.Int      `meddler:"execution_eta,bigint" json:"execution_eta,omitempty"`
	ExecutionBlock    uint64        `meddler:"execution_block" json:"execution_block,omitempty"`
	ExecutionTime     uint64        `meddler:"execution_time" json:"execution_time,omitempty"`
	CancellationBlock uint64        `meddler:"cancellation_block" json:"cancellation_block,omitempty"`
	CancellationTime  uint64        `meddler:"cancellation_time" json:"cancellation_time,omitempty"`
	AgainstVotes      int64         `meddler:"against_votes" json:"against_votes"`
	ForVotes          int64         `meddler:"for_votes" json:"for_votes"`
	AbstainVotes      int64         `meddler:"abstain_votes" json:"abstain_votes"`
}

// Clone returns a deep copy.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Proposer = cloneString(p.Proposer)
	c.Targets = slices.Clone(p.Targets)
	c.Values = slices.Clone(p.Values)
	c.Signatures = slices.Clone(p.Signatures)
	c.Calldatas = slices.Clone(p.Calldatas)
	c.ExecutionETA = cloneInt(p.ExecutionETA)
	return &c
}

// Support codes of a cast vote.
const (
	SupportAgainst uint8 = 0
	SupportFor     uint8 = 1
	SupportAbstain uint8 = 2
)

// Vote is a single cast vote. It is never modified after creation.
type Vote struct {
	ID         string      `meddler:"id" json:"id"`
	ProposalID string      `meddler:"proposal_id" json:"proposal_id"`
	Voter      string      `meddler:"voter" json:"voter"`
	Weight     *big.Int    `meddler:"weight,bigint" json:"weight"`
	Reason     string      `meddler:"reason" json:"reason"`
	Choice     uint8       `meddler:"choice" json:"choice"`
	Block      uint64      `meddler:"block" json:"block"`
	Time       uint64      `meddler:"time" json:"time"`
	TxHash     common.Hash `meddler:"tx_hash,hash" json:"tx_hash"`
}

// Clone returns a deep copy.
func (v *Vote) Clone() *Vote {
	c := *v
	c.Weight = cloneInt(v.Weight)
	return &c
}

// Governance aggregates counters across the whole DAO.
type Governance struct {
	ID                  string          `meddler:"id" json:"id"`
	Proposals           int64           `meddler:"proposals" json:"proposals"`
	ProposalsCanceled   int64           `meddler:"proposals_canceled" json:"proposals_canceled"`
	ProposalsQueued     int64           `meddler:"proposals_queued" json:"proposals_queued"`
	ProposalsExecuted   int64           `meddler:"proposals_executed" json:"proposals_executed"`
	CurrentDelegates    int64           `meddler:"current_delegates" json:"current_delegates"`
	CurrentTokenHolders int64           `meddler:"current_token_holders" json:"current_token_holders"`
	TotalDelegates      int64           `meddler:"total_delegates" json:"total_delegates"`
	TotalTokenHolders   int64           `meddler:"total_token_holders" json:"total_token_holders"`
	DelegatedVotesRaw   *big.Int        `meddler:"delegated_votes_raw,bigint" json:"delegated_votes_raw"`
	DelegatedVotes      decimal.Decimal `meddler:"delegated_votes" json:"delegated_votes"`
	QuorumNumerator     *big.Int        `meddler:"quorum_numerator,bigint" json:"quorum_numerator"`
}

// NewGovernance returns the zero-valued singleton.
func NewGovernance() *Governance {
	return &Governance{
		ID:                GovernanceID,
		DelegatedVotesRaw: new(big.Int),
		QuorumNumerator:   new(big.Int),
	}
}

// SetDelegatedVotes sets the total delegated voting power and its derived decimal.
func (g *Governance) SetDelegatedVotes(raw *big.Int, decimals int32) {
	g.DelegatedVotesRaw = new(big.Int).Set(raw)
	g.DelegatedVotes = Scale(raw, decimals)
}

// Clone returns a deep copy.
func (g *Governance) Clone() *Governance {
	c := *g
	c.DelegatedVotesRaw = cloneInt(g.DelegatedVotesRaw)
	c.QuorumNumerator = cloneInt(g.QuorumNumerator)
	return &c
}

// Pool is the staking total of one reward pool.
type Pool struct {
	ID          string   `meddler:"id" json:"id"`
	TotalStaked *big.Int `meddler:"total_staked,bigint" json:"total_staked"`
	Positions   int64    `meddler:"positions" json:"positions"`
}

// NewPool returns an empty pool.
func NewPool(id string) *Pool {
	return &Pool{ID: id, TotalStaked: new(big.Int)}
}

// Clone returns a deep copy.
func (p *Pool) Clone() *Pool {
	c := *p
	c.TotalStaked = cloneInt(p.TotalStaked)
	return &c
}

// PoolPosition is a user's stake inside a pool.
type PoolPosition struct {
	ID          string   `meddler:"id" json:"id"`
	PoolID      string   `meddler:"pool_id" json:"pool_id"`
	User        string   `meddler:"user" json:"user"`
	Amount      *big.Int `meddler:"amount,bigint" json:"amount"`
	LastBlock   uint64   `meddler:"last_block" json:"last_block"`
	Deposits    int64    `meddler:"deposits" json:"deposits"`
	Withdrawals int64    `meddler:"withdrawals" json:"withdrawals"`
}

// NewPoolPosition returns an empty position of user in poolID.
func NewPoolPosition(poolID string, user common.Address) *PoolPosition {
	return &PoolPosition{
		ID:     PoolPositionID(poolID, user),
		PoolID: poolID,
		User:   AccountID(user),
		Amount: new(big.Int),
	}
}

// Clone returns a deep copy.
func (p *PoolPosition) Clone() *PoolPosition {
	c := *p
	c.Amount = cloneInt(p.Amount)
	return &c
}

// Cursor identifies the last event applied by a shard.
type Cursor struct {
	Block    uint64 `json:"block"`
	LogIndex uint   `json:"log_index"`
}

// Before reports whether c sorts strictly before o in chain order.
func (c Cursor) Before(o Cursor) bool {
	if c.Block != o.Block {
		return c.Block < o.Block
	}
	return c.LogIndex < o.LogIndex
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
