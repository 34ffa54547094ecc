package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EventKind names a decoded contract event.
type EventKind string

const (
	KindTransfer               EventKind = "Transfer"
	KindDelegateChanged        EventKind = "DelegateChanged"
	KindDelegateVotesChanged   EventKind = "DelegateVotesChanged"
	KindProposalCreated        EventKind = "ProposalCreated"
	KindProposalCanceled       EventKind = "ProposalCanceled"
	KindProposalQueued         EventKind = "ProposalQueued"
	KindProposalExecuted       EventKind = "ProposalExecuted"
	KindQuorumNumeratorUpdated EventKind = "QuorumNumeratorUpdated"
	KindVoteCast               EventKind = "VoteCast"
	KindDeposit                EventKind = "Deposit"
	KindWithdraw               EventKind = "Withdraw"
	KindEmergencyWithdraw      EventKind = "EmergencyWithdraw"
)

// EventContext locates an event on chain.
type EventContext struct {
	BlockNumber uint64         `json:"block_number"`
	BlockTime   uint64         `json:"block_time"`
	TxHash      common.Hash    `json:"tx_hash"`
	LogIndex    uint           `json:"log_index"`
	Address     common.Address `json:"address"`
}

// Context returns the event location. It is promoted to every event type.
func (c EventContext) Context() EventContext { return c }

// Cursor returns the position of the event in chain order.
func (c EventContext) Cursor() Cursor {
	return Cursor{Block: c.BlockNumber, LogIndex: c.LogIndex}
}

// Event is a decoded contract event.
type Event interface {
	Kind() EventKind
	Context() EventContext
}

// Transfer moves governance tokens. A zero From is a mint, a zero To is a burn.
type Transfer struct {
	EventContext
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

// DelegateChanged records a holder moving its voting power to another delegate.
type DelegateChanged struct {
	EventContext
	Delegator    common.Address `json:"delegator"`
	FromDelegate common.Address `json:"from_delegate"`
	ToDelegate   common.Address `json:"to_delegate"`
}

// DelegateVotesChanged reports a delegate's new voting weight.
type DelegateVotesChanged struct {
	EventContext
	Delegate        common.Address `json:"delegate"`
	PreviousBalance *big.Int       `json:"previous_balance"`
	NewBalance      *big.Int       `json:"new_balance"`
}

// ProposalCreated opens a governor proposal.
type ProposalCreated struct {
	EventContext
	ProposalID  *big.Int         `json:"proposal_id"`
	Proposer    common.Address   `json:"proposer"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Signatures  []string         `json:"signatures"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
	StartBlock  *big.Int         `json:"start_block"`
	EndBlock    *big.Int         `json:"end_block"`
	Description string           `json:"description"`
}

// ProposalCanceled cancels a proposal.
type ProposalCanceled struct {
	EventContext
	ProposalID *big.Int `json:"proposal_id"`
}

// ProposalQueued queues a passed proposal in the timelock until ETA.
type ProposalQueued struct {
	EventContext
	ProposalID *big.Int `json:"proposal_id"`
	ETA        *big.Int `json:"eta"`
}

// ProposalExecuted marks a queued proposal as executed.
type ProposalExecuted struct {
	EventContext
	ProposalID *big.Int `json:"proposal_id"`
}

// QuorumNumeratorUpdated changes the governor's quorum fraction numerator.
type QuorumNumeratorUpdated struct {
	EventContext
	OldQuorumNumerator *big.Int `json:"old_quorum_numerator"`
	NewQuorumNumerator *big.Int `json:"new_quorum_numerator"`
}

// VoteCast is one vote on a proposal. Support is 0 against, 1 for, 2 abstain.
type VoteCast struct {
	EventContext
	Voter      common.Address `json:"voter"`
	ProposalID *big.Int       `json:"proposal_id"`
	Support    uint8          `json:"support"`
	Weight     *big.Int       `json:"weight"`
	Reason     string         `json:"reason"`
}

// PoolEvent carries the fields shared by staking Deposit, Withdraw and
// EmergencyWithdraw events.
type PoolEvent struct {
	EventContext
	User   common.Address `json:"user"`
	PoolID *big.Int       `json:"pid"`
	Amount *big.Int       `json:"amount"`
}

// Deposit stakes Amount into pool PoolID.
type Deposit struct{ PoolEvent }

// Withdraw unstakes Amount from pool PoolID.
type Withdraw struct{ PoolEvent }

// EmergencyWithdraw unstakes Amount without claiming rewards.
type EmergencyWithdraw struct{ PoolEvent }

func (*Transfer) Kind() EventKind               { return KindTransfer }
func (*DelegateChanged) Kind() EventKind        { return KindDelegateChanged }
func (*DelegateVotesChanged) Kind() EventKind   { return KindDelegateVotesChanged }
func (*ProposalCreated) Kind() EventKind        { return KindProposalCreated }
func (*ProposalCanceled) Kind() EventKind       { return KindProposalCanceled }
func (*ProposalQueued) Kind() EventKind         { return KindProposalQueued }
func (*ProposalExecuted) Kind() EventKind       { return KindProposalExecuted }
func (*QuorumNumeratorUpdated) Kind() EventKind { return KindQuorumNumeratorUpdated }
func (*VoteCast) Kind() EventKind               { return KindVoteCast }
func (*Deposit) Kind() EventKind                { return KindDeposit }
func (*Withdraw) Kind() EventKind               { return KindWithdraw }
func (*EmergencyWithdraw) Kind() EventKind      { return KindEmergencyWithdraw }

// NewEvent returns an empty event of the given kind.
func NewEvent(kind EventKind) (Event, error) {
	switch kind {
	case KindTransfer:
		return &Transfer{}, nil
	case KindDelegateChanged:
		return &DelegateChanged{}, nil
	case KindDelegateVotesChanged:
		return &DelegateVotesChanged{}, nil
	case KindProposalCreated:
		return &ProposalCreated{}, nil
	case KindProposalCanceled:
		return &ProposalCanceled{}, nil
	case KindProposalQueued:
		return &ProposalQueued{}, nil
	case KindProposalExecuted:
		return &ProposalExecuted{}, nil
	case KindQuorumNumeratorUpdated:
		return &QuorumNumeratorUpdated{}, nil
	case KindVoteCast:
		return &VoteCast{}, nil
	case KindDeposit:
		return &Deposit{}, nil
	case KindWithdraw:
		return &Withdraw{}, nil
	case KindEmergencyWithdraw:
		return &EmergencyWithdraw{}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

type envelope struct {
	Kind  EventKind       `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// MarshalEvent encodes an event as {"kind": ..., "event": {...}}.
func MarshalEvent(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Kind(), err)
	}
	return json.Marshal(envelope{Kind: ev.Kind(), Event: body})
}

// UnmarshalEvent decodes an event produced by MarshalEvent.
func UnmarshalEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	ev, err := NewEvent(env.Kind)
	if err != nil {
		return nil, err
	}

	if len(env.Event) > 0 {
		if err := json.Unmarshal(env.Event, ev); err != nil {
			return nil, fmt.Errorf("failed to decode %s event: %w", env.Kind, err)
		}
	}

	return ev, nil
}
