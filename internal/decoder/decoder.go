package decoder

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

//go:embed governance.abi.json
var governanceABI string

// ErrUnknownTopic is returned for logs whose first topic is not a known event.
var ErrUnknownTopic = errors.New("unknown event topic")

// roleKinds lists the events each contract role emits.
var roleKinds = map[string][]ledger.EventKind{
	config.RoleToken: {
		ledger.KindTransfer,
		ledger.KindDelegateChanged,
		ledger.KindDelegateVotesChanged,
	},
	config.RoleGovernor: {
		ledger.KindProposalCreated,
		ledger.KindProposalCanceled,
		ledger.KindProposalQueued,
		ledger.KindProposalExecuted,
		ledger.KindQuorumNumeratorUpdated,
		ledger.KindVoteCast,
	},
	config.RoleStaking: {
		ledger.KindDeposit,
		ledger.KindWithdraw,
		ledger.KindEmergencyWithdraw,
	},
}

// KindsForRole returns the event kinds emitted by a contract role.
func KindsForRole(role string) []ledger.EventKind {
	return roleKinds[strings.ToLower(role)]
}

// Decoder turns raw logs into ledger events.
type Decoder struct {
	abi     abi.ABI
	byTopic map[common.Hash]abi.Event
}

// New parses the bundled event ABI.
func New() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(governanceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse governance ABI: %w", err)
	}

	byTopic := make(map[common.Hash]abi.Event, len(parsed.Events))
	for _, ev := range parsed.Events {
		byTopic[ev.ID] = ev
	}

	return &Decoder{abi: parsed, byTopic: byTopic}, nil
}

// Topic returns the topic id of an event kind.
func (d *Decoder) Topic(kind ledger.EventKind) (common.Hash, bool) {
	ev, ok := d.abi.Events[string(kind)]
	if !ok {
		return common.Hash{}, false
	}
	return ev.ID, true
}

// TopicsForRole returns the topic ids of every event a contract role emits.
func (d *Decoder) TopicsForRole(role string) []common.Hash {
	kinds := KindsForRole(role)
	topics := make([]common.Hash, 0, len(kinds))
	for _, kind := range kinds {
		if topic, ok := d.Topic(kind); ok {
			topics = append(topics, topic)
		}
	}
	return topics
}

// ABI returns the parsed event ABI.
func (d *Decoder) ABI() abi.ABI {
	return d.abi
}

// Decode converts a log into its ledger event. blockTime is the timestamp of
// the block that contains the log.
func (d *Decoder) Decode(log types.Log, blockTime uint64) (ledger.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", ErrUnknownTopic)
	}

	ev, ok := d.byTopic[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, log.Topics[0].Hex())
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("%s: expected %d indexed topics, got %d", ev.Name, len(indexed), len(log.Topics)-1)
	}

	values := make(map[string]any, len(ev.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("%s: failed to parse topics: %w", ev.Name, err)
	}
	if err := ev.Inputs.UnpackIntoMap(values, log.Data); err != nil {
		return nil, fmt.Errorf("%s: failed to unpack data: %w", ev.Name, err)
	}

	evCtx := ledger.EventContext{
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Address:     log.Address,
	}

	out, err := build(ledger.EventKind(ev.Name), evCtx, &fields{values: values})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ev.Name, err)
	}
	return out, nil
}

func build(kind ledger.EventKind, evCtx ledger.EventContext, f *fields) (ledger.Event, error) {
	switch kind {
	case ledger.KindTransfer:
		return &ledger.Transfer{
			EventContext: evCtx,
			From:         f.address("from"),
			To:           f.address("to"),
			Value:        f.bigInt("value"),
		}, f.Err()

	case ledger.KindDelegateChanged:
		return &ledger.DelegateChanged{
			EventContext: evCtx,
			Delegator:    f.address("delegator"),
			FromDelegate: f.address("fromDelegate"),
			ToDelegate:   f.address("toDelegate"),
		}, f.Err()

	case ledger.KindDelegateVotesChanged:
		return &ledger.DelegateVotesChanged{
			EventContext:    evCtx,
			Delegate:        f.address("delegate"),
			PreviousBalance: f.bigInt("previousBalance"),
			NewBalance:      f.bigInt("newBalance"),
		}, f.Err()

	case ledger.KindProposalCreated:
		ev := &ledger.ProposalCreated{
			EventContext: evCtx,
			ProposalID:   f.bigInt("proposalId"),
			Proposer:     f.address("proposer"),
			Targets:      get[[]common.Address](f, "targets"),
			Values:       get[[]*big.Int](f, "values"),
			Signatures:   get[[]string](f, "signatures"),
			StartBlock:   f.bigInt("startBlock"),
			EndBlock:     f.bigInt("endBlock"),
			Description:  get[string](f, "description"),
		}
		for _, c := range get[[][]byte](f, "calldatas") {
			ev.Calldatas = append(ev.Calldatas, hexutil.Bytes(c))
		}
		return ev, f.Err()

	case ledger.KindProposalCanceled:
		return &ledger.ProposalCanceled{EventContext: evCtx, ProposalID: f.bigInt("proposalId")}, f.Err()

	case ledger.KindProposalQueued:
		return &ledger.ProposalQueued{
			EventContext: evCtx,
			ProposalID:   f.bigInt("proposalId"),
			ETA:          f.bigInt("eta"),
		}, f.Err()

	case ledger.KindProposalExecuted:
		return &ledger.ProposalExecuted{EventContext: evCtx, ProposalID: f.bigInt("proposalId")}, f.Err()

	case ledger.KindQuorumNumeratorUpdated:
		return &ledger.QuorumNumeratorUpdated{
			EventContext:       evCtx,
			OldQuorumNumerator: f.bigInt("oldQuorumNumerator"),
			NewQuorumNumerator: f.bigInt("newQuorumNumerator"),
		}, f.Err()

	case ledger.KindVoteCast:
		return &ledger.VoteCast{
			EventContext: evCtx,
			Voter:        f.address("voter"),
			ProposalID:   f.bigInt("proposalId"),
			Support:      get[uint8](f, "support"),
			Weight:       f.bigInt("weight"),
			Reason:       get[string](f, "reason"),
		}, f.Err()

	case ledger.KindDeposit:
		return &ledger.Deposit{PoolEvent: poolEvent(evCtx, f)}, f.Err()
	case ledger.KindWithdraw:
		return &ledger.Withdraw{PoolEvent: poolEvent(evCtx, f)}, f.Err()
	case ledger.KindEmergencyWithdraw:
		return &ledger.EmergencyWithdraw{PoolEvent: poolEvent(evCtx, f)}, f.Err()

	default:
		return nil, fmt.Errorf("no ledger event for %s", kind)
	}
}

func poolEvent(evCtx ledger.EventContext, f *fields) ledger.PoolEvent {
	return ledger.PoolEvent{
		EventContext: evCtx,
		User:         f.address("user"),
		PoolID:       f.bigInt("pid"),
		Amount:       f.bigInt("amount"),
	}
}
