package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// FaultKind classifies integrity faults.
type FaultKind string

const (
	FaultNegativeBalance        FaultKind = "negative_balance"
	FaultNegativeRepresented    FaultKind = "negative_represented_amount"
	FaultDelegatedVotesMismatch FaultKind = "delegated_votes_mismatch"
	FaultMissingProposer        FaultKind = "missing_proposer"
	FaultDuplicateProposal      FaultKind = "duplicate_proposal"
	FaultUnknownProposal        FaultKind = "unknown_proposal"
	FaultIllegalTransition      FaultKind = "illegal_transition"
	FaultDuplicateVote          FaultKind = "duplicate_vote"
	FaultVoterReset             FaultKind = "voter_reset"
	FaultDelegateMismatch       FaultKind = "delegate_mismatch"
	FaultNegativePosition       FaultKind = "negative_position"
	FaultInvalidProposalPayload FaultKind = "invalid_proposal_payload"
)

// Fault is an invariant violation caused by missing or misordered upstream
// events. Faults never stop processing.
type Fault struct {
	Kind    FaultKind
	Message string
	Event   EventContext
	// Fields holds the values substituted into Message, keyed by name.
	Fields map[string]any
}

// FaultReporter receives integrity faults.
type FaultReporter interface {
	Report(f Fault)
}

// FaultReporterFunc adapts a function to FaultReporter.
type FaultReporterFunc func(f Fault)

// Report calls fn(f).
func (fn FaultReporterFunc) Report(f Fault) { fn(f) }

// FaultCollector records faults in memory.
type FaultCollector struct {
	Faults []Fault
}

// Report appends f to the collected faults.
func (c *FaultCollector) Report(f Fault) { c.Faults = append(c.Faults, f) }

// Kinds returns the kinds of all collected faults in report order.
func (c *FaultCollector) Kinds() []FaultKind {
	kinds := make([]FaultKind, 0, len(c.Faults))
	for _, f := range c.Faults {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

// RewardAccountant applies staking pool deltas. It runs inside the same
// transaction as the event that produced the delta and reports faults
// through report.
type RewardAccountant interface {
	ApplyPoolDelta(ctx context.Context, repo Repository, report FaultReporter,
		ev EventContext, user common.Address, poolID, delta *big.Int) error
}

// Text renders Message with every {name} placeholder replaced by its field value.
func (f Fault) Text() string {
	if len(f.Fields) == 0 {
		return f.Message
	}

	pairs := make([]string, 0, 2*len(f.Fields)) //nolint:mnd
	for k, v := range f.Fields {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(f.Message)
}
