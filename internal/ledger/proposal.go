package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

func (e *Engine) applyProposalCreated(s *step, ev *ledger.ProposalCreated) error {
	id := orZero(ev.ProposalID).String()

	_, found, err := s.repo.Proposal(s.ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load proposal %s: %w", id, err)
	}
	if found {
		s.fault(ledger.FaultDuplicateProposal, "proposal {proposal} was already created",
			map[string]any{"proposal": id})
		return nil
	}

	p := &ledger.Proposal{
		ID:            id,
		Targets:       make([]string, 0, len(ev.Targets)),
		Values:        make([]string, 0, len(ev.Values)),
		Signatures:    append([]string{}, ev.Signatures...),
		Calldatas:     make([]string, 0, len(ev.Calldatas)),
		Description:   ev.Description,
		CreationBlock: ev.BlockNumber,
		CreationTime:  ev.BlockTime,
		StartBlock:    toUint64(ev.StartBlock),
		EndBlock:      toUint64(ev.EndBlock),
	}
	for _, t := range ev.Targets {
		p.Targets = append(p.Targets, ledger.AccountID(t))
	}
	for _, v := range ev.Values {
		p.Values = append(p.Values, orZero(v).String())
	}
	for _, c := range ev.Calldatas {
		p.Calldatas = append(p.Calldatas, hexutil.Encode(c))
	}

	if n := len(p.Targets); len(p.Values) != n || len(p.Signatures) != n || len(p.Calldatas) != n {
		s.fault(ledger.FaultInvalidProposalPayload,
			"proposal {proposal} has {targets} targets, {values} values, {signatures} signatures and {calldatas} calldatas",
			map[string]any{
				"proposal":   id,
				"targets":    len(p.Targets),
				"values":     len(p.Values),
				"signatures": len(p.Signatures),
				"calldatas":  len(p.Calldatas),
			})
	}

	proposerID := ledger.AccountID(ev.Proposer)
	proposer, found, err := s.delegate(proposerID)
	if err != nil {
		return err
	}
	if found {
		p.Proposer = &proposer.ID
	} else {
		s.fault(ledger.FaultMissingProposer, "proposal {proposal} was made by {proposer} which is not a delegate",
			map[string]any{"proposal": id, "proposer": proposerID})
	}

	if ev.BlockNumber >= p.StartBlock {
		p.State = ledger.StateActive
	} else {
		p.State = ledger.StatePending
	}

	s.gov.Proposals++

	return e.saveProposal(s, p)
}

func (e *Engine) applyProposalCanceled(s *step, ev *ledger.ProposalCanceled) error {
	p, err := e.knownProposal(s, ev.ProposalID)
	if err != nil || p == nil {
		return err
	}
	if !e.transition(s, p, ledger.StateCanceled) {
		return nil
	}

	p.CancellationBlock = ev.BlockNumber
	p.CancellationTime = ev.BlockTime
	s.gov.ProposalsCanceled++

	return e.saveProposal(s, p)
}

func (e *Engine) applyProposalQueued(s *step, ev *ledger.ProposalQueued) error {
	p, err := e.knownProposal(s, ev.ProposalID)
	if err != nil || p == nil {
		return err
	}
	if !e.transition(s, p, ledger.StateQueued) {
		return nil
	}

	p.ExecutionETA = new(big.Int).Set(orZero(ev.ETA))
	s.gov.ProposalsQueued++

	return e.saveProposal(s, p)
}

func (e *Engine) applyProposalExecuted(s *step, ev *ledger.ProposalExecuted) error {
	p, err := e.knownProposal(s, ev.ProposalID)
	if err != nil || p == nil {
		return err
	}
	if !e.transition(s, p, ledger.StateExecuted) {
		return nil
	}

	p.ExecutionETA = nil
	p.ExecutionBlock = ev.BlockNumber
	p.ExecutionTime = ev.BlockTime
	s.gov.ProposalsQueued--
	s.gov.ProposalsExecuted++

	return e.saveProposal(s, p)
}

func (e *Engine) applyQuorumNumeratorUpdated(s *step, ev *ledger.QuorumNumeratorUpdated) error {
	s.gov.QuorumNumerator = new(big.Int).Set(orZero(ev.NewQuorumNumerator))
	return nil
}

// knownProposal loads the proposal a lifecycle event refers to. An unknown id
// is a fault and yields a nil proposal.
func (e *Engine) knownProposal(s *step, proposalID *big.Int) (*ledger.Proposal, error) {
	id := orZero(proposalID).String()

	p, found, err := s.repo.Proposal(s.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposal %s: %w", id, err)
	}
	if !found {
		s.fault(ledger.FaultUnknownProposal, "proposal {proposal} does not exist",
			map[string]any{"proposal": id})
		return nil, nil
	}
	return p, nil
}

// transition moves p to next. Moves outside the governor lifecycle are
// reported; in strict mode they are also refused.
func (e *Engine) transition(s *step, p *ledger.Proposal, next ledger.ProposalState) bool {
	if !p.State.CanTransition(next) {
		s.fault(ledger.FaultIllegalTransition, "proposal {proposal} cannot move from {from} to {to}",
			map[string]any{"proposal": p.ID, "from": string(p.State), "to": string(next)})

		if e.opts.StrictLifecycle {
			return false
		}
	}

	p.State = next
	return true
}

func (e *Engine) saveProposal(s *step, p *ledger.Proposal) error {
	if err := s.repo.SaveProposal(s.ctx, p); err != nil {
		return fmt.Errorf("failed to save proposal %s: %w", p.ID, err)
	}
	return nil
}
