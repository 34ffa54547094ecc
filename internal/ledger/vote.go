package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// applyVoteCast records an immutable vote, tallies it on the proposal and
// bumps the voter's vote count. Unknown support codes are stored but not tallied.
func (e *Engine) applyVoteCast(s *step, ev *ledger.VoteCast) error {
	proposalID := orZero(ev.ProposalID).String()
	voteID := ledger.VoteID(ev.Voter, proposalID)

	_, exists, err := s.repo.Vote(s.ctx, voteID)
	if err != nil {
		return fmt.Errorf("failed to load vote %s: %w", voteID, err)
	}
	if exists {
		s.fault(ledger.FaultDuplicateVote, "vote {vote} was already cast", map[string]any{"vote": voteID})
		return nil
	}

	vote := &ledger.Vote{
		ID:         voteID,
		ProposalID: proposalID,
		Voter:      ledger.AccountID(ev.Voter),
		Weight:     new(big.Int).Set(orZero(ev.Weight)),
		Reason:     ev.Reason,
		Choice:     ev.Support,
		Block:      ev.BlockNumber,
		Time:       ev.BlockTime,
		TxHash:     ev.TxHash,
	}
	if err := s.repo.CreateVote(s.ctx, vote); err != nil {
		if errors.Is(err, ledger.ErrVoteExists) {
			s.fault(ledger.FaultDuplicateVote, "vote {vote} was already cast", map[string]any{"vote": voteID})
			return nil
		}
		return fmt.Errorf("failed to create vote %s: %w", voteID, err)
	}

	p, found, err := s.repo.Proposal(s.ctx, proposalID)
	if err != nil {
		return fmt.Errorf("failed to load proposal %s: %w", proposalID, err)
	}
	if found {
		if p.State == ledger.StatePending {
			p.State = ledger.StateActive
		}

		switch ev.Support {
		case ledger.SupportAgainst:
			p.AgainstVotes++
		case ledger.SupportFor:
			p.ForVotes++
		case ledger.SupportAbstain:
			p.AbstainVotes++
		}

		if err := e.saveProposal(s, p); err != nil {
			return err
		}
	} else {
		s.fault(ledger.FaultUnknownProposal, "vote {vote} refers to unknown proposal {proposal}",
			map[string]any{"vote": voteID, "proposal": proposalID})
	}

	if e.opts.ResetVoterOnVote {
		return e.resetVoter(s, vote.Voter)
	}

	voter, err := s.delegateOrNew(ev.Voter)
	if err != nil {
		return err
	}
	voter.NumberVotes++

	return nil
}

// resetVoter replaces the voter's Delegate record with a fresh one holding a
// single vote. Overwriting a record that carried state is reported.
func (e *Engine) resetVoter(s *step, id string) error {
	existing, found, err := s.delegate(id)
	if err != nil {
		return err
	}

	fresh := ledger.NewDelegate(id)
	fresh.SetDelegatedVotes(new(big.Int), s.decimals)
	fresh.NumberVotes = 1

	if !found {
		s.gov.TotalDelegates++
	} else {
		if !existing.IsZero() {
			s.fault(ledger.FaultVoterReset, "delegate {delegate} was reset when casting a vote",
				map[string]any{
					"delegate":       id,
					"delegatedVotes": orZero(existing.DelegatedVotesRaw).String(),
					"represented":    existing.TokenHoldersRepresentedAmount,
					"numberVotes":    existing.NumberVotes,
				})
		}
		s.gov.CurrentDelegates += crossing(orZero(existing.DelegatedVotesRaw), fresh.DelegatedVotesRaw)
	}

	s.putDelegate(fresh)
	return nil
}
