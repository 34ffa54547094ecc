package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by query endpoints when an entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVoteExists is returned by CreateVote when the vote id is already taken.
	ErrVoteExists = errors.New("vote already exists")
)

// Reader looks entities up by id. The boolean result reports whether the
// entity exists; absence is never an error.
type Reader interface {
	TokenHolder(ctx context.Context, id string) (*TokenHolder, bool, error)
	Delegate(ctx context.Context, id string) (*Delegate, bool, error)
	Proposal(ctx context.Context, id string) (*Proposal, bool, error)
	Vote(ctx context.Context, id string) (*Vote, bool, error)
	Governance(ctx context.Context) (*Governance, bool, error)
	Pool(ctx context.Context, id string) (*Pool, bool, error)
	PoolPosition(ctx context.Context, id string) (*PoolPosition, bool, error)
	Cursor(ctx context.Context) (Cursor, bool, error)
}

// Repository is the read-write view of the store inside one transaction.
type Repository interface {
	Reader

	SaveTokenHolder(ctx context.Context, h *TokenHolder) error
	SaveDelegate(ctx context.Context, d *Delegate) error
	SaveProposal(ctx context.Context, p *Proposal) error
	// CreateVote inserts a vote and fails with ErrVoteExists if the id is taken.
	CreateVote(ctx context.Context, v *Vote) error
	SaveGovernance(ctx context.Context, g *Governance) error
	SavePool(ctx context.Context, p *Pool) error
	SavePoolPosition(ctx context.Context, p *PoolPosition) error
	SaveCursor(ctx context.Context, c Cursor) error
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// Store persists the ledger of one shard.
type Store interface {
	Reader

	// Atomic runs fn in a single transaction. Nothing fn saved is visible
	// unless fn returns nil.
	Atomic(ctx context.Context, fn func(repo Repository) error) error

	// ListProposals returns proposals ordered by creation block, newest first,
	// together with the total number of proposals.
	ListProposals(ctx context.Context, page Page) ([]*Proposal, int, error)

	// ListVotes returns the votes of a proposal in chain order, together with
	// the total number of votes on it.
	ListVotes(ctx context.Context, proposalID string, page Page) ([]*Vote, int, error)

	Close() error
}
