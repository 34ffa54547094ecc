package api

import (
	"time"

	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// PageParams holds the pagination query parameters of a listing.
type PageParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p PageParams) page() ledger.Page {
	return ledger.Page{Limit: p.Limit, Offset: p.Offset}
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func newPagination(p PageParams, returned, total int) PaginationResult {
	return PaginationResult{
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+returned < total,
	}
}

// ProposalsResponse is a page of proposals.
type ProposalsResponse struct {
	Proposals  []*ledger.Proposal `json:"proposals"`
	Pagination PaginationResult   `json:"pagination"`
}

// VotesResponse is a page of votes cast on one proposal.
type VotesResponse struct {
	ProposalID string           `json:"proposal_id"`
	Votes      []*ledger.Vote   `json:"votes"`
	Pagination PaginationResult `json:"pagination"`
}

// GovernanceResponse is the DAO-wide aggregate together with the applied cursor.
type GovernanceResponse struct {
	Governance *ledger.Governance `json:"governance"`
	Cursor     *ledger.Cursor     `json:"cursor,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Indexers  []IndexerStatus `json:"indexers"`
}

// IndexerStatus represents the status of a single indexer.
type IndexerStatus struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	LastBlock    uint64 `json:"last_block"`
	LastLogIndex uint   `json:"last_log_index"`
	Proposals    int64  `json:"proposals"`
	Healthy      bool   `json:"healthy"`
}

// IndexerInfo represents information about an available indexer.
type IndexerInfo struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	StartBlock uint64   `json:"start_block"`
	Contracts  []string `json:"contracts"`
	Endpoints  []string `json:"endpoints"`
}
