package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/pkg/indexer"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// IndexerRegistry defines the interface for accessing registered indexers.
type IndexerRegistry interface {
	GetByName(name string) indexer.Indexer
	ListAll() []indexer.Indexer
}

// Handler handles HTTP requests for the API.
type Handler struct {
	registry IndexerRegistry
	log      *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(registry IndexerRegistry, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log,
	}
}

// ListIndexers returns a list of all queryable indexers.
// @Summary List all indexers
// @Description Get a list of all registered indexers with their contracts and available endpoints
// @Tags Indexers
// @Produce json
// @Success 200 {array} IndexerInfo "List of indexers"
// @Router /indexers [get]
func (h *Handler) ListIndexers(w http.ResponseWriter, r *http.Request) {
	infos := make([]IndexerInfo, 0, len(h.registry.ListAll()))
	for _, idx := range h.registry.ListAll() {
		if _, ok := idx.(indexer.Queryable); !ok {
			continue
		}

		contracts := make([]string, 0, len(idx.EventsToIndex()))
		for addr := range idx.EventsToIndex() {
			contracts = append(contracts, ledger.AccountID(addr))
		}

		slices.Sort(contracts)

		base := "/api/v1/indexers/" + idx.Name()
		infos = append(infos, IndexerInfo{
			Type:       idx.Type(),
			Name:       idx.Name(),
			StartBlock: idx.StartBlock(),
			Contracts:  contracts,
			Endpoints: []string{
				base + "/governance",
				base + "/holders/{address}",
				base + "/delegates/{address}",
				base + "/proposals",
				base + "/proposals/{id}",
				base + "/proposals/{id}/votes",
				base + "/pools/{pid}/positions/{address}",
			},
		})
	}

	respondJSON(w, http.StatusOK, infos)
}

// GetGovernance returns the governance aggregate of an indexer.
// @Summary Get governance aggregate
// @Description Retrieve DAO-wide counters, delegated votes and the quorum numerator
// @Tags Governance
// @Produce json
// @Param name path string true "Indexer name"
// @Success 200 {object} GovernanceResponse "Governance aggregate"
// @Failure 404 {object} ErrorResponse "Indexer not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /indexers/{name}/governance [get]
func (h *Handler) GetGovernance(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	gov, found, err := store.Governance(r.Context())
	if err != nil {
		h.internalError(w, "failed to load governance", err)
		return
	}
	if !found {
		gov = ledger.NewGovernance()
	}

	resp := GovernanceResponse{Governance: gov}
	cursor, found, err := store.Cursor(r.Context())
	if err != nil {
		h.internalError(w, "failed to load applied cursor", err)
		return
	}
	if found {
		resp.Cursor = &cursor
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetHolder returns a token holder.
// @Summary Get token holder
// @Description Retrieve balance, lifetime holdings and delegate of an address
// @Tags Accounts
// @Produce json
// @Param name path string true "Indexer name"
// @Param address path string true "Holder address"
// @Success 200 {object} ledger.TokenHolder "Token holder"
// @Failure 400 {object} ErrorResponse "Invalid address"
// @Failure 404 {object} ErrorResponse "Indexer or holder not found"
// @Router /indexers/{name}/holders/{address} [get]
func (h *Handler) GetHolder(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := addressParam(w, r, "address")
	if !ok {
		return
	}

	holder, found, err := store.TokenHolder(r.Context(), id)
	respondEntity(h, w, "token holder", id, holder, found, err)
}

// GetDelegate returns a delegate.
// @Summary Get delegate
// @Description Retrieve delegated votes and represented holders of an address
// @Tags Accounts
// @Produce json
// @Param name path string true "Indexer name"
// @Param address path string true "Delegate address"
// @Success 200 {object} ledger.Delegate "Delegate"
// @Failure 400 {object} ErrorResponse "Invalid address"
// @Failure 404 {object} ErrorResponse "Indexer or delegate not found"
// @Router /indexers/{name}/delegates/{address} [get]
func (h *Handler) GetDelegate(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := addressParam(w, r, "address")
	if !ok {
		return
	}

	delegate, found, err := store.Delegate(r.Context(), id)
	respondEntity(h, w, "delegate", id, delegate, found, err)
}

// ListProposals returns proposals, newest first.
// @Summary List proposals
// @Description Retrieve proposals ordered by creation block, newest first
// @Tags Proposals
// @Produce json
// @Param name path string true "Indexer name"
// @Param limit query int false "Maximum number of proposals (1-1000)" default(50)
// @Param offset query int false "Number of proposals to skip" default(0)
// @Success 200 {object} ProposalsResponse "Page of proposals"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer not found"
// @Router /indexers/{name}/proposals [get]
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	params, err := parsePageParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	proposals, total, err := store.ListProposals(r.Context(), params.page())
	if err != nil {
		h.internalError(w, "failed to list proposals", err)
		return
	}
	if proposals == nil {
		proposals = []*ledger.Proposal{}
	}

	respondJSON(w, http.StatusOK, ProposalsResponse{
		Proposals:  proposals,
		Pagination: newPagination(params, len(proposals), total),
	})
}

// GetProposal returns a proposal.
// @Summary Get proposal
// @Description Retrieve a proposal with its state and vote tallies
// @Tags Proposals
// @Produce json
// @Param name path string true "Indexer name"
// @Param id path string true "Proposal id"
// @Success 200 {object} ledger.Proposal "Proposal"
// @Failure 400 {object} ErrorResponse "Invalid proposal id"
// @Failure 404 {object} ErrorResponse "Indexer or proposal not found"
// @Router /indexers/{name}/proposals/{id} [get]
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}

	proposal, found, err := store.Proposal(r.Context(), id)
	respondEntity(h, w, "proposal", id, proposal, found, err)
}

// ListVotes returns the votes cast on a proposal in chain order.
// @Summary List votes
// @Description Retrieve votes cast on a proposal in chain order
// @Tags Proposals
// @Produce json
// @Param name path string true "Indexer name"
// @Param id path string true "Proposal id"
// @Param limit query int false "Maximum number of votes (1-1000)" default(50)
// @Param offset query int false "Number of votes to skip" default(0)
// @Success 200 {object} VotesResponse "Page of votes"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer not found"
// @Router /indexers/{name}/proposals/{id}/votes [get]
func (h *Handler) ListVotes(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	params, err := parsePageParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	votes, total, err := store.ListVotes(r.Context(), id, params.page())
	if err != nil {
		h.internalError(w, "failed to list votes", err)
		return
	}
	if votes == nil {
		votes = []*ledger.Vote{}
	}

	respondJSON(w, http.StatusOK, VotesResponse{
		ProposalID: id,
		Votes:      votes,
		Pagination: newPagination(params, len(votes), total),
	})
}

// GetPoolPosition returns a user's stake in a pool.
// @Summary Get pool position
// @Description Retrieve the staked amount of a user in a reward pool
// @Tags Staking
// @Produce json
// @Param name path string true "Indexer name"
// @Param pid path string true "Pool id"
// @Param address path string true "User address"
// @Success 200 {object} ledger.PoolPosition "Pool position"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer or position not found"
// @Router /indexers/{name}/pools/{pid}/positions/{address} [get]
func (h *Handler) GetPoolPosition(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	pid, ok := uintParam(w, r, "pid")
	if !ok {
		return
	}
	if !common.IsHexAddress(r.PathValue("address")) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid address %q", r.PathValue("address")))
		return
	}

	id := ledger.PoolPositionID(pid, common.HexToAddress(r.PathValue("address")))
	position, found, err := store.PoolPosition(r.Context(), id)
	respondEntity(h, w, "pool position", id, position, found, err)
}

// Health returns the health status of the API and all indexers.
// @Summary Health check
// @Description Check the health status of the API and all registered indexers
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API and indexer health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	statuses := make([]IndexerStatus, 0, len(h.registry.ListAll()))
	for _, idx := range h.registry.ListAll() {
		queryable, ok := idx.(indexer.Queryable)
		if !ok {
			continue
		}

		status := IndexerStatus{Name: idx.Name(), Type: idx.Type(), Healthy: true}

		cursor, _, err := queryable.Store().Cursor(r.Context())
		if err != nil {
			h.log.Warnf("failed to load cursor of indexer %s: %v", idx.Name(), err)
			status.Healthy = false
		}
		status.LastBlock = cursor.Block
		status.LastLogIndex = cursor.LogIndex

		gov, found, err := queryable.Store().Governance(r.Context())
		if err != nil {
			h.log.Warnf("failed to load governance of indexer %s: %v", idx.Name(), err)
			status.Healthy = false
		} else if found {
			status.Proposals = gov.Proposals
		}

		statuses = append(statuses, status)
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Indexers:  statuses,
	})
}

// store resolves the {name} path value to the ledger store of a queryable indexer.
// It writes the error response and returns false when that is not possible.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (ledger.Store, bool) {
	name := r.PathValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "indexer name is required")
		return nil, false
	}

	idx := h.registry.GetByName(name)
	if idx == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("indexer '%s' not found", name))
		return nil, false
	}

	queryable, ok := idx.(indexer.Queryable)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("indexer '%s' does not support querying", name))
		return nil, false
	}

	return queryable.Store(), true
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Errorf("%s: %v", msg, err)
	respondError(w, http.StatusInternalServerError, msg)
}

func respondEntity[E any](h *Handler, w http.ResponseWriter, kind, id string, e E, found bool, err error) {
	switch {
	case err != nil:
		h.internalError(w, "failed to load "+kind, err)
	case !found:
		respondError(w, http.StatusNotFound, fmt.Sprintf("%s '%s': %v", kind, id, ledger.ErrNotFound))
	default:
		respondJSON(w, http.StatusOK, e)
	}
}

// addressParam validates a hex address path value and returns its entity id.
func addressParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	raw := r.PathValue(key)
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid address %q", raw))
		return "", false
	}
	return ledger.AccountID(common.HexToAddress(raw)), true
}

// uintParam parses a decimal or 0x-prefixed unsigned integer path value into
// its canonical decimal form.
func uintParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	raw := r.PathValue(key)
	v, ok := new(big.Int).SetString(raw, 0)
	if !ok || v.Sign() < 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", key, raw))
		return "", false
	}
	return v.String(), true
}

// parsePageParams parses limit and offset query parameters.
func parsePageParams(r *http.Request) (PageParams, error) {
	params := PageParams{Limit: defaultLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxLimit {
			return params, fmt.Errorf("invalid limit: must be between 1 and %d", maxLimit)
		}
		params.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return params, fmt.Errorf("invalid offset: must be non-negative")
		}
		params.Offset = offset
	}

	return params, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status.
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	// Headers are already sent; a write error cannot be reported to the client.
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
