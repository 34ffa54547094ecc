package store

import (
	"context"
	"slices"
	"sync"

	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// Compile-time check to ensure MemoryStore implements ledger.Store.
var _ ledger.Store = (*MemoryStore)(nil)

// table keeps private copies of entities so callers never share pointers
// with the store.
type table[E interface{ Clone() E }] map[string]E

func (t table[E]) get(id string) (E, bool) {
	e, ok := t[id]
	if !ok {
		var zero E
		return zero, false
	}
	return e.Clone(), true
}

func (t table[E]) put(id string, e E) {
	t[id] = e.Clone()
}

type memoryTables struct {
	holders    table[*ledger.TokenHolder]
	delegates  table[*ledger.Delegate]
	proposals  table[*ledger.Proposal]
	votes      table[*ledger.Vote]
	governance table[*ledger.Governance]
	pools      table[*ledger.Pool]
	positions  table[*ledger.PoolPosition]
	voteOrder  []string
	cursor     *ledger.Cursor
}

func newMemoryTables() *memoryTables {
	return &memoryTables{
		holders:    make(table[*ledger.TokenHolder]),
		delegates:  make(table[*ledger.Delegate]),
		proposals:  make(table[*ledger.Proposal]),
		votes:      make(table[*ledger.Vote]),
		governance: make(table[*ledger.Governance]),
		pools:      make(table[*ledger.Pool]),
		positions:  make(table[*ledger.PoolPosition]),
	}
}

// MemoryStore is an in-process ledger store. Transactions stage their writes
// and merge them on success; a failed transaction leaves no trace.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memoryTables
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryTables()}
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(repo ledger.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{base: m.data, staged: newMemoryTables()}
	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (m *MemoryStore) TokenHolder(_ context.Context, id string) (*ledger.TokenHolder, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.data.holders.get(id)
	return h, ok, nil
}

func (m *MemoryStore) Delegate(_ context.Context, id string) (*ledger.Delegate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data.delegates.get(id)
	return d, ok, nil
}

func (m *MemoryStore) Proposal(_ context.Context, id string) (*ledger.Proposal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.proposals.get(id)
	return p, ok, nil
}

func (m *MemoryStore) Vote(_ context.Context, id string) (*ledger.Vote, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data.votes.get(id)
	return v, ok, nil
}

func (m *MemoryStore) Governance(_ context.Context) (*ledger.Governance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.data.governance.get(ledger.GovernanceID)
	return g, ok, nil
}

func (m *MemoryStore) Pool(_ context.Context, id string) (*ledger.Pool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.pools.get(id)
	return p, ok, nil
}

func (m *MemoryStore) PoolPosition(_ context.Context, id string) (*ledger.PoolPosition, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.positions.get(id)
	return p, ok, nil
}

func (m *MemoryStore) Cursor(_ context.Context) (ledger.Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data.cursor == nil {
		return ledger.Cursor{}, false, nil
	}
	return *m.data.cursor, true, nil
}

func (m *MemoryStore) ListProposals(_ context.Context, page ledger.Page) ([]*ledger.Proposal, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*ledger.Proposal, 0, len(m.data.proposals))
	for id := range m.data.proposals {
		p, _ := m.data.proposals.get(id)
		all = append(all, p)
	}
	slices.SortFunc(all, func(a, b *ledger.Proposal) int {
		if a.CreationBlock != b.CreationBlock {
			if a.CreationBlock > b.CreationBlock {
				return -1
			}
			return 1
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})

	return paginate(all, page), len(all), nil
}

func (m *MemoryStore) ListVotes(_ context.Context, proposalID string, page ledger.Page) ([]*ledger.Vote, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*ledger.Vote
	for _, id := range m.data.voteOrder {
		v, _ := m.data.votes.get(id)
		if v.ProposalID == proposalID {
			all = append(all, v)
		}
	}

	return paginate(all, page), len(all), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func paginate[T any](all []T, page ledger.Page) []T {
	if page.Offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return all[page.Offset:end]
}

// memoryTx reads through its staged writes to the committed tables.
type memoryTx struct {
	base   *memoryTables
	staged *memoryTables
}

func lookup[E interface{ Clone() E }](staged, base table[E], id string) (E, bool, error) {
	if e, ok := staged.get(id); ok {
		return e, true, nil
	}
	e, ok := base.get(id)
	return e, ok, nil
}

func (t *memoryTx) TokenHolder(_ context.Context, id string) (*ledger.TokenHolder, bool, error) {
	return lookup(t.staged.holders, t.base.holders, id)
}

func (t *memoryTx) Delegate(_ context.Context, id string) (*ledger.Delegate, bool, error) {
	return lookup(t.staged.delegates, t.base.delegates, id)
}

func (t *memoryTx) Proposal(_ context.Context, id string) (*ledger.Proposal, bool, error) {
	return lookup(t.staged.proposals, t.base.proposals, id)
}

func (t *memoryTx) Vote(_ context.Context, id string) (*ledger.Vote, bool, error) {
	return lookup(t.staged.votes, t.base.votes, id)
}

func (t *memoryTx) Governance(_ context.Context) (*ledger.Governance, bool, error) {
	return lookup(t.staged.governance, t.base.governance, ledger.GovernanceID)
}

func (t *memoryTx) Pool(_ context.Context, id string) (*ledger.Pool, bool, error) {
	return lookup(t.staged.pools, t.base.pools, id)
}

func (t *memoryTx) PoolPosition(_ context.Context, id string) (*ledger.PoolPosition, bool, error) {
	return lookup(t.staged.positions, t.base.positions, id)
}

func (t *memoryTx) Cursor(_ context.Context) (ledger.Cursor, bool, error) {
	switch {
	case t.staged.cursor != nil:
		return *t.staged.cursor, true, nil
	case t.base.cursor != nil:
		return *t.base.cursor, true, nil
	default:
		return ledger.Cursor{}, false, nil
	}
}

func (t *memoryTx) SaveTokenHolder(_ context.Context, h *ledger.TokenHolder) error {
	t.staged.holders.put(h.ID, h)
	return nil
}

func (t *memoryTx) SaveDelegate(_ context.Context, d *ledger.Delegate) error {
	t.staged.delegates.put(d.ID, d)
	return nil
}

func (t *memoryTx) SaveProposal(_ context.Context, p *ledger.Proposal) error {
	t.staged.proposals.put(p.ID, p)
	return nil
}

func (t *memoryTx) CreateVote(ctx context.Context, v *ledger.Vote) error {
	if _, exists, _ := t.Vote(ctx, v.ID); exists {
		return ledger.ErrVoteExists
	}
	t.staged.votes.put(v.ID, v)
	t.staged.voteOrder = append(t.staged.voteOrder, v.ID)
	return nil
}

func (t *memoryTx) SaveGovernance(_ context.Context, g *ledger.Governance) error {
	t.staged.governance.put(ledger.GovernanceID, g)
	return nil
}

func (t *memoryTx) SavePool(_ context.Context, p *ledger.Pool) error {
	t.staged.pools.put(p.ID, p)
	return nil
}

func (t *memoryTx) SavePoolPosition(_ context.Context, p *ledger.PoolPosition) error {
	t.staged.positions.put(p.ID, p)
	return nil
}

func (t *memoryTx) SaveCursor(_ context.Context, c ledger.Cursor) error {
	t.staged.cursor = &c
	return nil
}

func (t *memoryTx) commit() {
	merge(t.base.holders, t.staged.holders)
	merge(t.base.delegates, t.staged.delegates)
	merge(t.base.proposals, t.staged.proposals)
	merge(t.base.votes, t.staged.votes)
	merge(t.base.governance, t.staged.governance)
	merge(t.base.pools, t.staged.pools)
	merge(t.base.positions, t.staged.positions)
	t.base.voteOrder = append(t.base.voteOrder, t.staged.voteOrder...)
	if t.staged.cursor != nil {
		t.base.cursor = t.staged.cursor
	}
}

func merge[E interface{ Clone() E }](dst, src table[E]) {
	for id, e := range src {
		dst[id] = e
	}
}
