package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/db"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/internal/store/migrations"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
	"github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
)

// Compile-time check to ensure SQLiteStore implements ledger.Store.
var _ ledger.Store = (*SQLiteStore)(nil)

const (
	tableTokenHolders  = "token_holders"
	tableDelegates     = "delegates"
	tableProposals     = "proposals"
	tableVotes         = "votes"
	tableGovernance    = "governance"
	tablePools         = "pools"
	tablePoolPositions = "pool_positions"

	cursorRowID = 1
)

// cursorRow is the single applied_cursor row.
type cursorRow struct {
	ID       int64  `meddler:"id,pk"`
	Block    uint64 `meddler:"block"`
	LogIndex uint   `meddler:"log_index"`
}

// SQLiteStore persists the ledger of one shard in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	name string
	log  *logger.Logger
}

// NewSQLiteStore migrates the database described by cfg and opens it.
// name labels the store in metrics.
func NewSQLiteStore(cfg config.DatabaseConfig, name string, log *logger.Logger) (*SQLiteStore, error) {
	if err := migrations.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return NewSQLiteStoreFromDB(database, name, log), nil
}

// NewSQLiteStoreFromDB wraps an already migrated database.
func NewSQLiteStoreFromDB(database *sql.DB, name string, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:   database,
		name: name,
		log:  log.WithComponent(common.ComponentStore),
	}
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Atomic(ctx context.Context, fn func(repo ledger.Repository) error) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration(s.name, "atomic", time.Since(start))
	}()

	err := db.WithTx(ctx, s.db, s.log, func(tx *sql.Tx) error {
		return fn(&sqliteRepo{q: tx, name: s.name})
	})
	if err != nil {
		metrics.DBErrorsInc(s.name, "atomic")
	}
	return err
}

func (s *SQLiteStore) reader() *sqliteRepo {
	return &sqliteRepo{q: s.db, name: s.name}
}

func (s *SQLiteStore) TokenHolder(ctx context.Context, id string) (*ledger.TokenHolder, bool, error) {
	return s.reader().TokenHolder(ctx, id)
}

func (s *SQLiteStore) Delegate(ctx context.Context, id string) (*ledger.Delegate, bool, error) {
	return s.reader().Delegate(ctx, id)
}

func (s *SQLiteStore) Proposal(ctx context.Context, id string) (*ledger.Proposal, bool, error) {
	return s.reader().Proposal(ctx, id)
}

func (s *SQLiteStore) Vote(ctx context.Context, id string) (*ledger.Vote, bool, error) {
	return s.reader().Vote(ctx, id)
}

func (s *SQLiteStore) Governance(ctx context.Context) (*ledger.Governance, bool, error) {
	return s.reader().Governance(ctx)
}

func (s *SQLiteStore) Pool(ctx context.Context, id string) (*ledger.Pool, bool, error) {
	return s.reader().Pool(ctx, id)
}

func (s *SQLiteStore) PoolPosition(ctx context.Context, id string) (*ledger.PoolPosition, bool, error) {
	return s.reader().PoolPosition(ctx, id)
}

func (s *SQLiteStore) Cursor(ctx context.Context) (ledger.Cursor, bool, error) {
	return s.reader().Cursor(ctx)
}

func (s *SQLiteStore) ListProposals(ctx context.Context, page ledger.Page) ([]*ledger.Proposal, int, error) {
	metrics.DBQueryInc(s.name, "list_proposals")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	var proposals []*ledger.Proposal
	err := meddler.QueryAll(s.db, &proposals,
		`SELECT * FROM proposals ORDER BY creation_block DESC, id DESC LIMIT ? OFFSET ?`,
		limitOf(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}

	return proposals, total, nil
}

func (s *SQLiteStore) ListVotes(ctx context.Context, proposalID string,
	page ledger.Page) ([]*ledger.Vote, int, error) {
	metrics.DBQueryInc(s.name, "list_votes")

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE proposal_id = ?`, proposalID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count votes: %w", err)
	}

	var votes []*ledger.Vote
	err = meddler.QueryAll(s.db, &votes,
		`SELECT * FROM votes WHERE proposal_id = ? ORDER BY rowid ASC LIMIT ? OFFSET ?`,
		proposalID, limitOf(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list votes: %w", err)
	}

	return votes, total, nil
}

// limitOf maps a non-positive limit to SQLite's "no limit".
func limitOf(page ledger.Page) int {
	if page.Limit <= 0 {
		return -1
	}
	return page.Limit
}

// sqliteRepo runs queries against either the database or a transaction.
type sqliteRepo struct {
	q    meddler.DB
	name string
}

// load reads the row with the given id into dst; a missing row is not an error.
func (r *sqliteRepo) load(table, id string, dst any) (bool, error) {
	metrics.DBQueryInc(r.name, "load_"+table)

	err := meddler.QueryRow(r.q, dst, "SELECT * FROM "+table+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s %s: %w", table, id, err)
	}
	return true, nil
}

// save replaces the row with the given id.
func (r *sqliteRepo) save(ctx context.Context, table, id string, src any) error {
	metrics.DBQueryInc(r.name, "save_"+table)

	if _, err := r.q.Exec("DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to replace %s %s: %w", table, id, err)
	}
	if err := meddler.Insert(r.q, table, src); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", table, id, err)
	}
	return ctx.Err()
}

func (r *sqliteRepo) TokenHolder(_ context.Context, id string) (*ledger.TokenHolder, bool, error) {
	var h ledger.TokenHolder
	found, err := r.load(tableTokenHolders, id, &h)
	if !found || err != nil {
		return nil, false, err
	}
	return &h, true, nil
}

func (r *sqliteRepo) Delegate(_ context.Context, id string) (*ledger.Delegate, bool, error) {
	var d ledger.Delegate
	found, err := r.load(tableDelegates, id, &d)
	if !found || err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (r *sqliteRepo) Proposal(_ context.Context, id string) (*ledger.Proposal, bool, error) {
	var p ledger.Proposal
	found, err := r.load(tableProposals, id, &p)
	if !found || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (r *sqliteRepo) Vote(_ context.Context, id string) (*ledger.Vote, bool, error) {
	var v ledger.Vote
	found, err := r.load(tableVotes, id, &v)
	if !found || err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (r *sqliteRepo) Governance(_ context.Context) (*ledger.Governance, bool, error) {
	var g ledger.Governance
	found, err := r.load(tableGovernance, ledger.GovernanceID, &g)
	if !found || err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

func (r *sqliteRepo) Pool(_ context.Context, id string) (*ledger.Pool, bool, error) {
	var p ledger.Pool
	found, err := r.load(tablePools, id, &p)
	if !found || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (r *sqliteRepo) PoolPosition(_ context.Context, id string) (*ledger.PoolPosition, bool, error) {
	var p ledger.PoolPosition
	found, err := r.load(tablePoolPositions, id, &p)
	if !found || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (r *sqliteRepo) Cursor(_ context.Context) (ledger.Cursor, bool, error) {
	var row cursorRow
	err := meddler.QueryRow(r.q, &row, `SELECT * FROM applied_cursor WHERE id = ?`, cursorRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Cursor{}, false, nil
	}
	if err != nil {
		return ledger.Cursor{}, false, fmt.Errorf("failed to load applied cursor: %w", err)
	}
	return ledger.Cursor{Block: row.Block, LogIndex: row.LogIndex}, true, nil
}

func (r *sqliteRepo) SaveTokenHolder(ctx context.Context, h *ledger.TokenHolder) error {
	return r.save(ctx, tableTokenHolders, h.ID, h)
}

func (r *sqliteRepo) SaveDelegate(ctx context.Context, d *ledger.Delegate) error {
	return r.save(ctx, tableDelegates, d.ID, d)
}

func (r *sqliteRepo) SaveProposal(ctx context.Context, p *ledger.Proposal) error {
	return r.save(ctx, tableProposals, p.ID, p)
}

func (r *sqliteRepo) CreateVote(_ context.Context, v *ledger.Vote) error {
	exists, err := r.load(tableVotes, v.ID, &ledger.Vote{})
	if err != nil {
		return err
	}
	if exists {
		return ledger.ErrVoteExists
	}

	metrics.DBQueryInc(r.name, "create_vote")

	err = meddler.Insert(r.q, tableVotes, v)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ledger.ErrVoteExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote %s: %w", v.ID, err)
	}
	return nil
}

func (r *sqliteRepo) SaveGovernance(ctx context.Context, g *ledger.Governance) error {
	return r.save(ctx, tableGovernance, g.ID, g)
}

func (r *sqliteRepo) SavePool(ctx context.Context, p *ledger.Pool) error {
	return r.save(ctx, tablePools, p.ID, p)
}

func (r *sqliteRepo) SavePoolPosition(ctx context.Context, p *ledger.PoolPosition) error {
	return r.save(ctx, tablePoolPositions, p.ID, p)
}

func (r *sqliteRepo) SaveCursor(_ context.Context, c ledger.Cursor) error {
	metrics.DBQueryInc(r.name, "save_cursor")

	_, err := r.q.Exec(`
		INSERT INTO applied_cursor (id, block, log_index) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET block = excluded.block, log_index = excluded.log_index
	`, cursorRowID, c.Block, c.LogIndex)
	if err != nil {
		return fmt.Errorf("failed to save applied cursor: %w", err)
	}
	return nil
}
