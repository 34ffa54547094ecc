package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goran-ethernal/GovIndexor/internal/common"
	"github.com/goran-ethernal/GovIndexor/internal/govindexer"
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/store"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
	"github.com/spf13/cobra"
)

const (
	replayBatchSize = 500
	maxEventLine    = 4 * 1024 * 1024
)

type replayOptions struct {
	events     string
	dbPath     string
	name       string
	decimals   uint8
	lifecycle  string
	resetVoter bool
	logLevel   string
}

// replaySummary is printed once the event log has been replayed.
type replaySummary struct {
	Events     int                `json:"events"`
	Applied    int                `json:"applied"`
	Cursor     *ledger.Cursor     `json:"cursor,omitempty"`
	Governance *ledger.Governance `json:"governance"`
}

func newReplayCmd() *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSON-lines event log into a ledger store",
		Long: `Replay applies decoded events, one JSON object per line as written by
ledger.MarshalEvent, to an in-memory ledger or to a SQLite database. No RPC node is
needed. Events already covered by the store's applied cursor are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := runReplay(cmd.Context(), opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.events, "events", "e", "", "path to the JSON-lines event log ('-' for stdin)")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database to replay into (in-memory when empty)")
	f.StringVar(&opts.name, "name", "replay", "indexer name used for logs and metrics")
	f.Uint8Var(&opts.decimals, "decimals", uint8(ledger.DefaultDecimals), "token decimals for derived amounts")
	f.StringVar(&opts.lifecycle, "lifecycle", config.LifecyclePermissive, "proposal lifecycle mode: permissive or strict")
	f.BoolVar(&opts.resetVoter, "reset-voter-on-vote", false, "recreate the voter's delegate record on every vote")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

func runReplay(ctx context.Context, opts replayOptions) (*replaySummary, error) {
	if _, ok := logger.ValidLogLevels[common.ToLowerWithTrim(opts.logLevel)]; !ok {
		return nil, fmt.Errorf("invalid log level %q", opts.logLevel)
	}
	log := logger.NewComponentLogger(common.ComponentLedger, common.ToLowerWithTrim(opts.logLevel), false)

	cfg := config.IndexerConfig{
		Name:             opts.name,
		Type:             config.IndexerTypeGovernance,
		TokenDecimals:    opts.decimals,
		Lifecycle:        opts.lifecycle,
		ResetVoterOnVote: opts.resetVoter,
		DB:               config.DatabaseConfig{Path: opts.dbPath},
	}
	cfg.ApplyDefaults()
	if cfg.Lifecycle != config.LifecyclePermissive && cfg.Lifecycle != config.LifecycleStrict {
		return nil, fmt.Errorf("invalid lifecycle %q: must be %s or %s",
			opts.lifecycle, config.LifecyclePermissive, config.LifecycleStrict)
	}

	var st ledger.Store
	if opts.dbPath == "" {
		st = store.NewMemoryStore()
	} else {
		sqliteStore, err := store.NewSQLiteStore(cfg.DB, cfg.Name, log)
		if err != nil {
			return nil, err
		}
		st = sqliteStore
	}

	idx, err := govindexer.NewWithStore(cfg, st, log)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}
	defer func() {
		if err := idx.Close(); err != nil {
			log.Warnf("failed to close store: %v", err)
		}
	}()

	in, closeIn, err := openEvents(opts.events)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	summary := &replaySummary{}
	err = readEvents(in, replayBatchSize, func(batch []ledger.Event) error {
		applied, err := idx.ApplyEvents(ctx, batch)
		summary.Events += len(batch)
		summary.Applied += applied
		return err
	})
	if err != nil {
		return nil, err
	}

	gov, found, err := idx.Store().Governance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load governance: %w", err)
	}
	if !found {
		gov = ledger.NewGovernance()
	}
	summary.Governance = gov

	cursor, found, err := idx.Store().Cursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load applied cursor: %w", err)
	}
	if found {
		summary.Cursor = &cursor
	}

	return summary, nil
}

func openEvents(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readEvents decodes one event per non-blank line and hands them to fn in
// batches of at most batchSize, preserving file order.
func readEvents(r io.Reader, batchSize int, fn func([]ledger.Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	batch := make([]ledger.Event, 0, batchSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		ev, err := ledger.UnmarshalEvent([]byte(text))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, ev)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
