package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

func at(block uint64, logIndex uint) ledger.EventContext {
	return ledger.EventContext{BlockNumber: block, LogIndex: logIndex, BlockTime: 1_700_000_000 + block}
}

func writeEventLog(t *testing.T, events ...ledger.Event) string {
	t.Helper()

	var buf bytes.Buffer
	for _, ev := range events {
		line, err := ledger.MarshalEvent(ev)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteString("\n\n")
	}

	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func governanceLog(t *testing.T) string {
	t.Helper()

	return writeEventLog(t,
		&ledger.Transfer{EventContext: at(10, 0), To: alice, Value: big.NewInt(1000)},
		&ledger.Transfer{EventContext: at(11, 0), From: alice, To: bob, Value: big.NewInt(400)},
		&ledger.QuorumNumeratorUpdated{EventContext: at(12, 0),
			OldQuorumNumerator: big.NewInt(0), NewQuorumNumerator: big.NewInt(4)},
		&ledger.ProposalCreated{EventContext: at(13, 1), ProposalID: big.NewInt(1), Proposer: alice,
			StartBlock: big.NewInt(14), EndBlock: big.NewInt(100), Description: "fund the grants program"},
	)
}

func TestRunReplay_MemoryStore(t *testing.T) {
	summary, err := runReplay(context.Background(), replayOptions{
		events:    governanceLog(t),
		name:      "replay",
		decimals:  18,
		lifecycle: config.LifecyclePermissive,
		logLevel:  "error",
	})
	require.NoError(t, err)

	require.Equal(t, 4, summary.Events)
	require.Equal(t, 4, summary.Applied)
	require.Equal(t, &ledger.Cursor{Block: 13, LogIndex: 1}, summary.Cursor)
	require.Equal(t, int64(1), summary.Governance.Proposals)
	require.Equal(t, int64(2), summary.Governance.CurrentTokenHolders)
	require.Equal(t, "4", summary.Governance.QuorumNumerator.String())
}

func TestRunReplay_SQLiteStoreResumes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.sqlite")
	opts := replayOptions{
		events:    governanceLog(t),
		dbPath:    dbPath,
		name:      "replay",
		decimals:  18,
		lifecycle: config.LifecycleStrict,
		logLevel:  "error",
	}

	first, err := runReplay(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 4, first.Applied)

	// The applied cursor persists, so the same log changes nothing the second time.
	second, err := runReplay(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 4, second.Events)
	require.Zero(t, second.Applied)
	require.Equal(t, first.Governance.Proposals, second.Governance.Proposals)
	require.Equal(t, first.Cursor, second.Cursor)
}

func TestRunReplay_Errors(t *testing.T) {
	badLine := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(badLine, []byte(`{"kind":"Mint","event":{}}`+"\n"), 0o600))

	tests := []struct {
		name    string
		opts    replayOptions
		wantErr string
	}{
		{
			name:    "missing file",
			opts:    replayOptions{events: filepath.Join(t.TempDir(), "absent.jsonl"), logLevel: "error"},
			wantErr: "failed to open event log",
		},
		{
			name:    "unknown event kind",
			opts:    replayOptions{events: badLine, logLevel: "error"},
			wantErr: `line 1: unknown event kind "Mint"`,
		},
		{
			name:    "bad lifecycle",
			opts:    replayOptions{events: badLine, lifecycle: "lenient", logLevel: "error"},
			wantErr: "invalid lifecycle",
		},
		{
			name:    "bad log level",
			opts:    replayOptions{events: badLine, logLevel: "loud"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runReplay(context.Background(), tt.opts)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReadEvents_Batches(t *testing.T) {
	var input strings.Builder
	for i := range 5 {
		line, err := ledger.MarshalEvent(&ledger.Transfer{EventContext: at(uint64(i), 0), To: alice, Value: big.NewInt(1)})
		require.NoError(t, err)
		input.Write(line)
		input.WriteString("\n")
	}

	var sizes []int
	var blocks []uint64
	err := readEvents(strings.NewReader(input.String()), 2, func(batch []ledger.Event) error {
		sizes = append(sizes, len(batch))
		for _, ev := range batch {
			blocks = append(blocks, ev.Context().BlockNumber)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 1}, sizes)
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, blocks)
}

func TestReplayCmd_PrintsSummary(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"replay", "--events", governanceLog(t), "--log-level", "error"})

	require.NoError(t, cmd.Execute())

	var summary replaySummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	require.Equal(t, 4, summary.Applied)
	require.Equal(t, int64(1), summary.Governance.Proposals)
}

func TestListCmd(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"list"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "- "+config.IndexerTypeGovernance)
}

func TestSchemaCmd(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"schema"})

	require.NoError(t, cmd.Execute())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	require.Equal(t, "GovIndexor configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "downloader")
	require.Contains(t, props, "indexers")
}
