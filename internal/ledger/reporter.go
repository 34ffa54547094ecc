package ledger

import (
	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/internal/metrics"
	"github.com/goran-ethernal/GovIndexor/pkg/ledger"
)

// LogReporter logs integrity faults as warnings and counts them per kind.
type LogReporter struct {
	log  *logger.Logger
	name string
	next ledger.FaultReporter
}

// NewLogReporter creates a reporter for the named shard. Faults are forwarded
// to next when it is not nil.
func NewLogReporter(log *logger.Logger, name string, next ledger.FaultReporter) *LogReporter {
	return &LogReporter{log: log, name: name, next: next}
}

// Report logs f, counts it and forwards it to the next reporter.
func (r *LogReporter) Report(f ledger.Fault) {
	metrics.IntegrityFaultInc(r.name, string(f.Kind))

	args := make([]any, 0, 2*len(f.Fields)+8) //nolint:mnd
	args = append(args,
		"indexer", r.name,
		"kind", string(f.Kind),
		"block", f.Event.BlockNumber,
		"log_index", f.Event.LogIndex,
	)
	for k, v := range f.Fields {
		args = append(args, k, v)
	}
	r.log.Warnw("integrity fault: "+f.Text(), args...)

	if r.next != nil {
		r.next.Report(f)
	}
}
