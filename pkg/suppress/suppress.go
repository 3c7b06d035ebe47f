// Package suppress builds the duplicate-suppression index consulted
// before an idea is evaluated. It keeps a periodic idea proposer from
// re-emitting the same suggestion every cycle while the previous copy
// is still awaiting review or was carried out recently.
package suppress

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

// Set names identify which suppression set matched a fingerprint.
const (
	SetCompleted = "completed"
	SetPending   = "pending"
)

// Config bounds the two lookback windows. "Already executed" and
// "still awaiting review" carry different staleness tolerances, so
// the windows are configured independently.
type Config struct {
	CompletedWindow time.Duration
	PendingWindow   time.Duration
}

// Index is a read-only fingerprint lookup built once per worker
// activation. It is never updated during a batch.
type Index struct {
	completed map[string]struct{}
	pending   map[string]struct{}
}

// IsDuplicate reports whether the idea's fingerprint was executed
// recently or is still pending review, and which set matched.
func (ix *Index) IsDuplicate(idea *contracts.Idea) (bool, string) {
	fp := fingerprint.Of(idea)
	if _, ok := ix.completed[fp]; ok {
		return true, SetCompleted
	}
	if _, ok := ix.pending[fp]; ok {
		return true, SetPending
	}
	return false, ""
}

// Sizes returns the member counts of both sets.
func (ix *Index) Sizes() (completed, pending int) {
	return len(ix.completed), len(ix.pending)
}

// Builder scans the archive and assembles an Index. A failed build
// never blocks ingestion: unreadable or malformed records are skipped
// and the index is assembled from whatever is readable, so suppression
// degrades to under-suppression.
type Builder struct {
	archive records.Archive
	cfg     Config
	clock   func() time.Time
	logger  *slog.Logger
}

func NewBuilder(archive records.Archive, cfg Config) *Builder {
	return &Builder{
		archive: archive,
		cfg:     cfg,
		clock:   time.Now,
		logger:  slog.Default().With("component", "suppress"),
	}
}

// WithClock overrides the time source for tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

func (b *Builder) Build(ctx context.Context) *Index {
	ix := &Index{
		completed: make(map[string]struct{}),
		pending:   make(map[string]struct{}),
	}
	now := b.clock().UTC()
	b.collectCompleted(ctx, ix, now)
	b.collectPending(ctx, ix, now)
	return ix
}

// collectCompleted gathers fingerprints of COMPLETED executions whose
// execution timestamp falls inside the completed window.
func (b *Builder) collectCompleted(ctx context.Context, ix *Index, now time.Time) {
	infos, err := b.archive.List(ctx, records.PrefixExecutions)
	if err != nil {
		b.logger.Warn("listing executions failed, completed set left empty", "error", err)
		return
	}
	cutoff := now.Add(-b.cfg.CompletedWindow)
	for _, info := range infos {
		var rec contracts.ExecutionRecord
		if err := b.archive.Get(ctx, info.Key, &rec); err != nil {
			b.logger.Warn("skipping unreadable execution record", "key", info.Key, "error", err)
			continue
		}
		if err := contracts.CompatibleSchema(rec.SchemaVersion); err != nil {
			b.logger.Warn("skipping execution record with incompatible schema", "key", info.Key, "error", err)
			continue
		}
		if rec.Status != contracts.StatusCompleted || rec.Fingerprint == "" {
			continue
		}
		if rec.ExecutedAt.Before(cutoff) {
			continue
		}
		ix.completed[rec.Fingerprint] = struct{}{}
	}
}

// collectPending gathers fingerprints of evaluation records whose
// storage object was modified inside the pending window. Object mtime
// stands in for "still moving through the pipeline".
func (b *Builder) collectPending(ctx context.Context, ix *Index, now time.Time) {
	infos, err := b.archive.List(ctx, records.PrefixEvaluations)
	if err != nil {
		b.logger.Warn("listing evaluations failed, pending set left empty", "error", err)
		return
	}
	cutoff := now.Add(-b.cfg.PendingWindow)
	for _, info := range infos {
		if info.LastModified.Before(cutoff) {
			continue
		}
		var rec contracts.EvaluationRecord
		if err := b.archive.Get(ctx, info.Key, &rec); err != nil {
			b.logger.Warn("skipping unreadable evaluation record", "key", info.Key, "error", err)
			continue
		}
		if err := contracts.CompatibleSchema(rec.SchemaVersion); err != nil {
			b.logger.Warn("skipping evaluation record with incompatible schema", "key", info.Key, "error", err)
			continue
		}
		if rec.Fingerprint == "" {
			continue
		}
		ix.pending[rec.Fingerprint] = struct{}{}
	}
}
