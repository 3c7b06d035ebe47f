package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/observability"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
)

const ingestAgent = "log_ingest_worker"

// IdeaSource yields candidate ideas for the pipeline. Scan is called
// once per cycle and must tolerate being called repeatedly with the
// same underlying data; duplicate ideas are suppressed downstream by
// fingerprint, not here.
type IdeaSource interface {
	Scan(ctx context.Context) ([]contracts.Idea, error)
}

// FixtureSource serves a fixed list of ideas, mainly for tests and
// demos.
type FixtureSource struct {
	Ideas []contracts.Idea
}

func (s *FixtureSource) Scan(ctx context.Context) ([]contracts.Idea, error) {
	out := make([]contracts.Idea, len(s.Ideas))
	copy(out, s.Ideas)
	return out, nil
}

// JournalSource derives remediation ideas from a service log file. Only
// the trailing MaxBytes of the file are examined so an unbounded
// journal cannot stall a scan cycle.
type JournalSource struct {
	Path     string
	MaxBytes int64
}

// Scan reads the journal tail and maps error-class lines to ideas. A
// missing file is not an error; the source simply has nothing to say
// yet.
func (s *JournalSource) Scan(ctx context.Context) ([]contracts.Idea, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal %s: %w", s.Path, err)
	}
	defer f.Close()

	r := io.Reader(f)
	if s.MaxBytes > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat journal %s: %w", s.Path, err)
		}
		if info.Size() > s.MaxBytes {
			if _, err := f.Seek(info.Size()-s.MaxBytes, io.SeekStart); err != nil {
				return nil, fmt.Errorf("seek journal %s: %w", s.Path, err)
			}
			// The seek probably landed mid-line; drop the partial line.
			br := bufio.NewReader(f)
			if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
				return nil, fmt.Errorf("read journal %s: %w", s.Path, err)
			}
			r = br
		}
	}

	var ideas []contracts.Idea
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		severity := classifyLine(line)
		if severity == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		ideas = append(ideas, lineIdea(line, severity))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal %s: %w", s.Path, err)
	}
	return ideas, nil
}

// classifyLine maps log levels to severity tiers. Lines below WARN are
// not idea material.
func classifyLine(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "FATAL"), strings.Contains(upper, "PANIC"):
		return "high"
	case strings.Contains(upper, "ERROR"):
		return "medium"
	case strings.Contains(upper, "WARN"):
		return "low"
	}
	return ""
}

func lineIdea(line, severity string) contracts.Idea {
	risk := map[string]float64{"high": 0.4, "medium": 0.2, "low": 0.1}[severity]
	return contracts.Idea{
		Title:             "Investigate: " + truncate(line, 80),
		Description:       line,
		Severity:          severity,
		RecommendedAction: "Review service logs and remediate the reported failure.",
		OperationalRisk:   risk,
		Confidence:        0.7,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IngestOptions wires the ingestion worker. Queue and Source are
// required.
type IngestOptions struct {
	Queue  queue.Queue
	Source IdeaSource

	RatePerSec   float64
	Burst        int
	ScanInterval time.Duration

	Observability *observability.Provider
}

// Ingest periodically scans an idea source and submits each idea to
// the task queue, rate limited so a noisy source cannot flood the
// pipeline.
type Ingest struct {
	queue    queue.Queue
	source   IdeaSource
	limiter  *rate.Limiter
	interval time.Duration
	obs      *observability.Provider
	clock    func() time.Time
	logger   *slog.Logger
}

// NewIngest builds the ingestion worker.
func NewIngest(opts IngestOptions) *Ingest {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = time.Minute
	}
	if opts.Observability == nil {
		opts.Observability = observability.Disabled()
	}
	return &Ingest{
		queue:    opts.Queue,
		source:   opts.Source,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		interval: opts.ScanInterval,
		obs:      opts.Observability,
		clock:    time.Now,
		logger:   slog.Default().With("component", "ingest_worker"),
	}
}

// WithClock overrides the time source for tests.
func (w *Ingest) WithClock(clock func() time.Time) *Ingest {
	w.clock = clock
	return w
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (w *Ingest) Run(ctx context.Context) error {
	w.logger.Info("ingestion worker started", "scan_interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("ingestion worker stopped")
			return nil
		case <-ticker.C:
			w.scanOnce(ctx)
		}
	}
}

// ScanOnce runs a single scan-and-submit cycle, for one-shot CLI use.
func (w *Ingest) ScanOnce(ctx context.Context) {
	w.scanOnce(ctx)
}

func (w *Ingest) scanOnce(ctx context.Context) {
	ideas, err := w.source.Scan(ctx)
	if err != nil {
		w.logger.Error("scan failed", "error", err)
		w.obs.RecordError(ctx, err)
		return
	}
	if len(ideas) == 0 {
		w.logger.Info("no ideas found")
		return
	}
	for i := range ideas {
		if ctx.Err() != nil {
			return
		}
		if err := w.submit(ctx, ideas[i]); err != nil {
			w.logger.Error("failed to submit idea",
				"title", ideas[i].Title, "error", err)
			w.obs.RecordError(ctx, err)
		}
	}
}

func (w *Ingest) submit(ctx context.Context, idea contracts.Idea) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	fingerprint.Assign(&idea)
	env := contracts.NewTaskEnvelope(contracts.TaskTypeLogSuggestion, ingestAgent, idea, w.clock())

	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	attrs := map[string]string{
		"trace_id": env.TraceID,
		"task_id":  env.TaskID,
		"stage":    contracts.StageEvaluation,
	}
	if err := w.queue.Send(ctx, body, attrs); err != nil {
		return fmt.Errorf("enqueue task %s: %w", env.TaskID, err)
	}
	w.logger.Info("sent suggestion",
		"task_id", env.TaskID, "trace_id", env.TraceID,
		"severity", idea.Severity)
	return nil
}
