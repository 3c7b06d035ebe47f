package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Mindburn-Labs/rudder/pkg/approval"
	"github.com/Mindburn-Labs/rudder/pkg/config"
	"github.com/Mindburn-Labs/rudder/pkg/gate"
	"github.com/Mindburn-Labs/rudder/pkg/observability"
	"github.com/Mindburn-Labs/rudder/pkg/policy"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
	"github.com/Mindburn-Labs/rudder/pkg/records"
	"github.com/Mindburn-Labs/rudder/pkg/scoring"
	"github.com/Mindburn-Labs/rudder/pkg/suppress"
	"github.com/Mindburn-Labs/rudder/pkg/worker"
)

// runtime holds the infrastructure every subcommand wires before doing
// its work: the record archive, the three pipeline queues and the
// telemetry provider.
type runtime struct {
	cfg     *config.Config
	archive records.Archive
	obs     *observability.Provider

	tasks queue.Queue
	hitl  queue.Queue
	exec  queue.Queue

	// wasm is set when the execution driver is a WASI module, so Close
	// can release the compiled runtime.
	wasm *gate.WasmDriver
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	archive, err := records.Open(ctx, records.Options{
		Backend:     records.Backend(cfg.ArchiveBackend),
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		Bucket:      cfg.ArchiveBucket,
		Region:      cfg.ArchiveRegion,
		Endpoint:    cfg.ArchiveEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	log.Printf("[rudder] archive: %s", cfg.ArchiveBackend)

	provider := queue.NewProvider(queue.Options{
		Backend:       queue.Backend(cfg.QueueBackend),
		Visibility:    cfg.Visibility,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	tasks, err := provider.Queue(cfg.TaskQueue)
	if err != nil {
		return nil, fmt.Errorf("open task queue: %w", err)
	}
	hitl, err := provider.Queue(cfg.HITLQueue)
	if err != nil {
		return nil, fmt.Errorf("open hitl queue: %w", err)
	}
	execQ, err := provider.Queue(cfg.ExecQueue)
	if err != nil {
		return nil, fmt.Errorf("open execution queue: %w", err)
	}
	log.Printf("[rudder] queues: %s backend", cfg.QueueBackend)

	otelCfg := observability.DefaultConfig()
	obs, err := observability.New(ctx, otelCfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if otelCfg.Enabled {
		log.Printf("[rudder] telemetry: exporting to %s", otelCfg.OTLPEndpoint)
	}

	return &runtime{
		cfg:     cfg,
		archive: archive,
		obs:     obs,
		tasks:   tasks,
		hitl:    hitl,
		exec:    execQ,
	}, nil
}

// Close flushes telemetry and releases the wasm runtime if one was
// loaded. The archive backends hold no resources that outlive the
// process.
func (rt *runtime) Close(ctx context.Context) {
	if rt.wasm != nil {
		if err := rt.wasm.Close(ctx); err != nil {
			log.Printf("[rudder] wasm driver close: %v", err)
		}
	}
	if err := rt.obs.Shutdown(ctx); err != nil {
		log.Printf("[rudder] telemetry shutdown: %v", err)
	}
}

// liteMode reports whether the pipeline is running on process-local
// infrastructure.
func (rt *runtime) liteMode() bool {
	return queue.Backend(rt.cfg.QueueBackend) == queue.BackendMemory
}

// warnProcessLocalQueues flags the footgun of running a single worker
// against in-memory queues: nothing outside this process can reach
// them, so the worker would spin forever on an empty queue.
func (rt *runtime) warnProcessLocalQueues() {
	if rt.liteMode() {
		log.Println("[rudder] queues are in-memory (process-local); use 'rudder all' or set RUDDER_QUEUE=redis")
	}
}

// evalWorker wires the evaluation stage: scoring, policy (plus the
// optional CEL rule file), the approval ledger for synthetic approvals
// and the suppression windows.
func (rt *runtime) evalWorker() (*worker.Eval, error) {
	engine, err := scoring.New(scoring.Config{ModeOverride: rt.cfg.ScoringMode})
	if err != nil {
		return nil, err
	}

	var rules *policy.RuleSet
	if rt.cfg.PolicyRulesPath != "" {
		rules, err = policy.LoadRules(rt.cfg.PolicyRulesPath)
		if err != nil {
			return nil, fmt.Errorf("load policy rules: %w", err)
		}
		log.Printf("[rudder] policy rules: %s", rt.cfg.PolicyRulesPath)
	}
	pol := policy.NewEngine(policy.Config{
		AutoExecuteThreshold: rt.cfg.AutoExecuteThreshold,
		MaxComplexityRisk:    rt.cfg.MaxComplexity,
		MaxResourceCost:      rt.cfg.MaxCost,
	}, rules)

	return worker.NewEval(worker.EvalOptions{
		Tasks:   rt.tasks,
		HITL:    rt.hitl,
		Exec:    rt.exec,
		Archive: rt.archive,
		Scoring: engine,
		Policy:  pol,
		Ledger:  approval.NewLedger(rt.archive),
		Suppression: suppress.Config{
			CompletedWindow: rt.cfg.SuppressionWindow,
			PendingWindow:   rt.cfg.PendingSuppressionWindow,
		},
		Observability: rt.obs,
		PollInterval:  rt.cfg.PollInterval,
		ReceiveWait:   rt.cfg.ReceiveWait,
	}), nil
}

// execWorker wires the execution stage. The driver defaults to the
// simulator; configuring RUDDER_WASM_MODULE swaps in the sandboxed
// WASI driver.
func (rt *runtime) execWorker(ctx context.Context) (*worker.Exec, error) {
	var driver gate.Driver = gate.SimDriver{}
	if rt.cfg.WasmModule != "" {
		wd, err := gate.NewWasmDriver(ctx, gate.WasmConfig{
			ModulePath:       rt.cfg.WasmModule,
			MemoryLimitBytes: rt.cfg.WasmMemoryLimit,
			Timeout:          rt.cfg.WasmTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init wasm driver: %w", err)
		}
		rt.wasm = wd
		driver = wd
	}
	log.Printf("[rudder] execution driver: %s", driver.Name())

	return worker.NewExec(worker.ExecOptions{
		Queue:         rt.exec,
		Gate:          gate.New(rt.archive, driver),
		Observability: rt.obs,
		PollInterval:  rt.cfg.PollInterval,
		ReceiveWait:   rt.cfg.ReceiveWait,
	}), nil
}

// ingestWorker wires the journal scanner to the task queue.
func (rt *runtime) ingestWorker(logFile string) *worker.Ingest {
	return worker.NewIngest(worker.IngestOptions{
		Queue: rt.tasks,
		Source: &worker.JournalSource{
			Path:     logFile,
			MaxBytes: rt.cfg.MaxLogInput,
		},
		RatePerSec:    rt.cfg.IngestRate,
		Burst:         rt.cfg.IngestBurst,
		ScanInterval:  rt.cfg.IngestInterval,
		Observability: rt.obs,
	})
}

// console wires the human review console over the hitl and execution
// queues.
func (rt *runtime) console() *worker.Console {
	return worker.NewConsole(rt.hitl, rt.exec, approval.NewLedger(rt.archive))
}
