package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// WasmConfig bounds a WasmDriver run. Deny-by-default: the module gets
// no filesystem, no network and no environment variables.
type WasmConfig struct {
	ModulePath       string
	MemoryLimitBytes int64
	Timeout          time.Duration
}

const defaultWasmTimeout = 30 * time.Second

// WasmDriver executes approved tasks by running a WASI module. The
// approval decision is fed to the module as JSON on stdin; whatever it
// prints on stdout becomes the execution notes.
type WasmDriver struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	timeout  time.Duration
}

func NewWasmDriver(ctx context.Context, cfg WasmConfig) (*WasmDriver, error) {
	if cfg.ModulePath == "" {
		return nil, fmt.Errorf("wasm driver requires a module path")
	}
	wasmBytes, err := os.ReadFile(cfg.ModulePath) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read wasm module: %w", err)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitBytes > 0 {
		// wazero measures memory in 64KB pages.
		pages := uint32(cfg.MemoryLimitBytes / (64 * 1024))
		if pages == 0 {
			pages = 1
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(pages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("compile wasm module: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWasmTimeout
	}
	return &WasmDriver{runtime: r, compiled: compiled, timeout: timeout}, nil
}

func (d *WasmDriver) Name() string { return "wasm" }

func (d *WasmDriver) Run(ctx context.Context, decision *contracts.ApprovalDecision) (string, error) {
	input, err := json.Marshal(decision)
	if err != nil {
		return "", fmt.Errorf("marshal decision: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	// Anonymous module name so the compiled unit can be instantiated
	// once per run.
	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_start").
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	mod, err := d.runtime.InstantiateModule(ctx, d.compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("wasm execution timed out after %v", d.timeout)
		}
		return "", fmt.Errorf("wasm instantiation failed: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	if stderr.Len() > 0 {
		return "", fmt.Errorf("wasm stderr output: %s", stderr.String())
	}

	notes := strings.TrimSpace(stdout.String())
	if notes == "" {
		notes = "Wasm execution complete (HITL approved)."
	}
	return notes, nil
}

// Close shuts down the wazero runtime, freeing all resources.
func (d *WasmDriver) Close(ctx context.Context) error {
	return d.runtime.Close(ctx)
}
