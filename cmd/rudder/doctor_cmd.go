package main

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"

	"github.com/Mindburn-Labs/rudder/pkg/config"
	"github.com/Mindburn-Labs/rudder/pkg/policy"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

// runDoctorCmd implements `rudder doctor` — configuration health check.
//
// Exit codes:
//
//	0 = all checks pass
//	1 = one or more checks failed
func runDoctorCmd(stdout, stderr io.Writer) int {
	type checkResult struct {
		Name   string `json:"name"`
		Status string `json:"status"` // "ok", "warn", "fail"
		Detail string `json:"detail,omitempty"`
	}

	cfg := config.Load()
	var results []checkResult
	allOK := true

	results = append(results, checkResult{
		Name:   "go_runtime",
		Status: "ok",
		Detail: fmt.Sprintf("%s %s/%s", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH),
	})

	// Archive backend.
	switch records.Backend(cfg.ArchiveBackend) {
	case records.BackendMemory:
		results = append(results, checkResult{
			Name:   "archive",
			Status: "warn",
			Detail: "memory (records vanish on restart)",
		})
	case records.BackendFile, records.BackendSQLite:
		status, detail := "ok", fmt.Sprintf("%s under %s", cfg.ArchiveBackend, cfg.DataDir)
		if _, err := os.Stat(cfg.DataDir); err != nil {
			status = "warn"
			detail = fmt.Sprintf("%s does not exist (created on first run)", cfg.DataDir)
		}
		results = append(results, checkResult{Name: "archive", Status: status, Detail: detail})
	case records.BackendPostgres:
		if cfg.DatabaseURL == "" {
			results = append(results, checkResult{
				Name:   "archive",
				Status: "fail",
				Detail: "postgres backend requires DATABASE_URL",
			})
			allOK = false
		} else {
			results = append(results, checkResult{Name: "archive", Status: "ok", Detail: "postgres"})
		}
	case records.BackendS3, records.BackendGCS:
		results = append(results, checkResult{
			Name:   "archive",
			Status: "ok",
			Detail: fmt.Sprintf("%s bucket %s", cfg.ArchiveBackend, cfg.ArchiveBucket),
		})
	default:
		results = append(results, checkResult{
			Name:   "archive",
			Status: "fail",
			Detail: fmt.Sprintf("unknown backend %q", cfg.ArchiveBackend),
		})
		allOK = false
	}

	// Queue backend.
	switch queue.Backend(cfg.QueueBackend) {
	case queue.BackendMemory:
		results = append(results, checkResult{
			Name:   "queues",
			Status: "warn",
			Detail: "memory (process-local; workers must share one process)",
		})
	case queue.BackendRedis:
		results = append(results, checkResult{
			Name:   "queues",
			Status: "ok",
			Detail: fmt.Sprintf("redis at %s", cfg.RedisAddr),
		})
	default:
		results = append(results, checkResult{
			Name:   "queues",
			Status: "fail",
			Detail: fmt.Sprintf("unknown backend %q", cfg.QueueBackend),
		})
		allOK = false
	}

	// Journal file for the ingest worker.
	if _, err := os.Stat(cfg.LogFile); err != nil {
		results = append(results, checkResult{
			Name:   "journal",
			Status: "warn",
			Detail: fmt.Sprintf("%s does not exist (ingest idles until it appears)", cfg.LogFile),
		})
	} else {
		results = append(results, checkResult{Name: "journal", Status: "ok", Detail: cfg.LogFile})
	}

	// Policy rule file, compiled eagerly so a broken rule fails here
	// instead of at worker startup.
	if cfg.PolicyRulesPath == "" {
		results = append(results, checkResult{
			Name:   "policy_rules",
			Status: "ok",
			Detail: "none (threshold-only policy)",
		})
	} else if _, err := policy.LoadRules(cfg.PolicyRulesPath); err != nil {
		results = append(results, checkResult{
			Name:   "policy_rules",
			Status: "fail",
			Detail: err.Error(),
		})
		allOK = false
	} else {
		results = append(results, checkResult{Name: "policy_rules", Status: "ok", Detail: cfg.PolicyRulesPath})
	}

	// Operator tokens.
	if cfg.MasterSecret == "" {
		results = append(results, checkResult{
			Name:   "master_secret",
			Status: "warn",
			Detail: fmt.Sprintf("unset; review decisions attribute to %q", cfg.HITLOperator),
		})
	} else {
		results = append(results, checkResult{Name: "master_secret", Status: "ok", Detail: "set"})
	}

	// Execution driver.
	if cfg.WasmModule == "" {
		results = append(results, checkResult{Name: "exec_driver", Status: "ok", Detail: "sim"})
	} else if _, err := os.Stat(cfg.WasmModule); err != nil {
		results = append(results, checkResult{
			Name:   "exec_driver",
			Status: "fail",
			Detail: fmt.Sprintf("wasm module %s not found", cfg.WasmModule),
		})
		allOK = false
	} else {
		results = append(results, checkResult{Name: "exec_driver", Status: "ok", Detail: "wasm: " + cfg.WasmModule})
	}

	// Telemetry.
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint == "" {
		results = append(results, checkResult{
			Name:   "telemetry",
			Status: "warn",
			Detail: "OTEL_EXPORTER_OTLP_ENDPOINT unset (telemetry disabled)",
		})
	} else {
		results = append(results, checkResult{Name: "telemetry", Status: "ok", Detail: endpoint})
	}

	fmt.Fprintf(stdout, "\n%sRudder Doctor%s\n", ColorBold+ColorPurple, ColorReset)
	fmt.Fprintln(stdout, "─────────────")
	for _, r := range results {
		icon := "✅"
		if r.Status == "warn" {
			icon = "⚠️ "
		} else if r.Status == "fail" {
			icon = "❌"
		}
		fmt.Fprintf(stdout, "  %s  %-14s %s%s%s\n", icon, r.Name, ColorGray, r.Detail, ColorReset)
	}

	if allOK {
		fmt.Fprintf(stdout, "\n%sAll checks passed.%s\n", ColorGreen+ColorBold, ColorReset)
		return 0
	}
	return 1
}
