// Package config loads runtime configuration from environment
// variables. Every value has a default so a bare process boots in
// lite mode (sqlite archive, in-memory queues) with no setup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds pipeline configuration. Constructors take the fields
// they need; nothing reads the environment after Load returns.
type Config struct {
	// Record archive.
	ArchiveBackend  string // memory | file | sqlite | postgres | s3 | gcs
	DataDir         string
	DatabaseURL     string
	ArchiveBucket   string
	ArchiveEndpoint string
	ArchiveRegion   string

	// Queue transport.
	QueueBackend  string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TaskQueue     string
	HITLQueue     string
	ExecQueue     string
	Visibility    time.Duration

	// Worker loops.
	PollInterval time.Duration
	ReceiveWait  time.Duration

	// Suppression windows.
	SuppressionWindow        time.Duration
	PendingSuppressionWindow time.Duration

	// Scoring and policy.
	ScoringMode          string // "" = per-task routing, else rnd | ops
	AutoExecuteThreshold float64
	MaxComplexity        float64
	MaxCost              float64
	PolicyRulesPath      string

	// Idea ingestion.
	LogFile        string
	MaxLogInput    int64
	IngestRate     float64
	IngestBurst    int
	IngestInterval time.Duration

	// HITL console.
	MasterSecret string
	HITLOperator string

	// Wasm execution driver. Empty module path selects the simulator.
	WasmModule      string
	WasmMemoryLimit int64
	WasmTimeout     time.Duration
}

// Load reads configuration from environment variables, applying
// defaults for anything unset or unparseable.
func Load() *Config {
	region := getenv("ARCHIVE_REGION", "")
	if region == "" {
		region = getenv("AWS_REGION", "us-east-1")
	}

	return &Config{
		ArchiveBackend:  getenv("RUDDER_ARCHIVE", "sqlite"),
		DataDir:         getenv("RUDDER_DATA_DIR", "data"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		ArchiveBucket:   getenv("ARCHIVE_BUCKET", "rudder-archive"),
		ArchiveEndpoint: getenv("ARCHIVE_ENDPOINT", ""),
		ArchiveRegion:   region,

		QueueBackend:  getenv("RUDDER_QUEUE", "memory"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		TaskQueue:     getenv("TASK_QUEUE", "rudder-task-queue"),
		HITLQueue:     getenv("HITL_QUEUE", "rudder-hitl-queue"),
		ExecQueue:     getenv("EXECUTION_QUEUE", "rudder-execution-queue"),
		Visibility:    getenvSeconds("QUEUE_VISIBILITY", 60),

		PollInterval: getenvSeconds("POLL_INTERVAL", 2),
		ReceiveWait:  getenvSeconds("RECEIVE_WAIT", 10),

		SuppressionWindow:        getenvMinutes("SUPPRESSION_WINDOW", 1440),
		PendingSuppressionWindow: getenvMinutes("PENDING_SUPPRESSION_WINDOW", 120),

		ScoringMode:          getenv("SCORING_MODE", ""),
		AutoExecuteThreshold: getenvFloat("AUTO_EXECUTE_THRESHOLD", 0.85),
		MaxComplexity:        getenvFloat("MAX_COMPLEXITY", 0.4),
		MaxCost:              getenvFloat("MAX_COST", 0.4),
		PolicyRulesPath:      getenv("POLICY_RULES_PATH", ""),

		LogFile:        getenv("LOG_FILE", "sample.log"),
		MaxLogInput:    getenvInt64("MAX_LOG_INPUT", 1048576),
		IngestRate:     getenvFloat("INGEST_RATE_PER_SEC", 5),
		IngestBurst:    getenvInt("INGEST_BURST", 10),
		IngestInterval: getenvSeconds("INGEST_SCAN_INTERVAL", 60),

		MasterSecret: getenv("RUDDER_MASTER_SECRET", ""),
		HITLOperator: getenv("HITL_OPERATOR", "hitl_console"),

		WasmModule:      getenv("RUDDER_WASM_MODULE", ""),
		WasmMemoryLimit: getenvInt64("WASM_MEMORY_LIMIT", 67108864),
		WasmTimeout:     getenvSeconds("WASM_TIMEOUT", 30),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getenvSeconds parses a duration given in (possibly fractional)
// seconds, matching the original deployment's POLL_INTERVAL=2.0 style.
func getenvSeconds(key string, fallback float64) time.Duration {
	return time.Duration(getenvFloat(key, fallback) * float64(time.Second))
}

func getenvMinutes(key string, fallback int) time.Duration {
	return time.Duration(getenvInt(key, fallback)) * time.Minute
}
