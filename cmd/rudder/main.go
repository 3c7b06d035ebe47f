package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing. Exit codes: 0 success, 1 runtime
// failure, 2 usage error.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "eval":
		return runEvalCmd(args[2:], stderr)
	case "exec":
		return runExecCmd(args[2:], stderr)
	case "ingest":
		return runIngestCmd(args[2:], stderr)
	case "all":
		return runAllCmd(args[2:], stdout, stderr)
	case "produce":
		return runProduceCmd(args[2:], stdout, stderr)
	case "hitl":
		return runHITLCmd(args[2:], stdout, stderr)
	case "token":
		return runTokenCmd(args[2:], stdout, stderr)
	case "doctor":
		return runDoctorCmd(stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "rudder %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[37m"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sRudder %s%s\n", ColorBold+ColorBlue, "v"+version, ColorReset)
	fmt.Fprintf(w, "%sIdeas propose. Policy disposes.%s\n", ColorGray, ColorReset)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	fmt.Fprintln(w, "  rudder <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "WORKERS")
	printCommand(w, "eval", "Run the evaluation worker (dedupe, score, route)")
	printCommand(w, "exec", "Run the execution worker (gated side effects)")
	printCommand(w, "ingest", "Run the log ingestion worker (-once for one scan)")
	printCommand(w, "all", "Run every worker in one process (lite mode)")

	printSection(w, "SUBMISSION")
	printCommand(w, "produce", "Submit an idea to the task queue (-file or flags)")

	printSection(w, "HUMAN REVIEW")
	printCommand(w, "hitl", "Review pending tasks (list/approve/reject)")
	printCommand(w, "token", "Issue an operator token for review decisions")

	printSection(w, "UTILITIES")
	printCommand(w, "doctor", "Check configuration and storage health")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %s%-12s%s %s\n", ColorGreen, name, ColorReset, desc)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runEvalCmd(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(context.Background())
	rt.warnProcessLocalQueues()

	w, err := rt.evalWorker()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log.Printf("[rudder] eval worker: consuming %s", rt.cfg.TaskQueue)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.Println("[rudder] eval worker: stopped")
	return 0
}

func runExecCmd(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(context.Background())
	rt.warnProcessLocalQueues()

	w, err := rt.execWorker(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log.Printf("[rudder] exec worker: consuming %s", rt.cfg.ExecQueue)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.Println("[rudder] exec worker: stopped")
	return 0
}

func runIngestCmd(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		once    bool
		logFile string
	)
	fs.BoolVar(&once, "once", false, "Scan the journal once and exit")
	fs.StringVar(&logFile, "log", "", "Journal file to scan (default $LOG_FILE)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(context.Background())
	rt.warnProcessLocalQueues()

	if logFile == "" {
		logFile = rt.cfg.LogFile
	}
	w := rt.ingestWorker(logFile)

	if once {
		log.Printf("[rudder] ingest: scanning %s once", logFile)
		w.ScanOnce(ctx)
		return 0
	}

	log.Printf("[rudder] ingest worker: watching %s", logFile)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.Println("[rudder] ingest worker: stopped")
	return 0
}

// runAllCmd runs the full pipeline in a single process. With the
// default in-memory queues this is the self-contained lite mode: ideas
// scanned from the journal flow through evaluation and execution
// without external infrastructure.
func runAllCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("all", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(context.Background())

	if rt.liteMode() {
		fmt.Fprintf(stdout, "ℹ️  RUDDER_QUEUE not set. Running %sLite Mode%s (in-memory queues, one process).\n",
			ColorBold+ColorCyan, ColorReset)
	}

	evalW, err := rt.evalWorker()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	execW, err := rt.execWorker(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	ingestW := rt.ingestWorker(rt.cfg.LogFile)

	log.Println("[rudder] pipeline: eval + exec + ingest")
	log.Println("[rudder] press ctrl+c to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return evalW.Run(gctx) })
	g.Go(func() error { return execW.Run(gctx) })
	g.Go(func() error { return ingestW.Run(gctx) })

	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log.Println("[rudder] shutting down")
	return 0
}
