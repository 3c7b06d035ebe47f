package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/approval"
	"github.com/Mindburn-Labs/rudder/pkg/config"
	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// consoleWait bounds how long the console polls the review queue. The
// console is interactive; nobody wants the worker-style long poll.
const consoleWait = 2 * time.Second

// runHITLCmd implements `rudder hitl <list|approve|reject>`.
func runHITLCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: rudder hitl <list|approve|reject> [flags]")
		return 2
	}

	switch args[0] {
	case "list":
		return runHITLList(args[1:], stdout, stderr)
	case "approve":
		return runHITLDecide(args[1:], contracts.VerdictApprove, stdout, stderr)
	case "reject":
		return runHITLDecide(args[1:], contracts.VerdictReject, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown hitl subcommand: %s\n", args[0])
		return 2
	}
}

// runHITLList shows the tasks currently awaiting review. Listing
// receives without deleting: the packets stay hidden from other
// consumers until the queue visibility window lapses.
func runHITLList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hitl list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		max        int
		jsonOutput bool
	)
	fs.IntVar(&max, "max", 10, "Maximum packets to list")
	fs.BoolVar(&jsonOutput, "json", false, "Print packets as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(ctx)
	rt.warnProcessLocalQueues()

	pending, err := rt.console().List(ctx, max, consoleWait)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		packets := make([]*contracts.ReviewPacket, 0, len(pending))
		for _, p := range pending {
			packets = append(packets, p.Packet)
		}
		data, _ := json.MarshalIndent(packets, "", "  ")
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	if len(pending) == 0 {
		fmt.Fprintln(stdout, "No tasks pending review.")
		return 0
	}

	fmt.Fprintf(stdout, "%s%-36s  %-12s  %-10s  %s%s\n",
		ColorBold, "TASK", "MODE", "CONFIDENCE", "TITLE", ColorReset)
	for _, p := range pending {
		mode, confidence, title := "-", "-", "-"
		if p.Packet.Policy != nil {
			mode = string(p.Packet.Policy.PolicyMode)
		}
		if p.Packet.Evaluation != nil {
			confidence = fmt.Sprintf("%.3f", p.Packet.Evaluation.ConfidenceScore)
		}
		if p.Packet.OriginalPayload != nil {
			title = p.Packet.OriginalPayload.Payload.Title
		}
		fmt.Fprintf(stdout, "%-36s  %-12s  %-10s  %s\n", p.Packet.TaskID, mode, confidence, title)
	}
	fmt.Fprintf(stdout, "\n%sListed packets stay hidden for the visibility window (%s).%s\n",
		ColorGray, rt.cfg.Visibility, ColorReset)
	return 0
}

// runHITLDecide records a verdict for one pending task. The operator
// identity comes from -token when given (verified against the master
// secret), else -operator, else the configured default.
func runHITLDecide(args []string, verdict contracts.Verdict, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hitl decide", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		taskID   string
		token    string
		operator string
		jsonOut  bool
	)
	fs.StringVar(&taskID, "task", "", "Task ID to decide (REQUIRED)")
	fs.StringVar(&token, "token", "", "Operator token issued by 'rudder token'")
	fs.StringVar(&operator, "operator", "", "Operator name when no token is used")
	fs.BoolVar(&jsonOut, "json", false, "Print the recorded decision as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if taskID == "" {
		fmt.Fprintln(stderr, "Error: -task is required")
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(ctx)
	rt.warnProcessLocalQueues()

	decidedBy := operator
	if token != "" {
		issuer, err := approval.NewTokenIssuer(rt.cfg.MasterSecret)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v (set RUDDER_MASTER_SECRET)\n", err)
			return 2
		}
		decidedBy, err = issuer.VerifySubject(token)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if decidedBy == "" {
		decidedBy = rt.cfg.HITLOperator
	}

	decision, err := rt.console().Decide(ctx, taskID, verdict, decidedBy, consoleWait)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOut {
		data, _ := json.MarshalIndent(decision, "", "  ")
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	fmt.Fprintf(stdout, "✅ Recorded %s%s%s for task %s (decided by %s)\n",
		ColorBold, decision.Decision, ColorReset, decision.TaskID, decision.DecidedBy)
	if decision.Decision != verdict {
		fmt.Fprintf(stdout, "%s⚠️  Task was already decided; the original decision stands.%s\n",
			ColorYellow, ColorReset)
	}
	return 0
}

// runTokenCmd implements `rudder token` — mint a signed operator token
// for review decisions.
func runTokenCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		operator string
		ttl      time.Duration
	)
	fs.StringVar(&operator, "operator", "", "Operator name the token attests (REQUIRED)")
	fs.DurationVar(&ttl, "ttl", approval.DefaultTokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if operator == "" {
		fmt.Fprintln(stderr, "Error: -operator is required")
		fs.Usage()
		return 2
	}

	cfg := config.Load()
	issuer, err := approval.NewTokenIssuer(cfg.MasterSecret)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v (set RUDDER_MASTER_SECRET)\n", err)
		return 2
	}
	token, err := issuer.Issue(operator, ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
