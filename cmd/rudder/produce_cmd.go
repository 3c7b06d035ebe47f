package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/worker"
)

// runProduceCmd implements `rudder produce` — submit one or more ideas
// to the task queue, either from flags or from a JSON file holding an
// idea object or an array of them.
func runProduceCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("produce", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		title       string
		description string
		action      string
		priority    string
		filePath    string
		jsonOutput  bool
	)
	fs.StringVar(&title, "title", "", "Idea title (REQUIRED unless -file)")
	fs.StringVar(&description, "description", "", "What the idea proposes (REQUIRED unless -file)")
	fs.StringVar(&action, "action", "", "Recommended next action (REQUIRED unless -file)")
	fs.StringVar(&priority, "priority", "", "Priority tier: high | medium | low")
	fs.StringVar(&filePath, "file", "", "JSON file with one idea or an array of ideas")
	fs.BoolVar(&jsonOutput, "json", false, "Print submitted envelopes as JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	ideas, code := loadIdeas(filePath, title, description, action, priority, fs, stderr)
	if code != 0 {
		return code
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close(ctx)
	rt.warnProcessLocalQueues()

	for _, idea := range ideas {
		env, err := worker.SubmitIdea(ctx, rt.tasks, idea, time.Now())
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if jsonOutput {
			data, _ := json.MarshalIndent(env, "", "  ")
			fmt.Fprintln(stdout, string(data))
		} else {
			fmt.Fprintf(stdout, "✅ Submitted %s%s%s (trace %s): %s\n",
				ColorGreen, env.TaskID, ColorReset, env.TraceID, env.Payload.Title)
		}
	}
	return 0
}

// loadIdeas resolves the idea list from -file or the individual flags.
// A non-zero code means a usage error already reported to stderr.
func loadIdeas(filePath, title, description, action, priority string, fs *flag.FlagSet, stderr io.Writer) ([]contracts.Idea, int) {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: cannot read %s: %v\n", filePath, err)
			return nil, 2
		}
		var ideas []contracts.Idea
		if err := json.Unmarshal(data, &ideas); err == nil {
			return ideas, 0
		}
		var one contracts.Idea
		if err := json.Unmarshal(data, &one); err != nil {
			fmt.Fprintf(stderr, "Error: %s holds neither an idea nor an idea array: %v\n", filePath, err)
			return nil, 2
		}
		return []contracts.Idea{one}, 0
	}

	if title == "" || description == "" || action == "" {
		fmt.Fprintln(stderr, "Error: -title, -description and -action are required (or use -file)")
		fs.Usage()
		return nil, 2
	}
	return []contracts.Idea{{
		Title:             title,
		Description:       description,
		RecommendedAction: action,
		Priority:          priority,
	}}, 0
}
