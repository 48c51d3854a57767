package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stagehand-dev/stagehand/internal/adapters/agents"
	"github.com/stagehand-dev/stagehand/internal/adapters/sqlite"
	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/runner"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	switch os.Args[1] {
	case "run":
		cmdRun(ctx, os.Args[2:])
	case "capabilities":
		cmdCapabilities(os.Args[2:])
	case "runs":
		cmdRuns(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: stagehand <command> [args]\n\nCommands:\n  run <workflow-file>   Execute a workflow\n  capabilities [agent]  Show what a backend supports\n  runs                  List recorded runs\n")
}

func cmdRun(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "stagehand.toml", "configuration file")
	agentName := fs.String("agent", "", "backend to use (overrides the workflow's choice)")
	dbPath := fs.String("db", "", "sqlite file for run history (empty disables persistence)")
	jsonStatus := fs.Bool("status", false, "emit JSON-lines progress on stdout")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: stagehand run [flags] <workflow-file>\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	wf, err := runner.LoadWorkflow(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	name := *agentName
	if name == "" {
		name = wf.Agent
	}
	if name == "" {
		name = cfg.DefaultAgent
	}

	ag, err := agents.New(name, cfg.Agent(name), agent.Deps{})
	if err != nil {
		fatal(err)
	}
	defer ag.Cleanup(context.Background())

	r := &runner.Runner{Agent: ag}
	if *dbPath != "" {
		store, err := sqlite.NewStore(*dbPath)
		if err != nil {
			fatal(err)
		}
		defer store.Close()
		r.Store = store
	}
	if *jsonStatus {
		r.Status = runner.NewStatusWriter(os.Stdout)
	}

	outcome, err := r.Run(ctx, wf)
	if err != nil {
		fatal(err)
	}

	if !*jsonStatus {
		printSummary(outcome)
	}
	if outcome.Run.Status != domain.RunSucceeded {
		os.Exit(1)
	}
}

func printSummary(outcome *runner.RunResult) {
	fmt.Printf("Run:      %s\n", outcome.Run.ID)
	fmt.Printf("Workflow: %s\n", outcome.Run.Workflow)
	fmt.Printf("Agent:    %s\n", outcome.Run.Agent)
	fmt.Printf("Status:   %s\n", outcome.Run.Status)
	for _, result := range outcome.Results {
		if result.Status == domain.StepFailed {
			fmt.Printf("  %s: %s [%s] %s\n", result.StepID, result.Status, result.ErrorKind, result.Error)
			continue
		}
		fmt.Printf("  %s: %s (%s)\n", result.StepID, result.Status, result.Duration().Round(10*time.Millisecond))
	}
}

func cmdCapabilities(args []string) {
	fs := flag.NewFlagSet("capabilities", flag.ExitOnError)
	configPath := fs.String("config", "stagehand.toml", "configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	names := agents.Names()
	if fs.NArg() > 0 {
		names = []string{fs.Arg(0)}
	}

	out := make(map[string]domain.Capabilities, len(names))
	for _, name := range names {
		ag, err := agents.New(name, cfg.Agent(name), agent.Deps{})
		if err != nil {
			fatal(err)
		}
		out[name] = ag.Capabilities()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func cmdRuns(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "stagehand.db", "sqlite file for run history")
	fs.Parse(args)

	store, err := sqlite.NewStore(*dbPath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		fatal(err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return
	}
	for _, run := range runs {
		fmt.Printf("%s  %-20s  %-12s  %-9s  %s\n",
			run.ID, run.Workflow, run.Agent, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
