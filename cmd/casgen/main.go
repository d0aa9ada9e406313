// Command casgen generates one cohort locally from a scenario
// configuration file, without running the API server.
//
// Exit codes: 0 success, 1 invalid configuration, 2 generation failure,
// 130 interrupted.
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

	"github.com/medforge/casgen/internal/artifacts"
	"github.com/medforge/casgen/internal/catalog"
	"github.com/medforge/casgen/internal/config"
	"github.com/medforge/casgen/internal/engine"
	"github.com/medforge/casgen/internal/metrics"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/types"
)

const (
	exitOK          = 0
	exitInvalid     = 1
	exitFailure     = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to scenario configuration JSON (required)")
	outDir := flag.String("out", "outputs", "Output directory")
	workers := flag.Int("workers", 0, "Worker pool size (0 = logical cores, capped)")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: casgen -config scenario.json [-out dir]")
		return exitInvalid
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration: %v\n", err)
		return exitInvalid
	}

	cat, err := catalog.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal catalog error: %v\n", err)
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		return exitFailure
	}
	cfg.OutputDirectory = *outDir

	jobStore := store.NewMemoryStore()
	artifactStore, err := artifacts.NewFilesystemStore(cfg.OutputDirectory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		return exitFailure
	}

	eng := engine.NewManager(jobStore, artifactStore, cat, metrics.New(), cfg)
	if *workers > 0 {
		eng.SetWorkers(*workers)
	}

	ctx := context.Background()
	job, report, err := eng.CreateJob(ctx, json.RawMessage(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating job: %v\n", err)
		return exitFailure
	}
	if report != nil && report.HasErrors() {
		fmt.Fprintln(os.Stderr, report.String())
		return exitInvalid
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	interrupted := false
	for {
		select {
		case <-sigCh:
			interrupted = true
			eng.Cancel(ctx, job.JobID)
		case <-ticker.C:
		}

		current, err := jobStore.GetJob(ctx, job.JobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error polling job: %v\n", err)
			return exitFailure
		}
		if !*quiet && current.Status == types.JobRunning {
			fmt.Fprintf(os.Stderr, "\r%3d%% %s", current.ProgressPercent, current.ProgressDetail)
		}
		if !current.Status.Terminal() {
			continue
		}
		if !*quiet {
			fmt.Fprintln(os.Stderr)
		}
		return printOutcome(current, interrupted)
	}
}

func printOutcome(job *types.Job, interrupted bool) int {
	switch job.Status {
	case types.JobCompleted:
		fmt.Printf("Generated %d patients (seed %d)\n", job.Summary.TotalPatients, job.Seed)
		for _, path := range job.OutputPaths {
			fmt.Println("  " + path)
		}
		if data, err := json.MarshalIndent(job.Summary, "", "  "); err == nil {
			fmt.Println(string(data))
		}
		return exitOK
	case types.JobCancelled:
		fmt.Fprintln(os.Stderr, "Cancelled")
		if interrupted {
			return exitInterrupted
		}
		return exitFailure
	default:
		fmt.Fprintf(os.Stderr, "Generation failed (%s): %s\n", job.ErrorKind, job.Error)
		return exitFailure
	}
}
