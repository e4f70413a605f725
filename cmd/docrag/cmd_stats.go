package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/store"
)

type statsOutput struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"embed_model"`
	Backend   string         `json:"backend"`
	Path      string         `json:"path,omitempty"`
	Dimension int            `json:"dimension"`
	Records   int            `json:"records"`
	Sources   map[string]int `json:"sources"`
	Snapshot  int64          `json:"snapshot_bytes,omitempty"`
	UpdatedAt *time.Time     `json:"snapshot_updated_at,omitempty"`
	Runs      int            `json:"ingest_runs,omitempty"`
	Recent    []runOutput    `json:"recent_runs,omitempty"`
}

type runOutput struct {
	Source    string    `json:"source"`
	State     string    `json:"state"`
	Chunks    int       `json:"chunks"`
	Total     int       `json:"total"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func toRunOutput(run *store.IngestRun) runOutput {
	return runOutput{
		Source:    run.Source,
		State:     run.State,
		Chunks:    run.ChunksDone,
		Total:     run.ChunksTotal,
		Skipped:   run.Skipped,
		Error:     run.Error,
		StartedAt: run.StartedAt,
	}
}

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	recent := fs.Int("runs", 5, "Number of recent ingest runs to show")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag stats [options]

DESCRIPTION:
    Show embedding store statistics.

OPTIONS:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	a := openApp(cfg)
	defer a.Close()

	st := a.Store().Stats()
	out := statsOutput{
		Provider:  cfg.Provider.Name,
		Model:     cfg.Provider.EmbedModel,
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		Dimension: st.Dimension,
		Records:   st.Records,
		Sources:   st.Sources,
	}
	ctx := context.Background()
	if db := a.DB(); db != nil {
		out.Path = db.Path()
		dbStats, err := db.Stats(ctx)
		if err != nil {
			log.Fatalf("Failed to get database stats: %v", err)
		}
		out.Snapshot = dbStats.SizeBytes
		out.Runs = int(dbStats.RunCount)

		info, err := a.SnapshotInfo(ctx)
		if err != nil {
			log.Fatalf("Failed to get snapshot info: %v", err)
		}
		if info != nil {
			out.Snapshot = info.SizeBytes
			out.UpdatedAt = &info.UpdatedAt
		}
	}
	if runs := a.Runs(); runs != nil && *recent > 0 {
		list, err := runs.List(ctx, *recent)
		if err != nil {
			log.Fatalf("Failed to list ingest runs: %v", err)
		}
		for _, run := range list {
			out.Recent = append(out.Recent, toRunOutput(run))
		}
	}

	if *jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			log.Fatalf("Failed to encode JSON: %v", err)
		}
		return
	}

	fmt.Println("📊 Store Statistics")
	fmt.Printf("   Provider:   %s (%s)\n", out.Provider, out.Model)
	fmt.Printf("   Backend:    %s\n", out.Backend)
	if out.Path != "" {
		fmt.Printf("   Path:       %s\n", out.Path)
	}
	fmt.Printf("   Dimension:  %d\n", out.Dimension)
	fmt.Printf("   Records:    %d\n", out.Records)
	fmt.Printf("   Sources:    %d\n", len(out.Sources))
	if out.Snapshot > 0 {
		fmt.Printf("   Snapshot:   %s\n", humanize.Bytes(uint64(out.Snapshot)))
	}
	if out.UpdatedAt != nil {
		fmt.Printf("   Updated:    %s\n", humanize.Time(*out.UpdatedAt))
	}
	if out.Runs > 0 {
		fmt.Printf("   Runs:       %d\n", out.Runs)
	}

	names := make([]string, 0, len(out.Sources))
	for name := range out.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("     %6d  %s\n", out.Sources[name], name)
	}

	if len(out.Recent) > 0 {
		fmt.Println("\n🕘 Recent runs:")
		for _, run := range out.Recent {
			line := fmt.Sprintf("   %-8s %4d/%-4d %s  %s", run.State, run.Chunks, run.Total, humanize.Time(run.StartedAt), run.Source)
			if run.Skipped {
				line += "  (skipped)"
			}
			if run.Error != "" {
				line += "  " + run.Error
			}
			fmt.Println(line)
		}
	}
}
