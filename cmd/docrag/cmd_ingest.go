package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DreamCats/docrag/cmd/docrag/internal"
	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/ingest"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	force := fs.Bool("force", cfg.Ingest.Force, "Delete and re-ingest sources that are already stored")
	var excludes internal.StringList
	fs.Var(&excludes, "exclude", "Glob pattern of paths to skip (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag ingest [options] <path|glob|url>...

DESCRIPTION:
    Ingest documents into the embedding store.
    For each source this will:
      1. Fetch the file or URL
      2. Split pages at form feeds (use pdftotext for PDFs)
      3. Chunk each page into overlapping pieces
      4. Embed and store every chunk

    Sources that are already stored are skipped unless -force is given.
    A source whose previous run failed partway is ingested again from scratch.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Ingest every markdown file under docs/
    docrag ingest "docs/**/*.md"

    # Ingest a PDF converted to text
    pdftotext -layout manual.pdf manual.txt && docrag ingest manual.txt

    # Re-ingest a changed file
    docrag ingest -force notes.txt
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one source is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	sources, err := ingest.Expand(fs.Args(), append(append([]string(nil), cfg.Ingest.Exclude...), excludes...))
	if err != nil {
		log.Fatalf("Failed to expand sources: %v", err)
	}
	if len(sources) == 0 {
		log.Fatalf("No sources matched %v", fs.Args())
	}

	a := openApp(cfg)
	defer a.Close()

	pipeline := a.Pipeline(*force)
	progress := internal.NewIngestProgress()
	// Ctrl-C cancels the current source so its run is journaled as failed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startTime := time.Now()

	var ingested, skipped, failed, chunks int
	for _, source := range sources {
		if ctx.Err() != nil {
			fmt.Println("\n⚠️  Interrupted, remaining sources not ingested")
			break
		}
		for ev := range pipeline.Run(ctx, source) {
			switch ev.State {
			case ingest.StateFetching:
				if !progress.Enabled() {
					fmt.Printf("⏳ %s\n", source)
				}
			case ingest.StateEmbedding:
				if ev.Done == 0 {
					progress.Start(source, ev.Total)
				} else {
					progress.Set(ev.Done)
				}
			case ingest.StateComplete:
				progress.Finish()
				if ev.Skipped {
					skipped++
					fmt.Printf("⏭️  %s (already ingested)\n", source)
					continue
				}
				ingested++
				chunks += ev.Done
				fmt.Printf("✅ %s (%d chunks)\n", source, ev.Done)
			case ingest.StateFailed:
				progress.Finish()
				failed++
				fmt.Printf("❌ %s: %v\n", source, ev.Err)
			}
		}
	}

	fmt.Printf("\n⏱️  Duration: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Ingested: %6d\n", ingested)
	fmt.Printf("   Skipped:  %6d\n", skipped)
	fmt.Printf("   Failed:   %6d\n", failed)
	fmt.Printf("   Chunks:   %6d\n", chunks)
	fmt.Printf("   Total:    %6d records in store\n", a.Store().Len())

	if failed > 0 || ctx.Err() != nil {
		stop()
		a.Close()
		os.Exit(1)
	}
}
