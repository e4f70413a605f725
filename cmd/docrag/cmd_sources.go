package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/embedstore"
)

// handleSources implements the sources subcommand
func handleSources(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag sources

DESCRIPTION:
    List ingested sources with their chunk counts and the state of the
    last ingest run.
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	a := openApp(cfg)
	defer a.Close()

	ctx := context.Background()
	stats := a.Store().Stats()
	sources := a.Store().ListSources()
	if len(sources) == 0 {
		fmt.Println("No sources ingested yet.")
		return
	}

	for _, source := range sources {
		line := fmt.Sprintf("%6d  %s", stats.Sources[source], source)
		if runs := a.Runs(); runs != nil {
			if run, err := runs.Last(ctx, source); err == nil && run != nil {
				line += fmt.Sprintf("  [%s %s]", run.State, run.StartedAt.Local().Format("2006-01-02 15:04"))
			}
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d sources, %d chunks\n", len(sources), stats.Records)
}

// handleDelete implements the delete subcommand
func handleDelete(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	all := fs.Bool("all", false, "Delete every source and clear the ingest history")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag delete <source>...
    docrag delete -all

DESCRIPTION:
    Remove every stored chunk of the given sources.

OPTIONS:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if *all {
		deleteAll(cfg)
		return
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: source is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	a := openApp(cfg)
	defer a.Close()

	ctx := context.Background()
	for _, source := range fs.Args() {
		if !a.Store().IsSourceIngested(source) {
			fmt.Printf("⚠️  %s is not in the store\n", source)
			continue
		}
		if err := a.Store().DeleteSource(ctx, source); err != nil {
			if errors.Is(err, embedstore.ErrPersistence) {
				fmt.Printf("⚠️  %s removed from memory but the snapshot was not saved: %v\n", source, err)
				continue
			}
			log.Fatalf("Failed to delete %s: %v", source, err)
		}
		fmt.Printf("🗑️  %s deleted\n", source)
	}
}

func deleteAll(cfg *config.Config) {
	a := openApp(cfg)
	defer a.Close()

	ctx := context.Background()
	sources := a.Store().ListSources()
	for _, source := range sources {
		if err := a.Store().DeleteSource(ctx, source); err != nil && !errors.Is(err, embedstore.ErrPersistence) {
			log.Fatalf("Failed to delete %s: %v", source, err)
		}
	}
	if db := a.DB(); db != nil {
		if err := db.Clear(ctx); err != nil {
			log.Fatalf("Failed to clear database: %v", err)
		}
	}
	fmt.Printf("🗑️  %d sources deleted\n", len(sources))
}
