package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/embedstore"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var source string
	var topK int
	var jsonOutput bool

	fs.StringVar(&source, "source", "", "Only search chunks from this source")
	fs.IntVar(&topK, "k", cfg.Search.TopK, "Number of results to return")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag search [options] "<query>"

DESCRIPTION:
    Show the stored chunks most similar to the query. When no chunk is
    similar enough, a keyword search over the same sources is used instead;
    the mode column tells which one produced the results.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    docrag search "backup schedule"
    docrag search -source manual.txt -k 10 "error codes"
    docrag search -json "installation"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	a := openApp(cfg)
	defer a.Close()

	results := a.Store().Search(context.Background(), query, topK, source)

	if jsonOutput {
		if results == nil {
			results = []embedstore.Result{}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			log.Fatalf("Failed to encode JSON: %v", err)
		}
		return
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}
	printResults(results)
}

func printResults(results []embedstore.Result) {
	for i, r := range results {
		location := r.Source
		if r.Page > 0 {
			location = fmt.Sprintf("%s (Page %d)", r.Source, r.Page)
		}
		fmt.Printf("\n%d. %s  [%s %.3f]\n", i+1, location, r.Mode, r.Score)
		fmt.Printf("   %s\n", indent(truncate(r.Text, 400), "   "))
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
