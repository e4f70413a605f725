package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/ingest"
)

// handleSummarize implements the summarize subcommand
func handleSummarize(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	page := fs.Int("page", 0, "Page to summarize (pages are separated by form feeds); 0 uses the whole text")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag summarize [options] <path|url>

DESCRIPTION:
    Summarize one page of a document as 3-4 bullet points.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    docrag summarize -page 3 manual.txt
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one source is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	source := fs.Arg(0)
	ctx := context.Background()

	data, err := ingest.NewFetcher(cfg.Ingest.FetchTimeout).Fetch(ctx, source)
	if err != nil {
		log.Fatalf("Failed to fetch: %v", err)
	}
	pages, err := ingest.Extract(source, data)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	text := ""
	for _, p := range pages {
		if *page == 0 || p.Number == *page {
			text += p.Text + "\n"
		}
	}
	if strings.TrimSpace(text) == "" {
		log.Fatalf("No text found on page %d of %s (%d pages)", *page, source, len(pages))
	}

	a := openApp(cfg)
	defer a.Close()

	fmt.Println(strings.TrimSpace(a.Query().Summarize(ctx, text, *page)))
}
