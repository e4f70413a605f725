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
)

// handleAsk implements the ask subcommand
func handleAsk(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)

	var source string
	var topK int
	var jsonOutput, showContext bool

	fs.StringVar(&source, "source", "", "Only use chunks from this source")
	fs.IntVar(&topK, "k", cfg.Search.TopK, "Number of context chunks to retrieve")
	fs.BoolVar(&jsonOutput, "json", false, "Output answer and context as JSON")
	fs.BoolVar(&showContext, "context", false, "Print the chunks the answer is based on")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag ask [options] "<question>"

DESCRIPTION:
    Retrieve the chunks most similar to the question and let the language
    model answer from them.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    docrag ask "What is the warranty period?"
    docrag ask -source manual.txt -k 8 "How do I reset the device?"
    docrag ask -json "Who wrote chapter 3?"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: question is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	a := openApp(cfg)
	defer a.Close()

	if source != "" && !a.Store().IsSourceIngested(source) {
		fmt.Fprintf(os.Stderr, "Warning: %s has not been ingested\n", source)
	}

	answer := a.Query().AskK(context.Background(), question, source, topK)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(answer); err != nil {
			log.Fatalf("Failed to encode JSON: %v", err)
		}
		return
	}

	fmt.Println(strings.TrimSpace(answer.Text))
	if showContext {
		printResults(answer.Context)
	}
}
