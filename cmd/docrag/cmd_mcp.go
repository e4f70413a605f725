package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DreamCats/docrag/cmd/docrag/internal"
	"github.com/DreamCats/docrag/internal/config"
	"github.com/DreamCats/docrag/internal/mcpserver"
)

// handleMCP implements the MCP stdio server subcommand
func handleMCP(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docrag mcp

DESCRIPTION:
    Run an MCP stdio server exposing:
      - docrag_ingest
      - docrag_ask
      - docrag_search
      - docrag_sources
      - docrag_delete_source
      - docrag_summarize
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	a := openApp(cfg)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcpserver.New(a, internal.Version, nil)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
