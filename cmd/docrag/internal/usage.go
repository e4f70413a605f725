package internal

import (
	"fmt"
	"os"
	"strings"
)

const Version = "0.3.0"

// PrintUsage 向 stderr 输出 docrag 的用法与可用子命令列表。
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `docrag - Ask questions about your documents with local embeddings

Version: %s

USAGE:
    docrag [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.docrag/config/docrag.yaml)

    -v
        Verbose (debug) logging

    -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Split, embed and store documents (paths, globs or URLs)

    ask
        Answer a question from the stored documents

    search
        Show the stored chunks most similar to a query

    sources
        List ingested sources

    delete
        Remove sources from the store (-all clears everything)

    stats
        Show store statistics and recent ingest runs

    summarize
        Summarize one page of a document

    mcp
        Run MCP stdio server

EXAMPLES:
    docrag ingest "docs/**/*.md" manual.txt
    docrag ask -source manual.txt "How do I reset the device?"
    docrag search "backup schedule" -k 10
    docrag mcp

Use "docrag <command> -h" for more information about a command.
`, Version)
}

// StringList is a repeatable string flag.
type StringList []string

func (s *StringList) String() string {
	return strings.Join(*s, ",")
}

func (s *StringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
