package query

import (
	"fmt"
	"strings"

	"github.com/DreamCats/docrag/internal/embedstore"
)

const assistantIntro = "You are a helpful assistant answering questions about a document."

// BuildPrompt renders the question prompt. Each retrieved chunk becomes
// "[text (Page N)]", without the page tag for page 0, and chunks are
// separated by a blank line.
func BuildPrompt(question string, results []embedstore.Result) string {
	var b strings.Builder
	b.WriteString(assistantIntro)
	b.WriteString("\n")

	if len(results) == 0 {
		fmt.Fprintf(&b, "The user asked: %q\n\n", question)
		b.WriteString("Note: no relevant context was found in the document. Say so plainly, then give a helpful response based on general knowledge, or suggest that the document may need to be ingested first.\n\n")
		b.WriteString("Answer:")
		return b.String()
	}

	b.WriteString("Use only the following context from the document to answer the question. If the context doesn't contain enough information, say so.\n\n")
	b.WriteString("Context from the document:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(formatChunk(r))
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", question)
	return b.String()
}

func formatChunk(r embedstore.Result) string {
	if r.Page > 0 {
		return fmt.Sprintf("[%s (Page %d)]", r.Text, r.Page)
	}
	return "[" + r.Text + "]"
}

// BuildSummaryPrompt renders the page summary prompt.
func BuildSummaryPrompt(text string, page int) string {
	var b strings.Builder
	b.WriteString("You are a professional assistant.\n")
	if page > 0 {
		fmt.Fprintf(&b, "Summarize the following text from page %d of a document.\n", page)
	} else {
		b.WriteString("Summarize the following text from a document.\n")
	}
	b.WriteString("Focus on key concepts and actionable information.\n")
	b.WriteString("Format as 3-4 bullet points.\n\n")
	fmt.Fprintf(&b, "TEXT TO SUMMARIZE:\n%q", text)
	return b.String()
}
