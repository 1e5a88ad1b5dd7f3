package retrieval

import (
	"fmt"
	"strings"

	"github.com/poiesic/kbase/core"
)

const answerInstructions = `You are an academic assistant answering questions about the user's own documents.
Answer using only the context below. If the context does not contain the answer, say so plainly.
Reply in the same language as the question.`

// BuildPrompt renders the question and retrieved chunks into a single prompt.
func BuildPrompt(question string, hits []core.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(answerInstructions)
	b.WriteString("\n\nContext:\n")
	if len(hits) == 0 {
		b.WriteString("(no matching documents)\n")
	}
	for i, hit := range hits {
		source := hit.Chunk.Metadata[core.MetaSource]
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, source, strings.TrimSpace(hit.Chunk.Text))
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\nAnswer:")
	return b.String()
}
