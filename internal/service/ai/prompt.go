package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/cubechat/internal/service/library"
)

// Unknown is the reply the model is told to give when the context does not
// cover the question. Such replies are sent without a sources footer.
const Unknown = "I don't know"

const systemPrompt = `Use the below context to answer questions. Follow these rules:
1. Be concise.
2. If you don't have enough information, say "I don't know" without guessing.
3. Include only the sources that directly contribute to your answer.
Context:
{context}`

// buildContext describes the selected documents to the model.
func buildContext(docs []library.Document) string {
	if len(docs) == 0 {
		return "(no documents have been uploaded yet)"
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] %s (%d bytes, added %s)\n", i+1, doc.Name, doc.Size, doc.AddedAt.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatAnswer applies the reply conventions shown to chat users.
func formatAnswer(answer string, docs []library.Document) string {
	answer = strings.TrimSpace(answer)
	if answer != Unknown && len(docs) > 0 {
		names := make([]string, len(docs))
		for i, doc := range docs {
			names[i] = doc.Name
		}
		answer += "\n\n|| Sources Consulted: " + strings.Join(names, ", ")
	}
	return "Answer: " + answer
}
