package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

const (
	assistantPrompt = "You are an assistant for question-answering tasks."
	languagePrompt  = "Always answer ONLY in %s, without translating into any other language."
	contextPrompt   = `Use the following pieces of retrieved context to answer the question.
If you don't know the answer, just say that you don't know.
Use three sentences maximum and keep the answer concise.
`
)

// Context joins chunk texts in retrieval order, separated by a blank line.
func Context(chunks []vectorstore.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// Compose builds the chat messages for answering question in language from
// the retrieved context. The question is passed through unchanged as the
// only user message.
func Compose(question, language, context string) []engine.Message {
	return []engine.Message{
		engine.System(assistantPrompt),
		engine.System(fmt.Sprintf(languagePrompt, language)),
		engine.System(contextPrompt + context),
		engine.User(question),
	}
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
