package ingest

import (
	"fmt"
	"strings"

	"github.com/kalambet/pdfqa/internal/engine"
)

// maxMetadataChunks bounds how many leading chunks are shown to the chat
// model when building the metadata summary.
const maxMetadataChunks = 10

const librarianPrompt = "You are a librarian extracting metadata from documents."

const metadataInstruction = `Extract from the content the following metadata.
Answer 'unknown' if you cannot find or generate the information.
Metadata list:
- title
- author
- source
- type of content (e.g. scientific paper, literature, news, etc.)
- language
- themes as a list of keywords

<content>
%s
</content>`

// metadataExtract joins the first chunk texts used for the summary.
func metadataExtract(texts []string) string {
	if len(texts) > maxMetadataChunks {
		texts = texts[:maxMetadataChunks]
	}
	return strings.Join(texts, "\n\n")
}

// metadataMessages builds the librarian request for extract.
func metadataMessages(extract string) []engine.Message {
	return []engine.Message{
		engine.System(librarianPrompt),
		engine.User(fmt.Sprintf(metadataInstruction, extract)),
	}
}
