// Package ingest turns a PDF file into embedded chunks in a vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/loader"
	"github.com/kalambet/pdfqa/internal/retrieval"
	"github.com/kalambet/pdfqa/internal/splitter"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

var (
	// ErrDocumentExists is returned when the store already holds chunks for
	// the document name. A document is ingested in exactly one call.
	ErrDocumentExists = errors.New("document already stored")
	// ErrExtraction wraps failures to read text out of the file.
	ErrExtraction = errors.New("extracting text")
	// ErrStoreFailed wraps failures of the vector store itself.
	ErrStoreFailed = errors.New("vector store")
)

// Options configures a Pipeline. Zero values select the defaults.
type Options struct {
	// Splitter defaults to the recursive splitter with 1000/200.
	Splitter splitter.Splitter
	// MetadataChunk enables the generated summary chunk.
	MetadataChunk bool
	// EmbedConcurrency bounds concurrent embedding calls; default 4.
	EmbedConcurrency int
	// Load extracts page sections; defaults to loader.Load.
	Load   func(path string) ([]loader.Section, error)
	Logger *slog.Logger
}

// Result reports what one Store call did.
type Result struct {
	DocumentName string `json:"document_name"`
	// Sections is the number of non-empty pages extracted.
	Sections int `json:"sections"`
	// Chunks is the number of chunks written to the store, including the
	// metadata chunk.
	Chunks int `json:"chunks"`
	// Failed counts chunks dropped because embedding or the metadata
	// summary failed.
	Failed        int  `json:"failed"`
	MetadataChunk bool `json:"metadata_chunk"`
}

// Pipeline loads, splits, embeds and stores documents.
type Pipeline struct {
	engine        engine.Engine
	embedder      *retrieval.Embedder
	store         vectorstore.Store
	splitter      splitter.Splitter
	metadataChunk bool
	load          func(string) ([]loader.Section, error)
	now           func() time.Time
	logger        *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Pipeline writing into store.
func New(e engine.Engine, store vectorstore.Store, opts Options) *Pipeline {
	p := &Pipeline{
		engine:        e,
		embedder:      retrieval.NewEmbedder(e, opts.EmbedConcurrency),
		store:         store,
		splitter:      opts.Splitter,
		metadataChunk: opts.MetadataChunk,
		load:          opts.Load,
		now:           time.Now,
		logger:        opts.Logger,
		inflight:      make(map[string]struct{}),
	}
	if p.splitter == nil {
		p.splitter = splitter.NewRecursive(1000, 200)
	}
	if p.load == nil {
		p.load = loader.Load
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Store ingests the PDF at filePath under documentName. A name that is
// already present in the store is refused with ErrDocumentExists. Every
// chunk of the call carries the same insert date. A chunk whose embedding
// fails is skipped and counted in Result.Failed; it never aborts the batch.
func (p *Pipeline) Store(ctx context.Context, filePath, documentName string) (Result, error) {
	res := Result{DocumentName: documentName}

	if !p.claim(documentName) {
		return res, fmt.Errorf("%w: %q is being ingested", ErrDocumentExists, documentName)
	}
	defer p.release(documentName)

	exists, err := hasDocument(ctx, p.store, documentName)
	if err != nil {
		return res, fmt.Errorf("%w: checking %q: %w", ErrStoreFailed, documentName, err)
	}
	if exists {
		return res, fmt.Errorf("%w: %q", ErrDocumentExists, documentName)
	}

	sections, err := p.load(filePath)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	res.Sections = len(sections)

	meta := vectorstore.Metadata{DocumentName: documentName, InsertDate: p.now().UTC()}

	var chunks []vectorstore.Chunk
	for _, s := range sections {
		for _, text := range p.splitter.Split(s.Text) {
			chunks = append(chunks, vectorstore.Chunk{Text: text, Metadata: meta, Kind: vectorstore.KindContent})
		}
	}
	if len(chunks) == 0 {
		p.logger.InfoContext(ctx, "no text extracted", "document", documentName, "sections", len(sections))
		return res, nil
	}

	if p.metadataChunk {
		summary, err := p.summarize(ctx, chunks)
		if err != nil {
			p.logger.WarnContext(ctx, "metadata summary failed", "document", documentName, "error", err)
			res.Failed++
		} else {
			chunks = append(chunks, vectorstore.Chunk{Text: summary, Metadata: meta, Kind: vectorstore.KindMetadataSummary})
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, errs := p.embedder.EmbedBatch(ctx, texts)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	embedded := chunks[:0]
	for i, c := range chunks {
		if errs != nil && errs[i] != nil {
			p.logger.WarnContext(ctx, "skipping chunk", "document", documentName, "chunk", i, "error", errs[i])
			res.Failed++
			continue
		}
		c.Embedding = vecs[i]
		embedded = append(embedded, c)
	}
	if len(embedded) == 0 {
		return res, nil
	}

	if _, err := p.store.Add(ctx, embedded); err != nil {
		return res, fmt.Errorf("%w: adding chunks: %w", ErrStoreFailed, err)
	}
	res.Chunks = len(embedded)
	for _, c := range embedded {
		if c.Kind == vectorstore.KindMetadataSummary {
			res.MetadataChunk = true
		}
	}

	p.logger.InfoContext(ctx, "document ingested",
		"document", documentName,
		"sections", res.Sections,
		"chunks", res.Chunks,
		"failed", res.Failed,
	)
	return res, nil
}

func (p *Pipeline) summarize(ctx context.Context, chunks []vectorstore.Chunk) (string, error) {
	texts := make([]string, 0, maxMetadataChunks)
	for i := 0; i < len(chunks) && i < maxMetadataChunks; i++ {
		texts = append(texts, chunks[i].Text)
	}
	reply, err := p.engine.Chat(ctx, metadataMessages(metadataExtract(texts)))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("empty metadata summary")
	}
	return reply, nil
}

func (p *Pipeline) claim(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[name]; busy {
		return false
	}
	p.inflight[name] = struct{}{}
	return true
}

func (p *Pipeline) release(name string) {
	p.mu.Lock()
	delete(p.inflight, name)
	p.mu.Unlock()
}

func hasDocument(ctx context.Context, s vectorstore.Store, name string) (bool, error) {
	found := false
	err := s.Iterate(ctx, func(c vectorstore.Chunk) bool {
		found = c.Metadata.DocumentName == name
		return !found
	})
	return found, err
}
