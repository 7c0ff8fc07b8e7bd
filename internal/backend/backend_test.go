package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/pdfqa/internal/config"
	"github.com/kalambet/pdfqa/internal/engine/enginetest"
	"github.com/kalambet/pdfqa/internal/qa"
	"github.com/kalambet/pdfqa/internal/storage"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

func writePDF(t *testing.T, pages ...string) string {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Chunking = config.ChunkingConfig{Size: 1000, Overlap: 200, Strategy: "recursive"}
	cfg.Retrieval.TopK = 5
	cfg.Backend.Default = "dict"
	return cfg
}

func TestRAG_StoreRetrieveAnswer(t *testing.T) {
	fake := enginetest.New("The budget was approved in March.")
	b := New(Dict, fake, vectorstore.NewDictStore(), Options{})

	res, err := b.Store(context.Background(), writePDF(t, "The annual budget was approved in March"), "budget.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	chunks, err := b.Retrieve(context.Background(), "The annual budget was approved in March", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "budget.pdf", chunks[0].Metadata.DocumentName)

	answer, err := b.Answer(context.Background(), "When was the budget approved?", "English", 3)
	require.NoError(t, err)
	assert.Equal(t, "The budget was approved in March.", answer)
}

func TestRAG_AnswerEmptyStore(t *testing.T) {
	fake := enginetest.New("should not be used")
	b := New(Dict, fake, vectorstore.NewDictStore(), Options{})

	answer, err := b.Answer(context.Background(), "anything?", "French", 5)
	require.NoError(t, err)
	assert.Equal(t, qa.FallbackMessage, answer)
	assert.Empty(t, fake.Chats())
}

func TestRAG_InfoAndInspect(t *testing.T) {
	b := New(Dict, enginetest.New("summary"), vectorstore.NewDictStore(), Options{MetadataChunk: true})

	_, err := b.Store(context.Background(), writePDF(t, "first page", "second page"), "a.pdf")
	require.NoError(t, err)
	_, err = b.Store(context.Background(), writePDF(t, "other"), "b.pdf")
	require.NoError(t, err)

	info, err := b.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, info.Documents)
	assert.Equal(t, 5, info.Chunks)
	assert.Equal(t, 3, info.PerDocument["a.pdf"])

	views, err := b.Inspect(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestRAG_DeleteUnsupportedOnSimple(t *testing.T) {
	b := New(Simple, enginetest.New(""), vectorstore.NewSimpleStore(), Options{})
	_, err := b.Delete(context.Background(), "a.pdf")
	assert.True(t, errors.Is(err, vectorstore.ErrUnsupported))
}

func TestRegistry_NamesAndAliases(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	r, err := NewRegistry(testConfig(), enginetest.New(""), db.DB(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dict", "simple", "sqlite"}, r.Names())
	assert.Equal(t, "dict", r.Default())

	for name, want := range map[string]string{
		"":           "dict",
		"langchain":  "dict",
		"LlamaIndex": "simple",
		"sqlite":     "sqlite",
	} {
		b, err := r.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, b.Name(), name)
	}

	_, err = r.Get("chroma")
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestRegistry_WithoutDatabase(t *testing.T) {
	r, err := NewRegistry(testConfig(), enginetest.New(""), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dict", "simple"}, r.Names())

	_, err = r.Get("sqlite")
	assert.Error(t, err)
}

func TestRegistry_DefaultFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Backend.Default = "llamaindex"
	r, err := NewRegistry(cfg, enginetest.New(""), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "simple", r.Default())

	cfg.Backend.Default = "missing"
	_, err = NewRegistry(cfg, enginetest.New(""), nil, nil)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestRegistry_BackendsAreIsolated(t *testing.T) {
	r, err := NewRegistry(testConfig(), enginetest.New(""), nil, nil)
	require.NoError(t, err)

	dict, _ := r.Get("dict")
	simple, _ := r.Get("simple")
	_, err = dict.Store(context.Background(), writePDF(t, "only in dict"), "d.pdf")
	require.NoError(t, err)

	info, err := simple.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, info.Chunks)
}
