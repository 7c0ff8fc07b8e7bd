package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/kalambet/pdfqa/internal/backend"
	"github.com/kalambet/pdfqa/internal/config"
	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/engine/enginetest"
	"github.com/kalambet/pdfqa/internal/qa"
	"github.com/kalambet/pdfqa/internal/storage"
)

const testToken = "test-token-12345"

func testConfig() config.Config {
	var cfg config.Config
	cfg.Chunking = config.ChunkingConfig{Size: 1000, Overlap: 200, Strategy: "recursive"}
	cfg.Retrieval.TopK = 5
	cfg.Backend.Default = "dict"
	return cfg
}

func newTestRegistry(t *testing.T, fake *enginetest.Fake) (*backend.Registry, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg, err := backend.NewRegistry(testConfig(), fake, store.DB(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg, store
}

func setupHandler(t *testing.T, token string) (http.Handler, *enginetest.Fake) {
	t.Helper()
	fake := enginetest.New("The council meets on Mondays.")
	reg, store := newTestRegistry(t, fake)
	return NewHandler(Deps{
		Backends:        reg,
		Feedback:        store,
		DefaultLanguage: "French",
		Token:           token,
		UploadDir:       t.TempDir(),
	}), fake
}

func pdfBytes(t *testing.T, text string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(40, 10, text)
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}
	return buf.Bytes()
}

func uploadReq(t *testing.T, url, filename string, content []byte, docName string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	if docName != "" {
		mw.WriteField("name", docName)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonReq(method, url, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return httptest.NewRequest(method, url, reader)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", rr.Body.String(), err)
	}
	return body.Error.Type
}

func mustUpload(t *testing.T, h http.Handler, url, name, text string) {
	t.Helper()
	rr := serve(h, uploadReq(t, url, name, pdfBytes(t, text), ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload %s: status = %d; body = %s", name, rr.Code, rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h, _ := setupHandler(t, testToken)
	rr := serve(h, jsonReq(http.MethodGet, "/health", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestAuth_Required(t *testing.T) {
	h, _ := setupHandler(t, testToken)

	rr := serve(h, jsonReq(http.MethodGet, "/documents", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	req := jsonReq(http.MethodGet, "/documents", "")
	req.Header.Set("Authorization", "Bearer "+testToken)
	if rr := serve(h, req); rr.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rr.Code)
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	h, _ := setupHandler(t, "")
	if rr := serve(h, jsonReq(http.MethodGet, "/store/info", "")); rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestUpload_PDF(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := serve(h, uploadReq(t, "/documents", "minutes.pdf", pdfBytes(t, "The council meets on Mondays"), "Council minutes"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Backend string `json:"backend"`
		Result  struct {
			DocumentName string `json:"document_name"`
			Chunks       int    `json:"chunks"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Backend != "dict" || resp.Result.DocumentName != "Council minutes" || resp.Result.Chunks != 1 {
		t.Errorf("unexpected response %+v", resp)
	}

	rr = serve(h, jsonReq(http.MethodGet, "/documents", ""))
	var docs []struct {
		Name   string `json:"name"`
		Chunks int    `json:"chunks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "Council minutes" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	h, _ := setupHandler(t, "")

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"wrong extension", "notes.txt", pdfBytes(t, "hello")},
		{"wrong content", "notes.pdf", []byte("plain text pretending")},
		{"empty file", "empty.pdf", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, uploadReq(t, "/documents", tt.filename, tt.content, ""))
			if rr.Code != http.StatusUnsupportedMediaType {
				t.Fatalf("status = %d, want 415; body = %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUpload_DuplicateNameConflict(t *testing.T) {
	h, _ := setupHandler(t, "")
	mustUpload(t, h, "/documents", "budget.pdf", "The annual budget")

	rr := serve(h, uploadReq(t, "/documents", "budget.pdf", pdfBytes(t, "The annual budget"), ""))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", rr.Code, rr.Body.String())
	}
	if got := errorType(t, rr); got != "conflict" {
		t.Errorf("error type = %q", got)
	}

	rr = serve(h, jsonReq(http.MethodGet, "/store/info", ""))
	if !strings.Contains(rr.Body.String(), `"chunks":1`) {
		t.Errorf("store info after duplicate upload = %s", rr.Body.String())
	}
}

func TestUpload_MalformedPDFIsUnprocessable(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := serve(h, uploadReq(t, "/documents", "broken.pdf", []byte("%PDF-1.4\n1 0 obj\n<<"), ""))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rr.Code, rr.Body.String())
	}
	if got := errorType(t, rr); got != "unprocessable_document" {
		t.Errorf("error type = %q", got)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, jsonReq(http.MethodPost, "/documents", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUnknownBackend(t *testing.T) {
	h, _ := setupHandler(t, "")
	rr := serve(h, jsonReq(http.MethodGet, "/store/info?backend=chroma", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	h, _ := setupHandler(t, "")
	mustUpload(t, h, "/documents", "a.pdf", "first document")
	mustUpload(t, h, "/documents", "b.pdf", "second document")

	rr := serve(h, jsonReq(http.MethodDelete, "/documents/a.pdf", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Removed int `json:"removed"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Removed != 1 {
		t.Errorf("removed = %d, want 1", resp.Removed)
	}

	rr = serve(h, jsonReq(http.MethodGet, "/store/info", ""))
	if !strings.Contains(rr.Body.String(), `"documents":1`) {
		t.Errorf("store info after delete = %s", rr.Body.String())
	}
}

func TestDeleteDocument_EscapedNames(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"literal percent", "a%41.pdf", "/documents/a%2541.pdf"},
		{"encoded slash", "reports/q1.pdf", "/documents/reports%2Fq1.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupHandler(t, "")
			doc := tt.doc
			rr := serve(h, uploadReq(t, "/documents", "upload.pdf", pdfBytes(t, "some text"), doc))
			if rr.Code != http.StatusOK {
				t.Fatalf("upload status = %d; body = %s", rr.Code, rr.Body.String())
			}

			rr = serve(h, jsonReq(http.MethodDelete, tt.path, ""))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
			}
			var resp struct {
				Document string `json:"document"`
				Removed  int    `json:"removed"`
			}
			json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.Document != doc || resp.Removed != 1 {
				t.Errorf("response = %+v, want document %q removed 1", resp, doc)
			}
		})
	}
}

func TestDeleteDocument_UnsupportedOnSimple(t *testing.T) {
	h, _ := setupHandler(t, "")
	mustUpload(t, h, "/documents?backend=llamaindex", "a.pdf", "kept forever")

	rr := serve(h, jsonReq(http.MethodDelete, "/documents/a.pdf?backend=simple", ""))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rr.Code)
	}
	if got := errorType(t, rr); got != "unsupported_operation" {
		t.Errorf("error type = %q", got)
	}
}

func TestAsk(t *testing.T) {
	h, fake := setupHandler(t, "")
	mustUpload(t, h, "/documents", "minutes.pdf", "The council meets on Mondays")

	rr := serve(h, jsonReq(http.MethodPost, "/ask", `{"question":"When does the council meet?","k":3}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp AskResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "The council meets on Mondays." {
		t.Errorf("answer = %q", resp.Answer)
	}

	chats := fake.Chats()
	if len(chats) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(chats))
	}
	if !strings.Contains(chats[0][1].Content, "French") {
		t.Errorf("default language not used: %q", chats[0][1].Content)
	}
}

func TestAsk_EmptyStoreFallback(t *testing.T) {
	h, fake := setupHandler(t, "")

	rr := serve(h, jsonReq(http.MethodPost, "/ask", `{"question":"anything?","language":"English"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp AskResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Answer != qa.FallbackMessage {
		t.Errorf("answer = %q, want fallback", resp.Answer)
	}
	if len(fake.Chats()) != 0 {
		t.Error("chat model should not be called on an empty store")
	}
}

func TestAsk_Validation(t *testing.T) {
	h, _ := setupHandler(t, "")

	for _, body := range []string{`{}`, `{"question":"q","k":-1}`, `{"question":"q","k":1000}`, `not json`} {
		rr := serve(h, jsonReq(http.MethodPost, "/ask", body))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestAsk_ChatErrorIs502(t *testing.T) {
	h, fake := setupHandler(t, "")
	mustUpload(t, h, "/documents", "minutes.pdf", "The council meets on Mondays")
	fake.ChatFunc = func([]engine.Message) (string, error) {
		return "", errors.New("deployment not found")
	}

	rr := serve(h, jsonReq(http.MethodPost, "/ask", `{"question":"When?"}`))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestStoreChunks(t *testing.T) {
	h, _ := setupHandler(t, "")
	mustUpload(t, h, "/documents", "a.pdf", "alpha")
	mustUpload(t, h, "/documents", "b.pdf", "beta")
	mustUpload(t, h, "/documents", "c.pdf", "gamma")

	rr := serve(h, jsonReq(http.MethodGet, "/store/chunks?limit=2", ""))
	var chunks []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &chunks); err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0]["document_name"] != "a.pdf" {
		t.Errorf("first chunk = %v", chunks[0])
	}
	if _, ok := chunks[0]["embedding"]; ok {
		t.Error("embedding should not be exposed")
	}
}

func TestFeedback(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := serve(h, jsonReq(http.MethodPost, "/feedback", `{"question":"q1","response":"r1","rating":"👍"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	serve(h, jsonReq(http.MethodPost, "/feedback", `{"question":"q2","response":"r2","rating":"off_topic"}`))

	rr = serve(h, jsonReq(http.MethodPost, "/feedback", `{"question":"q","response":"r","rating":"meh"}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid rating status = %d, want 400", rr.Code)
	}

	rr = serve(h, jsonReq(http.MethodGet, "/feedback", ""))
	var records []storage.Feedback
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Question != "q2" || records[1].Rating != storage.RatingPositive {
		t.Errorf("records = %+v", records)
	}

	rr = serve(h, jsonReq(http.MethodDelete, "/feedback", ""))
	if !strings.Contains(rr.Body.String(), `"deleted":2`) {
		t.Errorf("clear body = %s", rr.Body.String())
	}
}

func TestFeedback_Unavailable(t *testing.T) {
	fake := enginetest.New("")
	reg, _ := newTestRegistry(t, fake)
	h := NewHandler(Deps{Backends: reg})

	rr := serve(h, jsonReq(http.MethodGet, "/feedback", ""))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
