package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/ingest"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/rag"
)

type fakeAsker struct {
	err       error
	lastN     int
	questions []string
	history   []models.Turn
}

func (f *fakeAsker) Ask(_ context.Context, question string, lastN int) (*rag.AskResult, error) {
	f.questions = append(f.questions, question)
	f.lastN = lastN
	if f.err != nil {
		return nil, f.err
	}
	return &rag.AskResult{
		Question: question,
		Answer:   "**Apples** and flour.",
		Route:    models.RouteAgent,
		Elapsed:  1234 * time.Millisecond,
	}, nil
}

func (f *fakeAsker) History(lastN int) []models.Turn {
	f.lastN = lastN
	return f.history
}

type fakeUploader struct {
	err      error
	filename string
	content  string
}

func (f *fakeUploader) Upload(_ context.Context, filename string, r io.Reader) (*ingest.Result, error) {
	data, _ := io.ReadAll(r)
	f.filename = filename
	f.content = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Result{
		Filename:  filename,
		Message:   models.UploadSuccess,
		NumChunks: 7,
		PageCount: 3,
		Elapsed:   2 * time.Second,
	}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(asker *fakeAsker, uploader *fakeUploader) *gin.Engine {
	cfg := config.Default()
	cfg.Server.GinMode = gin.TestMode
	cfg.Server.MaxUploadMB = 1
	return NewRouter(cfg, asker, uploader, metrics.New())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{}
	router := newTestRouter(asker, &fakeUploader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask?last_n=5", bytes.NewBufferString(`{"question":"What is in the pie?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "What is in the pie?", body["question"])
	assert.Equal(t, "**Apples** and flour.", body["answer"])
	assert.Contains(t, body["answer_html"], "<strong>Apples</strong>")
	assert.Equal(t, "agent", body["route"])
	assert.Equal(t, 1.23, body["response_time_seconds"])
	assert.Equal(t, 5, asker.lastN)
}

func TestAskDefaultsLastN(t *testing.T) {
	asker := &fakeAsker{}
	router := newTestRouter(asker, &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"hi"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, asker.lastN)
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		url    string
		body   string
		status int
		msg    string
	}{
		{"no document", rag.ErrNoDocument, "/ask", `{"question":"hi"}`, http.StatusBadRequest, models.NoDocumentMessage},
		{"missing question", nil, "/ask", `{}`, http.StatusBadRequest, "invalid request payload"},
		{"bad last_n", nil, "/ask?last_n=abc", `{"question":"hi"}`, http.StatusBadRequest, "last_n must be an integer"},
		{"internal", errors.New("boom"), "/ask", `{"question":"hi"}`, http.StatusInternalServerError, "failed to answer question"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeAsker{err: tt.err}, &fakeUploader{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.url, bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

func TestAskNoDocumentReportsZeroTime(t *testing.T) {
	router := newTestRouter(&fakeAsker{err: rag.ErrNoDocument}, &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"hi"}`)))

	assert.Equal(t, 0.0, decode(t, rec)["response_time_seconds"])
}

func TestUpload(t *testing.T) {
	uploader := &fakeUploader{}
	router := newTestRouter(&fakeAsker{}, uploader)

	body, contentType := multipartBody(t, "report.pdf", "%PDF-1.4 content")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "report.pdf", resp["filename"])
	assert.Equal(t, models.UploadSuccess, resp["message"])
	assert.Equal(t, 7.0, resp["num_chunks"])
	assert.Equal(t, 3.0, resp["page_count"])
	assert.Equal(t, 2.0, resp["processing_time_seconds"])
	assert.Equal(t, "%PDF-1.4 content", uploader.content)
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported", ingest.ErrUnsupportedFile, http.StatusBadRequest},
		{"in progress", ingest.ErrUploadInProgress, http.StatusConflict},
		{"no text", ingest.ErrNoReadableText, http.StatusUnprocessableEntity},
		{"index failure", errors.New("embedding backend down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeAsker{}, &fakeUploader{err: tt.err})

			body, contentType := multipartBody(t, "report.pdf", "data")
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", contentType)
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	router := newTestRouter(&fakeAsker{}, &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	asker := &fakeAsker{history: []models.Turn{{User: "q", Bot: "a"}}}
	router := newTestRouter(asker, &fakeUploader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?last_n=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[{"user":"q","bot":"a"}]}`, rec.Body.String())
	assert.Equal(t, 10, asker.lastN)

	asker.history = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestCORSAndHealth(t *testing.T) {
	router := newTestRouter(&fakeAsker{}, &fakeUploader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRenderMarkdown(t *testing.T) {
	assert.Equal(t, "<p>plain <em>text</em></p>\n", renderMarkdown("plain *text*"))
	assert.NotContains(t, renderMarkdown("<script>alert(1)</script>"), "<script>")
}
