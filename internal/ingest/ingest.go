// Package ingest turns an uploaded file into the live session: it saves the
// file, extracts and chunks its text and builds the retrieval index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/db"
	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/parser"
	"pdf-chatbot/internal/retrieval"
	"pdf-chatbot/internal/session"
)

var (
	ErrUploadInProgress = errors.New("another upload is being processed")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrNoReadableText   = errors.New(models.NoReadableText)
)

type Result struct {
	Filename  string
	Message   string
	NumChunks int
	PageCount int
	Elapsed   time.Duration
}

type Service struct {
	store    *session.Store
	embedder embeddings.Embedder
	chunker  *parser.Chunker
	cfg      config.ServerConfig
	archive  db.Archive
	metrics  *metrics.Metrics
	gate     sync.Mutex
}

func NewService(store *session.Store, embedder embeddings.Embedder, cfg *config.Config, archive db.Archive, m *metrics.Metrics) *Service {
	if archive == nil {
		archive = db.Nop{}
	}
	return &Service{
		store:    store,
		embedder: embedder,
		chunker:  parser.NewChunker(cfg.RAG),
		cfg:      cfg.Server,
		archive:  archive,
		metrics:  m,
	}
}

// Upload stores r under the upload directory as filename and ingests it.
// Only one upload runs at a time; a concurrent call fails with
// ErrUploadInProgress.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	if !s.gate.TryLock() {
		return nil, ErrUploadInProgress
	}
	defer s.gate.Unlock()

	filename = filepath.Base(filename)
	if !parser.IsSupported(filename, s.cfg.AllowedExtensions) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}

	path, err := s.save(filename, r)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, filename, path)
}

// IngestFile indexes a file that is already on disk.
func (s *Service) IngestFile(ctx context.Context, path string) (*Result, error) {
	if !s.gate.TryLock() {
		return nil, ErrUploadInProgress
	}
	defer s.gate.Unlock()

	if !parser.IsSupported(path, s.cfg.AllowedExtensions) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}
	return s.ingest(ctx, filepath.Base(path), path)
}

// Preview extracts and chunks a file without touching the session.
func (s *Service) Preview(path string) ([]models.Chunk, error) {
	pages, err := parser.ExtractPages(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return s.chunker.ChunkPages(pages), nil
}

func (s *Service) save(filename string, r io.Reader) (string, error) {
	if err := helper.CreateFolder(s.cfg.UploadDir); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

func (s *Service) ingest(ctx context.Context, filename, path string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		chunks := 0
		if res != nil {
			chunks = res.NumChunks
		}
		s.metrics.ObserveUpload(err, chunks)
	}()

	pages, err := parser.ExtractPages(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filename, err)
	}
	text := parser.JoinPages(pages)
	if text == "" {
		return nil, ErrNoReadableText
	}
	chunks := s.chunker.ChunkPages(pages)
	if len(chunks) == 0 {
		return nil, ErrNoReadableText
	}
	index, err := retrieval.Build(ctx, chunks, s.embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	// the previous session stays live until the new one is ready
	sessionID := s.store.Reset()
	s.store.SetDocument(session.Document{
		Text:       text,
		PageCount:  len(pages),
		SourceName: filename,
		SourcePath: path,
	})
	s.store.SetChunksAndIndex(chunks, index)

	if err := s.archive.SaveDocument(ctx, &db.DocumentRecord{
		SessionID: sessionID,
		Filename:  filename,
		PageCount: len(pages),
		NumChunks: len(chunks),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to archive document")
	}

	res = &Result{
		Filename:  filename,
		Message:   models.UploadSuccess,
		NumChunks: len(chunks),
		PageCount: len(pages),
		Elapsed:   time.Since(start),
	}
	log.Info().
		Str("file", filename).
		Int("pages", res.PageCount).
		Int("chunks", res.NumChunks).
		Dur("elapsed", res.Elapsed).
		Msg("Document ingested")
	return res, nil
}
