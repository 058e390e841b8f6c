// Package session holds the single live document session and its
// conversation history.
package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/retrieval"
)

// Document is what the uploader knows about the current source file.
type Document struct {
	Text       string
	PageCount  int
	SourceName string
	SourcePath string
}

// Snapshot is an immutable view of the session taken at request start.
type Snapshot struct {
	ID       string
	Document Document
	Chunks   []models.Chunk
	Index    *retrieval.Index
	History  []models.Turn
}

// HasIndex reports whether a document has been fully indexed.
func (s Snapshot) HasIndex() bool {
	return s.Index != nil
}

// Recent returns at most the last n turns of the snapshot's history.
func (s Snapshot) Recent(n int) []models.Turn {
	return tail(s.History, n)
}

// Store owns the live session. Replacement and reads are guarded by one
// RWMutex; readers work on snapshots.
type Store struct {
	mu       sync.RWMutex
	id       string
	document Document
	chunks   []models.Chunk
	index    *retrieval.Index
	history  []models.Turn
}

func NewStore() *Store {
	return &Store{id: helper.NewID()}
}

// Reset clears the session and starts a new one with a fresh ID.
func (s *Store) Reset() string {
	s.mu.Lock()
	old := s.index
	s.id = helper.NewID()
	s.document = Document{}
	s.chunks = nil
	s.index = nil
	s.history = nil
	id := s.id
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to release previous index")
	}
	return id
}

func (s *Store) SetDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
}

// SetChunksAndIndex installs a fully built index; the index is never
// published partially.
func (s *Store) SetChunksAndIndex(chunks []models.Chunk, index *retrieval.Index) {
	kept := make([]models.Chunk, len(chunks))
	copy(kept, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = kept
	s.index = index
}

// Snapshot copies the session state with at most lastN trailing turns.
// lastN <= 0 copies no history.
func (s *Store) Snapshot(lastN int) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:       s.id,
		Document: s.document,
		Chunks:   s.chunks,
		Index:    s.index,
		History:  tail(s.history, lastN),
	}
}

// AppendTurn records a turn for the session sessionID. It returns false and
// drops the turn when that session has since been replaced.
func (s *Store) AppendTurn(sessionID string, turn models.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID != s.id {
		return false
	}
	s.history = append(s.history, turn)
	return true
}

// History returns the last lastN turns; lastN <= 0 returns all of them.
func (s *Store) History(lastN int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lastN <= 0 {
		lastN = len(s.history)
	}
	return tail(s.history, lastN)
}

func tail(turns []models.Turn, n int) []models.Turn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]models.Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}
