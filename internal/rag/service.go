package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/session"
)

var (
	ErrNoDocument    = errors.New(models.NoDocumentMessage)
	ErrEmptyQuestion = errors.New("question must not be empty")
)

type AskResult struct {
	Question string
	Answer   string
	Route    models.Route
	Elapsed  time.Duration
}

// Service is the entry point for questions coming from the API and the CLI.
type Service struct {
	router  *Router
	store   *session.Store
	cfg     config.RAGConfig
	metrics *metrics.Metrics
}

func NewService(router *Router, store *session.Store, cfg config.RAGConfig, m *metrics.Metrics) *Service {
	return &Service{router: router, store: store, cfg: cfg, metrics: m}
}

// Ask answers question using the last lastN turns as conversation context.
// Without an indexed document it returns ErrNoDocument and calls no model.
func (s *Service) Ask(ctx context.Context, question string, lastN int) (*AskResult, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	lastN = s.ClampLastN(lastN)

	snap := s.store.Snapshot(max(lastN, s.cfg.MemoryDepth))
	if !snap.HasIndex() {
		return nil, ErrNoDocument
	}

	resp := s.router.Respond(ctx, question, snap, lastN)
	elapsed := time.Since(start)
	s.metrics.ObserveAsk(elapsed)

	if s.cfg.HistoryDump {
		log.Debug().Msg(session.PrintHistory(s.store.History(0)))
	}

	return &AskResult{
		Question: question,
		Answer:   resp.Content,
		Route:    resp.Route,
		Elapsed:  elapsed,
	}, nil
}

// ClampLastN bounds a requested history window to 1..MaxLastN.
func (s *Service) ClampLastN(lastN int) int {
	return min(max(lastN, 1), s.cfg.MaxLastN)
}

// History returns the last lastN turns of the live session; lastN <= 0
// returns all of them.
func (s *Service) History(lastN int) []models.Turn {
	return s.store.History(lastN)
}
