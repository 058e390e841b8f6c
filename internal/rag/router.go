// Package rag routes a question through memory, structural handlers, the
// reasoning loop and plain retrieval, in that order.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/agent"
	"pdf-chatbot/internal/classifier"
	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/db"
	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/session"
	"pdf-chatbot/internal/structural"
)

var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Reasoner is the tool-using loop the router tries before plain retrieval.
type Reasoner interface {
	Run(ctx context.Context, question string, history []models.Turn) agent.Outcome
}

// ReasonerFactory builds the loop for one question over one snapshot.
type ReasonerFactory func(snap session.Snapshot) Reasoner

type Router struct {
	llm      llmservice.LanguageModel
	intent   *classifier.IntentClassifier
	memory   *classifier.MemoryClassifier
	pages    *structural.PageLookup
	store    *session.Store
	archive  db.Archive
	metrics  *metrics.Metrics
	ragCfg   config.RAGConfig
	reasoner ReasonerFactory
}

type Option func(*Router)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

func WithArchive(a db.Archive) Option {
	return func(r *Router) { r.archive = a }
}

func WithPageLookup(p *structural.PageLookup) Option {
	return func(r *Router) { r.pages = p }
}

func WithReasoner(f ReasonerFactory) Option {
	return func(r *Router) { r.reasoner = f }
}

func NewRouter(llm llmservice.LanguageModel, store *session.Store, cfg *config.Config, opts ...Option) *Router {
	r := &Router{
		llm:     llm,
		intent:  classifier.NewIntentClassifier(llm),
		memory:  classifier.NewMemoryClassifier(llm),
		pages:   structural.NewPageLookup(nil),
		store:   store,
		archive: db.Nop{},
		ragCfg:  cfg.RAG,
	}
	agentCfg := cfg.Agent
	r.reasoner = func(snap session.Snapshot) Reasoner {
		return agent.New(llm, agentCfg,
			agent.NewDocumentSearch(snap.Index, r.ragCfg.SearchTopK),
			agent.NewPageInspector(r.pages, snap.Document.SourcePath),
		)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer returns the answer text for question. See Respond.
func (r *Router) Answer(ctx context.Context, question string, snap session.Snapshot, lastN int) string {
	return r.Respond(ctx, question, snap, lastN).Content
}

// Respond answers question against snap and records exactly one turn in the
// snapshot's session, whatever path produced the answer. The reasoning loop
// sees the last lastN turns of snap; the memory path sees up to the
// configured memory depth. It never fails: errors become answers.
func (r *Router) Respond(ctx context.Context, question string, snap session.Snapshot, lastN int) models.PromptResponse {
	start := time.Now()
	intent := models.IntentUnknown

	out := firstAnswer(ctx, r.metrics,
		stage{name: "memory", run: func(ctx context.Context) Outcome {
			return r.fromMemory(ctx, question, snap)
		}},
		stage{name: "page_stats", run: func(ctx context.Context) Outcome {
			intent = r.intent.Classify(ctx, question)
			if intent != models.IntentPageStats {
				return skip()
			}
			return answered(models.RouteStats, structural.DocumentStats(snap.Document.Text, snap.Document.PageCount))
		}},
		stage{name: "agent", run: func(ctx context.Context) Outcome {
			return r.fromAgent(ctx, question, snap, lastN)
		}},
		stage{name: "retrieval", run: func(ctx context.Context) Outcome {
			return r.fromRetrieval(ctx, question, snap)
		}},
		stage{name: "apology", run: func(context.Context) Outcome {
			return answered(models.RouteApology, models.FinalApology)
		}},
	)

	turn := models.Turn{User: question, Bot: out.Answer}
	if !r.store.AppendTurn(snap.ID, turn) {
		log.Warn().Str("session", snap.ID).Msg("Session replaced during ask, turn dropped")
	}
	r.archiveTurn(ctx, snap.ID, turn, out.Route, time.Since(start))
	r.metrics.ObserveRoute(string(out.Route))

	log.Info().
		Str("intent", string(intent)).
		Str("route", string(out.Route)).
		Dur("elapsed", time.Since(start)).
		Msg("Answered question")

	return models.PromptResponse{
		Query:   question,
		Source:  snap.Document.SourceName,
		Content: out.Answer,
		Route:   out.Route,
	}
}

func (r *Router) fromMemory(ctx context.Context, question string, snap session.Snapshot) Outcome {
	if !r.memory.NeedsMemory(ctx, question) {
		return skip()
	}
	history := session.FormatHistory(snap.Recent(r.ragCfg.MemoryDepth))
	answer, err := r.llm.Invoke(ctx, fmt.Sprintf(models.MemoryPromptTemplate, history, question))
	if err != nil {
		log.Error().Err(err).Str("stage", "memory").Msg("Memory answer failed")
		r.metrics.ObserveFallback("memory")
		return answered(models.RouteMemory, models.MemoryApology)
	}
	return answered(models.RouteMemory, answer)
}

func (r *Router) fromAgent(ctx context.Context, question string, snap session.Snapshot, lastN int) Outcome {
	res := r.reasoner(snap).Run(ctx, question, snap.Recent(lastN))
	r.metrics.ObserveAgent(res.State.String(), res.Iterations)
	if !res.Succeeded() {
		err := res.Err
		if err == nil {
			err = agent.ErrReasoningFailed
		}
		return failed(fmt.Errorf("agent ended in state %s after %d iterations: %w", res.State, res.Iterations, err))
	}
	return answered(models.RouteAgent, res.Answer)
}

func (r *Router) fromRetrieval(ctx context.Context, question string, snap session.Snapshot) Outcome {
	if snap.Index.Len() == 0 {
		return answered(models.RouteRetrieval, models.NoRelevantInfo)
	}
	passages, err := snap.Index.Search(ctx, question, r.ragCfg.FallbackTopK)
	if err != nil {
		return failed(fmt.Errorf("failed to search index: %w", err))
	}
	answer, err := r.llm.Invoke(ctx, fmt.Sprintf(models.FallbackPromptTemplate, passages, question))
	if err != nil {
		return failed(fmt.Errorf("failed to answer from context: %w", err))
	}
	if answer == "" {
		return failed(ErrEmptyAnswer)
	}
	return answered(models.RouteRetrieval, answer)
}

func (r *Router) archiveTurn(ctx context.Context, sessionID string, turn models.Turn, route models.Route, elapsed time.Duration) {
	err := r.archive.SaveTurn(context.WithoutCancel(ctx), &db.TurnRecord{
		SessionID: sessionID,
		Question:  turn.User,
		Answer:    turn.Bot,
		Route:     string(route),
		ElapsedMS: elapsed.Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to archive turn")
	}
}
