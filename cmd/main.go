package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/db"
	"pdf-chatbot/internal/embedding"
	"pdf-chatbot/internal/ingest"
	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/logging"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/rag"
	"pdf-chatbot/internal/session"
)

const configFilePath = "./configs/config.yaml"

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "pdf-chatbot",
		Short:         "Ask questions about an uploaded document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", configFilePath, "config file")

	root.AddCommand(serveCMD(&cfgPath), askCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command needs, wired from one config.
type app struct {
	cfg      *config.Config
	store    *session.Store
	asker    *rag.Service
	uploader *ingest.Service
	archive  db.Archive
	metrics  *metrics.Metrics
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	logging.Setup(cfg.Log)
	log.Debug().Str("path", path).Str("llm", cfg.LLM.Model).Str("embedder", cfg.EmbedLLM.Model).Msg("Loaded config")
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	llm, err := llmservice.New(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	archive, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	store := session.NewStore()
	router := rag.NewRouter(llm, store, cfg, rag.WithMetrics(m), rag.WithArchive(archive))
	return &app{
		cfg:      cfg,
		store:    store,
		asker:    rag.NewService(router, store, cfg.RAG, m),
		uploader: ingest.NewService(store, embedder, cfg, archive, m),
		archive:  archive,
		metrics:  m,
	}, nil
}

func (a *app) Close() {
	if err := a.archive.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close archive")
	}
	a.store.Reset()
}
