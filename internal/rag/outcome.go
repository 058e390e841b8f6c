package rag

import (
	"context"

	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
)

// Outcome is what one routing stage produced. A skipped stage did not apply
// to the question; a stage with Err failed and hands over to the next one.
type Outcome struct {
	Answer  string
	Route   models.Route
	Err     error
	skipped bool
}

func answered(route models.Route, answer string) Outcome {
	return Outcome{Answer: answer, Route: route}
}

func failed(err error) Outcome {
	return Outcome{Err: err}
}

func skip() Outcome {
	return Outcome{skipped: true}
}

func (o Outcome) ok() bool {
	return !o.skipped && o.Err == nil
}

type stage struct {
	name string
	run  func(ctx context.Context) Outcome
}

// firstAnswer runs stages in order and returns the first one that answered.
// The last stage must always answer.
func firstAnswer(ctx context.Context, m *metrics.Metrics, stages ...stage) Outcome {
	var out Outcome
	for _, s := range stages {
		out = s.run(ctx)
		if out.ok() {
			log.Debug().Str("stage", s.name).Str("route", string(out.Route)).Msg("Stage answered")
			return out
		}
		if out.Err != nil {
			log.Warn().Err(out.Err).Str("stage", s.name).Msg("Stage failed, falling back")
			m.ObserveFallback(s.name)
		}
	}
	return out
}
