// Package agent runs the bounded tool-using reasoning loop over the current
// document.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/tools"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/session"
)

const (
	StoppedIterationMessage = "Agent stopped due to iteration limit."
	StoppedTimeMessage      = "Agent stopped due to time limit."

	finalAnswerMarker = "Final Answer:"
	formatReminder    = "Invalid format. Respond with either an Action and Action Input or a Final Answer."
)

var (
	ErrReasoningFailed = errors.New("reasoning failed")

	actionRe      = regexp.MustCompile(`(?s)Action\s*:\s*(.*?)\s*Action\s*Input\s*:\s*(.*)`)
	observationRe = regexp.MustCompile(`(?s)\n\s*Observation\s*:.*`)
	stoppedRe     = regexp.MustCompile(`^agent stopped due to (iteration|time) limit(s)?( or (iteration|time) limit(s)?)?\.?$`)
)

type State int

const (
	StateThinking State = iota
	StateToolCall
	StateDone
	StateIterationExhausted
	StateTimeExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "thinking"
	case StateToolCall:
		return "tool_call"
	case StateDone:
		return "done"
	case StateIterationExhausted:
		return "iteration_exhausted"
	case StateTimeExhausted:
		return "time_exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal state of one run.
type Outcome struct {
	State      State
	Answer     string
	Iterations int
	Err        error
}

// Succeeded reports whether the run produced a usable answer. Empty answers
// and "agent stopped" boilerplate count as failures.
func (o Outcome) Succeeded() bool {
	return o.State == StateDone && strings.TrimSpace(o.Answer) != "" && !IsStoppedBoilerplate(o.Answer)
}

// IsStoppedBoilerplate reports whether answer is one of the loop's stop
// messages, ignoring case and whitespace.
func IsStoppedBoilerplate(answer string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(answer), " "))
	return stoppedRe.MatchString(normalized)
}

type Agent struct {
	llm           llmservice.LanguageModel
	tools         map[string]tools.Tool
	toolOrder     []string
	maxIterations int
	maxTime       time.Duration
}

func New(llm llmservice.LanguageModel, cfg config.AgentConfig, agentTools ...tools.Tool) *Agent {
	a := &Agent{
		llm:           llm,
		tools:         make(map[string]tools.Tool, len(agentTools)),
		maxIterations: cfg.MaxIterations,
		maxTime:       cfg.MaxExecutionTime,
	}
	for _, t := range agentTools {
		a.tools[t.Name()] = t
		a.toolOrder = append(a.toolOrder, t.Name())
	}
	return a
}

type step struct {
	final       bool
	answer      string
	action      string
	actionInput string
}

// Run drives the loop until the model gives a final answer or a cap is hit.
// One iteration is one model call.
func (a *Agent) Run(ctx context.Context, question string, history []models.Turn) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.maxTime)
	defer cancel()

	var (
		state      = StateThinking
		scratchpad strings.Builder
		current    step
		iterations int
	)
	for {
		switch state {
		case StateThinking:
			if iterations >= a.maxIterations {
				state = StateIterationExhausted
				continue
			}
			if ctx.Err() != nil {
				state = StateTimeExhausted
				continue
			}
			iterations++

			out, err := a.llm.Invoke(ctx, a.prompt(question, history, scratchpad.String()))
			if err != nil {
				if ctx.Err() != nil {
					state = StateTimeExhausted
					continue
				}
				log.Warn().Err(err).Int("iteration", iterations).Msg("Agent model call failed")
				return Outcome{State: StateFailed, Iterations: iterations, Err: fmt.Errorf("%w: %w", ErrReasoningFailed, err)}
			}

			parsed, ok := parseStep(out)
			switch {
			case !ok:
				log.Debug().Int("iteration", iterations).Str("output", out).Msg("Agent output not understood")
				writeStep(&scratchpad, out, formatReminder)
			case parsed.final:
				return Outcome{State: StateDone, Answer: parsed.answer, Iterations: iterations}
			default:
				current = parsed
				scratchpad.WriteString(" " + strings.TrimSpace(observationRe.ReplaceAllString(out, "")))
				state = StateToolCall
			}

		case StateToolCall:
			observation := a.callTool(ctx, current)
			scratchpad.WriteString("\nObservation: " + observation + "\nThought:")
			state = StateThinking

		case StateIterationExhausted:
			log.Warn().Int("iterations", iterations).Msg(StoppedIterationMessage)
			return Outcome{State: state, Answer: StoppedIterationMessage, Iterations: iterations}

		case StateTimeExhausted:
			log.Warn().Int("iterations", iterations).Dur("limit", a.maxTime).Msg(StoppedTimeMessage)
			return Outcome{State: state, Answer: StoppedTimeMessage, Iterations: iterations, Err: ctx.Err()}

		default:
			return Outcome{State: StateFailed, Iterations: iterations, Err: ErrReasoningFailed}
		}
	}
}

func (a *Agent) callTool(ctx context.Context, s step) string {
	tool, ok := a.tools[s.action]
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", s.action, strings.Join(a.toolOrder, ", "))
	}
	log.Debug().Str("tool", s.action).Str("input", s.actionInput).Msg("Calling agent tool")
	out, err := tool.Call(ctx, s.actionInput)
	if err != nil {
		log.Warn().Err(err).Str("tool", s.action).Msg("Agent tool failed")
		return "error: " + err.Error()
	}
	return out
}

func (a *Agent) prompt(question string, history []models.Turn, scratchpad string) string {
	descriptions := make([]string, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", name, a.tools[name].Description()))
	}
	conversation := session.FormatHistory(history)
	if conversation == "" {
		conversation = "(none)"
	}
	return fmt.Sprintf(models.AgentPromptTemplate,
		strings.Join(descriptions, "\n"),
		strings.Join(a.toolOrder, ", "),
		conversation,
		question,
		scratchpad,
	)
}

func writeStep(scratchpad *strings.Builder, out, observation string) {
	scratchpad.WriteString(" " + strings.TrimSpace(out))
	scratchpad.WriteString("\nObservation: " + observation + "\nThought:")
}

// parseStep reads one model reply. An action that appears before a final
// answer wins, so text the model invents after the action is ignored.
func parseStep(out string) (step, bool) {
	finalIdx := strings.Index(out, finalAnswerMarker)
	match := actionRe.FindStringSubmatchIndex(out)

	if match != nil && (finalIdx < 0 || match[0] < finalIdx) {
		action := strings.TrimSpace(out[match[2]:match[3]])
		input := observationRe.ReplaceAllString(out[match[4]:match[5]], "")
		if idx := strings.Index(input, finalAnswerMarker); idx >= 0 {
			input = input[:idx]
		}
		input = strings.Trim(strings.TrimSpace(input), "\"'`")
		if action == "" {
			return step{}, false
		}
		return step{action: action, actionInput: input}, true
	}
	if finalIdx >= 0 {
		return step{final: true, answer: strings.TrimSpace(out[finalIdx+len(finalAnswerMarker):])}, true
	}
	return step{}, false
}
