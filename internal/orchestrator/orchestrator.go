package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petasbytes/docsbot/internal/invoker"
	"github.com/petasbytes/docsbot/internal/provider"
	"github.com/petasbytes/docsbot/internal/session"
	"github.com/petasbytes/docsbot/internal/telemetry"
	"github.com/petasbytes/docsbot/internal/windowing"
	"github.com/petasbytes/docsbot/tools"
)

// FallbackAnswer is returned when the model API itself is unreachable and
// the model cannot be asked to phrase the failure.
const FallbackAnswer = "Sorry, I'm experiencing technical difficulties. Please try again later."

// roundLimitAnswer is the synthetic final answer forced when the model
// keeps requesting tools past the configured round limit.
const roundLimitAnswer = "I reached the limit on documentation lookups for a single question " +
	"before converging on an answer. Please try again with a narrower question."

const emptyAnswer = "I couldn't generate a response. Please try rephrasing your question."

const modelRetryDelay = time.Second

// ToolInvoker executes one tool call and reports the outcome as data.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) invoker.Outcome
}

type Config struct {
	Model         anthropic.Model
	SystemPrompt  string
	HistoryWindow int           // prior turns replayed to the model
	MaxToolRounds int           // hard bound on tool-call rounds per turn
	RetryDelay    time.Duration // wait before the single model-API retry; zero means 1s
}

// Orchestrator drives turns. One instance serves all sessions; per-user
// serialization is the dispatcher's job, cross-user calls may run in
// parallel.
type Orchestrator struct {
	client   *anthropic.Client
	registry *tools.Registry
	invoker  ToolInvoker
	sessions *session.Store
	cfg      Config
	logger   zerolog.Logger
}

func New(client *anthropic.Client, registry *tools.Registry, inv ToolInvoker, sessions *session.Store, cfg Config, logger zerolog.Logger) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel
	}
	if cfg.MaxToolRounds < 1 {
		cfg.MaxToolRounds = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = modelRetryDelay
	}
	return &Orchestrator{
		client:   client,
		registry: registry,
		invoker:  inv,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

type toolRequest struct {
	id    string
	name  string
	input json.RawMessage
}

// transition advances the turn state machine, logging each edge at debug
// level so a turn's path through the states can be reconstructed.
func (o *Orchestrator) transition(turnID string, from, to State) State {
	o.logger.Debug().
		Str("turn_id", turnID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("turn state")
	return to
}

// HandleMessage drives one user utterance to a final answer. The returned
// text is always user-deliverable. A non-nil error reports an aborted turn:
// the fallback text is returned and session history is left untouched, so
// the next message starts fresh with the prior history intact.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	turnID := uuid.NewString()
	ctx = telemetry.WithTurnID(ctx, turnID)

	turn := session.Turn{ID: turnID, UserText: text}
	conv := windowing.BuildWindow(o.sessions.History(userID), o.cfg.HistoryWindow)
	conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	state := StateAwaitingModel
	toolRounds := 0
	var answerParts []string

	for {
		msg, err := o.createMessage(ctx, conv)
		if err != nil {
			state = o.transition(turnID, state, StateAborted)
			telemetry.Emit(o.logger, "turn_aborted", map[string]any{
				"turn_id": turnID, "user_id": userID, "rounds": toolRounds, "error": err.Error(),
			})
			return FallbackAnswer, err
		}
		conv = append(conv, msg.ToParam())

		var calls []toolRequest
		for _, block := range msg.Content {
			switch b := block.AsAny().(type) {
			case anthropic.TextBlock:
				if b.Text != "" {
					answerParts = append(answerParts, b.Text)
				}
			case anthropic.ToolUseBlock:
				calls = append(calls, toolRequest{
					id:    b.ID,
					name:  b.Name,
					input: json.RawMessage(b.JSON.Input.Raw()),
				})
			}
		}

		if len(calls) == 0 {
			state = o.transition(turnID, state, StateFinalizing)
			break
		}
		state = o.transition(turnID, state, StateToolRequested)

		if toolRounds >= o.cfg.MaxToolRounds {
			// Force a synthetic final answer instead of looping forever on a
			// model that never stops requesting tools.
			answerParts = []string{roundLimitAnswer}
			state = o.transition(turnID, state, StateFinalizing)
			telemetry.Emit(o.logger, "round_limit_hit", map[string]any{
				"turn_id": turnID, "user_id": userID, "rounds": toolRounds,
			})
			break
		}
		toolRounds++

		state = o.transition(turnID, state, StateToolExecuting)
		results := o.execRound(ctx, &turn, calls)
		state = o.transition(turnID, state, StateToolResultReady)

		conv = append(conv, anthropic.NewUserMessage(results...))
		state = o.transition(turnID, state, StateAwaitingModel)
	}

	answer := strings.Join(answerParts, "\n")
	if strings.TrimSpace(answer) == "" {
		answer = emptyAnswer
	}
	turn.AssistantText = answer
	o.sessions.AppendTurn(userID, turn)
	state = o.transition(turnID, state, StateDone)

	telemetry.Emit(o.logger, "turn_done", map[string]any{
		"turn_id": turnID, "user_id": userID, "rounds": toolRounds,
		"tool_calls": len(turn.ToolCalls), "state": state.String(),
	})
	return answer, nil
}

// execRound runs the round's tool calls concurrently; the calls are
// independent requests against an idempotent search capability. Results are
// reassembled in request order before being fed back to the model.
func (o *Orchestrator) execRound(ctx context.Context, turn *session.Turn, calls []toolRequest) []anthropic.ContentBlockParamUnion {
	base := len(turn.ToolCalls)
	turn.ToolCalls = append(turn.ToolCalls, make([]session.ToolCall, len(calls))...)
	results := make([]anthropic.ContentBlockParamUnion, len(calls))

	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c toolRequest) {
			defer wg.Done()
			out := o.invoker.Invoke(ctx, c.name, c.input)
			content := windowing.ClampResult(out.ModelText())
			turn.ToolCalls[base+i] = session.ToolCall{
				Seq:       base + i,
				ID:        c.id,
				Name:      c.name,
				Arguments: c.input,
				Result:    content,
				IsError:   out.IsError(),
			}
			results[i] = anthropic.NewToolResultBlock(c.id, content, out.IsError())
		}(i, c)
	}
	wg.Wait()
	return results
}

// createMessage sends the prepared conversation to the model, retrying once
// after a short delay on transient failures (rate limit, 5xx, timeout).
func (o *Orchestrator) createMessage(ctx context.Context, conv []anthropic.MessageParam) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     o.cfg.Model,
		MaxTokens: provider.DefaultMaxTokens,
		Messages:  conv,
	}
	if o.cfg.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: o.cfg.SystemPrompt}}
	}
	if o.registry.Len() > 0 {
		params.Tools = o.registry.AnthropicTools()
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err == nil {
		return msg, nil
	}
	if !transientModelErr(err) || ctx.Err() != nil {
		return nil, err
	}
	o.logger.Warn().Err(err).Msg("transient model API failure, retrying once")
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(o.cfg.RetryDelay):
	}
	return o.client.Messages.New(ctx, params)
}

func transientModelErr(err error) bool {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == 429 || apierr.StatusCode == 408 || apierr.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
