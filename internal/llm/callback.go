package llm

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/metrics"
)

// LogCallback reports eino node activity to zerolog and counts model tokens.
type LogCallback struct {
	logger zerolog.Logger
}

func NewLogCallback(logger zerolog.Logger) *LogCallback {
	return &LogCallback{logger: logger.With().Str("component", "eino").Logger()}
}

func (cb *LogCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
	cb.event(cb.logger.Debug(), info).Msg("node started")
	return ctx
}

func (cb *LogCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	ev := cb.event(cb.logger.Debug(), info)
	if info != nil && info.Component == components.ComponentOfChatModel {
		if out := ecmodel.ConvCallbackOutput(output); out != nil {
			cb.recordUsage(ev, out)
		}
	}
	ev.Msg("node finished")
	return ctx
}

func (cb *LogCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	component := "unknown"
	if info != nil {
		component = string(info.Component)
	}
	metrics.LLMErrors.WithLabelValues(component).Inc()
	cb.event(cb.logger.Warn(), info).Err(err).Msg("node failed")
	return ctx
}

func (cb *LogCallback) OnStartWithStreamInput(ctx context.Context, _ *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput drains the stream in the background and sums the
// token usage of its frames.
func (cb *LogCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	go func() {
		defer output.Close()
		for {
			frame, err := output.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				cb.event(cb.logger.Warn(), info).Err(err).Msg("stream receive failed")
				return
			}
			if out := ecmodel.ConvCallbackOutput(frame); out != nil && out.TokenUsage != nil {
				cb.recordUsage(cb.event(cb.logger.Debug(), info), out)
			}
		}
	}()
	return ctx
}

func (cb *LogCallback) recordUsage(ev *zerolog.Event, out *ecmodel.CallbackOutput) {
	if out.TokenUsage == nil {
		return
	}
	metrics.LLMTokens.WithLabelValues("prompt").Add(float64(out.TokenUsage.PromptTokens))
	metrics.LLMTokens.WithLabelValues("completion").Add(float64(out.TokenUsage.CompletionTokens))
	ev.Int("prompt_tokens", out.TokenUsage.PromptTokens).
		Int("completion_tokens", out.TokenUsage.CompletionTokens)
}

func (cb *LogCallback) event(ev *zerolog.Event, info *callbacks.RunInfo) *zerolog.Event {
	if info == nil {
		return ev
	}
	return ev.Str("node", info.Name).Str("type", info.Type).Str("kind", string(info.Component))
}

var _ callbacks.Handler = (*LogCallback)(nil)
