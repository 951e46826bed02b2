package codegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"shotreel/internal/logging"
	"shotreel/internal/services"
	"shotreel/internal/services/llm"
)

// Generator produces component code for a shot.
type Generator interface {
	Generate(ctx context.Context, sc ShotContext) (string, error)
}

// Streamer is the language model surface the generator needs.
type Streamer interface {
	Stream(ctx context.Context, systemPrompt, userPrompt string, onDelta func(string) error) error
}

// LLMGenerator generates code by streaming a model completion through the
// code event protocol.
type LLMGenerator struct {
	client Streamer
	logger *slog.Logger
}

// NewLLMGenerator builds a generator backed by client.
func NewLLMGenerator(client Streamer, logger *slog.Logger) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		logger: logging.NewComponentLogger(logger, "codegen"),
	}
}

// Generate streams code for the shot and returns the cleaned result.
func (g *LLMGenerator) Generate(ctx context.Context, sc ShotContext) (string, error) {
	if g == nil || g.client == nil {
		return "", services.Wrap(services.ErrConfiguration, "codegen", "generate", "language model client not configured", nil)
	}
	if strings.TrimSpace(sc.Description) == "" {
		return "", services.Wrap(services.ErrValidation, "codegen", "generate", "shot description is empty", nil)
	}
	if sc.DurationFrames <= 0 {
		return "", services.Wrap(services.ErrValidation, "codegen", "generate",
			fmt.Sprintf("duration must be positive, got %d frames", sc.DurationFrames), nil)
	}

	ctx = services.WithShotID(ctx, sc.ShotID)
	ctx = services.WithStage(ctx, "codegen")
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("generating shot code",
		logging.Int(logging.FieldShotNumber, sc.Number),
		logging.Bool("revision", sc.IsRevision()),
	)

	prompt := BuildUserPrompt(sc)
	pr, pw := io.Pipe()
	go func() {
		events := NewEventWriter(pw)
		err := g.client.Stream(ctx, SystemPrompt, prompt, events.Code)
		if err != nil {
			_ = events.Fail(err.Error())
		} else {
			_ = events.Done()
		}
		_ = pw.Close()
	}()

	raw, err := Accumulate(ctx, pr, logger)
	_ = pr.Close()
	if err != nil {
		var streamErr *StreamError
		if errors.As(err, &streamErr) {
			logger.Warn("code generation failed",
				logging.String(logging.FieldEventType, "codegen_failed"),
				logging.String(logging.FieldErrorHint, "check the language model configuration and retry the shot"),
				logging.String("reason", streamErr.Message),
			)
			return "", streamErr
		}
		return "", services.Wrap(services.ErrExternalTool, "codegen", "stream", "read generated code", err)
	}

	code := CleanCode(raw)
	if code == "" {
		return "", services.Wrap(services.ErrExternalTool, "codegen", "generate", "model returned no code", nil)
	}
	logger.Info("shot code generated", logging.Int("code_bytes", len(code)))
	return code, nil
}

// CleanCode strips markdown fences the model may wrap around the component.
func CleanCode(raw string) string {
	return llm.StripCodeFence(raw)
}

var _ Generator = (*LLMGenerator)(nil)
var _ Streamer = (*llm.Client)(nil)
