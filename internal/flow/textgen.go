// Package flow implements the conversation state machine: slot
// qualification, inventory matching and ranking, offer presentation, the
// cash and financing post-selection flows, FAQ interrupts, idle nudges and
// the top-level per-turn router.
package flow

import (
	"context"
	"log/slog"
	"strings"
)

// TextGenerator is the opaque text generation capability used for optional
// copy decoration. A nil generator disables decoration entirely.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// generateOrEmpty runs the generator and swallows every failure, returning
// an empty string so callers fall back to static copy. Generated copy must
// never block or break core progress.
func generateOrEmpty(ctx context.Context, gen TextGenerator, systemPrompt, userPrompt string, temperature float64) string {
	if gen == nil {
		return ""
	}
	out, err := gen.Generate(ctx, systemPrompt, userPrompt, temperature)
	if err != nil {
		slog.Warn("Text generation failed, using fallback copy", "error", err)
		return ""
	}
	return strings.TrimSpace(out)
}
