// Package telemetry provides structured logging and turn-scoped event
// emission.
//
// Includes:
//   - New(): root zerolog logger; components derive tagged children via
//     logger.With().Str("component", ...).
//   - Emit(): one structured event line with standard turn_id/event fields.
//   - WithTurnID / TurnIDFromContext: turn ID propagation through contexts.
package telemetry

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the root logger writing JSON lines to w. Unknown levels fall
// back to info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Emit writes a single structured event line. The turn ID is taken from
// fields when present so events from one turn can be correlated.
func Emit(logger zerolog.Logger, event string, fields map[string]any) {
	logger.Info().Fields(fields).Str("event", event).Msg("")
}
