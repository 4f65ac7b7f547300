// Package config loads process configuration from the environment.
//
// Variable names follow the original deployment surface (TELEGRAM_TOKEN,
// ANTHROPIC_API_KEY, MCP_SERVER_URL, CLAUDE_MODEL); tuning knobs use the
// DOCSBOT_ prefix and carry documented defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for tuning knobs. Retry/backoff parameters and the round limit
// are deliberately configuration, not constants.
const (
	DefaultHistoryWindow = 20
	DefaultMaxToolRounds = 8
	DefaultToolTimeout   = 30 * time.Second
	DefaultToolAttempts  = 3
)

// DefaultSystemPrompt forces documentation-grounded answers. Overridable
// via DOCSBOT_SYSTEM_PROMPT.
const DefaultSystemPrompt = "You are a documentation assistant. You must ONLY use the available " +
	"documentation search tools to answer questions. Do not answer from your training data. " +
	"Always search the documentation first, then respond based solely on the search results. " +
	"If the search returns no results or fails, tell the user you couldn't find the information " +
	"in the documentation and suggest they rephrase their question."

type Config struct {
	TelegramToken   string
	AnthropicAPIKey string
	MCPServerURL    string
	Model           string // empty means provider default

	SystemPrompt  string
	HistoryWindow int           // max prior turns replayed to the model
	MaxToolRounds int           // hard bound on tool-call rounds per turn
	ToolTimeout   time.Duration // per-attempt bound on a remote tool call
	ToolAttempts  int           // total attempts per tool call (1 = no retry)
	FallbackTool  bool          // register the built-in search tool when discovery fails
	LogLevel      string
}

// Load reads configuration from the environment. TELEGRAM_TOKEN and
// ANTHROPIC_API_KEY are required; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		MCPServerURL:    os.Getenv("MCP_SERVER_URL"),
		Model:           os.Getenv("CLAUDE_MODEL"),
		SystemPrompt:    DefaultSystemPrompt,
		HistoryWindow:   DefaultHistoryWindow,
		MaxToolRounds:   DefaultMaxToolRounds,
		ToolTimeout:     DefaultToolTimeout,
		ToolAttempts:    DefaultToolAttempts,
		LogLevel:        "info",
	}

	if cfg.TelegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_TOKEN not set; export it then try again")
	}
	if cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY not set; export it then try again")
	}

	if v := os.Getenv("DOCSBOT_SYSTEM_PROMPT"); v != "" {
		cfg.SystemPrompt = v
	}
	if v := os.Getenv("DOCSBOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.FallbackTool = os.Getenv("DOCSBOT_FALLBACK_TOOL") == "1"

	var err error
	if cfg.HistoryWindow, err = intVar("DOCSBOT_HISTORY_WINDOW", cfg.HistoryWindow); err != nil {
		return Config{}, err
	}
	if cfg.MaxToolRounds, err = intVar("DOCSBOT_MAX_TOOL_ROUNDS", cfg.MaxToolRounds); err != nil {
		return Config{}, err
	}
	if cfg.ToolAttempts, err = intVar("DOCSBOT_TOOL_ATTEMPTS", cfg.ToolAttempts); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("DOCSBOT_TOOL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DOCSBOT_TOOL_TIMEOUT %q: %w", v, err)
		}
		cfg.ToolTimeout = d
	}

	if cfg.HistoryWindow < 0 || cfg.MaxToolRounds < 1 || cfg.ToolAttempts < 1 || cfg.ToolTimeout <= 0 {
		return Config{}, fmt.Errorf("config: window/rounds/attempts/timeout out of range")
	}
	return cfg, nil
}

func intVar(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return n, nil
}
