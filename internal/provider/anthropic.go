// Package provider constructs clients for the two network dependencies:
// the Anthropic Messages API and the remote MCP documentation server.
package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient returns a client with an explicit API key; with an
// empty key the SDK falls back to the env.
func NewAnthropicClient(apiKey string) *anthropic.Client {
	var c anthropic.Client
	if apiKey != "" {
		c = anthropic.NewClient(option.WithAPIKey(apiKey))
	} else {
		c = anthropic.NewClient()
	}
	return &c
}

const DefaultModel = anthropic.ModelClaudeSonnet4_20250514
const DefaultMaxTokens = int64(1024)
