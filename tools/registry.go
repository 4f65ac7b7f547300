package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"
)

// ErrRegistryUnavailable reports that the remote capability listing could
// not be fetched or was malformed.
var ErrRegistryUnavailable = errors.New("tools: registry unavailable")

// ToolLister abstracts the remote capability listing (MCP tools/list).
// *client.Client from mark3labs/mcp-go satisfies it.
type ToolLister interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
}

// Registry is the set of tools advertised by the remote server, converted
// to the model API's schema shape. The set is immutable between fetches;
// the lock exists only to make explicit Refresh swaps safe against
// concurrent readers.
type Registry struct {
	mu         sync.RWMutex
	defs       []ToolDefinition
	validators map[string]*gojsonschema.Schema
}

// Fetch discovers the remote tool set once. An empty listing is valid; the
// model then runs with no tools rather than failing.
func Fetch(ctx context.Context, lister ToolLister) (*Registry, error) {
	r := &Registry{}
	if err := r.Refresh(ctx, lister); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStatic builds a registry from local definitions, for deployments whose
// docs server does not expose tools/list.
func NewStatic(defs ...ToolDefinition) (*Registry, error) {
	validators := make(map[string]*gojsonschema.Schema, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: tool with empty name", ErrRegistryUnavailable)
		}
		v, err := compileSchema(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("%w: schema for %s: %v", ErrRegistryUnavailable, d.Name, err)
		}
		validators[d.Name] = v
	}
	return &Registry{defs: append([]ToolDefinition(nil), defs...), validators: validators}, nil
}

// Refresh re-fetches the remote listing and atomically replaces the tool
// set. On error the previous set is kept.
func (r *Registry) Refresh(ctx context.Context, lister ToolLister) error {
	res, err := lister.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defs, validators, err := convert(res.Tools)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	r.mu.Lock()
	r.defs = defs
	r.validators = validators
	r.mu.Unlock()
	return nil
}

func convert(remote []mcp.Tool) ([]ToolDefinition, map[string]*gojsonschema.Schema, error) {
	defs := make([]ToolDefinition, 0, len(remote))
	validators := make(map[string]*gojsonschema.Schema, len(remote))
	for _, t := range remote {
		if t.Name == "" {
			return nil, nil, fmt.Errorf("listing contains a tool with no name")
		}
		if _, dup := validators[t.Name]; dup {
			return nil, nil, fmt.Errorf("listing contains duplicate tool %q", t.Name)
		}
		schema, err := inputSchema(t)
		if err != nil {
			return nil, nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		v, err := compileSchema(schema)
		if err != nil {
			return nil, nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		defs = append(defs, ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
		validators[t.Name] = v
	}
	return defs, validators, nil
}

// inputSchema converts the MCP input schema into the model API shape.
// Servers may advertise either the structured form or a raw document.
func inputSchema(t mcp.Tool) (anthropic.ToolInputSchemaParam, error) {
	if len(t.RawInputSchema) > 0 {
		var doc struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if err := json.Unmarshal(t.RawInputSchema, &doc); err != nil {
			return anthropic.ToolInputSchemaParam{}, fmt.Errorf("malformed input schema: %w", err)
		}
		return anthropic.ToolInputSchemaParam{Properties: doc.Properties, Required: doc.Required}, nil
	}
	return anthropic.ToolInputSchemaParam{
		Properties: t.InputSchema.Properties,
		Required:   t.InputSchema.Required,
	}, nil
}

func compileSchema(s anthropic.ToolInputSchemaParam) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.defs {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}

// Validate checks args against the named tool's input schema. Empty args
// are treated as an empty object.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	r.mu.RLock()
	v, ok := r.validators[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	res, err := v.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if !res.Valid() {
		msgs := ""
		for _, e := range res.Errors() {
			if msgs != "" {
				msgs += "; "
			}
			msgs += e.String()
		}
		return fmt.Errorf("arguments do not match schema: %s", msgs)
	}
	return nil
}

// AnthropicTools renders the tool set in the request shape of the Messages
// API.
func (r *Registry) AnthropicTools() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]anthropic.ToolUnionParam, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: d.InputSchema,
		}})
	}
	return out
}

// Names lists advertised tool names in listing order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Len reports the number of advertised tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
