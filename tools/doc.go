// Package tools defines tool contracts and the registry adapter.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: capability listing fetched from the remote MCP server,
//     immutable after fetch and shared read-only across sessions, with
//     explicit refresh semantics and per-tool argument validation.
//   - search_documentation: built-in fallback definition for deployments
//     whose docs server does not expose tools/list.
package tools
