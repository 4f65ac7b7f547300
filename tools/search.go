package tools

type SearchDocumentationInput struct {
	Query string `json:"query" jsonschema_description:"Search query for the documentation knowledge base."`
}

// SearchDocumentationDefinition mirrors the tool the docs server executes.
// It is registered only when remote discovery is unavailable and the
// deployment opts in (DOCSBOT_FALLBACK_TOOL=1); the server still performs
// the actual search.
var SearchDocumentationDefinition = ToolDefinition{
	Name: "search_documentation",
	Description: "Search across the documentation knowledge base to find relevant information, " +
		"code examples, API references, and guides. Use this tool when you need to answer " +
		"questions about the documentation, understand how features work, or locate " +
		"implementation details. The search returns contextual content with titles and direct " +
		"links to the documentation pages.",
	InputSchema: SearchDocumentationInputSchema,
}

var SearchDocumentationInputSchema = GenerateSchema[SearchDocumentationInput]()
