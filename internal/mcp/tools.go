package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask a question against an application's knowledge sources. Returns a fully composed answer with confidence tier and citations."),
	mcp.WithNumber("app_id",
		mcp.Required(),
		mcp.Description("ID of the application to query"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithBoolean("force_web_search",
		mcp.Description("Force a web search regardless of retrieval confidence"),
	),
)

// testRetrievalTool defines the test_retrieval MCP tool.
var testRetrievalTool = mcp.NewTool("test_retrieval",
	mcp.WithDescription("Run the retrieval and fusion pipeline for a question without generating an answer. Shows the routing decision, confidence score, and matched context."),
	mcp.WithNumber("app_id",
		mcp.Required(),
		mcp.Description("ID of the application to query"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
)

// searchFixedQATool defines the search_fixed_qa MCP tool.
var searchFixedQATool = mcp.NewTool("search_fixed_qa",
	mcp.WithDescription("Search an application's curated question/answer pairs by semantic similarity."),
	mcp.WithNumber("app_id",
		mcp.Required(),
		mcp.Description("ID of the application to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Question text to match against stored pairs"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of pairs to return (default 5)"),
	),
)

// listAppsTool defines the list_applications MCP tool.
var listAppsTool = mcp.NewTool("list_applications",
	mcp.WithDescription("List registered applications with their endpoints and request counts."),
)
