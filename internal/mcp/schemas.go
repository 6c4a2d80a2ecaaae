package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// queryProperties are shared by search_capstones and summarize_capstones
func queryProperties() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"type":        "string",
			"description": "Free-text query (natural language or keywords)",
		},
		"k": map[string]interface{}{
			"type":        "integer",
			"description": "Number of chunks to retrieve before grouping (1-100)",
			"default":     DefaultK,
			"minimum":     1,
			"maximum":     MaxK,
		},
	}
}

// searchCapstonesTool returns the tool definition for search_capstones
func searchCapstonesTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolSearch,
		Description: "Search capstone documents with hybrid keyword and semantic ranking. Returns one card per document with snippets, authors and category.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: queryProperties(),
			Required:   []string{"query"},
		},
	}
}

// summarizeCapstonesTool returns the tool definition for summarize_capstones
func summarizeCapstonesTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolSummarize,
		Description: "Write a cited Markdown overview of the capstone passages most relevant to a query (at most 10 passages are used)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: queryProperties(),
			Required:   []string{"query"},
		},
	}
}

// getCapstoneTool returns the tool definition for get_capstone
func getCapstoneTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolGet,
		Description: "Fetch one capstone with its authors, keywords and ordered sections",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Capstone project id",
					"minimum":     1,
				},
			},
			Required: []string{"id"},
		},
	}
}

// listCapstonesTool returns the tool definition for list_capstones
func listCapstonesTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolList,
		Description: "List capstones, newest year first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of capstones to return (1-100)",
					"default":     defaultListLimit,
					"minimum":     1,
					"maximum":     maxListLimit,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of capstones to skip",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// ingestCapstonesTool returns the tool definition for ingest_capstones
func ingestCapstonesTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolIngest,
		Description: "Ingest extracted capstone JSON documents from a file or directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .json document or a directory of them",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        toolStatus,
		Description: "Report corpus statistics and index health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
