// Package mcp implements the Model Context Protocol (MCP) server for capstone-search.
//
// The server exposes six tools to MCP clients:
//   - search_capstones: hybrid search, grouped into one card per document
//   - summarize_capstones: cited Markdown overview of the top passages
//   - get_capstone: one document with authors, keywords and sections
//   - list_capstones: paged document listing
//   - ingest_capstones: load extracted JSON documents
//   - get_status: corpus statistics and index health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr; stdout carries only protocol messages. Every tool call
// is logged with a generated request_id.
//
// # Tool: search_capstones
//
//	Request:
//	{
//	  "name": "search_capstones",
//	  "arguments": {"query": "lidar navigation", "k": 12}
//	}
//
//	Response:
//	{
//	  "query": "lidar navigation",
//	  "results": [
//	    {
//	      "project_id": 4,
//	      "title": "Autonomous Campus Shuttle",
//	      "year": 2023,
//	      "similarity": 0.83,
//	      "snippets": ["We fused lidar and camera data ..."],
//	      "authors": ["A. Rivera", "J. Chen"],
//	      "category": "Capstone"
//	    }
//	  ]
//	}
//
// # Tool: summarize_capstones
//
//	Response:
//	{
//	  "query": "lidar navigation",
//	  "summary": "Several projects use lidar [1] ...",
//	  "html": "<p>Several projects use lidar [1] ...</p>",
//	  "used_sources": [{"index": 1, "project_id": 4, "title": "...", "year": 2023}]
//	}
//
// # Error Codes
//
//	-32602  invalid params (missing query, k out of range, bad path)
//	-32603  internal error (storage, embedding or generation failure)
//	-32001  capstone not found
//	-32002  ingestion already in progress
package mcp
