package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// SearchInput is the input schema for the evidence_search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the search query to run against the engagement's evidence"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Hybrid bool   `json:"hybrid,omitempty" jsonschema:"blend lexical matching with vector similarity"`
}

// SearchOutput is the output schema for the evidence_search tool.
type SearchOutput struct {
	Results      []SearchResultOutput `json:"results"`
	Count        int                  `json:"count"`
	Degraded     bool                 `json:"degraded,omitempty"`
	SearchFailed bool                 `json:"search_failed,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// SearchResultOutput represents a single retrieval hit.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Score        float64 `json:"score"`
	Excerpt      string  `json:"excerpt"`
}

// AnswerInput is the input schema for the evidence_answer tool.
type AnswerInput struct {
	Query  string `json:"query" jsonschema:"the question to answer from the engagement's evidence"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to retrieve (default 10)"`
	Hybrid bool   `json:"hybrid,omitempty" jsonschema:"blend lexical matching with vector similarity"`
}

// AnswerOutput is the output schema for the evidence_answer tool.
type AnswerOutput struct {
	Answer    string               `json:"answer,omitempty"`
	Answered  bool                 `json:"answered"`
	Degraded  bool                 `json:"degraded,omitempty"`
	Citations []CitationOutput     `json:"citations"`
	Results   []SearchResultOutput `json:"results"`
}

// CitationOutput represents a passage backing a grounded answer.
type CitationOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Relevance    float64 `json:"relevance"`
	Excerpt      string  `json:"excerpt"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evidence_search",
		Description: "Search the engagement's indexed evidence documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evidence_answer",
		Description: "Answer a question from the engagement's evidence, with citations",
	}, s.handleAnswer)
}

// handleSearch handles the evidence_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{TopK: input.TopK, Hybrid: input.Hybrid}

	resp, err := s.ports.Search.Search(ctx, s.ports.Tenant, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:      toResultOutputs(resp.Results),
		Count:        len(resp.Results),
		Degraded:     resp.Degraded,
		SearchFailed: resp.Failed,
		Error:        resp.FailureReason,
	}

	return nil, output, nil
}

// handleAnswer handles the evidence_answer tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	opts := domain.SearchOptions{TopK: input.TopK, Hybrid: input.Hybrid}

	answer, err := s.ports.Answer.Answer(ctx, s.ports.Tenant, input.Query, opts)
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	output := AnswerOutput{
		Answer:    answer.Answer,
		Answered:  answer.Answered,
		Degraded:  answer.Degraded,
		Citations: make([]CitationOutput, len(answer.Citations)),
		Results:   toResultOutputs(answer.Results),
	}

	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			PageNumber:   c.PageNumber,
			Relevance:    c.Relevance,
			Excerpt:      c.Excerpt,
		}
	}

	return nil, output, nil
}

func toResultOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i, r := range results {
		out[i] = SearchResultOutput{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkIndex:   r.ChunkIndex,
			PageNumber:   r.PageNumber,
			Score:        r.Score,
			Excerpt:      r.Excerpt,
		}
	}
	return out
}
