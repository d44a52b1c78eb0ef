package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Evidentia resources.
	uriScheme = "evidentia://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing the engagement's documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Evidence documents indexed for the engagement, with ingestion state",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for document metadata.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Metadata for a specific evidence document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource returns the engagement's document list.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	docs, err := s.ports.Documents.List(ctx, s.ports.Tenant)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	// Build simplified document list.
	type docInfo struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		MIMEType string `json:"mime_type"`
		State    string `json:"state"`
		Chunks   int    `json:"chunks,omitempty"`
		Error    string `json:"error,omitempty"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:       docs[i].Document.ID,
			Filename: docs[i].Document.Filename,
			MIMEType: docs[i].Document.MIMEType,
			State:    string(docs[i].State),
			Chunks:   docs[i].ChunksCreated,
			Error:    docs[i].ErrorMessage,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleDocumentResource returns metadata for a specific document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract documentId from URI: evidentia://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documents.Get(ctx, s.ports.Tenant, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}

	info := struct {
		ID         string `json:"id"`
		Filename   string `json:"filename"`
		MIMEType   string `json:"mime_type"`
		ByteSize   int64  `json:"byte_size"`
		Checksum   string `json:"checksum"`
		UploadedBy string `json:"uploaded_by"`
		UploadedAt string `json:"uploaded_at"`
	}{
		ID:         doc.ID,
		Filename:   doc.Filename,
		MIMEType:   doc.MIMEType,
		ByteSize:   doc.ByteSize,
		Checksum:   doc.Checksum,
		UploadedBy: doc.UploadedBy,
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like evidentia://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
