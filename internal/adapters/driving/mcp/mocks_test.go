package mcp

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// testTenant builds the engagement tenant context used across the
// package tests.
func testTenant() domain.TenantContext {
	tenant, err := domain.ParseTenantID("acme-breach-2026")
	if err != nil {
		panic(err)
	}
	return domain.NewTenantContext(tenant, "assistant", domain.CapabilitySearch)
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp *domain.SearchResponse
	err  error
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ domain.TenantContext,
	_ string,
	_ domain.SearchOptions,
) (*domain.SearchResponse, error) {
	return m.resp, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.GroundedAnswer
	err    error
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	_ domain.TenantContext,
	_ string,
	_ domain.SearchOptions,
) (*domain.GroundedAnswer, error) {
	return m.answer, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	overviews []driving.DocumentOverview
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) List(_ context.Context, _ domain.TenantContext) ([]driving.DocumentOverview, error) {
	return m.overviews, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ domain.TenantContext, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ domain.TenantContext, _ string) error {
	return m.err
}
