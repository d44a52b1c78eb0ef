package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driving.AnswerService = (*Answerer)(nil)

// Default grounded-answer settings.
const (
	// DefaultMaxPassages caps how many retrieval hits are offered to
	// the generation model.
	DefaultMaxPassages = 6

	// DefaultMaxContextRunes bounds the assembled context length.
	DefaultMaxContextRunes = 6000
)

// answerSystemPrompt keeps the model inside the offered evidence.
// Citations are still built mechanically from the offered passages,
// never parsed back out of the generated text.
const answerSystemPrompt = `You answer questions using only the numbered context passages provided. ` +
	`Cite the passages that support each statement with their [n] tags. ` +
	`If the passages do not contain the answer, say that the available evidence does not answer the question.`

// AnswererConfig holds grounded-answer tuning knobs.
type AnswererConfig struct {
	// MaxPassages caps the passages offered to the model. Zero uses
	// the default.
	MaxPassages int

	// MaxContextRunes bounds the assembled context. Zero uses the
	// default.
	MaxContextRunes int
}

// Answerer produces grounded answers on top of retrieval. Generation
// failures never fail the request; the response degrades to ranked
// results with citations and no answer.
type Answerer struct {
	search    driving.SearchService
	generator driven.GenerationService

	maxPassages     int
	maxContextRunes int
}

// NewAnswerer creates the grounded-answer service. The generator is
// optional; nil returns retrieval results without an answer.
func NewAnswerer(search driving.SearchService, generator driven.GenerationService, cfg AnswererConfig) *Answerer {
	if cfg.MaxPassages <= 0 {
		cfg.MaxPassages = DefaultMaxPassages
	}
	if cfg.MaxContextRunes <= 0 {
		cfg.MaxContextRunes = DefaultMaxContextRunes
	}
	return &Answerer{
		search:          search,
		generator:       generator,
		maxPassages:     cfg.MaxPassages,
		maxContextRunes: cfg.MaxContextRunes,
	}
}

// Answer retrieves context for the query and asks the generation
// provider for an answer backed by citations.
func (a *Answerer) Answer(ctx context.Context, tc domain.TenantContext, query string, opts domain.SearchOptions) (*domain.GroundedAnswer, error) {
	resp, err := a.search.Search(ctx, tc, query, opts)
	if err != nil {
		return nil, err
	}
	if resp.Failed {
		logger.Warn("Grounded answer: retrieval failed: %s", resp.FailureReason)
		return &domain.GroundedAnswer{
			Results:  []domain.SearchResult{},
			Degraded: true,
		}, nil
	}

	answer := &domain.GroundedAnswer{
		Results:  resp.Results,
		Degraded: resp.Degraded,
	}
	if len(resp.Results) == 0 {
		return answer, nil
	}

	contextText, citations := a.buildContext(resp.Results)
	answer.Citations = citations

	if a.generator == nil {
		return answer, nil
	}

	prompt := fmt.Sprintf("Context:\n\n%s\n\nQuestion: %s", contextText, query)
	text, err := a.generator.Complete(ctx, answerSystemPrompt, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("Grounded answer: generation failed, returning results only: %v", err)
		answer.Degraded = true
		return answer, nil
	}

	answer.Answer = strings.TrimSpace(text)
	answer.Answered = true
	return answer, nil
}

// buildContext assembles numbered excerpt blocks under the rune
// budget. Citations mirror exactly the passages placed in the context.
func (a *Answerer) buildContext(results []domain.SearchResult) (string, []domain.Citation) {
	var blocks []string
	var citations []domain.Citation
	total := 0

	for _, r := range results {
		if len(citations) >= a.maxPassages {
			break
		}
		header := fmt.Sprintf("[%d] %s", len(citations)+1, r.DocumentName)
		if r.PageNumber != nil {
			header += fmt.Sprintf(" (page %d)", *r.PageNumber)
		}
		block := header + "\n" + r.Excerpt
		size := utf8.RuneCountInString(block)
		if len(citations) > 0 && total+size > a.maxContextRunes {
			break
		}
		blocks = append(blocks, block)
		total += size
		citations = append(citations, domain.Citation{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkIndex:   r.ChunkIndex,
			PageNumber:   r.PageNumber,
			Relevance:    clampRelevance(r.Score),
			Excerpt:      r.Excerpt,
		})
	}

	return strings.Join(blocks, "\n\n"), citations
}

// clampRelevance maps a blended score into [0,1] for presentation.
func clampRelevance(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
