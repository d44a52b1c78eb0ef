package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(100))
		if p.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Chunk_EmptyText(t *testing.T) {
	p := New()

	chunks, err := p.Chunk(context.Background(), "doc-1", &domain.ExtractedText{Text: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 empty chunk for empty text, got %d", len(chunks))
	}
	if chunks[0].Text != "" || chunks[0].CharStart != 0 || chunks[0].CharEnd != 0 {
		t.Errorf("unexpected empty chunk: %+v", chunks[0])
	}
	if chunks[0].PageNumber != nil {
		t.Error("expected no page number without pagination")
	}
}

func TestProcessor_Chunk_SingleCharacter(t *testing.T) {
	p := New()

	chunks, err := p.Chunk(context.Background(), "doc-1", &domain.ExtractedText{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "x" || chunks[0].CharEnd != 1 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}

func TestProcessor_Chunk_SmallText(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	text := &domain.ExtractedText{Text: "This is a small piece of content."}
	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small text, got %d", len(chunks))
	}

	if chunks[0].DocumentID != "doc-1" {
		t.Errorf("expected DocumentID 'doc-1', got '%s'", chunks[0].DocumentID)
	}
	if chunks[0].Text != text.Text {
		t.Error("expected chunk text to match input")
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestProcessor_Chunk_ExactMultiple(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(0))

	text := &domain.ExtractedText{Text: strings.Repeat("a", 100)}
	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Exactly 2 chunks, no trailing overlap-only window.
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestProcessor_Chunk_OverlapWindows(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))

	text := &domain.ExtractedText{Text: "0123456789ABCDEFGHIJ"} // 20 chars
	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With size 10 and overlap 3, step is 7: windows 0-10, 7-17, 14-20.
	expected := []struct {
		text  string
		start int
		end   int
	}{
		{"0123456789", 0, 10},
		{"789ABCDEFG", 7, 17},
		{"EFGHIJ", 14, 20},
	}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d", len(expected), len(chunks))
	}
	for i, want := range expected {
		if chunks[i].Text != want.text {
			t.Errorf("chunk %d: expected %q, got %q", i, want.text, chunks[i].Text)
		}
		if chunks[i].CharStart != want.start || chunks[i].CharEnd != want.end {
			t.Errorf("chunk %d: expected [%d,%d), got [%d,%d)",
				i, want.start, want.end, chunks[i].CharStart, chunks[i].CharEnd)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunks[i].Index)
		}
	}
}

func TestProcessor_Chunk_Reconstruction(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	original := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	text := &domain.ExtractedText{Text: original}

	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dropping each chunk's leading overlap reconstructs the input.
	var rebuilt strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		rebuilt.WriteString(string(runes[prevEnd-c.CharStart:]))
		prevEnd = c.CharEnd
	}
	if rebuilt.String() != original {
		t.Error("reconstructed text does not match original")
	}
	if prevEnd != len([]rune(original)) {
		t.Errorf("coverage ends at %d, want %d", prevEnd, len([]rune(original)))
	}
}

func TestProcessor_Chunk_UnicodeRunes(t *testing.T) {
	p := New(WithChunkSize(4), WithOverlap(1))

	text := &domain.ExtractedText{Text: "日本語のテキスト"} // 8 runes
	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chunks[0].Text != "日本語の" {
		t.Errorf("expected first chunk '日本語の', got %q", chunks[0].Text)
	}
	if chunks[0].CharEnd != 4 {
		t.Errorf("expected rune-based CharEnd 4, got %d", chunks[0].CharEnd)
	}
}

func TestProcessor_Chunk_PageNumbers(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(0))

	// Two pages: the second starts at rune 150.
	text := &domain.ExtractedText{
		Text:       strings.Repeat("a", 300),
		PageStarts: []int{0, 150},
	}

	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantPages := []int{1, 2, 2} // starts at 0, 100, 200
	for i, want := range wantPages {
		if chunks[i].PageNumber == nil {
			t.Fatalf("chunk %d: expected page number", i)
		}
		if *chunks[i].PageNumber != want {
			t.Errorf("chunk %d: expected page %d, got %d", i, want, *chunks[i].PageNumber)
		}
	}
}

func TestProcessor_Chunk_ExampleScenario(t *testing.T) {
	// 3000 characters at size 1000 / overlap 200 must give exactly
	// four chunks with the documented boundaries.
	p := New(WithChunkSize(1000), WithOverlap(200))

	text := &domain.ExtractedText{Text: strings.Repeat("e", 3000)}
	chunks, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	bounds := [][2]int{{0, 1000}, {800, 1800}, {1600, 2600}, {2400, 3000}}
	for i, b := range bounds {
		if chunks[i].CharStart != b[0] || chunks[i].CharEnd != b[1] {
			t.Errorf("chunk %d: expected [%d,%d), got [%d,%d)",
				i, b[0], b[1], chunks[i].CharStart, chunks[i].CharEnd)
		}
	}
}

func TestProcessor_Chunk_Deterministic(t *testing.T) {
	p := New(WithChunkSize(64), WithOverlap(16))
	text := &domain.ExtractedText{Text: strings.Repeat("determinism ", 50)}

	first, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Chunk(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text || first[i].CharStart != second[i].CharStart {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
