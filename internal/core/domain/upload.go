package domain

import "sort"

// Upload represents opaque bytes received at the boundary, before
// validation and text extraction.
type Upload struct {
	// Filename is the client-supplied name, not yet sanitised.
	Filename string

	// DeclaredMIME is the client-supplied content type. Advisory
	// only; the effective type is sniffed from Content.
	DeclaredMIME string

	// Content is the raw bytes.
	Content []byte
}

// ExtractedText is the output of text extraction: the full document
// text plus page boundaries when the extractor reports them.
type ExtractedText struct {
	// Text is the extracted plain text.
	Text string

	// PageStarts holds the rune offset of each page start, in
	// ascending order. Empty means pagination is unknown; page
	// numbers are then omitted rather than guessed.
	PageStarts []int
}

// PageFor maps a rune offset to a 1-based page number, or nil when
// pagination is unknown.
func (e ExtractedText) PageFor(offset int) *int {
	if len(e.PageStarts) == 0 {
		return nil
	}
	// Index of the first page starting after offset; the page
	// containing offset is the one before it.
	i := sort.SearchInts(e.PageStarts, offset+1)
	if i == 0 {
		i = 1
	}
	page := i
	return &page
}
