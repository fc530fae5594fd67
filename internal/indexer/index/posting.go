package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Document is one entry of the forward index. DocID is its position in the
// forward index.
type Document struct {
	DocID      int32  `json:"doc_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
}

// TermEntry holds the statistics and postings of a single term.
// TotalFrequency counts every occurrence across the corpus, so it is never
// smaller than DocCount.
type TermEntry struct {
	Term           string
	TotalFrequency int64
	Postings       *roaring.Bitmap
}

// NewTermEntry returns an entry with no occurrences.
func NewTermEntry(term string) *TermEntry {
	return &TermEntry{Term: term, Postings: roaring.New()}
}

// DocCount is the number of distinct documents containing the term.
func (e *TermEntry) DocCount() int {
	return int(e.Postings.GetCardinality())
}

// DocIDs returns the postings in ascending order.
func (e *TermEntry) DocIDs() []int32 {
	ids := make([]int32, 0, e.Postings.GetCardinality())
	it := e.Postings.Iterator()
	for it.HasNext() {
		ids = append(ids, int32(it.Next()))
	}
	return ids
}

// Validate checks the frequency invariant.
func (e *TermEntry) Validate() error {
	if e.TotalFrequency < int64(e.DocCount()) {
		return fmt.Errorf("term %q: total frequency %d below doc count %d",
			e.Term, e.TotalFrequency, e.DocCount())
	}
	return nil
}

// Stats summarises one ingestion run.
type Stats struct {
	Documents   int   `json:"documents"`
	Skipped     int   `json:"skipped"`
	UniqueTerms int   `json:"unique_terms"`
	Tokens      int64 `json:"tokens"`
	TokenRunes  int64 `json:"token_runes"`
	InputBytes  int64 `json:"input_bytes"`
}

// AvgTokenLength is the mean token length in runes, or zero when nothing was
// tokenized.
func (s Stats) AvgTokenLength() float64 {
	if s.Tokens == 0 {
		return 0
	}
	return float64(s.TokenRunes) / float64(s.Tokens)
}
