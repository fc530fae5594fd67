// Package index accumulates the forward and inverted index in memory during
// ingestion. A Builder is owned by a single ingestion run and is not safe for
// concurrent use.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/tokenizer"
)

type Builder struct {
	terms     map[string]*TermEntry
	docs      []Document
	tokenizer *tokenizer.Tokenizer
	stats     Stats
}

func NewBuilder(maxTokenLen int) *Builder {
	return &Builder{
		terms:     make(map[string]*TermEntry),
		docs:      make([]Document, 0, 1024),
		tokenizer: tokenizer.New(maxTokenLen),
	}
}

// AddDocument assigns the next doc id, records the document in the forward
// index and folds every token of html into the inverted index.
func (b *Builder) AddDocument(url, externalID, html string) (int32, error) {
	if len(b.docs) >= math.MaxInt32 {
		return 0, fmt.Errorf("document limit of %d reached", math.MaxInt32)
	}
	docID := int32(len(b.docs))
	b.docs = append(b.docs, Document{
		DocID:      docID,
		Title:      fmt.Sprintf("Document %d", docID),
		URL:        url,
		ExternalID: externalID,
	})
	b.stats.Documents++
	b.stats.InputBytes += int64(len(html))

	b.tokenizer.Scan(html, func(tok tokenizer.Token) {
		b.RecordOccurrence(tok.Term, docID)
		b.stats.Tokens++
		b.stats.TokenRunes += int64(tok.Length)
	})
	return docID, nil
}

// RecordOccurrence counts one occurrence of term in docID. Repeated calls
// with the same pair only raise the total frequency.
func (b *Builder) RecordOccurrence(term string, docID int32) {
	entry, ok := b.terms[term]
	if !ok {
		entry = NewTermEntry(term)
		b.terms[term] = entry
		b.stats.UniqueTerms++
	}
	entry.TotalFrequency++
	entry.Postings.Add(uint32(docID))
}

// Skip counts a record that was rejected before reaching the builder.
func (b *Builder) Skip() {
	b.stats.Skipped++
}

// Lookup returns the entry for term, if any.
func (b *Builder) Lookup(term string) (*TermEntry, bool) {
	e, ok := b.terms[term]
	return e, ok
}

// Entries returns all term entries sorted by term.
func (b *Builder) Entries() []*TermEntry {
	entries := make([]*TermEntry, 0, len(b.terms))
	for _, e := range b.terms {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Terms exposes the inverted index. Callers must not modify it.
func (b *Builder) Terms() map[string]*TermEntry {
	return b.terms
}

func (b *Builder) Documents() []Document {
	return b.docs
}

func (b *Builder) Stats() Stats {
	return b.stats
}
