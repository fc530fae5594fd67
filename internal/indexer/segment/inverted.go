package segment

import (
	"fmt"
	"io"
	"math"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
)

// InvertedFile is the file name of the inverted index inside a data directory.
const InvertedFile = "inverted.idx"

// WriteInverted encodes entries in the given order with ascending postings.
func WriteInverted(w io.Writer, entries []*index.TermEntry) error {
	enc := newEncoder(w)
	enc.int64(int64(len(entries)))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("writing inverted index: %w", err)
		}
		enc.int64(e.TotalFrequency)
		enc.string(e.Term)
		enc.int32(int32(e.DocCount()))
		it := e.Postings.Iterator()
		for it.HasNext() {
			id := it.Next()
			if id > math.MaxInt32 {
				return fmt.Errorf("writing inverted index: term %q has doc id %d beyond int32", e.Term, id)
			}
			enc.int32(int32(id))
		}
	}
	if err := enc.flush(); err != nil {
		return fmt.Errorf("writing inverted index: %w", err)
	}
	return nil
}

// ReadInverted decodes an inverted index into a term map. Duplicate terms,
// duplicate postings and negative ids are reported as corruption.
func ReadInverted(r io.Reader) (map[string]*index.TermEntry, error) {
	dec := newDecoder(r, InvertedFile)
	count, err := dec.int64("term count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, dec.corrupt("negative term count %d", count)
	}
	terms := make(map[string]*index.TermEntry, min(count, 1<<16))
	for i := int64(0); i < count; i++ {
		dec.at("term", i)
		freq, err := dec.int64("frequency")
		if err != nil {
			return nil, err
		}
		term, err := dec.string("text")
		if err != nil {
			return nil, err
		}
		dec.term = term
		docCount, err := dec.int32("doc count")
		if err != nil {
			return nil, err
		}
		if docCount < 0 {
			return nil, dec.corrupt("term %q: negative doc count %d", term, docCount)
		}
		if _, dup := terms[term]; dup {
			return nil, dec.corrupt("term %q stored twice", term)
		}
		entry := index.NewTermEntry(term)
		entry.TotalFrequency = freq
		for j := int32(0); j < docCount; j++ {
			id, err := dec.int32("posting")
			if err != nil {
				return nil, err
			}
			if id < 0 {
				return nil, dec.corrupt("term %q: negative doc id %d", term, id)
			}
			if !entry.Postings.CheckedAdd(uint32(id)) {
				return nil, dec.corrupt("term %q: doc id %d listed twice", term, id)
			}
		}
		if err := entry.Validate(); err != nil {
			return nil, dec.corrupt("%v", err)
		}
		entry.Postings.RunOptimize()
		terms[term] = entry
	}
	if err := dec.expectEOF(); err != nil {
		return nil, err
	}
	return terms, nil
}
