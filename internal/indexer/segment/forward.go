package segment

import (
	"fmt"
	"io"
	"math"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
)

// ForwardFile is the file name of the forward index inside a data directory.
const ForwardFile = "forward.idx"

// WriteForward encodes docs in doc id order.
func WriteForward(w io.Writer, docs []index.Document) error {
	if len(docs) > math.MaxInt32 {
		return fmt.Errorf("forward index: %d documents exceed int32 count", len(docs))
	}
	enc := newEncoder(w)
	enc.int32(int32(len(docs)))
	for i, doc := range docs {
		if doc.DocID != int32(i) {
			return fmt.Errorf("forward index: document at position %d has id %d", i, doc.DocID)
		}
		enc.string(doc.Title)
		enc.string(doc.URL)
		enc.string(doc.ExternalID)
	}
	if err := enc.flush(); err != nil {
		return fmt.Errorf("writing forward index: %w", err)
	}
	return nil
}

// ReadForward decodes a forward index. Document ids are the record positions.
func ReadForward(r io.Reader) ([]index.Document, error) {
	dec := newDecoder(r, ForwardFile)
	count, err := dec.int32("document count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, dec.corrupt("negative document count %d", count)
	}
	docs := make([]index.Document, 0, min(int(count), 1<<16))
	for i := int32(0); i < count; i++ {
		dec.at("document", int64(i))
		title, err := dec.string("title")
		if err != nil {
			return nil, err
		}
		url, err := dec.string("url")
		if err != nil {
			return nil, err
		}
		oid, err := dec.string("external id")
		if err != nil {
			return nil, err
		}
		docs = append(docs, index.Document{DocID: i, Title: title, URL: url, ExternalID: oid})
	}
	if err := dec.expectEOF(); err != nil {
		return nil, err
	}
	return docs, nil
}
