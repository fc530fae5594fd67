package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

// Index is a loaded, read-only index. Nothing mutates it after Load returns,
// so one value may be shared by any number of concurrent queries.
type Index struct {
	documents []index.Document
	terms     map[string]*index.TermEntry
}

// NewIndex wraps already-built structures, e.g. straight from a Builder.
func NewIndex(docs []index.Document, terms map[string]*index.TermEntry) *Index {
	if terms == nil {
		terms = make(map[string]*index.TermEntry)
	}
	return &Index{documents: docs, terms: terms}
}

// DocCount is the size of the document universe.
func (ix *Index) DocCount() int { return len(ix.documents) }

// TermCount is the number of distinct terms.
func (ix *Index) TermCount() int { return len(ix.terms) }

// Lookup returns the entry for an exact term.
func (ix *Index) Lookup(term string) (*index.TermEntry, bool) {
	e, ok := ix.terms[term]
	return e, ok
}

// Document returns the forward-index record for id.
func (ix *Index) Document(id int32) (index.Document, bool) {
	if id < 0 || int(id) >= len(ix.documents) {
		return index.Document{}, false
	}
	return ix.documents[id], true
}

// Persist writes both index files into dir, each through a temporary file
// that is renamed into place once complete.
func Persist(dir string, docs []index.Document, entries []*index.TermEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := WriteAtomic(filepath.Join(dir, ForwardFile), func(w io.Writer) error {
		return WriteForward(w, docs)
	}); err != nil {
		return err
	}
	return WriteAtomic(filepath.Join(dir, InvertedFile), func(w io.Writer) error {
		return WriteInverted(w, entries)
	})
}

// WriteAtomic creates or replaces path with the bytes produced by write.
// Readers observe either the old file or the complete new one; on failure
// the temporary file is removed and the old file is left untouched.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	pending, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", filepath.Base(path), err)
	}
	defer pending.Cleanup()

	if err := write(pending); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads forward.idx and inverted.idx from dir concurrently and checks
// that every posting refers to a stored document.
func Load(ctx context.Context, dir string) (*Index, error) {
	var (
		docs  []index.Document
		terms map[string]*index.TermEntry
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = readFile(filepath.Join(dir, ForwardFile), ReadForward)
		return err
	})
	g.Go(func() error {
		var err error
		terms, err = readFile(filepath.Join(dir, InvertedFile), ReadInverted)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for term, e := range terms {
		if e.Postings.IsEmpty() {
			continue
		}
		if last := e.Postings.Maximum(); int(last) >= len(docs) {
			return nil, fmt.Errorf("%w: %s: term %q references doc id %d but only %d documents exist",
				apperrors.ErrCorruptIndex, InvertedFile, term, last, len(docs))
		}
	}
	return &Index{documents: docs, terms: terms}, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, path)
		}
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}
