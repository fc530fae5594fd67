// Package console renders query results for the terminal and runs the
// interactive query loop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

const prompt = "Enter search query (empty to exit): "

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Renderer writes results as plain lines. With Styled set, headers and
// errors are decorated for a terminal.
type Renderer struct {
	Out    io.Writer
	Styled bool
}

func (r *Renderer) header(s string) string {
	if r.Styled {
		return headerStyle.Render(s)
	}
	return s
}

// Result prints one query outcome. err is the error returned alongside res
// by the executor, if any.
func (r *Renderer) Result(res *executor.SearchResult, err error) {
	if err != nil {
		msg := "Error: " + err.Error()
		if r.Styled {
			msg = errorStyle.Render(msg)
		}
		fmt.Fprintln(r.Out, msg)
		if !errors.Is(err, apperrors.ErrSyntax) || res == nil {
			return
		}
	}

	if res.Mode == executor.ModeTerm && res.Term != nil {
		if !res.Term.Found {
			fmt.Fprintln(r.Out, "Term not found")
			return
		}
		fmt.Fprintln(r.Out, r.header(fmt.Sprintf("Term: %s, freq=%d, doc_count=%d",
			res.Term.Term, res.Term.TotalFrequency, res.Term.DocCount)))
		fmt.Fprintln(r.Out, "Documents:")
	} else {
		fmt.Fprintln(r.Out, r.header(fmt.Sprintf("Found %d documents:", res.Total)))
	}
	for _, hit := range res.Results {
		fmt.Fprintf(r.Out, "- %s\n", hit.URL)
	}
	if more := res.More(); more > 0 {
		fmt.Fprintf(r.Out, "... and %d more documents\n", more)
	}
}

// Banner prints the greeting of the interactive mode.
func (r *Renderer) Banner(documents, terms int) {
	fmt.Fprintln(r.Out, r.header("Search engine loaded."))
	fmt.Fprintf(r.Out, "Documents: %s\n", humanize.Comma(int64(documents)))
	fmt.Fprintf(r.Out, "Unique terms: %s\n\n", humanize.Comma(int64(terms)))
	fmt.Fprint(r.Out, `Usage:
  - Single term: матч
  - AND operation: матч && футбол
  - OR operation: матч || игра
  - NOT operation: !теннис
  - Parentheses: (красный || желтый) && автомобиль
  - Complex: матч && (футбол || хоккей) && !теннис
  - && and || have equal precedence and apply left to right:
    a || b && c means (a || b) && c
  - Multiple spaces are allowed

`)
}

// Searcher is the part of the executor the loop needs.
type Searcher interface {
	Execute(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
}

// Loop reads one query per line from in until an empty line, EOF or ctx
// cancellation, printing each result. The prompt is shown only when
// showPrompt is set, so piped input produces clean output.
func (r *Renderer) Loop(ctx context.Context, in io.Reader, s Searcher, limit int, showPrompt bool) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if showPrompt {
			fmt.Fprint(r.Out, prompt)
		}
		if !sc.Scan() {
			if showPrompt {
				fmt.Fprintln(r.Out)
			}
			return sc.Err()
		}
		query := strings.TrimRight(sc.Text(), "\r")
		if query == "" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.Execute(ctx, query, limit)
		r.Result(res, err)
		if showPrompt {
			fmt.Fprintln(r.Out)
		}
	}
}
