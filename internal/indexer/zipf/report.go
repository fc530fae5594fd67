// Package zipf produces the ranked term-frequency report (zipf.csv) and the
// summary statistics computed from it. The report is derived data; queries
// never read it.
package zipf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/index"
)

// File is the report's file name inside a data directory.
const File = "zipf.csv"

var header = []string{"rank", "term", "frequency"}

// Row is one line of the report. Rank starts at 1.
type Row struct {
	Rank      int
	Term      string
	Frequency int64
}

// Rank orders entries by total frequency, highest first. Equal frequencies
// are ordered by term so the report is reproducible.
func Rank(entries []*index.TermEntry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{Term: e.Term, Frequency: e.TotalFrequency}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Frequency != rows[j].Frequency {
			return rows[i].Frequency > rows[j].Frequency
		}
		return rows[i].Term < rows[j].Term
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// WriteCSV writes the header row followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing zipf header: %w", err)
	}
	for _, r := range rows {
		rec := []string{strconv.Itoa(r.Rank), r.Term, strconv.FormatInt(r.Frequency, 10)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing zipf row %d: %w", r.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a report written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("zipf report is empty")
		}
		return nil, fmt.Errorf("reading zipf header: %w", err)
	}
	for i, col := range header {
		if first[i] != col {
			return nil, fmt.Errorf("unexpected zipf header %v", first)
		}
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading zipf row: %w", err)
		}
		rank, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("zipf row %d: bad rank %q", len(rows)+1, rec[0])
		}
		freq, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("zipf row %d: bad frequency %q", len(rows)+1, rec[2])
		}
		rows = append(rows, Row{Rank: rank, Term: rec[1], Frequency: freq})
	}
	return rows, nil
}

// Summary describes how closely a frequency distribution follows Zipf's
// law f(r) = C/r with C taken from the top-ranked term.
type Summary struct {
	UniqueTerms      int
	TotalOccurrences int64
	Top              []Row
	Hapax            int
	HighFrequency    int // > 1000
	MediumFrequency  int // (10, 1000]
	LowFrequency     int // (1, 10]
	ZipfConstant     float64
	// MeanRelativeError is the mean of |f - C/r| / f, in percent.
	MeanRelativeError float64
}

// HapaxShare is the percentage of terms seen exactly once.
func (s Summary) HapaxShare() float64 {
	if s.UniqueTerms == 0 {
		return 0
	}
	return float64(s.Hapax) / float64(s.UniqueTerms) * 100
}

// Analyze computes the summary of rows, which must be ordered by rank.
// top limits how many leading rows are kept in Summary.Top.
func Analyze(rows []Row, top int) Summary {
	s := Summary{UniqueTerms: len(rows)}
	if len(rows) == 0 {
		return s
	}
	s.Top = rows[:min(max(top, 0), len(rows))]
	s.ZipfConstant = float64(rows[0].Frequency)

	var errSum float64
	for _, r := range rows {
		s.TotalOccurrences += r.Frequency
		switch {
		case r.Frequency == 1:
			s.Hapax++
		case r.Frequency > 1000:
			s.HighFrequency++
		case r.Frequency > 10:
			s.MediumFrequency++
		case r.Frequency > 1:
			s.LowFrequency++
		}
		if r.Frequency > 0 && r.Rank > 0 {
			ideal := s.ZipfConstant / float64(r.Rank)
			errSum += math.Abs(float64(r.Frequency)-ideal) / float64(r.Frequency)
		}
	}
	s.MeanRelativeError = errSum / float64(len(rows)) * 100
	return s
}
