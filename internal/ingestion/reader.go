package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// LineHandler receives one input record without its trailing newline.
type LineHandler func(line []byte) error

// ReadLines feeds every line of r to handle, one at a time and in order.
// Empty lines are ignored. Lines longer than maxLine bytes are skipped with
// a warning; maxLine <= 0 means no limit. The context is checked between
// lines.
func ReadLines(ctx context.Context, r io.Reader, maxLine int, handle LineHandler) error {
	logger := slog.Default().With("component", "line-reader")
	br := bufio.NewReaderSize(r, 1<<20)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			line = bytes.TrimRight(line, "\r\n")
			switch {
			case len(line) == 0:
			case maxLine > 0 && len(line) > maxLine:
				logger.Warn("skipping oversized record", "line", lineNo, "bytes", len(line), "limit", maxLine)
			default:
				if err := handle(line); err != nil {
					return fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", readErr)
		}
	}
}
