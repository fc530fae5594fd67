package executor

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/parser"
)

// Evaluate computes the set of doc ids matching n. The returned bitmap is
// owned by the caller; the index is never modified. Unknown terms match
// nothing. Not complements against [0, DocCount), which costs time
// proportional to the universe.
func Evaluate(ctx context.Context, n parser.Node, ix *segment.Index) (*roaring.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch v := n.(type) {
	case parser.Term:
		entry, ok := ix.Lookup(v.Value)
		if !ok {
			return roaring.New(), nil
		}
		return entry.Postings.Clone(), nil
	case parser.And:
		left, right, err := evaluatePair(ctx, v.Left, v.Right, ix)
		if err != nil {
			return nil, err
		}
		left.And(right)
		return left, nil
	case parser.Or:
		left, right, err := evaluatePair(ctx, v.Left, v.Right, ix)
		if err != nil {
			return nil, err
		}
		left.Or(right)
		return left, nil
	case parser.Not:
		operand, err := Evaluate(ctx, v.Operand, ix)
		if err != nil {
			return nil, err
		}
		operand.Flip(0, uint64(ix.DocCount()))
		return operand, nil
	default:
		return nil, fmt.Errorf("unsupported query node %T", n)
	}
}

func evaluatePair(ctx context.Context, l, r parser.Node, ix *segment.Index) (*roaring.Bitmap, *roaring.Bitmap, error) {
	left, err := Evaluate(ctx, l, ix)
	if err != nil {
		return nil, nil, err
	}
	right, err := Evaluate(ctx, r, ix)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
