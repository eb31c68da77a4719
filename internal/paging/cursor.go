package paging

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Source yields a point-in-time snapshot of a collection. Implementations
// must return a slice the caller is free to reorder.
type Source[T Keyed] interface {
	Snapshot(ctx context.Context) ([]T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T Keyed] func(ctx context.Context) ([]T, error)

// Snapshot calls f.
func (f SourceFunc[T]) Snapshot(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// ErrDuplicateKey is returned when a snapshot holds two items with the same
// key, or an item with an empty ID. It indicates a broken collaborator.
var ErrDuplicateKey = errors.New("duplicate or empty page key")

// CursorPage is one window of a cursor-paged collection.
type CursorPage[T any] struct {
	Items []T
	// Limit is the limit the page was requested with.
	Limit int
	// Token is the resumption point the page was requested with.
	Token Token
	// HasMore is set when items remain after this page; Next resumes there.
	HasMore bool
	Next    Token
}

// NextToken returns the encoded continuation token, or "" when the
// collection is exhausted.
func (p CursorPage[T]) NextToken() string {
	if !p.HasMore {
		return ""
	}
	return EncodeToken(p.Next)
}

// FetchPage returns up to limit items strictly after tok from a single
// snapshot of src. A token whose anchor was removed, or whose prefix changed,
// fails with ErrPaginationConflict.
func FetchPage[T Keyed](ctx context.Context, src Source[T], limit int, tok Token) (CursorPage[T], error) {
	if limit < 0 {
		return CursorPage[T]{}, NewValidationError("limit", strconv.Itoa(limit), errors.New("must not be negative"))
	}
	items, err := src.Snapshot(ctx)
	if err != nil {
		return CursorPage[T]{}, err
	}
	if err := sortByKey(items); err != nil {
		return CursorPage[T]{}, err
	}

	start, err := resolve(items, tok)
	if err != nil {
		return CursorPage[T]{}, err
	}

	remaining := items[start:]
	n := min(limit, len(remaining))
	page := CursorPage[T]{
		Items: slices.Clone(remaining[:n]),
		Limit: limit,
		Token: tok,
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if n < len(remaining) {
		page.HasMore = true
		if n == 0 {
			page.Next = tok
		} else {
			anchor := start + n
			page.Next = Token{
				Position:   items[anchor-1].PageKey(),
				Generation: generationOf(items[:anchor]),
			}
		}
	}
	return page, nil
}

// resolve returns the index of the first item after tok.
func resolve[T Keyed](items []T, tok Token) (int, error) {
	if tok.IsStart() {
		return 0, nil
	}
	idx, found := slices.BinarySearchFunc(items, tok.Position, func(item T, k Key) int {
		return item.PageKey().Compare(k)
	})
	if !found {
		return 0, conflictf("anchor %s no longer present", tok.Position)
	}
	if idx+1 != tok.Generation.Count {
		return 0, conflictf("anchor %s moved from position %d to %d", tok.Position, tok.Generation.Count, idx+1)
	}
	if generationOf(items[:idx+1]) != tok.Generation {
		return 0, conflictf("items before anchor %s changed", tok.Position)
	}
	return idx + 1, nil
}

func sortByKey[T Keyed](items []T) error {
	slices.SortStableFunc(items, func(a, b T) int {
		return a.PageKey().Compare(b.PageKey())
	})
	for i, item := range items {
		k := item.PageKey()
		if k.ID == "" {
			return fmt.Errorf("%w: empty id at seq %d", ErrDuplicateKey, k.Seq)
		}
		if i > 0 && items[i-1].PageKey() == k {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
	}
	return nil
}

// Limits bounds a client-chosen page length. Default only applies where the
// length may be omitted, which is the case for offset page sizes; cursor
// requests must always name a limit.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used when none are configured.
var DefaultLimits = Limits{Default: 10, Max: 100}

// Cap lowers n to Max. Negative values are left for FetchPage to reject.
func (l Limits) Cap(n int) int {
	if l.Max > 0 && n > l.Max {
		return l.Max
	}
	return n
}

// Normalize applies the default to a missing value and caps it at Max.
func (l Limits) Normalize(n *int) int {
	if n == nil {
		return l.Default
	}
	return l.Cap(*n)
}
