package domain

import "context"

// Page is one slice of a listing plus the cursor for the next call.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// PageFunc produces one page per call. An empty cursor requests the first
// page, so the same PageFunc can be replayed from the start at any time.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Drain consumes a page sequence to completion and returns all items.
func Drain[T any](ctx context.Context, next PageFunc[T]) ([]T, error) {
	var items []T
	cursor := ""
	for {
		page, err := next(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if !page.HasMore || page.NextCursor == "" {
			return items, nil
		}
		cursor = page.NextCursor
	}
}

// First returns the first item of a page sequence, or ok=false when the
// sequence is empty.
func First[T any](ctx context.Context, next PageFunc[T]) (T, bool, error) {
	var zero T
	page, err := next(ctx, "")
	if err != nil {
		return zero, false, err
	}
	if len(page.Items) == 0 {
		return zero, false, nil
	}
	return page.Items[0], true, nil
}
