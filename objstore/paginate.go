package objstore

import (
	"context"
	"strings"
)

// Paginator walks every page of a listing.
type Paginator struct {
	store     Store
	input     ListInput
	firstPage bool
	nextToken string
}

// NewPaginator creates a paginator over in. A zero MaxResults uses DefaultPageSize.
func NewPaginator(store Store, in ListInput) *Paginator {
	if in.MaxResults <= 0 {
		in.MaxResults = DefaultPageSize
	}
	return &Paginator{
		store:     store,
		input:     in,
		firstPage: true,
		nextToken: in.PageToken,
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.nextToken != ""
}

// NextPage fetches the next page of results.
func (p *Paginator) NextPage(ctx context.Context) (*ListPage, error) {
	in := p.input
	in.PageToken = p.nextToken

	page, err := p.store.List(ctx, in)
	if err != nil {
		return nil, err
	}

	p.firstPage = false
	p.nextToken = page.NextPageToken
	return page, nil
}

// Walk calls fn for every object under prefix, across all pages, in listing
// order. It stops at the first error returned by the store, fn or ctx.
func Walk(ctx context.Context, store Store, prefix string, fn func(ObjectInfo) error) error {
	p := NewPaginator(store, ListInput{Prefix: prefix})
	for p.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Items {
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListAll returns every object under prefix.
func ListAll(ctx context.Context, store Store, prefix string) ([]ObjectInfo, error) {
	var all []ObjectInfo
	err := Walk(ctx, store, prefix, func(obj ObjectInfo) error {
		all = append(all, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// HasAny reports whether at least one object exists under prefix.
func HasAny(ctx context.Context, store Store, prefix string) (bool, error) {
	page, err := store.List(ctx, ListInput{Prefix: prefix, MaxResults: 1})
	if err != nil {
		return false, err
	}
	return len(page.Items) > 0, nil
}

// EnsureTrailingSeparator returns prefix with exactly one trailing separator.
// An empty prefix stays empty.
func EnsureTrailingSeparator(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, Separator) + Separator
}
