// Package service implements the business logic between handlers and
// repositories.
package service

import "context"

// PageSize is the fixed page length of every listing endpoint.
const PageSize = 20

// Page is one page of a listing plus whether another page exists.
type Page[T any] struct {
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
	Data    []T  `json:"data"`
}

// pageWindow converts a 0-based page number into the limit/offset to fetch.
// The limit asks for one extra row; trimPage uses it to detect a next page
// without a count query.
func pageWindow(page int) (limit, offset int) {
	if page < 0 {
		page = 0
	}
	return PageSize + 1, page * PageSize
}

// trimPage cuts a PageSize+1 fetch down to the page.
func trimPage[T any](items []T, page int) Page[T] {
	if page < 0 {
		page = 0
	}
	hasMore := len(items) > PageSize
	if hasMore {
		items = items[:PageSize]
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Page: page, HasMore: hasMore, Data: items}
}

// fanOut runs the tasks concurrently and returns the first error, if any.
// Every task runs to completion regardless of the others failing.
func fanOut(ctx context.Context, tasks ...func(context.Context) error) error {
	errs := make(chan error, len(tasks))
	for _, task := range tasks {
		go func(f func(context.Context) error) {
			errs <- f(ctx)
		}(task)
	}

	var first error
	for range tasks {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}
