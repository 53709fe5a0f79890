// Package pagination converts offset-based page requests into page-indexed
// response envelopes. All functions are pure.
package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
)

const (
	DefaultRows = 10
	MaxRows     = 100

	SortAsc  = 1
	SortDesc = -1
)

// ErrInvalidOptions is wrapped by every validation failure from ParseQuery.
var ErrInvalidOptions = errors.New("invalid pagination options")

// Options is a page request: First is a 0-based record offset and Rows the
// page size.
type Options struct {
	First     int    `json:"first"`
	Rows      int    `json:"rows"`
	SortField string `json:"sortField,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Defaults returns the options used when a request carries no query.
func Defaults() Options {
	return Options{First: 0, Rows: DefaultRows, SortOrder: SortAsc}
}

// Offset and Limit translate the options for a storage query.
func (o Options) Offset() int { return o.First }
func (o Options) Limit() int  { return o.Rows }

// Descending reports whether the sort order is -1.
func (o Options) Descending() bool { return o.SortOrder == SortDesc }

// Response is one page of results. Page and PageCount are derived from
// First, Rows and Total; construct it with NewResponse.
type Response[T any] struct {
	Data      []T `json:"data"`
	Total     int `json:"total"`
	First     int `json:"first"`
	Rows      int `json:"rows"`
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
}

// NewResponse builds the envelope for data, a page of a result set holding
// total matches.
func NewResponse[T any](data []T, total int, opts Options) Response[T] {
	rows := opts.Rows
	if rows <= 0 {
		rows = DefaultRows
	}
	first := opts.First
	if first < 0 {
		first = 0
	}
	if data == nil {
		data = []T{}
	}

	return Response[T]{
		Data:      data,
		Total:     total,
		First:     first,
		Rows:      rows,
		Page:      first/rows + 1,
		PageCount: (total + rows - 1) / rows,
	}
}

// ParseQuery reads first, rows, sortField and sortOrder from q, applying
// defaults for absent values. sortField must be one of allowed.
func ParseQuery(q url.Values, allowed []string) (Options, error) {
	opts := Defaults()

	if v := q.Get("first"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Options{}, fmt.Errorf("%w: first must be an integer", ErrInvalidOptions)
		}
		if n < 0 {
			return Options{}, fmt.Errorf("%w: first must not be less than 0", ErrInvalidOptions)
		}
		opts.First = n
	}

	if v := q.Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Options{}, fmt.Errorf("%w: rows must be an integer", ErrInvalidOptions)
		}
		if n < 1 {
			return Options{}, fmt.Errorf("%w: rows must not be less than 1", ErrInvalidOptions)
		}
		if n > MaxRows {
			return Options{}, fmt.Errorf("%w: rows must not be greater than %d", ErrInvalidOptions, MaxRows)
		}
		opts.Rows = n
	}

	if v := q.Get("sortField"); v != "" {
		if !slices.Contains(allowed, v) {
			return Options{}, fmt.Errorf("%w: sortField must be one of %v", ErrInvalidOptions, allowed)
		}
		opts.SortField = v
	}

	if v := q.Get("sortOrder"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != SortAsc && n != SortDesc) {
			return Options{}, fmt.Errorf("%w: sortOrder must be 1 or -1", ErrInvalidOptions)
		}
		opts.SortOrder = n
	}

	return opts, nil
}
