// Package document executes composed query expressions against a document
// store and normalizes the results.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/chirpnet/chirp/pkg/query"
)

// Document is a normalized store document. Reference ids appear as opaque
// hex strings, timestamps as time.Time values.
type Document map[string]interface{}

// Page is a bounded result set. After is an opaque cursor for the next
// page, empty when the result set is exhausted.
type Page struct {
	Data  []Document `json:"data"`
	After string     `json:"after,omitempty"`
}

// ErrNotFound reports that a referenced entity does not exist: an unknown
// user name, a dangling reference, or an empty single-document match.
var ErrNotFound = errors.New("document not found")

// ErrInvalidCursor reports a malformed pagination cursor.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// StoreError wraps a transport, auth or query failure surfaced by the
// underlying store. It is never produced for missing documents.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err carries a store-level failure.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// Executor runs a composed expression as a single logical round trip.
//
// Implementations must resolve any lookups nested inside the expression
// themselves; callers never pre-resolve references. A mutation whose data
// contains deferred lookups must apply resolution and creation atomically.
type Executor interface {
	// QueryDocument executes an expression producing one document
	// (Get or Create). Fails with ErrNotFound when nothing matches.
	QueryDocument(ctx context.Context, expr query.Expr) (Document, error)

	// QueryPage executes a Paginate expression and returns one page,
	// possibly empty.
	QueryPage(ctx context.Context, expr query.Expr) (Page, error)
}
