// Package dispatch invokes an operation on a kind without the caller knowing
// whether the kind lives in this process or behind a remote endpoint.
package dispatch

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/outcome"
	"github.com/iyhunko/product-catalog/internal/resource"
)

// Request names one operation on one kind. Key is zero for collection-wide
// reads; Item is non-zero when addressing one row of a list kind.
type Request struct {
	Kind    model.Kind
	Op      outcome.Op
	Key     int64
	Item    int64
	Query   url.Values
	Payload any
}

// Dispatcher invokes requests and normalizes every result to an Outcome.
type Dispatcher interface {
	Invoke(ctx context.Context, req Request) outcome.Outcome
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, req Request) outcome.Outcome

func (f Func) Invoke(ctx context.Context, req Request) outcome.Outcome {
	return f(ctx, req)
}

func (r Request) method() string {
	switch r.Op {
	case outcome.OpCreate:
		return http.MethodPost
	case outcome.OpUpdate:
		return http.MethodPut
	case outcome.OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// Lookup resolves existence of rows of kind through d: 200 means present,
// 404 absent, anything else is an error.
func Lookup(d Dispatcher, kind model.Kind) resource.Lookup {
	return resource.LookupFunc(func(ctx context.Context, id int64) (bool, error) {
		o := d.Invoke(ctx, Request{Kind: kind, Op: outcome.OpRead, Key: id})
		switch o.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		default:
			return false, &StatusError{Kind: kind, StatusCode: o.StatusCode}
		}
	})
}

// StatusError reports an unexpected status from a lookup.
type StatusError struct {
	Kind       model.Kind
	StatusCode int
}

func (e *StatusError) Error() string {
	return "lookup on " + e.Kind.String() + " returned " + http.StatusText(e.StatusCode)
}
