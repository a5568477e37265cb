// Package request provides declarative, immutable request definitions, see the New function.
//
// A Request[R] owns a param tree, a set of typed result consumers and optional
// update sources. Every builder method returns a modified copy, so definitions
// can be shared and extended without shared mutable state.
//
// Requests are executed by the Sender interface.
// The client.Client is a default implementation of the Sender interface
// based on the standard net/http package.
//
// Call is the fire-and-forget entry point, all outcomes surface only through
// the registered consumers. RunGroup and WaitGroup are helpers for concurrent
// synchronous sends.
package request

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhoughjr/go-request/pkg/param"
)

// NoResult can be used as the R type when no typed decoding is needed.
type NoResult struct{}

// Keyed is a value with a stable request identity, see Request.Key.
type Keyed interface {
	Key() string
}

// Request is an immutable request definition with the result mapped to the generic type R.
//
// Consumers may be invoked concurrently when update triggers overlap,
// they must be safe for concurrent use.
type Request[R any] struct {
	sender    Sender
	params    param.Param
	callbacks callbacks[R]
	sources   []Source
	scheduled *sync.Once
}

// New creates an immutable request definition from a param tree.
func New[R any](sender Sender, params ...param.Param) Request[R] {
	return Request[R]{sender: sender, params: param.Group(params...), scheduled: &sync.Once{}}
}

// clone returns the copy with its own scheduler guard.
// Each derived definition owns its update lifecycle, a Call on one copy
// must not consume the scheduler start of another.
func (r Request[R]) clone() Request[R] {
	r.scheduled = &sync.Once{}
	return r
}

// Params returns the owned param tree.
func (r Request[R]) Params() param.Param {
	return r.params
}

// With returns a copy of the request with params appended to the tree.
func (r Request[R]) With(params ...param.Param) Request[R] {
	r.params = param.Group(append([]param.Param{r.params}, params...)...)
	return r.clone()
}

// WithAuthorization returns a copy of the request with an Authorization header
// node placed before the existing tree. If the tree also sets an Authorization
// header, the later-folded tree value is authoritative, see param.Header.
func (r Request[R]) WithAuthorization(value string) Request[R] {
	r.params = param.Group(param.Authorization(value), r.params)
	return r.clone()
}

// WithTokenSource is WithAuthorization with the value read from an OAuth2
// token source on every fold.
func (r Request[R]) WithTokenSource(ts oauth2.TokenSource) Request[R] {
	r.params = param.Group(param.TokenSource(ts), r.params)
	return r.clone()
}

// OnData returns a copy of the request with the raw bytes consumer set.
// At most one consumer per kind is kept, a later registration replaces an earlier one.
func (r Request[R]) OnData(fn func(data []byte)) Request[R] {
	r.callbacks.onData = fn
	return r.clone()
}

// OnString returns a copy of the request with the text consumer set.
// The body is decoded as UTF-8, invalid bytes degrade to an empty string.
func (r Request[R]) OnString(fn func(s string)) Request[R] {
	r.callbacks.onString = fn
	return r.clone()
}

// OnJSON returns a copy of the request with the structured document consumer set.
// The body is decoded as a generic JSON document, an object keeps its key order
// as *orderedmap.OrderedMap, an array decodes to []any and a scalar to the
// matching Go value. A parse failure is routed to the error consumer.
func (r Request[R]) OnJSON(fn func(doc any)) Request[R] {
	r.callbacks.onJSON = fn
	return r.clone()
}

// OnObject returns a copy of the request with the typed consumer set.
// The body is decoded to the R type, a decode failure is routed to the error consumer.
func (r Request[R]) OnObject(fn func(v R)) Request[R] {
	r.callbacks.onObject = fn
	return r.clone()
}

// OnStatusCode returns a copy of the request with the status code consumer set.
// It fires on every response regardless of the body outcome.
func (r Request[R]) OnStatusCode(fn func(code int)) Request[R] {
	r.callbacks.onStatusCode = fn
	return r.clone()
}

// OnError returns a copy of the request with the error consumer set.
// Without it, build, transport and decode errors are silently dropped.
func (r Request[R]) OnError(fn func(err error)) Request[R] {
	r.callbacks.onError = fn
	return r.clone()
}

// UpdateEvery returns a copy of the request with an interval trigger attached.
func (r Request[R]) UpdateEvery(interval time.Duration) Request[R] {
	return r.UpdateWith(Every(interval))
}

// UpdateOn returns a copy of the request with an external trigger stream attached.
func (r Request[R]) UpdateOn(ch <-chan struct{}) Request[R] {
	return r.UpdateWith(Stream(ch))
}

// UpdateWith returns a copy of the request with trigger sources attached.
// All sources are merged to one event stream when Call starts the scheduler.
func (r Request[R]) UpdateWith(sources ...Source) Request[R] {
	r.sources = append(r.sources[:len(r.sources):len(r.sources)], sources...)
	return r.clone()
}

// Call folds the tree and performs the request asynchronously.
// There is no return value, all outcomes surface through the registered consumers.
// A malformed tree, for example a missing URL node, is delivered to the error
// consumer and no network activity happens.
//
// On the first Call the attached update sources are merged and started,
// each event re-folds the tree and re-runs the request on its own timeline,
// until ctx is done. Overlapping triggers are neither deduplicated nor canceled.
func (r Request[R]) Call(ctx context.Context) {
	go func() {
		_ = r.SendOrErr(ctx)
	}()
	if len(r.sources) > 0 {
		r.scheduled.Do(func() {
			go r.schedule(ctx)
		})
	}
}

// SendOrErr is the synchronous variant of Call, it implements the Sendable interface.
// Consumers are dispatched the same way, additionally the build or transport
// error is returned, so the request can participate in RunGroup and WaitGroup.
func (r Request[R]) SendOrErr(ctx context.Context) error {
	descriptor, config, err := param.Fold(r.params)
	if err != nil {
		r.callbacks.dispatchError(err)
		return err
	}
	response, err := r.sender.Send(ctx, descriptor, config)
	if err != nil {
		r.callbacks.dispatchError(err)
		return err
	}
	r.callbacks.dispatch(response)
	return nil
}

// Key returns a stable identifier derived from the folded method and target.
// Body and headers are intentionally ignored, it is a weak identity for UI
// lists and deduplication maps. It returns "" if the tree does not fold.
func (r Request[R]) Key() string {
	descriptor, _, err := param.Fold(r.params)
	if err != nil {
		return ""
	}
	return descriptor.Key()
}

// Equal reports whether both requests have the same identity, see Key.
func (r Request[R]) Equal(other Keyed) bool {
	k := r.Key()
	return k != "" && k == other.Key()
}
