package request

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/keboola/go-utils/pkg/orderedmap"

	"github.com/jhoughjr/go-request/pkg/param"
)

// callbacks is the set of per-kind result consumers of one request.
// At most one consumer per kind, a later registration replaces an earlier one.
type callbacks[R any] struct {
	onData       func(data []byte)
	onString     func(s string)
	onJSON       func(doc any)
	onObject     func(v R)
	onStatusCode func(code int)
	onError      func(err error)
}

// dispatch fans one successful response out to the registered consumers.
// Consumers are independent, there is no short-circuit, a decode failure
// is routed to the error consumer and the remaining consumers still fire.
func (c callbacks[R]) dispatch(response *param.Response) {
	if c.onData != nil {
		c.onData(response.Body)
	}
	if c.onString != nil {
		// Invalid UTF-8 degrades to an empty string, lossy but not an error.
		if utf8.Valid(response.Body) {
			c.onString(string(response.Body))
		} else {
			c.onString("")
		}
	}
	if c.onJSON != nil {
		doc, err := decodeDocument(response.Body)
		if err != nil {
			c.dispatchError(fmt.Errorf("cannot decode JSON document: %w", err))
		} else {
			c.onJSON(doc)
		}
	}
	if c.onObject != nil {
		var v R
		if err := json.Unmarshal(response.Body, &v); err != nil {
			c.dispatchError(fmt.Errorf("cannot decode %T: %w", v, err))
		} else {
			c.onObject(v)
		}
	}
	if c.onStatusCode != nil {
		c.onStatusCode(response.StatusCode)
	}
}

// decodeDocument decodes a body into a generic JSON document tree.
// An object body keeps its key order as *orderedmap.OrderedMap,
// an array decodes to []any and a scalar to the matching Go value.
func decodeDocument(body []byte) (any, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		doc := orderedmap.New()
		if err := json.Unmarshal(body, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// dispatchError invokes the error consumer.
// If none is registered, the error is dropped, callers opting out of error
// handling accept silent failure.
func (c callbacks[R]) dispatchError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}
