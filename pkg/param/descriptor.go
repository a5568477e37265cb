package param

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultMethod = http.MethodGet

// HeaderField is one header name-value pair.
type HeaderField struct {
	Name  string
	Value string
}

// QueryItem is one query string name-value pair.
type QueryItem struct {
	Name  string
	Value string
}

// Descriptor is the canonical result of folding a param tree.
// It is a plain comparable value, two descriptors folded from equivalent
// trees are deeply equal.
type Descriptor struct {
	// Method is the HTTP method, GET if no Method node was present.
	Method string
	// Target is the absolute URL from the URL node.
	Target *url.URL
	// Headers keeps all folded header fields in declaration order.
	// The last value for a name is authoritative, see HeaderValue,
	// earlier values are kept and sent too.
	Headers []HeaderField
	// Query keeps all folded query items in declaration order.
	Query []QueryItem
	// Body is the request body, it may be empty.
	Body []byte
}

// HeaderValue returns the authoritative value for a header name,
// it is the last folded value. It returns "" if the name is not present.
func (d *Descriptor) HeaderValue(name string) string {
	for i := len(d.Headers) - 1; i >= 0; i-- {
		if strings.EqualFold(d.Headers[i].Name, name) {
			return d.Headers[i].Value
		}
	}
	return ""
}

// URL returns the target with the folded query items appended.
// Items are encoded in declaration order, after any query already present
// in the target URL.
func (d *Descriptor) URL() *url.URL {
	clone := *d.Target
	if len(d.Query) > 0 {
		var sb strings.Builder
		sb.WriteString(clone.RawQuery)
		for _, item := range d.Query {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(item.Name))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(item.Value))
		}
		clone.RawQuery = sb.String()
	}
	return &clone
}

// Key returns a stable identifier derived from the folded method and target.
// Two requests with the same method and target share the key, the body and
// headers are intentionally ignored, it is a weak identity for UI lists
// and deduplication maps. GET is the default method and is omitted.
func (d *Descriptor) Key() string {
	if d.Method == "" || d.Method == defaultMethod {
		return d.URL().String()
	}
	return d.Method + " " + d.URL().String()
}

// ToHTTPRequest converts the descriptor to a standard HTTP request.
// All header fields are added in declaration order, so duplicates are
// preserved on the wire.
func (d *Descriptor) ToHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body *bytes.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL().String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, d.Method, d.URL().String(), body)
	}
	if err != nil {
		return nil, err
	}

	for _, field := range d.Headers {
		req.Header.Add(field.Name, field.Value)
	}
	return req, nil
}

// Policy defines the session cache policy, see the CachePolicy param.
type Policy int

const (
	// PolicyDefault uses the protocol cache policy.
	PolicyDefault Policy = iota
	// PolicyNoCache bypasses caches, the transport sends "Cache-Control: no-cache".
	PolicyNoCache
	// PolicyCacheElseLoad prefers cached data regardless of its age.
	PolicyCacheElseLoad
)

// SessionConfig holds transport-level options folded from session params.
// It is independent from the Descriptor, but folded in the same traversal.
// The zero value is a valid configuration.
type SessionConfig struct {
	// Header are session default headers, applied before the Descriptor headers.
	Header http.Header
	// Timeout is the total request timeout, 0 means the transport default.
	Timeout time.Duration
	// CachePolicy defines how caching transports should treat the request.
	CachePolicy Policy
}

// Response is the result of one executed request.
type Response struct {
	// StatusCode is the HTTP response status code.
	StatusCode int
	// Header are the HTTP response headers.
	Header http.Header
	// Body is the fully read, content-decoded response body.
	Body []byte
}

// IsSuccess returns true if the status code >= 200 and <= 299.
func (r *Response) IsSuccess() bool {
	return r.StatusCode > 199 && r.StatusCode < 300
}

// IsError returns true if the status code >= 400.
func (r *Response) IsError() bool {
	return r.StatusCode > 399
}
