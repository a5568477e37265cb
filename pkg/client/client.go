// Package client provides a configurable HTTP client for executing folded requests.
//
// Client is a default implementation of the request.Sender interface.
// It is based on the standard net/http package and contains retry and trace support.
// It is easy to implement a custom client by implementing the Sender interface.
//
// The Client never interprets the response body, it returns the raw bytes,
// the status code and the headers. Mapping to consumer types is done
// by the request package dispatcher.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoughjr/go-request/pkg/client/counter"
	"github.com/jhoughjr/go-request/pkg/client/decode"
	"github.com/jhoughjr/go-request/pkg/param"
)

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// It supports retry and tracing.
type Client struct {
	transport    http.RoundTripper
	header       http.Header
	retry        RetryConfig
	traceFactory TraceFactory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), retry: DefaultRetry()}
	c.header.Set("User-Agent", "go-request")
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	c.header = c.header.Clone()
	c.header.Set("User-Agent", v)
	return c
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil || transport == http.RoundTripper(nil) {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithRetry returns a clone of the Client with retry config set.
func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// WithTrace returns a clone of the Client with Trace hooks set.
func (c Client) WithTrace(fn TraceFactory) Client {
	c.traceFactory = fn
	return c
}

// Send performs one request defined by the descriptor and the session config.
// It implements the request.Sender interface.
// The response body is fully read and content-decoded before return.
func (c Client) Send(ctx context.Context, descriptor *param.Descriptor, config param.SessionConfig) (out *param.Response, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// Init trace
	var trace *Trace
	if c.traceFactory != nil {
		trace = c.traceFactory()
		if trace != nil {
			ctx = httptrace.WithClientTrace(ctx, &trace.ClientTrace)
		}
	}

	// Trace got request
	if trace != nil && trace.GotRequest != nil {
		trace.GotRequest(descriptor)
	}

	// Create request, descriptor headers are added in declaration order
	req, err := descriptor.ToHTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	// Common and session default headers, a descriptor header with the same name takes precedence
	applyDefaultHeaders(req, c.header)
	applyDefaultHeaders(req, config.Header)
	applyCachePolicy(req, config.CachePolicy)

	// Total timeout, the session config takes precedence
	timeout := config.Timeout
	if timeout == 0 {
		timeout = c.retry.TotalRequestTimeout
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout:   timeout,
		Transport: roundTripper{ctx: ctx, retry: c.retry, trace: trace, wrapped: c.transport}, // wrapped transport for trace/retry
	}

	// Send request
	startedAt := time.Now()
	res, err := nativeClient.Do(req)

	// Trace request processed
	if trace != nil && trace.RequestProcessed != nil {
		defer func() {
			trace.RequestProcessed(out, err)
		}()
	}

	// Handle send error
	if err != nil {
		return nil, handleSendError(startedAt, timeout, req, err)
	}
	defer res.Body.Close()

	// Process content encoding
	bodyReader, err := decode.Decode(res.Body, res.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), err)
	}

	// Read body, count decoded bytes for the trace
	var onBodyRead counter.OnClose
	if trace != nil && trace.GotResponseBody != nil {
		onBodyRead = trace.GotResponseBody
	}
	body := counter.NewReadCloser(bodyReader, onBodyRead)
	bodyBytes, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return nil, fmt.Errorf(`cannot read response body of request %s "%s": %w`, req.Method, req.URL.String(), err)
	}

	out = &param.Response{StatusCode: res.StatusCode, Header: res.Header, Body: bodyBytes}
	return out, nil
}

func applyDefaultHeaders(req *http.Request, defaults http.Header) {
	for k, values := range defaults {
		if len(req.Header.Values(k)) > 0 {
			continue
		}
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
}

func applyCachePolicy(req *http.Request, policy param.Policy) {
	if req.Header.Get("Cache-Control") != "" {
		return
	}
	switch policy {
	case param.PolicyNoCache:
		req.Header.Set("Cache-Control", "no-cache")
	case param.PolicyCacheElseLoad:
		req.Header.Set("Cache-Control", "max-stale")
	case param.PolicyDefault:
		// protocol default, nothing to set
	}
}

func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			err = urlError(req, fmt.Errorf("timeout after %s", clientTimeout))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

// roundTripper wraps a http.RoundTripper and adds trace and retry functionality.
type roundTripper struct {
	ctx     context.Context
	trace   *Trace
	retry   RetryConfig
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	attempt := 0
	for {
		// Trace request start
		if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
			rt.trace.HTTPRequestStart(req)
		}

		// Send
		res, err := rt.wrapped.RoundTrip(req)

		// Trace request done
		if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, err)
		}

		// Check if we should retry
		if rt.retry.Condition == nil || !rt.retry.Condition(res, err) || attempt >= rt.retry.Count {
			// No retry
			return res, err
		}

		// Get next delay
		delay := state.NextBackOff()
		if delay == backoff.Stop {
			// Stop
			return res, err
		}

		// Trace retry
		attempt++
		if rt.trace != nil && rt.trace.HTTPRequestRetry != nil {
			rt.trace.HTTPRequestRetry(attempt, delay)
		}

		// Rewind body before retry
		if req.GetBody != nil {
			req.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w", err)
			}
		}

		// Wait
		select {
		case <-req.Context().Done():
			// context is canceled
			return nil, req.Context().Err()
		case <-time.NewTimer(delay).C:
			// time elapsed, retry
		}
	}
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
