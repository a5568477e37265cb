package client_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/jhoughjr/go-request/pkg/client"
	"github.com/jhoughjr/go-request/pkg/param"
)

func TestNew(t *testing.T) {
	t.Parallel()
	c := New()
	assert.NotNil(t, c)
}

func TestSend(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(200, "test"))

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)

	response, err := c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.Equal(t, 200, response.StatusCode)
	assert.Equal(t, []byte("test"), response.Body)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestSend_ErrorStatusIsNotAnError(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(404, "not found"))

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)

	// The status code is data for the consumers, not a transport error
	response, err := c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.Equal(t, 404, response.StatusCode)
	assert.Equal(t, []byte("not found"), response.Body)
}

func TestSend_TransportError(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	c = c.WithRetry(NoRetry())
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewErrorResponder(assert.AnError))

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)

	response, err := c.Send(context.Background(), descriptor, config)
	require.Error(t, err)
	assert.Nil(t, response)
	assert.Contains(t, err.Error(), `request GET "https://example.com" failed`)
}

func TestSend_RequestHeaders(t *testing.T) {
	t.Parallel()
	var got http.Header
	c, transport := NewMockedClient()
	c = c.WithHeader("X-Common", "common").WithUserAgent("my-agent")
	transport.RegisterResponder("GET", `https://example.com`, func(req *http.Request) (*http.Response, error) {
		got = req.Header.Clone()
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	descriptor, config, err := param.Fold(param.Group(
		param.Get("https://example.com"),
		param.Header("X-One", "1"),
		param.Header("X-One", "2"),
		param.Header("X-Common", "descriptor wins"),
		param.SessionHeader("X-Session", "yes"),
	))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)

	// Duplicate descriptor fields are preserved on the wire
	assert.Equal(t, []string{"1", "2"}, got.Values("X-One"))
	// Descriptor headers take precedence over common headers
	assert.Equal(t, []string{"descriptor wins"}, got.Values("X-Common"))
	// Session default headers are applied
	assert.Equal(t, "yes", got.Get("X-Session"))
	assert.Equal(t, "my-agent", got.Get("User-Agent"))
}

func TestSend_CachePolicy(t *testing.T) {
	t.Parallel()
	var got http.Header
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(req *http.Request) (*http.Response, error) {
		got = req.Header.Clone()
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	descriptor, config, err := param.Fold(param.Group(
		param.Get("https://example.com"),
		param.CachePolicy(param.PolicyNoCache),
	))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
}

func TestSend_GzipResponse(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("compressed content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(req *http.Request) (*http.Response, error) {
		res := httpmock.NewBytesResponse(200, buf.Bytes())
		res.Header.Set("Content-Encoding", "gzip")
		return res, nil
	})

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)

	response, err := c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed content"), response.Body)
}

func TestSend_Retry(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	retry := TestingRetry()
	retry.Count = 3
	c = c.WithRetry(retry)
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(504, "timeout"))

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)

	response, err := c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.Equal(t, 504, response.StatusCode)
	// Initial attempt + 3 retries
	assert.Equal(t, 4, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestSend_Trace(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(200, "test"))

	var gotRequest, processed bool
	var bodyBytes int64
	c = c.WithTrace(func() *Trace {
		tr := &Trace{}
		tr.GotRequest = func(descriptor *param.Descriptor) {
			gotRequest = true
		}
		tr.GotResponseBody = func(bytes int64, err error) {
			bodyBytes = bytes
		}
		tr.RequestProcessed = func(response *param.Response, err error) {
			processed = true
		}
		return tr
	})

	descriptor, config, err := param.Fold(param.Get("https://example.com"))
	require.NoError(t, err)
	_, err = c.Send(context.Background(), descriptor, config)
	require.NoError(t, err)
	assert.True(t, gotRequest)
	assert.True(t, processed)
	assert.Equal(t, int64(len("test")), bodyBytes)
}

func TestSend_SessionTimeout(t *testing.T) {
	t.Parallel()
	c, transport := NewMockedClient()
	c = c.WithRetry(NoRetry())
	transport.RegisterResponder("GET", `https://example.com`, func(req *http.Request) (*http.Response, error) {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(5 * time.Second):
			return httpmock.NewStringResponse(200, "too late"), nil
		}
	})

	descriptor, config, err := param.Fold(param.Group(
		param.Get("https://example.com"),
		param.Timeout(10*time.Millisecond),
	))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Send(context.Background(), descriptor, config)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, err.Error(), "timeout")
}
