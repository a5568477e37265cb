package param_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jhoughjr/go-request/pkg/param"
)

func TestFold_MissingTarget(t *testing.T) {
	t.Parallel()
	_, _, err := param.Fold(param.Group(param.Method(http.MethodGet), param.Header("X-Foo", "bar")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, param.ErrMissingTarget))
	buildErr := &param.BuildError{}
	assert.True(t, errors.As(err, &buildErr))
}

func TestFold_EmptyTree(t *testing.T) {
	t.Parallel()
	_, _, err := param.Fold(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, param.ErrMissingTarget))
}

func TestFold_RelativeURL(t *testing.T) {
	t.Parallel()
	_, _, err := param.Fold(param.URL("/todos"))
	require.Error(t, err)
	buildErr := &param.BuildError{}
	assert.True(t, errors.As(err, &buildErr))
	assert.False(t, errors.Is(err, param.ErrMissingTarget))
}

func TestFold_Example(t *testing.T) {
	t.Parallel()
	descriptor, config, err := param.Fold(param.Group(
		param.URL("https://api.example.com/todos"),
		param.Method(http.MethodGet),
	))
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, descriptor.Method)
	assert.Equal(t, "https://api.example.com/todos", descriptor.Target.String())
	assert.Empty(t, descriptor.Headers)
	assert.Empty(t, descriptor.Body)
	assert.Equal(t, param.SessionConfig{}, config)
	assert.Equal(t, "https://api.example.com/todos", descriptor.Key())
}

func TestFold_DefaultMethod(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.URL("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, descriptor.Method)
}

func TestFold_MethodShortcuts(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Post("https://example.com/items"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, descriptor.Method)
	assert.Equal(t, "https://example.com/items", descriptor.Target.String())
}

func TestFold_HeaderOrder(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Get("https://example.com"),
		param.Header("X-One", "1"),
		param.Header("X-Two", "2"),
		param.Header("X-One", "override"),
	))
	require.NoError(t, err)

	// Insertion order is preserved, nothing is discarded
	assert.Equal(t, []param.HeaderField{
		{Name: "X-One", Value: "1"},
		{Name: "X-Two", Value: "2"},
		{Name: "X-One", Value: "override"},
	}, descriptor.Headers)

	// The last value for a name is authoritative
	assert.Equal(t, "override", descriptor.HeaderValue("X-One"))
	assert.Equal(t, "override", descriptor.HeaderValue("x-one"))
	assert.Equal(t, "2", descriptor.HeaderValue("X-Two"))
	assert.Equal(t, "", descriptor.HeaderValue("X-Missing"))
}

func TestFold_AuthorizationPrecedence(t *testing.T) {
	t.Parallel()

	// The injected node goes before the existing tree,
	// so a tree that sets its own Authorization header wins.
	tree := param.Group(
		param.Get("https://example.com"),
		param.Header("Authorization", "tree-token"),
	)
	descriptor, _, err := param.Fold(param.Group(param.Authorization("injected-token"), tree))
	require.NoError(t, err)
	assert.Equal(t, "tree-token", descriptor.HeaderValue("Authorization"))
	assert.Len(t, descriptor.Headers, 2)

	// Without a conflict, the injected node is authoritative
	descriptor, _, err = param.Fold(param.Group(param.Authorization("injected-token"), param.Get("https://example.com")))
	require.NoError(t, err)
	assert.Equal(t, "injected-token", descriptor.HeaderValue("Authorization"))
}

func TestFold_HeaderFunc(t *testing.T) {
	t.Parallel()
	value := "first"
	tree := param.Group(
		param.Get("https://example.com"),
		param.HeaderFunc("X-Dynamic", func() string { return value }),
	)

	descriptor, _, err := param.Fold(tree)
	require.NoError(t, err)
	assert.Equal(t, "first", descriptor.HeaderValue("X-Dynamic"))

	// Re-fold picks up the current value
	value = "second"
	descriptor, _, err = param.Fold(tree)
	require.NoError(t, err)
	assert.Equal(t, "second", descriptor.HeaderValue("X-Dynamic"))
}

func TestFold_TokenSource(t *testing.T) {
	t.Parallel()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"})
	descriptor, _, err := param.Fold(param.Group(param.TokenSource(ts), param.Get("https://example.com")))
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", descriptor.HeaderValue("Authorization"))
}

func TestFold_Query(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Get("https://example.com/search"),
		param.Query("q", "foo"),
		param.Query("page", 2),
		param.Query("exact", true),
	))
	require.NoError(t, err)
	assert.Equal(t, []param.QueryItem{
		{Name: "q", Value: "foo"},
		{Name: "page", Value: "2"},
		{Name: "exact", Value: "true"},
	}, descriptor.Query)
	// Declaration order is kept on the wire
	assert.Equal(t, "https://example.com/search?q=foo&page=2&exact=true", descriptor.URL().String())
	// The target itself stays untouched
	assert.Equal(t, "https://example.com/search", descriptor.Target.String())
}

func TestFold_QueryAfterTargetQuery(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Get("https://example.com/search?fixed=1"),
		param.Query("zeta", "z"),
		param.Query("alpha", "a b"),
	))
	require.NoError(t, err)

	// Folded items follow the query already present in the target,
	// in declaration order, values are escaped
	assert.Equal(t, "https://example.com/search?fixed=1&zeta=z&alpha=a+b", descriptor.URL().String())
}

func TestFold_JSONBody(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Post("https://example.com"),
		param.JSONBody(map[string]any{"foo": "bar"}),
	))
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar"}`, string(descriptor.Body))
	assert.Equal(t, "application/json", descriptor.HeaderValue("Content-Type"))
}

func TestFold_FormBody(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Post("https://example.com"),
		param.FormBody(map[string]string{"foo": "bar baz"}),
	))
	require.NoError(t, err)
	assert.Equal(t, "foo=bar+baz", string(descriptor.Body))
	assert.Equal(t, "application/x-www-form-urlencoded", descriptor.HeaderValue("Content-Type"))
}

func TestFold_SessionConfig(t *testing.T) {
	t.Parallel()
	descriptor, config, err := param.Fold(param.Group(
		param.Get("https://example.com"),
		param.Timeout(10*time.Second),
		param.CachePolicy(param.PolicyNoCache),
		param.SessionHeader("X-Session", "yes"),
	))
	require.NoError(t, err)

	// Session options fold to the config, not to the descriptor
	assert.Empty(t, descriptor.Headers)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, param.PolicyNoCache, config.CachePolicy)
	assert.Equal(t, "yes", config.Header.Get("X-Session"))
}

func TestFold_NestedGroups(t *testing.T) {
	t.Parallel()
	descriptor, _, err := param.Fold(param.Group(
		param.Group(param.Header("X-Order", "1")),
		param.Group(
			param.Group(param.Header("X-Order", "2"), param.URL("https://example.com")),
			param.Header("X-Order", "3"),
		),
	))
	require.NoError(t, err)
	assert.Equal(t, []param.HeaderField{
		{Name: "X-Order", Value: "1"},
		{Name: "X-Order", Value: "2"},
		{Name: "X-Order", Value: "3"},
	}, descriptor.Headers)
	assert.Equal(t, "3", descriptor.HeaderValue("X-Order"))
}
