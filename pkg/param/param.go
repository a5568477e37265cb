// Package param provides declarative building blocks for HTTP requests.
//
// A request is described by a tree of Param nodes, see the constructors,
// for example URL, Method, Header, Query, JSONBody and Group.
// The tree is immutable, nodes are composed by value and can be shared freely.
//
// Use the Fold function to reduce a tree to a Descriptor and a SessionConfig.
// Nodes are applied depth-first, left-to-right, in declaration order.
package param

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/oauth2"
)

// Param is one atomic request-building instruction.
type Param interface {
	apply(s *foldState) error
}

// paramFunc implements the Param interface for leaf nodes.
type paramFunc func(s *foldState) error

func (fn paramFunc) apply(s *foldState) error {
	return fn(s)
}

// group implements the Param interface for an ordered list of child nodes.
type group []Param

func (g group) apply(s *foldState) error {
	for _, p := range g {
		if p == nil {
			continue
		}
		if err := p.apply(s); err != nil {
			return err
		}
	}
	return nil
}

// Group composes params to one ordered node.
func Group(params ...Param) Param {
	return group(params)
}

// URL sets the request target, it must be an absolute URL.
// A URL node must be present in the tree, otherwise Fold fails.
// If more nodes are present, the last folded one wins.
func URL(target string) Param {
	return paramFunc(func(s *foldState) error {
		return s.setTarget(target)
	})
}

// Method sets the HTTP method. If no Method node is present, GET is used.
func Method(method string) Param {
	return paramFunc(func(s *foldState) error {
		s.descriptor.Method = method
		return nil
	})
}

// Get is shortcut for Group(Method(http.MethodGet), URL(target)).
func Get(target string) Param {
	return Group(Method(http.MethodGet), URL(target))
}

// Post is shortcut for Group(Method(http.MethodPost), URL(target)).
func Post(target string) Param {
	return Group(Method(http.MethodPost), URL(target))
}

// Put is shortcut for Group(Method(http.MethodPut), URL(target)).
func Put(target string) Param {
	return Group(Method(http.MethodPut), URL(target))
}

// Delete is shortcut for Group(Method(http.MethodDelete), URL(target)).
func Delete(target string) Param {
	return Group(Method(http.MethodDelete), URL(target))
}

// Header appends a header field.
// Fields are folded in declaration order, the last value for a name is
// authoritative, earlier values are kept, see Descriptor.HeaderValue.
func Header(name, value string) Param {
	return paramFunc(func(s *foldState) error {
		s.descriptor.Headers = append(s.descriptor.Headers, HeaderField{Name: name, Value: value})
		return nil
	})
}

// HeaderFunc appends a header field with a dynamic value.
// The value function is called on every Fold, so a re-folded tree
// picks up the current value.
func HeaderFunc(name string, value func() string) Param {
	return paramFunc(func(s *foldState) error {
		s.descriptor.Headers = append(s.descriptor.Headers, HeaderField{Name: name, Value: value()})
		return nil
	})
}

// Authorization appends the Authorization header field.
func Authorization(value string) Param {
	return Header("Authorization", value)
}

// BearerToken appends the Authorization header field with a bearer token.
func BearerToken(token string) Param {
	return Authorization("Bearer " + token)
}

// TokenSource appends the Authorization header field from an OAuth2 token source.
// The token is obtained on every Fold, so an expired token is refreshed
// when the tree is re-folded.
func TokenSource(ts oauth2.TokenSource) Param {
	return paramFunc(func(s *foldState) error {
		token, err := ts.Token()
		if err != nil {
			return fmt.Errorf("cannot get token: %w", err)
		}
		value := token.Type() + " " + token.AccessToken
		s.descriptor.Headers = append(s.descriptor.Headers, HeaderField{Name: "Authorization", Value: value})
		return nil
	})
}

// Query appends a query string item, the value is cast to a string.
func Query(name string, value any) Param {
	return paramFunc(func(s *foldState) error {
		str, err := cast.ToStringE(value)
		if err != nil {
			return fmt.Errorf(`cannot cast query param "%s" %T to string: %w`, name, value, err)
		}
		s.descriptor.Query = append(s.descriptor.Query, QueryItem{Name: name, Value: str})
		return nil
	})
}

// Body sets the raw request body.
func Body(body []byte) Param {
	return paramFunc(func(s *foldState) error {
		s.descriptor.Body = body
		return nil
	})
}

// StringBody sets the request body to a string.
func StringBody(body string) Param {
	return Body([]byte(body))
}

// JSONBody sets the request body to the JSON encoded value
// and appends the Content-Type header.
// The value is encoded on every Fold.
func JSONBody(body any) Param {
	return paramFunc(func(s *foldState) error {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode JSON body: %w", err)
		}
		s.descriptor.Body = data
		s.descriptor.Headers = append(s.descriptor.Headers, HeaderField{Name: "Content-Type", Value: "application/json"})
		return nil
	})
}

// FormBody sets the request body to form encoded values
// and appends the Content-Type header.
func FormBody(form map[string]string) Param {
	return paramFunc(func(s *foldState) error {
		s.descriptor.Body = []byte(encodeForm(form))
		s.descriptor.Headers = append(s.descriptor.Headers, HeaderField{Name: "Content-Type", Value: "application/x-www-form-urlencoded"})
		return nil
	})
}

// Timeout sets the session total request timeout.
// It is a session option, it folds to the SessionConfig, not to the Descriptor.
func Timeout(timeout time.Duration) Param {
	return paramFunc(func(s *foldState) error {
		s.config.Timeout = timeout
		return nil
	})
}

// CachePolicy sets the session cache policy.
// It is a session option, it folds to the SessionConfig, not to the Descriptor.
func CachePolicy(policy Policy) Param {
	return paramFunc(func(s *foldState) error {
		s.config.CachePolicy = policy
		return nil
	})
}

// SessionHeader sets a session default header.
// Session headers are applied by the transport before the Descriptor headers,
// so a Header node with the same name takes precedence.
func SessionHeader(name, value string) Param {
	return paramFunc(func(s *foldState) error {
		if s.config.Header == nil {
			s.config.Header = make(http.Header)
		}
		s.config.Header.Set(name, value)
		return nil
	})
}
