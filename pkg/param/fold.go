package param

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMissingTarget is reported by Fold when the tree contains no URL node.
var ErrMissingTarget = errors.New("request target is not set, use the URL param")

// BuildError wraps errors caused by a malformed param tree.
// It is detected at Fold time, before any network activity.
type BuildError struct {
	err error
}

func (e *BuildError) Error() string {
	return e.err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.err
}

// foldState is the in-progress result of a tree traversal.
type foldState struct {
	descriptor Descriptor
	config     SessionConfig
	hasTarget  bool
}

func (s *foldState) setTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return &BuildError{err: fmt.Errorf(`url "%s" is not valid: %w`, target, err)}
	}
	if !u.IsAbs() {
		return &BuildError{err: fmt.Errorf(`url "%s" is not absolute`, target)}
	}
	s.descriptor.Target = u
	s.hasTarget = true
	return nil
}

// Fold reduces a param tree to a request Descriptor and a SessionConfig.
// Nodes are applied depth-first, left-to-right, in declaration order.
// Dynamic nodes, for example HeaderFunc and TokenSource, are re-evaluated
// on every call, Fold never caches.
func Fold(root Param) (*Descriptor, SessionConfig, error) {
	s := &foldState{}
	if root != nil {
		if err := root.apply(s); err != nil {
			return nil, SessionConfig{}, err
		}
	}
	if !s.hasTarget {
		return nil, SessionConfig{}, &BuildError{err: ErrMissingTarget}
	}
	if s.descriptor.Method == "" {
		s.descriptor.Method = defaultMethod
	}
	return &s.descriptor, s.config, nil
}
