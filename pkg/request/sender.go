package request

import (
	"context"

	"github.com/jhoughjr/go-request/pkg/param"
)

// Sender represents an HTTP client, the client.Client is a default implementation
// using the standard net/http package.
type Sender interface {
	// Send performs one request defined by the descriptor and the session config.
	// It returns the fully read response, or a transport error.
	Send(ctx context.Context, descriptor *param.Descriptor, config param.SessionConfig) (*param.Response, error)
}

// Sendable is a Request or another sendable value, see RunGroup and WaitGroup.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// ReqDefinitionError can be used as the Sendable interface.
// So the error will be returned when you try to send the request.
// This simplifies usage, the error is checked only once, in one place.
type ReqDefinitionError struct {
	error
}

func NewReqDefinitionError(err error) Sendable {
	return ReqDefinitionError{error: err}
}

func (v ReqDefinitionError) SendOrErr(_ context.Context) error {
	return v
}

func (v ReqDefinitionError) Unwrap() error {
	return v.error
}
