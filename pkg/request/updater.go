package request

import (
	"context"
	"time"
)

// Source produces discrete trigger events until the context is done.
// Events are delivered to the merged stream as they occur, there is no
// ordering guarantee across sources and no buffering of missed events.
type Source func(ctx context.Context, events chan<- struct{})

// Every emits an event at a fixed interval.
func Every(interval time.Duration) Source {
	return func(ctx context.Context, events chan<- struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case events <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Stream emits an event for each value received from an externally driven channel.
// The source stops when the channel is closed or the context is done.
func Stream(ch <-chan struct{}) Source {
	return func(ctx context.Context, events chan<- struct{}) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case events <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Merge fans events from all sources into one stream.
// The returned channel is never closed, consumers must stop on ctx.
func Merge(ctx context.Context, sources ...Source) <-chan struct{} {
	events := make(chan struct{})
	for _, src := range sources {
		go src(ctx, events)
	}
	return events
}

// schedule runs the update loop, it re-runs the request for each merged event.
// The tree is re-folded fresh per event, so dynamic param values are
// re-evaluated, see param.HeaderFunc. Runs overlap when a trigger fires
// before the previous run completes, in-flight sends are not canceled.
func (r Request[R]) schedule(ctx context.Context) {
	events := Merge(ctx, r.sources...)
	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
			go func() {
				_ = r.SendOrErr(ctx)
			}()
		}
	}
}
