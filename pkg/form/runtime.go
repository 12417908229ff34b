package form

import (
	"context"
	"errors"
)

// Handler handles one lifecycle event.
type Handler func(ctx context.Context, ev *Event, page *Page) Result

// Runtime dispatches lifecycle events to the handlers registered for them.
// Registration must be finished before the first Dispatch.
type Runtime struct {
	handlers map[string][]Handler
}

func NewRuntime() *Runtime {
	return &Runtime{handlers: make(map[string][]Handler)}
}

// On registers h for every event type in types.
func (rt *Runtime) On(types []string, h Handler) {
	for _, t := range types {
		rt.handlers[t] = append(rt.handlers[t], h)
	}
}

// Dispatch runs the handlers of ev.Type in registration order, feeding
// each the event returned by the previous one. Handler errors are joined
// into the result; they never stop the chain.
func (rt *Runtime) Dispatch(ctx context.Context, ev *Event, page *Page) Result {
	res := Result{Event: ev}
	var errs []error
	for _, h := range rt.handlers[ev.Type] {
		r := h(ctx, res.Event, page)
		if r.Event != nil {
			res.Event = r.Event
		}
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	res.Err = errors.Join(errs...)
	return res
}

// DispatchAsync runs Dispatch in its own goroutine. The channel yields
// exactly one Result.
func (rt *Runtime) DispatchAsync(ctx context.Context, ev *Event, page *Page) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- rt.Dispatch(ctx, ev, page)
	}()
	return out
}

// Register wires the company selector handlers into rt.
func Register(rt *Runtime, h *Handlers) {
	rt.On(ShowEvents, h.Show)
	rt.On(SubmitEvents, h.Submit)
}
