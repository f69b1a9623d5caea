package groutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"runtime/pprof"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// PanicError is what a worker's done callback receives when the worker panicked
type PanicError struct {
	Name  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Name, e.Value)
}

// Go starts a named, pprof-labelled goroutine.
// Example usage:
//
//	groutine.Go(ctx, "scan-worker", func(ctx context.Context) error {
//	    // work
//	}, func(err error) { ... })
//
// If parentCtx is nil, context.Background() is used. A panic in fn is
// recovered and reported to done as a *PanicError, so the process keeps
// running. done may be nil and runs on the worker goroutine.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context) error, done func(err error)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		ctx = context.WithValue(ctx, goroutineNameKey, name)

		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Name: name, Value: r, Stack: debug.Stack()}
			}
			if done != nil {
				done(err)
			}
		}()

		err = fn(ctx)
	})
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
