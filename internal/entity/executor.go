package entity

import "context"

// Executor runs a command serialized with the host's poll loop. Entities
// keep no locks of their own; the host guarantees that updates and commands
// never run at the same time.
type Executor interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// DirectExecutor runs commands inline, for hosts (and tests) that are
// already single-threaded.
type DirectExecutor struct{}

func (DirectExecutor) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
