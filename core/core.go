package core

import "context"

// Worker is a long-running background component started by the run command.
type Worker interface {
	Run(ctx context.Context) error
}

// IdleWorker blocks until the context is canceled. Modules without a
// background loop return it from their constructors.
type IdleWorker struct{}

func (IdleWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
