package pipeline

import "context"

// WorkerPool bounds the number of blocking operations running at once.
// Downloads and subprocess calls go through here so a slow transfer
// cannot stall metadata resolution for other requests.
type WorkerPool struct {
	sem chan struct{}
}

func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	return &WorkerPool{sem: make(chan struct{}, workers)}
}

// Do runs fn once a worker slot is free. The slot wait is cancellable;
// once fn starts it runs to completion and its error is returned as-is.
func (p *WorkerPool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}
