// Package worker bounds how many uploads are processed at once. HTTP handlers
// submit work and wait for it; excess requests queue until a worker frees up
// or the request context ends.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrStopped = errors.New("worker pool stopped")

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

type Pool struct {
	jobs        chan job
	workerCount int
	log         *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPool(workerCount int, log *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		jobs:        make(chan job),
		workerCount: workerCount,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info("worker pool started", "workers", p.workerCount)
}

// Stop lets in-flight jobs finish and rejects new ones.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// Do runs fn on a pool worker and returns its error. It gives up with the
// context error if no worker picks the job up before ctx ends.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopChan:
		return ErrStopped
	}

	// the worker always answers, so waiting here cannot leak
	return <-j.done
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			p.log.Debug("worker shutting down", "worker", id)
			return
		case j := <-p.jobs:
			j.done <- p.run(id, j)
		}
	}
}

func (p *Pool) run(id int, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker recovered from panic", "worker", id, "panic", r)
			err = fmt.Errorf("worker %d: panic: %v", id, r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		return err
	}
	return j.fn(j.ctx)
}
