// Package worker provides the bounded concurrency primitives shared by the
// extraction fan-out and the PDF download batch.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job hands back. Err distinguishes success from failure;
// concrete results carry whatever payload the submitter needs (chunk
// index, extracted facts, file path).
type Result interface {
	Err() error
}

// Pool runs jobs on a fixed number of workers. Usage is Start, Submit
// every job, then Wait: Wait returns one result per submitted job in
// completion order. A pool is single-use.
type Pool struct {
	workers int
	queue   chan Job
	out     chan Result
	results []Result
	done    chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPool creates a pool. Start must be called before Submit.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		queue:   make(chan Job, workers*2),
		out:     make(chan Result, workers*2),
		done:    make(chan struct{}),
	}
}

// Start launches the workers and the result collector. Jobs observe
// cancellation of ctx through the context passed to Execute.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	go p.collect()
}

// collect drains results as workers produce them, so Submit never
// deadlocks against a full output buffer no matter how many jobs are
// queued ahead of Wait.
func (p *Pool) collect() {
	for res := range p.out {
		p.results = append(p.results, res)
	}
	close(p.done)
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			res := job.Execute(p.ctx)
			select {
			case p.out <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job. Blocks when the queue is full; returns without
// enqueueing once the pool is cancelled.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.queue <- job:
	}
}

// Wait closes the queue, lets the workers finish and returns every result
// in completion order.
func (p *Pool) Wait() []Result {
	close(p.queue)
	p.wg.Wait()
	p.closeOut()
	<-p.done
	return p.results
}

// Shutdown cancels outstanding work and releases the workers. Safe to call
// after Wait.
func (p *Pool) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.closeOut()
}

func (p *Pool) closeOut() {
	p.once.Do(func() {
		close(p.out)
	})
}
