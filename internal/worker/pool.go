// Package worker implements the bounded background worker pool that runs
// Correlator and Architecture Tracker tasks without blocking the request
// or Watcher paths. Grounded on the shape of
// codeready-toolchain-tarsy's pkg/queue.WorkerPool (Start/Stop, per-worker
// goroutines, graceful drain), stripped of its session/database-specific
// orphan-recovery logic: tasks here are fire-and-forget per insert/event,
// not resumable sessions.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of background work. It receives a context that is
// cancelled when the pool is stopped.
type Task func(ctx context.Context)

// Pool is a fixed-size goroutine pool draining a buffered task channel.
type Pool struct {
	tasks    chan Task
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	log      *slog.Logger
}

// New creates a Pool with a task queue of capacity queueCapacity (size*4
// when queueCapacity is not positive). The worker count is the size passed
// to Start; nothing runs until Start is called.
func New(size, queueCapacity int, log *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = size * 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		tasks: make(chan Task, queueCapacity),
		log:   log,
	}
}

// Start spawns the worker goroutines. Safe to call once.
func (p *Pool) Start(parent context.Context, size int) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	if size <= 0 {
		size = 1
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.log.Info("worker pool started", "worker_count", size)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(ctx, task)
		}
	}
}

func (p *Pool) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker task panicked", "recover", r)
		}
	}()
	task(ctx)
}

// Submit enqueues task. If the queue is full, Submit blocks until a worker
// takes a task off the queue. The Ingest API's conversation insert and the
// Architecture-Tracker hook run from a Watcher's notification loop both
// call Submit directly, so a full queue stalls them.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

// Stop signals all workers to finish their current task and exit, then
// waits for them to return. Safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		close(p.tasks)
	})
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}
