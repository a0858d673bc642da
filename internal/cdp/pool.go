package cdp

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// errPoolStopped is returned by submit after stop.
var errPoolStopped = errors.New("cdp: worker pool stopped")

// workerPool runs listener deliveries and async command completions on a
// fixed set of goroutines, separate from the read loop. A panicking task is
// recovered and logged; the worker keeps running.
type workerPool struct {
	tasks  chan func()
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func newWorkerPool(workers int, logger *slog.Logger) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &workerPool{
		tasks:  make(chan func(), workers*64),
		logger: logger,
	}
	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	return p
}

func (p *workerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *workerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}

// submit queues a task. It blocks while the queue is full and fails once the
// pool has been stopped.
func (p *workerPool) submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return errPoolStopped
	}
	p.tasks <- task
	return nil
}

// stop refuses new tasks, lets queued tasks finish, and waits for workers.
func (p *workerPool) stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
