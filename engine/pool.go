package engine

import (
	"runtime"
	"sync"
)

// Job is a unit of work run by a ThreadPool.
type Job func()

// ThreadPool is a fixed set of worker goroutines consuming one FIFO queue.
// Execute never blocks: the queue grows as needed. Each time a worker
// finishes a job it posts a wake-up on Done, so a submitter can sleep until
// something changes and then re-check its own completion condition.
type ThreadPool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Job
	closed bool
	size   int
	done   chan struct{}
}

// NewThreadPool starts size workers. A size of 0 uses one worker per
// logical CPU.
func NewThreadPool(size int) *ThreadPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	pool := &ThreadPool{
		size: size,
		done: make(chan struct{}, 1),
	}
	pool.cond = sync.NewCond(&pool.mu)
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

// Size is the number of workers.
func (p *ThreadPool) Size() int {
	return p.size
}

// Execute queues a job and returns immediately.
func (p *ThreadPool) Execute(job Job) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("engine: execute on a closed thread pool")
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// Done receives a value after jobs complete. Wake-ups coalesce: one pending
// value may stand for several finished jobs.
func (p *ThreadPool) Done() <-chan struct{} {
	return p.done
}

// Close lets the workers exit once the queued jobs have run.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *ThreadPool) worker() {
	for {
		job, ok := p.next()
		if !ok {
			return
		}
		job()
		p.wake()
	}
}

func (p *ThreadPool) next() (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	job := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return job, true
}

func (p *ThreadPool) wake() {
	select {
	case p.done <- struct{}{}:
	default:
	}
}
