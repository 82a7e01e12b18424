package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrDispatcherBusy   = errors.New("dispatcher queue is full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

// Dispatcher runs blocking tasks on a bounded set of workers. Callers wait
// for their own task; a full queue is rejected instead of growing.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job

	quit      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	d := &Dispatcher{
		pool:     newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout),
		JobQueue: make(chan Job, cfg.QueueSize),
		quit:     make(chan struct{}),
	}

	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Do queues task and blocks until it finishes or ctx is done.
func (d *Dispatcher) Do(ctx context.Context, task Task) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}
	job := Job{Type: Run, ctx: ctx, task: task, done: make(chan error, 1)}
	select {
	case d.JobQueue <- job:
	default:
		return ErrDispatcherBusy
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) run() {
	for {
		select {
		case job := <-d.JobQueue:
			workerChan := d.pool.acquire()
			if workerChan == nil {
				job.done <- ErrDispatcherClosed
				continue
			}
			debugLog("dispatcher assigned job", "type", job.Type.String(), "worker", d.pool.workerID(workerChan))
			workerChan <- job
		case <-d.quit:
			for {
				select {
				case job := <-d.JobQueue:
					job.done <- ErrDispatcherClosed
				default:
					return
				}
			}
		}
	}
}

// Close rejects new work and stops the workers.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.quit)
		d.pool.close()
	})
}
