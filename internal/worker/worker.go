package worker

import "fmt"

type Worker struct {
	id         int64
	pool       *jobChannelPool
	jobChannel chan Job
}

func NewWorker(id int64, pool *jobChannelPool) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
			job := <-w.jobChannel
			if job.Type == Stop {
				w.pool.retire(w.jobChannel)
				debugLog("worker stopped", "worker", w.id)
				return
			}
			w.run(job)
		}
	}()
}

func (w *Worker) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			job.done <- fmt.Errorf("worker-%d: task panicked: %v", w.id, r)
		}
	}()
	if err := job.ctx.Err(); err != nil {
		job.done <- err
		return
	}
	job.done <- job.task(job.ctx)
}
