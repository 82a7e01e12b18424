package worker

import "context"

type JobType int

const (
	Run JobType = iota
	Stop
)

func (t JobType) String() string {
	switch t {
	case Run:
		return "run"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Task is a unit of blocking work executed on a pooled worker.
type Task func(ctx context.Context) error

type Job struct {
	Type JobType
	ctx  context.Context
	task Task
	done chan error
}
