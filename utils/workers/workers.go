package workers

import (
	"errors"
	"sync"
)

var (
	// ErrTerminated is returned by Enqueue after the quit channel is closed.
	ErrTerminated = errors.New("terminated")
	// ErrFull is returned by TryEnqueue when the queue is at capacity.
	ErrFull = errors.New("queue is full")
)

// Workers is a bounded queue of tasks executed by a fixed set of goroutines.
// With Start(1) it acts as a single-writer serialization point.
type Workers struct {
	quit  chan struct{}
	wg    *sync.WaitGroup
	tasks chan func()
}

func New(wg *sync.WaitGroup, quit chan struct{}, maxTasks int) *Workers {
	return &Workers{
		tasks: make(chan func(), maxTasks),
		quit:  quit,
		wg:    wg,
	}
}

func (w *Workers) Start(workersN int) {
	for i := 0; i < workersN; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			worker(w.tasks, w.quit)
		}()
	}
}

// Enqueue blocks until the task is accepted or the pool is terminated.
func (w *Workers) Enqueue(fn func()) error {
	select {
	case <-w.quit:
		return ErrTerminated
	default:
	}
	select {
	case w.tasks <- fn:
		return nil
	case <-w.quit:
		return ErrTerminated
	}
}

// TryEnqueue never blocks. Callers on a latency-critical path use it and
// drop the work on ErrFull.
func (w *Workers) TryEnqueue(fn func()) error {
	select {
	case <-w.quit:
		return ErrTerminated
	default:
	}
	select {
	case w.tasks <- fn:
		return nil
	default:
		return ErrFull
	}
}

func (w *Workers) Drain() {
	for {
		select {
		case <-w.tasks:
			continue
		default:
			return
		}
	}
}

func (w *Workers) TasksCount() int {
	return len(w.tasks)
}

func worker(tasksC <-chan func(), quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case job := <-tasksC:
			job()
		}
	}
}
