package storage

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/bassista/go_relboard/internal/logger"
)

type writeJob struct {
	ctx  context.Context
	op   func(ctx context.Context) error
	done chan error
}

// WriteSerializer runs write operations one at a time, in submission order.
// Jobs are appended to a FIFO queue drained by a single goroutine, so
// submitting never runs a job on the caller's stack.
type WriteSerializer struct {
	mu      sync.Mutex
	queue   []*writeJob
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
}

// NewWriteSerializer starts the drain loop. Call Close to stop it.
func NewWriteSerializer() *WriteSerializer {
	s := &WriteSerializer{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Do queues op and waits for it to finish, returning exactly op's error.
// op receives ctx; a job whose ctx is already done when its turn comes is
// skipped and reports ctx.Err().
func (s *WriteSerializer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	job := &writeJob{ctx: ctx, op: op, done: make(chan error, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSerializerClosed
	}
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return <-job.done
}

// Pending returns the number of queued jobs not yet started.
func (s *WriteSerializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close rejects new jobs, lets the queued ones finish and stops the loop.
func (s *WriteSerializer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.stopped
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.stopped
}

func (s *WriteSerializer) loop() {
	defer close(s.stopped)
	for {
		job, closed := s.next()
		if job == nil {
			if closed {
				return
			}
			<-s.wake
			continue
		}
		job.done <- run(job)
	}
}

func (s *WriteSerializer) next() (*writeJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, s.closed
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return job, s.closed
}

// run executes one job; a panic becomes that job's error so the queue keeps moving.
func run(job *writeJob) (err error) {
	if err := job.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithComponent("write-lock").Errorf("write job panicked: %v\n%s", rec, debug.Stack())
			err = fmt.Errorf("write job panicked: %v", rec)
		}
	}()
	return job.op(job.ctx)
}
