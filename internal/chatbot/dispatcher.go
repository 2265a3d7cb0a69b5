package chatbot

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/patric-chuzhbe/linkshrt/internal/logger"
)

// ErrQueueFull is returned by EnqueueJob when every worker is busy and the queue is at capacity.
var ErrQueueFull = errors.New("the command queue is full")

// ErrDispatcherStopped is returned by EnqueueJob after Stop.
var ErrDispatcherStopped = errors.New("the command dispatcher is stopped")

// Job is a deferred slash command waiting for its follow-up reply.
type Job struct {
	Interaction *discordgo.Interaction
	OriginalURL string
	CustomURL   string
}

// Dispatcher runs jobs on a fixed set of workers, away from the gateway event loop.
type Dispatcher struct {
	queue        chan *Job
	errorChannel chan error
	workers      int
	handle       func(ctx context.Context, job *Job) error

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(
	workers int,
	channelCapacity int,
	handle func(ctx context.Context, job *Job) error,
) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if channelCapacity < 0 {
		channelCapacity = 0
	}

	return &Dispatcher{
		queue:        make(chan *Job, channelCapacity),
		errorChannel: make(chan error, channelCapacity+workers),
		workers:      workers,
		handle:       handle,
	}
}

// ListenErrors passes every job failure to callback until the dispatcher is stopped.
func (d *Dispatcher) ListenErrors(callback func(error)) {
	go func() {
		for err := range d.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the workers. They exit once Stop has closed the queue and every
// queued job is handled. ctx is handed to each job.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()

			for job := range d.queue {
				if err := d.handle(ctx, job); err != nil {
					d.reportError(err)
				}
			}
		}()
	}
}

func (d *Dispatcher) reportError(err error) {
	select {
	case d.errorChannel <- err:
	default:
		logger.Log.Warnln("dropping a command dispatcher error, nobody listens:", err)
	}
}

// EnqueueJob hands the job to a worker without blocking the caller.
func (d *Dispatcher) EnqueueJob(job *Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets the workers drain the queue and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errorChannel)
}
