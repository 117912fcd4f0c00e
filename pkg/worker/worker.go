package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/nimasrn/pos-ledger/pkg/logger"
)

var ErrStopped = errors.New("worker manager stopped")

type WorkerHandler = func(ctx context.Context, workerIndex int, job interface{})

// WorkerManager fans jobs out to a fixed pool of goroutines. Jobs are taken
// from a buffered channel; Exit stops the pool after in-flight jobs finish.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	ctx            context.Context
	cancel         context.CancelFunc
	waiter         sync.WaitGroup
	startOnce      sync.Once
}

func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		jobChannel:     make(chan interface{}, bufferSize),
		numberOfWorker: numberOfWorkers,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks while the buffer is full.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) error {
	if w.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case <-w.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case w.jobChannel <- val:
		return nil
	}
}

// Start launches the workers and returns immediately.
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}
	w.startOnce.Do(func() {
		w.waiter.Add(w.numberOfWorker)
		for i := 0; i < w.numberOfWorker; i++ {
			go w.run(i)
		}
	})
	return nil
}

func (w *WorkerManager) run(index int) {
	defer w.waiter.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job := <-w.jobChannel:
			w.do(w.ctx, index, job)
		}
	}
}

func (w *WorkerManager) Exit() {
	logger.Info("worker manager shutting down", "workers", w.numberOfWorker, "unread", w.GetUnreadCount())
	w.cancel()
	w.waiter.Wait()
}
