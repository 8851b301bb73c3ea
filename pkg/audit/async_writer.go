package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// AsyncOptions tunes AsyncWriter batching. Zero values take defaults.
type AsyncOptions struct {
	BufferSize     int           // events queued before writes turn synchronous
	BatchSize      int           // events per storage call
	BatchTimeout   time.Duration // max wait for a partial batch
	StorageTimeout time.Duration // per-batch storage deadline
}

func (o *AsyncOptions) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
}

// AsyncWriter is a Storage that queues events and flushes them to the
// underlying Storage in batches from a background goroutine. StoreEvents
// returns once the events are queued; flush failures are logged. When the
// queue is full events are written synchronously instead of being dropped.
type AsyncWriter struct {
	storage Storage
	opts    AsyncOptions
	log     *slog.Logger

	queue chan Event
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	mu    sync.RWMutex
}

// NewAsyncWriter starts the flush goroutine. Call Close to drain it.
func NewAsyncWriter(storage Storage, opts AsyncOptions, log *slog.Logger) *AsyncWriter {
	if storage == nil {
		panic("audit: storage is required")
	}
	if log == nil {
		log = logger.Noop()
	}
	opts.setDefaults()

	w := &AsyncWriter{
		storage: storage,
		opts:    opts,
		log:     log,
		queue:   make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *AsyncWriter) StoreEvents(ctx context.Context, events []Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	select {
	case <-w.done:
		return ErrStorageNotAvailable
	default:
	}

	for i, ev := range events {
		select {
		case w.queue <- ev:
		default:
			return w.storage.StoreEvents(ctx, events[i:])
		}
	}
	return nil
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	batch := make([]Event, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// request contexts are gone by now
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.StorageTimeout)
		defer cancel()
		if err := w.storage.StoreEvents(ctx, batch); err != nil {
			w.log.ErrorContext(ctx, "audit flush failed",
				logger.Component("audit"),
				slog.Int("events", len(batch)),
				logger.Error(err),
			)
		}
		batch = make([]Event, 0, w.opts.BatchSize)
	}

	for {
		select {
		case ev, ok := <-w.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= w.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops accepting events and waits until queued ones are flushed or
// ctx ends.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.once.Do(func() {
		close(w.done)
		// wait for in-flight StoreEvents before closing the queue
		w.mu.Lock()
		close(w.queue)
		w.mu.Unlock()
	})

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
