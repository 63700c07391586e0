package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifier/internal/events"
	"github.com/spec-kit/ticket-notifier/internal/service"
)

// Subscriber is the inbound event stream.
type Subscriber interface {
	Subscribe(subject, queue string, handler events.MessageHandler) (func(), error)
}

// Processor runs the notification pipeline for one raw message.
type Processor interface {
	Process(ctx context.Context, payload []byte) service.Outcome
}

// NotificationWorker feeds stream messages into the pipeline, one goroutine
// per message so a slow event never blocks the next one.
type NotificationWorker struct {
	subscriber Subscriber
	processor  Processor
	subject    string
	queue      string
	logger     *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	unsub    func()
	stopped  bool
	inflight sync.WaitGroup
}

// NewNotificationWorker creates the worker.
func NewNotificationWorker(subscriber Subscriber, processor Processor, subject, queue string, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		subscriber: subscriber,
		processor:  processor,
		subject:    subject,
		queue:      queue,
		logger:     logger.Named("worker"),
	}
}

// Start subscribes to the stream. Events are processed with a context derived
// from ctx until Stop is called.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unsub != nil {
		return errors.New("notification worker already started")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.stopped = false
	unsub, err := w.subscriber.Subscribe(w.subject, w.queue, w.HandleMessage)
	if err != nil {
		w.cancel()
		return fmt.Errorf("start notification worker: %w", err)
	}
	w.unsub = unsub
	w.logger.Info("notification worker started", zap.String("subject", w.subject), zap.String("queue", w.queue))
	return nil
}

// HandleMessage processes payload on its own goroutine. Messages arriving
// after Stop are dropped.
func (w *NotificationWorker) HandleMessage(payload []byte) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.logger.Warn("event dropped, worker stopped", zap.Int("bytes", len(payload)))
		return
	}
	ctx := w.ctx
	w.inflight.Add(1)
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer w.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("panic while processing event", zap.Any("panic", r), zap.Int("bytes", len(payload)))
			}
		}()
		w.processor.Process(ctx, payload)
	}()
}

// Stop unsubscribes and waits for in-flight events until ctx is done, then
// cancels whatever is still running.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	unsub, cancel := w.unsub, w.cancel
	w.unsub = nil
	w.stopped = true
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}
	if cancel != nil {
		cancel()
	}
	w.logger.Info("notification worker stopped")
	return err
}
