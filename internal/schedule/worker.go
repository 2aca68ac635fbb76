package schedule

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// tickInterval is fixed: the worker scans for due messages once a minute.
const tickInterval = 1 * time.Minute

// Messenger resolves a recipient and delivers a direct text message. The
// Discord glue provides the real implementation; tests inject fakes.
type Messenger interface {
	SendDirect(ctx context.Context, userID, content string) error
}

// Worker polls the store on a fixed interval and attempts delivery of every
// due message, one at a time. Each message gets one attempt per tick; a
// message that reaches failed is never retried by the worker. Re-enqueueing
// is an operator action.
type Worker struct {
	store     *Store
	messenger Messenger
	interval  time.Duration

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a worker over store that delivers through messenger.
func NewWorker(store *Store, messenger Messenger) *Worker {
	return &Worker{store: store, messenger: messenger, interval: tickInterval}
}

// Start launches the polling loop. Starting an already-running worker is a
// no-op and returns false.
func (w *Worker) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	go w.run(ctx)
	return true
}

// Stop suppresses future ticks and waits for the loop to exit. An in-flight
// delivery is not interrupted. Stopping a stopped worker returns false.
func (w *Worker) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		return false
	}

	w.cancel()
	<-w.done
	w.running.Store(false)
	return true
}

// IsRunning reports whether the polling loop is active.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("[INFO] Scheduled message worker started (interval %v)", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[INFO] Scheduled message worker stopped")
			return
		case <-ticker.C:
			w.deliverDue(ctx)
		}
	}
}

// deliverDue runs one tick: query due messages and attempt each in insertion
// order. A failure is bookkept on that message alone and never aborts the
// rest of the tick; anything escaping the cycle ends the tick, not the loop.
func (w *Worker) deliverDue(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERR] Scheduled delivery tick panicked: %v", r)
		}
	}()

	due := w.store.Pending(time.Time{})
	if len(due) == 0 {
		return
	}

	// Stop only suppresses future ticks. The attempt in flight runs on a
	// context detached from the loop's cancellation, so shutdown cannot
	// turn a healthy delivery into a terminal failed record.
	sendCtx := context.WithoutCancel(ctx)

	for _, msg := range due {
		if err := w.messenger.SendDirect(sendCtx, msg.TargetUserID, msg.Content); err != nil {
			log.Printf("[WARN] Failed to deliver scheduled message %s to user %s: %v", msg.ID, msg.TargetUserID, err)
			if mErr := w.store.MarkFailed(msg.ID, err.Error()); mErr != nil {
				log.Printf("[ERR] Failed to record delivery failure for message %s: %v", msg.ID, mErr)
			}
			continue
		}
		if err := w.store.MarkSent(msg.ID); err != nil {
			log.Printf("[ERR] Failed to mark message %s as sent: %v", msg.ID, err)
		}
	}
}
