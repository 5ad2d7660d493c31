package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/metrics"
	backoff "github.com/cenkalti/backoff/v4"
)

const DefaultInterval = 60 * time.Second

type State int32

const (
	StateIdle State = iota
	StateScanning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Due       int
	Delivered int
	Failed    int
}

type Options struct {
	Interval    time.Duration
	Concurrency int
	Now         func() time.Time
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	// DeleteBackOff paces retries of the delete that follows a successful send.
	DeleteBackOff func() backoff.BackOff
}

func defaultDeleteBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// Worker polls the reminder repository and delivers whatever is due. Only one
// Worker may run against a given repository.
type Worker struct {
	reminderRepo domain.ReminderRepository
	sender       domain.Sender
	interval     time.Duration
	concurrency  int
	now          func() time.Time
	metrics      *metrics.Metrics
	log          *slog.Logger
	newBackOff   func() backoff.BackOff
	state        atomic.Int32
}

func NewWorker(reminderRepo domain.ReminderRepository, sender domain.Sender, opts Options) *Worker {
	w := &Worker{
		reminderRepo: reminderRepo,
		sender:       sender,
		interval:     opts.Interval,
		concurrency:  opts.Concurrency,
		now:          opts.Now,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		newBackOff:   opts.DeleteBackOff,
	}
	if w.interval <= 0 {
		w.interval = DefaultInterval
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if w.newBackOff == nil {
		w.newBackOff = defaultDeleteBackOff
	}
	w.log = w.log.With("component", "worker")
	return w
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Run scans every interval until ctx is cancelled. A failed scan is logged and
// retried on the next tick; Run itself only returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("worker started", "interval", w.interval, "concurrency", w.concurrency)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			res, err := w.Scan(ctx)
			if err != nil {
				w.log.Error("scan failed", "error", err)
				continue
			}
			if res.Due > 0 {
				w.log.Info("scan finished", "due", res.Due, "delivered", res.Delivered, "failed", res.Failed)
			}
		}
	}
}

// Scan delivers every reminder due at the current time. Delivered reminders
// are deleted; failed ones stay for the next scan. The returned error is set
// only when the due reminders could not be read.
func (w *Worker) Scan(ctx context.Context) (ScanResult, error) {
	w.state.Store(int32(StateScanning))
	defer w.state.Store(int32(StateIdle))

	start := time.Now()
	pendings, err := w.reminderRepo.FindDueBefore(ctx, w.now())
	if err != nil {
		w.metrics.IncScanFailure()
		return ScanResult{}, fmt.Errorf("find due reminders: %w", err)
	}

	var (
		delivered, failed atomic.Int32
		wg                sync.WaitGroup
	)
	sem := make(chan struct{}, w.concurrency)
	for _, pending := range pendings {
		wg.Add(1)
		sem <- struct{}{}
		p := pending
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := w.handlePending(ctx, p); err != nil {
				failed.Add(1)
				w.log.Warn("delivery failed, will retry", "id", p.ID, "chat_id", p.ChatID, "error", err)
				return
			}
			delivered.Add(1)
		}()
	}
	wg.Wait()

	res := ScanResult{Due: len(pendings), Delivered: int(delivered.Load()), Failed: int(failed.Load())}
	w.metrics.ObserveScan(time.Since(start), res.Due)
	return res, nil
}

// handlePending sends one reminder and removes it. A send is never cut short
// by shutdown, so it runs on a context that ignores cancellation.
func (w *Worker) handlePending(ctx context.Context, pending *domain.Reminder) (err error) {
	sent := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sent {
			// the message went out; only the cleanup blew up
			w.log.Error("panic after delivery", "id", pending.ID, "panic", r)
			return
		}
		err = &domain.DeliveryError{ReminderID: pending.ID, ChatID: pending.ChatID, Err: fmt.Errorf("panic: %v", r)}
		w.metrics.ObserveDelivery(false)
	}()

	sendCtx := context.WithoutCancel(ctx)
	if err := w.sender.Send(sendCtx, pending.ChatID, pending.Text()); err != nil {
		w.metrics.ObserveDelivery(false)
		return &domain.DeliveryError{ReminderID: pending.ID, ChatID: pending.ChatID, Err: err}
	}
	sent = true
	w.metrics.ObserveDelivery(true)

	var deleted bool
	delErr := backoff.Retry(func() error {
		var err error
		deleted, err = w.reminderRepo.DeleteByID(sendCtx, pending.ID)
		return err
	}, backoff.WithContext(w.newBackOff(), sendCtx))
	switch {
	case delErr != nil:
		// the reminder went out but stays stored; it will be sent again
		w.log.Error("delete after delivery failed", "id", pending.ID, "error", delErr)
	case !deleted:
		w.log.Warn("reminder vanished before delete", "id", pending.ID)
	}
	return nil
}
