package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Outcome is the result of delivering one alert to one sender
type Outcome struct {
	Sender   string
	Attempts int
	Format   Format
	Duration time.Duration
	Err      error
}

type namedSender struct {
	name   string
	sender Sender
}

// Dispatcher fans alerts out to every configured sender without blocking the
// caller. Each delivery runs on its own goroutine with its own timeout.
type Dispatcher struct {
	timeout time.Duration
	log     *logrus.Logger

	senders []namedSender
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a per-delivery timeout
func NewDispatcher(timeout time.Duration, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		timeout: timeout,
		log:     log,
	}
}

// Add registers a sender under a name used in logs and metrics.
// Not safe to call once dispatching has started.
func (d *Dispatcher) Add(name string, s Sender) {
	d.senders = append(d.senders, namedSender{name: name, sender: s})
}

// Len returns the number of registered senders
func (d *Dispatcher) Len() int {
	return len(d.senders)
}

// Dispatch delivers rec in the background and returns immediately.
// Cancelling ctx does not abort in-flight deliveries; Wait drains them.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *AlertRecord) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Deliver(ctx, rec)
	}()
}

// Deliver sends rec to every sender concurrently and waits for all of them.
// Failures are logged and returned, never raised.
func (d *Dispatcher) Deliver(ctx context.Context, rec *AlertRecord) []Outcome {
	outcomes := make([]Outcome, len(d.senders))

	var wg sync.WaitGroup
	for i, ns := range d.senders {
		wg.Add(1)
		go func(i int, ns namedSender) {
			defer wg.Done()
			outcomes[i] = d.deliverOne(ctx, ns, rec)
		}(i, ns)
	}
	wg.Wait()

	return outcomes
}

// Wait blocks until every background delivery has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliverOne(ctx context.Context, ns namedSender, rec *AlertRecord) (out Outcome) {
	budget := d.timeout
	wh, isWebhook := ns.sender.(*WebhookSender)
	if isWebhook {
		budget *= webhookMaxAttempts
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	out = Outcome{Sender: ns.name, Attempts: 1, Format: FormatJSON}

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("sender panicked: %v", r)
		}
		out.Duration = time.Since(start)
		d.record(rec, out)
	}()

	if isWebhook {
		res := wh.Deliver(ctx, rec)
		out.Attempts, out.Format, out.Err = res.Attempts, res.Format, res.Err
		if res.Attempts > 1 {
			metrics.WebhookFallbacks.Inc()
		}
		return out
	}

	out.Err = ns.sender.Send(ctx, rec)
	return out
}

func (d *Dispatcher) record(rec *AlertRecord, out Outcome) {
	metrics.RecordDelivery(out.Sender, out.Duration, out.Err)

	fields := logrus.Fields{
		"alert_id": rec.ID,
		"sender":   out.Sender,
		"attempts": out.Attempts,
		"format":   out.Format,
		"duration": out.Duration.String(),
	}
	if out.Err != nil {
		d.log.WithFields(fields).WithError(out.Err).Warn("Alert delivery failed")
		return
	}
	d.log.WithFields(fields).Debug("Alert delivered")
}
