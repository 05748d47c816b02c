package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrDrainInProgress is returned when Drain is called while another drain on
// the same Dispatcher is running.
var ErrDrainInProgress = errors.New("delivery: drain already in progress")

// DefaultSendTimeout bounds a single provider call.
const DefaultSendTimeout = time.Second

// Result is the outcome of one send attempt.
type Result struct {
	Message    Message
	ProviderID string
	Err        error
	Duration   time.Duration
}

// Report aggregates one drain.
type Report struct {
	Attempted int
	Sent      int
	Failed    int
	Results   []Result
}

func (r *Report) add(res Result) {
	r.Attempted++
	if res.Err != nil {
		r.Failed++
	} else {
		r.Sent++
	}
	r.Results = append(r.Results, res)
}

// Dispatcher drains a Queue through a Sender.
type Dispatcher struct {
	queue   Queue
	sender  Sender
	timeout time.Duration
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu sync.Mutex
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout sets the per-message timeout.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithRatePerSec paces sends. Zero or negative disables pacing.
func WithRatePerSec(perSec float64) DispatcherOption {
	return func(x *Dispatcher) {
		if perSec > 0 {
			x.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l zerolog.Logger) DispatcherOption {
	return func(x *Dispatcher) { x.logger = l }
}

// NewDispatcher returns a Dispatcher over q and s.
func NewDispatcher(q Queue, s Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:   q,
		sender:  s,
		timeout: DefaultSendTimeout,
		logger:  log.Logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Drain pops messages from the head of the queue until it is empty and
// attempts exactly one send for each. Failed messages are logged and
// discarded; they never stop the drain. Draining an empty queue is a no-op.
//
// Drain stops early only on a queue error or when ctx is done, returning the
// report collected so far. With pacing enabled the limiter is waited on before
// the head is popped, so a message is only taken off the queue once it can be
// sent; a failed wait leaves it queued and unreported.
func (d *Dispatcher) Drain(ctx context.Context) (Report, error) {
	if !d.mu.TryLock() {
		return Report{}, ErrDrainInProgress
	}
	defer d.mu.Unlock()

	var rep Report
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if d.limiter != nil {
			n, err := d.queue.Len(ctx)
			if err != nil {
				return rep, fmt.Errorf("queue len: %w", err)
			}
			if n == 0 {
				return rep, nil
			}
			if err := d.limiter.Wait(ctx); err != nil {
				return rep, err
			}
		}
		m, ok, err := d.queue.Dequeue(ctx)
		if err != nil {
			return rep, fmt.Errorf("dequeue: %w", err)
		}
		if !ok {
			return rep, nil
		}
		rep.add(d.send(ctx, m))
	}
}

func (d *Dispatcher) send(ctx context.Context, m Message) Result {
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	out, err := d.sender.Send(sctx, m)
	res := Result{Message: m, ProviderID: out.ProviderID, Err: err, Duration: time.Since(start)}
	sendLat.Observe(res.Duration.Seconds())

	if err != nil {
		sendsTotal.WithLabelValues("failed").Inc()
		ev := d.logger.Error().Err(err).Str("to", MaskRecipient(m.To))
		var de *DeliveryError
		if errors.As(err, &de) {
			ev = ev.Int("status", de.StatusCode).Str("reason", de.Reason)
		}
		ev.Msg("message delivery failed")
		return res
	}

	sendsTotal.WithLabelValues("sent").Inc()
	d.logger.Debug().
		Str("to", MaskRecipient(m.To)).
		Str("provider_id", out.ProviderID).
		Dur("took", res.Duration).
		Msg("message sent")
	return res
}
