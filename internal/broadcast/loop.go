// Package broadcast runs the broadcast loop: fetch one quote, queue a message
// for every listener, drain the queue, sleep, repeat. A cycle failure is
// logged and the loop carries on after the usual sleep.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/quote-broadcaster/internal/client"
	"github.com/tbourn/quote-broadcaster/internal/delivery"
	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// Cycle stages, reported in CycleError.Stage.
const (
	StageFetch   = "fetch"
	StageEnqueue = "enqueue"
	StageDrain   = "drain"
	StagePanic   = "panic"
)

// Drainer flushes the queue. *delivery.Dispatcher implements it.
type Drainer interface {
	Drain(ctx context.Context) (delivery.Report, error)
}

// CycleError is a failure that ended a cycle early.
type CycleError struct {
	Stage string
	Err   error
}

// Error implements error.
func (e *CycleError) Error() string { return fmt.Sprintf("broadcast %s: %v", e.Stage, e.Err) }

// Unwrap returns the stage error.
func (e *CycleError) Unwrap() error { return e.Err }

// CycleReport summarizes one cycle.
type CycleReport struct {
	Enqueued int
	Delivery delivery.Report
	Duration time.Duration
	Err      error
}

// Loop holds the collaborators of the broadcast loop. Queue must be owned by
// this Loop alone.
type Loop struct {
	Source   client.ContentSource
	Queue    delivery.Queue
	Drainer  Drainer
	From     string // origin identity of every message
	Interval time.Duration
	Logger   zerolog.Logger
}

// FormatBody renders the SMS body for q.
func FormatBody(q *domain.Quote) string {
	if q.Reference == "" {
		return q.Text
	}
	return q.Text + " - " + q.Reference
}

// RunCycle executes fetch, enqueue and drain once. It never panics; a panic
// in any stage is reported as a CycleError with Stage "panic".
//
// When fetch fails, drain is skipped. Messages already queued in that cycle
// stay queued and go out with the next successful drain.
func (l *Loop) RunCycle(ctx context.Context) (rep CycleReport) {
	start := time.Now()
	ctx, span := otel.Tracer("broadcast/Loop").Start(ctx, "cycle")
	defer func() {
		if r := recover(); r != nil {
			rep.Err = &CycleError{Stage: StagePanic, Err: fmt.Errorf("%v", r)}
			l.Logger.Error().Str("stack", string(debug.Stack())).Msg("panic in broadcast cycle")
		}
		rep.Duration = time.Since(start)
		observeCycle(rep)

		span.SetAttributes(
			attribute.Int("broadcast.enqueued", rep.Enqueued),
			attribute.Int("broadcast.sent", rep.Delivery.Sent),
			attribute.Int("broadcast.failed", rep.Delivery.Failed),
		)
		if rep.Err != nil {
			span.RecordError(rep.Err)
			span.SetStatus(codes.Error, "cycle failed")
		}
		span.End()
	}()

	for p, err := range client.PairQuoteWithListeners(ctx, l.Source) {
		if err != nil {
			rep.Err = &CycleError{Stage: StageFetch, Err: err}
			return rep
		}
		m := delivery.Message{From: l.From, To: p.Listener.PhoneNumber, Body: FormatBody(p.Quote)}
		if err := l.Queue.Enqueue(ctx, m); err != nil {
			rep.Err = &CycleError{Stage: StageEnqueue, Err: err}
			return rep
		}
		rep.Enqueued++
		messagesEnqueued.Inc()
		l.Logger.Info().
			Str("to", delivery.MaskRecipient(m.To)).
			Uint("quote_id", p.Quote.ID).
			Msg("message created")
	}

	dr, err := l.Drainer.Drain(ctx)
	rep.Delivery = dr
	if err != nil {
		rep.Err = &CycleError{Stage: StageDrain, Err: err}
	}
	return rep
}

// Run loops until ctx is done: one cycle, then a sleep of Interval. Cycle
// failures are logged and never end the loop. Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.Logger.Info().Dur("interval", l.Interval).Msg("broadcast loop started")
	for {
		rep := l.RunCycle(ctx)
		l.logCycle(rep)

		t := time.NewTimer(l.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			l.Logger.Info().Msg("broadcast loop stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Loop) logCycle(rep CycleReport) {
	if rep.Err != nil {
		ev := l.Logger.Error().Err(rep.Err).Int("enqueued", rep.Enqueued)
		var ce *CycleError
		if errors.As(rep.Err, &ce) {
			ev = ev.Str("stage", ce.Stage)
		}
		ev.Msg("broadcast cycle failed")
		return
	}
	l.Logger.Info().
		Int("enqueued", rep.Enqueued).
		Int("sent", rep.Delivery.Sent).
		Int("failed", rep.Delivery.Failed).
		Dur("took", rep.Duration).
		Msg("broadcast cycle complete")
}
