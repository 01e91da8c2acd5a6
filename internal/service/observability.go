package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/remediate/internal/domain"
)

// Outcomes recorded on use-case events. Everything except OutcomeFailed is
// a domain answer the caller can act on.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeState      = "state"
	OutcomeConflict   = "conflict"
	OutcomeFailed     = "failed"
)

// UseCaseEvent describes one finished service call: generate-plan,
// publish-plan, review-item and so on.
type UseCaseEvent struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string
	Err       error
	// Fields carries plan, item and origin identifiers set by the use case.
	Fields map[string]any
}

func (e UseCaseEvent) Success() bool { return e.Err == nil }

// UseCaseObserver receives one event per service call.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

// outcomeOf classifies err by the domain sentinel it wraps.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrState):
		return OutcomeState
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeFailed
	}
}

type slogObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes events to w with a text handler.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return NewSlogUseCaseObserver(slog.New(slog.NewTextHandler(w, nil)))
}

func NewSlogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &slogObserver{logger: logger}
}

// ObserveUseCase logs rejected requests at WARN and store or internal
// failures at ERROR. Fields are emitted in key order.
func (o *slogObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, 5+len(keys))
	attrs = append(attrs,
		slog.String("use_case", event.Name),
		slog.String("outcome", event.Outcome),
		slog.Bool("success", event.Success()),
		slog.Int64("duration_ms", event.Duration.Milliseconds()),
	)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Fields[k]))
	}

	level := slog.LevelInfo
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
		level = slog.LevelWarn
		if event.Outcome == OutcomeFailed {
			level = slog.LevelError
		}
	}
	o.logger.LogAttrs(ctx, level, "service_use_case", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

// observe starts the clock for one use case. The returned func reports it;
// callers defer it with a pointer to their named error result so fields
// added after the call started are included.
func observe(ctx context.Context, obs UseCaseObserver, name string, fields map[string]any, errp *error) func() {
	startedAt := time.Now().UTC()
	return func() {
		var err error
		if errp != nil {
			err = *errp
		}
		obs.ObserveUseCase(ctx, UseCaseEvent{
			Name:      name,
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Outcome:   outcomeOf(err),
			Err:       err,
			Fields:    fields,
		})
	}
}
