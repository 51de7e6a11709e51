package services

import (
	"context"
	"errors"
	"time"

	"campusride/internal/domain"
	"campusride/internal/events"
	"campusride/internal/logging"
	"campusride/internal/repositories"

	"go.uber.org/zap"
)

// translate maps repository sentinels to domain errors. Unknown errors become
// InternalError so handlers answer 500 without leaking driver text.
func translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return domain.NotFoundError{Resource: resource, Err: err}
	case errors.Is(err, repositories.ErrDuplicate):
		return domain.ConflictError{Resource: resource, Msg: "already exists", Err: err}
	case errors.Is(err, repositories.ErrNoSeats):
		return domain.ValidationError{Field: "rideId", Msg: "no seats available on this ride", Err: err}
	case errors.Is(err, repositories.ErrActiveBookingExists):
		return domain.ValidationError{Field: "rideId", Msg: "you already have an active booking on this ride", Err: err}
	case errors.Is(err, repositories.ErrRideNotActive):
		return domain.ValidationError{Field: "rideId", Msg: "ride is not active", Err: err}
	case errors.Is(err, repositories.ErrCapacityBelowHeld):
		return domain.ValidationError{Field: "totalSeats", Msg: "cannot be lower than seats already booked", Err: err}
	case errors.Is(err, repositories.ErrStaleStatus):
		return domain.ConflictError{Resource: resource, Msg: "status changed concurrently, reload and retry", Err: err}
	default:
		return domain.InternalError{Err: err}
	}
}

func moduleLogger(ctx context.Context, base *zap.Logger, module string) *zap.Logger {
	return logging.FromContext(ctx, base).With(zap.String("module", module))
}

// publish is best effort: a broker outage never fails the request.
func publish(ctx context.Context, pub events.Publisher, log *zap.Logger, ev events.Event) {
	if pub == nil {
		return
	}
	ev.RequestID = logging.RequestID(ctx)
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("event publish failed", zap.String("event", ev.Type), zap.Error(err))
	}
}

func nowFunc(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}
