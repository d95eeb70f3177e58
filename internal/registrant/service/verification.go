package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"go.opentelemetry.io/otel/codes"

	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/sentinel"
	"profreg/pkg/requestcontext"
)

// Verify compares code with the one parked in the session and, on a match,
// commits the pending registrant. A wrong code leaves the session as it was;
// a registrant that became a duplicate since registration clears it.
func (s *Service) Verify(ctx context.Context, sid id.SessionID, code string) (_ *models.Registrant, err error) {
	ctx, span := s.tracer.Start(ctx, "registrant.Verify")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "verification failed")
		}
		span.End()
	}()

	sess, err := s.sessions.Get(ctx, sid)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.countVerification(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MsgUnexpected)
	}
	if !sess.HasPending() || !codesMatch(code, sess.Code) {
		s.logger.WarnContext(ctx, "verification code mismatch",
			"request_id", requestcontext.RequestID(ctx),
			"has_pending", sess.HasPending(),
		)
		s.countVerification(metrics.OutcomeMismatch)
		return nil, dErrors.New(dErrors.CodeValidation, MsgIncorrectCode)
	}

	pending := *sess.Pending
	if err := s.store.InsertIfUnique(ctx, &pending); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.clearSession(ctx, sid)
			s.countVerification(metrics.OutcomeDuplicate)
			return nil, dErrors.New(dErrors.CodeConflict, MsgDuplicate)
		}
		s.logger.ErrorContext(ctx, "failed to save verified registrant",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.countVerification(metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MsgSaveFailed)
	}

	s.clearSession(ctx, sid)
	s.countVerification(metrics.OutcomeSuccess)
	return &pending, nil
}

func codesMatch(submitted, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

// clearSession drops the pending state. The registrant is already committed
// at this point, so a failure is logged and not returned.
func (s *Service) clearSession(ctx context.Context, sid id.SessionID) {
	if err := s.sessions.ClearPending(ctx, sid); err != nil {
		s.logger.WarnContext(ctx, "failed to clear session",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(outcome)
	}
}
