package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"

	"profreg/internal/email"
	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/requestcontext"
)

// Register validates r, checks it against stored registrants, parks it in
// the session with a fresh code and mails the code. A failed send leaves the
// pending state in place so a later code check can still succeed.
func (s *Service) Register(ctx context.Context, sid id.SessionID, r *models.Registrant) (err error) {
	ctx, span := s.tracer.Start(ctx, "registrant.Register")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "registration failed")
		}
		span.End()
	}()

	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, MsgUnexpected)
	}
	if !models.ValidEmail(r.Email) {
		s.countRegistration(metrics.OutcomeInvalid)
		return dErrors.New(dErrors.CodeValidation, MsgInvalidEmail)
	}
	if !models.ValidPhone(r.Phone) {
		s.countRegistration(metrics.OutcomeInvalid)
		return dErrors.New(dErrors.CodeValidation, MsgInvalidPhone)
	}

	exists, err := s.store.ExistsByEmailOrPhone(ctx, r.Email, r.Phone)
	if err != nil {
		s.countRegistration(metrics.OutcomeError)
		return dErrors.Wrap(err, dErrors.CodeInternal, MsgDatabase)
	}
	if exists {
		s.countRegistration(metrics.OutcomeDuplicate)
		return dErrors.New(dErrors.CodeConflict, MsgDuplicate)
	}

	code, err := s.newCode()
	if err != nil {
		s.countRegistration(metrics.OutcomeError)
		return dErrors.Wrap(err, dErrors.CodeInternal, MsgUnexpected)
	}
	if err := s.sessions.SavePending(ctx, sid, r, code); err != nil {
		s.countRegistration(metrics.OutcomeError)
		return dErrors.Wrap(err, dErrors.CodeInternal, MsgUnexpected)
	}

	if err := s.dispatcher.SendVerification(ctx, r.Email, r.Name, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			"request_id", requestcontext.RequestID(ctx),
			"kind", dispatchFailureKind(err),
			"error", err,
		)
		s.countEmail(metrics.OutcomeError)
		s.countRegistration(metrics.OutcomeError)
		return dErrors.Wrap(err, dErrors.CodeBadGateway, MsgEmailFailed)
	}

	s.countEmail(metrics.OutcomeSuccess)
	s.countRegistration(metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "verification code sent",
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func dispatchFailureKind(err error) string {
	switch {
	case errors.Is(err, email.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, email.ErrAuthentication):
		return "authentication"
	default:
		return "transport"
	}
}

func (s *Service) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRegistration(outcome)
	}
}

func (s *Service) countEmail(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementEmail(outcome)
	}
}
