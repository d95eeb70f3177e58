package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"profreg/internal/registrant/models"
	"profreg/internal/registrant/report"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/requestcontext"
)

// List returns every stored registrant in storage order.
func (s *Service) List(ctx context.Context) ([]*models.Registrant, error) {
	ctx, span := s.tracer.Start(ctx, "registrant.List")
	defer span.End()
	defer s.observeReport("listing", time.Now())

	all, err := s.store.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "failed to list registrants",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MsgListFailed)
	}
	span.SetAttributes(attribute.Int("registrant.count", len(all)))
	return all, nil
}

// ProfessionFrequency counts professions over the seed list and every stored
// row.
func (s *Service) ProfessionFrequency(ctx context.Context) ([]models.ProfessionCount, error) {
	ctx, span := s.tracer.Start(ctx, "registrant.ProfessionFrequency")
	defer span.End()
	defer s.observeReport("profession_frequency", time.Now())

	stored, err := s.store.ListProfessions(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "failed to list professions",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MsgReportFailed)
	}
	counts := report.CountProfessions(s.seed, stored)
	span.SetAttributes(attribute.Int("profession.distinct", len(counts)))
	return counts, nil
}

func (s *Service) observeReport(name string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveReport(name, start)
	}
}
