// Package service holds the registration, verification and reporting flows.
// It owns no transport concerns: handlers pass in the session ID and render
// the domain errors it returns.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/models"
	"profreg/internal/session"
	id "profreg/pkg/domain"
)

// User-facing messages. Handlers render them verbatim.
const (
	MsgInvalidEmail  = "Invalid email. Please try again."
	MsgInvalidPhone  = "Invalid phone number. Please try again."
	MsgDuplicate     = "This user is already registered with this email or phone number."
	MsgDatabase      = "A database error occurred. Please try again later."
	MsgEmailFailed   = "Email could not be sent. Please try again later."
	MsgIncorrectCode = "Incorrect code. Please try again."
	MsgVerified      = "Your data has been verified and saved successfully!"
	MsgSaveFailed    = "A database error occurred while saving your data. Please try again."
	MsgListFailed    = "Could not load the registered data. Please try again later."
	MsgReportFailed  = "Could not build the profession report. Please try again later."
	MsgUnexpected    = "Something went wrong. Please try again."
)

// Store is the persistence gateway the flows depend on.
type Store interface {
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	InsertIfUnique(ctx context.Context, r *models.Registrant) error
	ListAll(ctx context.Context) ([]*models.Registrant, error)
	ListProfessions(ctx context.Context) ([]string, error)
}

// SessionStore keeps the pending registrant and its code between requests.
type SessionStore interface {
	Get(ctx context.Context, sid id.SessionID) (*session.Session, error)
	SavePending(ctx context.Context, sid id.SessionID, r *models.Registrant, code string) error
	ClearPending(ctx context.Context, sid id.SessionID) error
}

// Dispatcher delivers a verification code to an address.
type Dispatcher interface {
	SendVerification(ctx context.Context, to, name, code string) error
}

// CodeGenerator produces a fresh verification code.
type CodeGenerator func() (string, error)

// Service runs the registration flows against its collaborators.
type Service struct {
	store      Store
	sessions   SessionStore
	dispatcher Dispatcher
	seed       []string
	newCode    CodeGenerator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithSeed sets the profession entries counted ahead of stored rows.
func WithSeed(seed []string) Option {
	return func(s *Service) {
		s.seed = append([]string(nil), seed...)
	}
}

// WithMetrics enables flow counters and report timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodeGenerator replaces the random code source. Tests use it to pin codes.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

// New wires a Service.
func New(store Store, sessions SessionStore, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		newCode:    GenerateCode,
		logger:     slog.Default(),
		tracer:     otel.Tracer("profreg/internal/registrant/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
