// Package handler serves the registration form, the code prompt and the two
// reports as server-rendered HTML.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"profreg/internal/registrant/models"
	"profreg/internal/registrant/service"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/requestcontext"
)

// Service defines the registration operations the handler drives.
type Service interface {
	Register(ctx context.Context, sid id.SessionID, r *models.Registrant) error
	Verify(ctx context.Context, sid id.SessionID, code string) (*models.Registrant, error)
	List(ctx context.Context) ([]*models.Registrant, error)
	ProfessionFrequency(ctx context.Context) ([]models.ProfessionCount, error)
}

// Handler handles the registration routes.
type Handler struct {
	logger      *slog.Logger
	registrants Service
	pages       *pages
}

// New creates a registration Handler. It panics if the embedded templates do
// not parse, which can only happen with a broken build.
func New(registrants Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		registrants: registrants,
		pages:       mustParsePages(),
	}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleForm)
	r.Post("/upload", h.handleUpload)
	r.Get("/verify", h.handleVerifyPrompt)
	r.Post("/verify", h.handleVerify)
	r.Get("/view-data", h.handleViewData)
	r.Get("/most-common-profession", h.handleMostCommonProfession)
}

// formFields are the keys /upload requires, in display order.
var formFields = []string{"name", "surname", "phone", "email", "profession"}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageForm, formView{})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "invalid upload form", "request_id", requestID, "error", err)
		h.renderError(w, r, dErrors.New(dErrors.CodeBadRequest, "The form could not be read."))
		return
	}
	for _, field := range formFields {
		if _, ok := r.PostForm[field]; !ok {
			h.logger.WarnContext(ctx, "upload form field missing", "request_id", requestID, "field", field)
			h.renderError(w, r, dErrors.New(dErrors.CodeBadRequest, "Missing form field: "+field+"."))
			return
		}
	}

	registrant := &models.Registrant{
		Name:       r.PostForm.Get("name"),
		Surname:    r.PostForm.Get("surname"),
		Phone:      r.PostForm.Get("phone"),
		Email:      r.PostForm.Get("email"),
		Profession: r.PostForm.Get("profession"),
	}

	err := h.registrants.Register(ctx, requestcontext.SessionID(ctx), registrant)
	if err == nil {
		http.Redirect(w, r, "/verify", http.StatusFound)
		return
	}

	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeConflict):
		h.logger.InfoContext(ctx, "registration rejected", "request_id", requestID, "error", err)
		h.render(w, r, statusFor(err), pageForm, formView{
			Message:    dErrors.Message(err, service.MsgUnexpected),
			Registrant: *registrant,
		})
	default:
		h.logger.ErrorContext(ctx, "registration failed", "request_id", requestID, "error", err)
		h.renderError(w, r, err)
	}
}

func (h *Handler) handleVerifyPrompt(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageVerify, messageView{})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "invalid verify form", "request_id", requestID, "error", err)
		h.renderError(w, r, dErrors.New(dErrors.CodeBadRequest, "The form could not be read."))
		return
	}
	if _, ok := r.PostForm["code"]; !ok {
		h.logger.WarnContext(ctx, "verify form field missing", "request_id", requestID, "field", "code")
		h.renderError(w, r, dErrors.New(dErrors.CodeBadRequest, "Missing form field: code."))
		return
	}

	_, err := h.registrants.Verify(ctx, requestcontext.SessionID(ctx), r.PostForm.Get("code"))
	switch {
	case err == nil:
		h.render(w, r, http.StatusOK, pageResult, messageView{Message: service.MsgVerified})
	case dErrors.HasCode(err, dErrors.CodeValidation):
		h.render(w, r, http.StatusUnprocessableEntity, pageVerify, messageView{
			Message: dErrors.Message(err, service.MsgIncorrectCode),
		})
	default:
		h.logger.ErrorContext(ctx, "verification failed", "request_id", requestID, "error", err)
		h.renderError(w, r, err)
	}
}

func (h *Handler) handleViewData(w http.ResponseWriter, r *http.Request) {
	rows, err := h.registrants.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pageViewData, listingView{Rows: rows})
}

func (h *Handler) handleMostCommonProfession(w http.ResponseWriter, r *http.Request) {
	counts, err := h.registrants.ProfessionFrequency(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pageMostCommon, frequencyView{Professions: counts})
}

// RenderPanic renders the generic error page. The recovery middleware calls it
// after a handler panicked.
func (h *Handler) RenderPanic(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, pageError, messageView{Message: service.MsgUnexpected})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.render(w, r, statusFor(err), pageError, messageView{
		Message: dErrors.Message(err, service.MsgUnexpected),
	})
}

func statusFor(err error) int {
	de, ok := dErrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
