package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"newsletter/internal/subscriptions/models"
	"newsletter/internal/subscriptions/service"
	"newsletter/pkg/domain"
	dErrors "newsletter/pkg/domain-errors"
	"newsletter/pkg/platform/httputil"
	"newsletter/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the subscription operations the handler needs.
type Service interface {
	Subscribe(ctx context.Context, cmd service.SubscribeCommand) (*models.Subscription, error)
	Get(ctx context.Context, id domain.SubscriptionID) (*models.Subscription, error)
}

const maxFormBytes = 64 << 10

// Handler serves the subscription endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	subscribe []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubscribeMiddleware wraps only POST /subscriptions (rate limiting).
func WithSubscribeMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.subscribe = append(h.subscribe, mw...)
	}
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the subscription routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.subscribe...).Post("/subscriptions", h.HandleSubscribe)
	r.Get("/subscriptions/{id}", h.HandleGet)
}

// HandleSubscribe accepts a form-encoded signup with email and name fields.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "invalid subscription form",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
		return
	}

	cmd := service.SubscribeCommand{
		Email: r.PostForm.Get("email"),
		Name:  r.PostForm.Get("name"),
	}
	if !storableText(cmd.Email) || !storableText(cmd.Name) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "form values must be valid UTF-8 without NUL characters"))
		return
	}

	sub, err := h.service.Subscribe(ctx, cmd)
	if err != nil {
		h.logFailure(ctx, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sub.Response())
}

// HandleGet returns a stored subscription by ID.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.service.Get(ctx, id)
	if err != nil {
		h.logFailure(ctx, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sub.Response())
}

// storableText reports whether s is valid UTF-8 that Postgres text and jsonb
// columns accept. Neither type can hold U+0000.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

func (h *Handler) logFailure(ctx context.Context, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "subscription request failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		return
	}

	var ve *domain.ValidationError
	if dErrors.HasCode(err, dErrors.CodeValidation) && errors.As(err, &ve) {
		h.logger.InfoContext(ctx, "subscription rejected",
			"request_id", requestID,
			"field", ve.Field(),
			"kind", string(ve.Kind),
		)
		return
	}
	h.logger.InfoContext(ctx, "subscription rejected",
		"request_id", requestID,
		"code", string(dErrors.CodeOf(err)),
	)
}
