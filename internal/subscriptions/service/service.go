package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"newsletter/internal/subscriptions/metrics"
	"newsletter/internal/subscriptions/models"
	"newsletter/pkg/domain"
	dErrors "newsletter/pkg/domain-errors"
	"newsletter/pkg/platform/sentinel"
	"newsletter/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

type Store interface {
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id domain.SubscriptionID) (*models.Subscription, error)
}

var tracer = otel.Tracer("newsletter/internal/subscriptions/service")

// SubscribeCommand holds the raw form input of a signup.
type SubscribeCommand struct {
	Email string
	Name  string
}

// Service turns raw signups into stored subscriptions.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	newID   func() domain.SubscriptionID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the random ID source (tests).
func WithIDGenerator(fn func() domain.SubscriptionID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		newID:  domain.NewSubscriptionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe validates both fields and stores a pending subscription. Both
// parsers always run; when both fail the email error is returned.
//
// Errors: CodeValidation wrapping a *domain.ValidationError, CodeConflict when
// the email is already subscribed, CodeInternal for store failures.
func (s *Service) Subscribe(ctx context.Context, cmd SubscribeCommand) (*models.Subscription, error) {
	ctx, span := tracer.Start(ctx, "subscriptions.Subscribe", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveSubscribe(time.Now())
	}

	email, emailErr := domain.ParseSubscriberEmail(cmd.Email)
	name, nameErr := domain.ParseSubscriberName(cmd.Name)
	s.recordValidationFailure(emailErr)
	s.recordValidationFailure(nameErr)
	if err := cmp.Or(emailErr, nameErr); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "")
	}

	sub := models.NewSubscription(s.newID(), email, name, requestcontext.Now(ctx))
	span.SetAttributes(attribute.String("subscription.id", sub.ID.String()))

	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			if s.metrics != nil {
				s.metrics.IncrementConflict()
			}
			span.SetStatus(codes.Error, "conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "email already subscribed")
		}
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrUnavailable) {
			span.SetStatus(codes.Error, "store unavailable")
			s.logger.WarnContext(ctx, "subscription store unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription store unavailable")
		}
		span.SetStatus(codes.Error, "store failure")
		s.logger.ErrorContext(ctx, "failed to store subscription",
			"request_id", requestcontext.RequestID(ctx),
			"subscription_id", sub.ID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subscription")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "subscription created",
		"request_id", requestcontext.RequestID(ctx),
		"subscription_id", sub.ID.String(),
	)
	return sub, nil
}

// Get returns a stored subscription.
func (s *Service) Get(ctx context.Context, id domain.SubscriptionID) (*models.Subscription, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subscription not found")
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription store unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}
	return sub, nil
}

func (s *Service) recordValidationFailure(err error) {
	var ve *domain.ValidationError
	if err == nil || !errors.As(err, &ve) {
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementValidationFailure(ve.Field(), string(ve.Kind))
	}
}
