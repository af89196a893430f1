package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"demoapi/internal/model"
	"demoapi/internal/repository"
	"demoapi/internal/simulation"
)

var (
	ErrValidation       = errors.New("name and email are required")
	ErrNotFound         = errors.New("user not found")
	ErrSimulatedFailure = errors.New("simulated database connection failure")
)

const tracerName = "demoapi/internal/service"

// Outcome is the result drawn by the random-error endpoint.
type Outcome string

const (
	OutcomeNotFound Outcome = "NotFound"
	OutcomeInternal Outcome = "InternalServerError"
	OutcomeSuccess  Outcome = "Success"
)

var outcomes = []Outcome{OutcomeNotFound, OutcomeInternal, OutcomeSuccess}

// CreateUserInput is the payload accepted by CreateUser.
type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Role  string `json:"role"`
}

// UserListResult is the listing returned by ListUsers.
type UserListResult struct {
	Count int          `json:"count"`
	Users []model.User `json:"users"`
}

// ProductListResult is the listing returned by ListProducts.
type ProductListResult struct {
	Count    int             `json:"count"`
	Products []model.Product `json:"products"`
}

// CatalogService defines the use cases behind the demo endpoints.
type CatalogService interface {
	// ListUsers waits for the configured list delay, then returns every user.
	ListUsers(ctx context.Context) (*UserListResult, error)

	// GetUser returns a single user or ErrNotFound.
	GetUser(ctx context.Context, id int) (*model.User, error)

	// CreateUser validates the input, defaults the role and stores the user.
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)

	// ListProducts fails with ErrSimulatedFailure at the configured rate, before reading data.
	ListProducts(ctx context.Context) (*ProductListResult, error)

	// SlowOperation waits for a random duration within the slow range and returns it.
	SlowOperation(ctx context.Context) (time.Duration, error)

	// RandomOutcome draws one of the three random-error outcomes uniformly.
	RandomOutcome(ctx context.Context) Outcome
}

type catalogService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	policy   *simulation.Policy
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewCatalogService constructs a new CatalogService.
func NewCatalogService(users repository.UserRepository, products repository.ProductRepository, policy *simulation.Policy) CatalogService {
	return &catalogService{
		users:    users,
		products: products,
		policy:   policy,
		validate: validator.New(),
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *catalogService) ListUsers(ctx context.Context) (*UserListResult, error) {
	ctx, span := s.tracer.Start(ctx, "users.list")
	defer span.End()

	span.SetAttributes(attribute.Int64("demo.delay_ms", s.policy.ListDelay.Milliseconds()))
	if err := simulation.Sleep(ctx, s.policy.ListDelay); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list users")
		return nil, err
	}
	span.SetAttributes(attribute.Int("demo.users.count", len(users)))
	return &UserListResult{Count: len(users), Users: users}, nil
}

func (s *catalogService) GetUser(ctx context.Context, id int) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *catalogService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, ErrValidation
		}
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = model.DefaultRole
	}

	u, err := s.users.Create(ctx, model.User{Name: in.Name, Email: in.Email, Role: role})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("demo.user.id", u.ID))
	return u, nil
}

func (s *catalogService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	ctx, span := s.tracer.Start(ctx, "products.list")
	defer span.End()

	if s.policy.ShouldFail() {
		span.RecordError(ErrSimulatedFailure)
		span.SetStatus(codes.Error, ErrSimulatedFailure.Error())
		return nil, ErrSimulatedFailure
	}

	products, err := s.products.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list products")
		return nil, err
	}
	return &ProductListResult{Count: len(products), Products: products}, nil
}

func (s *catalogService) SlowOperation(ctx context.Context) (time.Duration, error) {
	ctx, span := s.tracer.Start(ctx, "slow.operation")
	defer span.End()

	delay := s.policy.SlowDelay()
	span.SetAttributes(attribute.Int64("demo.delay_ms", delay.Milliseconds()))
	if err := simulation.Sleep(ctx, delay); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return delay, nil
}

func (s *catalogService) RandomOutcome(ctx context.Context) Outcome {
	o := outcomes[s.policy.Pick(len(outcomes))]
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("demo.outcome", string(o)))
	return o
}
