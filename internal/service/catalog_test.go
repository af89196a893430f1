package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"demoapi/internal/locale"
	"demoapi/internal/model"
	"demoapi/internal/repository"
	repoMocks "demoapi/internal/repository/mocks"
	"demoapi/internal/repository/memory"
	"demoapi/internal/simulation"
)

func quietPolicy() *simulation.Policy {
	return &simulation.Policy{Rand: simulation.Fixed(0.5)}
}

func TestCatalogService_CreateUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		in         CreateUserInput
		setupMocks func(mRepo *repoMocks.MockUserRepository)
		wantErr    error
		wantErrMsg string
		wantRole   string
	}{
		{
			name: "role defaults to user",
			in:   CreateUserInput{Name: "Dana", Email: "dana@example.com"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("Create", ctx, model.User{Name: "Dana", Email: "dana@example.com", Role: "user"}).
					Return(&model.User{ID: 4, Name: "Dana", Email: "dana@example.com", Role: "user"}, nil)
			},
			wantRole: "user",
		},
		{
			name: "explicit role kept",
			in:   CreateUserInput{Name: "Eve", Email: "eve@example.com", Role: "admin"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("Create", ctx, model.User{Name: "Eve", Email: "eve@example.com", Role: "admin"}).
					Return(&model.User{ID: 4, Name: "Eve", Email: "eve@example.com", Role: "admin"}, nil)
			},
			wantRole: "admin",
		},
		{
			name:       "missing name",
			in:         CreateUserInput{Email: "x@example.com"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name:       "missing email",
			in:         CreateUserInput{Name: "x"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name: "repository error",
			in:   CreateUserInput{Name: "Dana", Email: "dana@example.com"},
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErrMsg: "create user: db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUserRepository)
			tt.setupMocks(mRepo)
			svc := NewCatalogService(mRepo, nil, quietPolicy())

			u, err := svc.CreateUser(ctx, tt.in)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, u.Role)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_GetUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int
		setupMocks func(mRepo *repoMocks.MockUserRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByID", ctx, 1).Return(&model.User{ID: 1}, nil)
			},
		},
		{
			name: "not found mapped",
			id:   999,
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByID", ctx, 999).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   2,
			setupMocks: func(mRepo *repoMocks.MockUserRepository) {
				mRepo.On("FindByID", ctx, 2).Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockUserRepository)
			tt.setupMocks(mRepo)
			svc := NewCatalogService(mRepo, nil, quietPolicy())

			u, err := svc.GetUser(ctx, tt.id)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, u.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(locale.SeedUsers("en"), locale.SeedProducts("en"))
	svc := NewCatalogService(store.Users(), store.Products(), quietPolicy())

	created, err := svc.CreateUser(ctx, CreateUserInput{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: 4, Name: "Dana", Email: "dana@example.com", Role: "user"}, *created)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "NoEmail"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, list.Count)
}

func TestCatalogService_ListUsersWaitsForDelay(t *testing.T) {
	store := memory.NewStore(locale.SeedUsers("en"), nil)
	policy := &simulation.Policy{ListDelay: 30 * time.Millisecond, Rand: simulation.Fixed(0)}
	svc := NewCatalogService(store.Users(), store.Products(), policy)

	start := time.Now()
	res, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 3, res.Count)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ListUsers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogService_ListProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("simulated failure never touches the repository", func(t *testing.T) {
		mProducts := new(repoMocks.MockProductRepository)
		svc := NewCatalogService(nil, mProducts, &simulation.Policy{FailureRate: 0.2, Rand: simulation.Fixed(0.1)})

		res, err := svc.ListProducts(ctx)

		assert.ErrorIs(t, err, ErrSimulatedFailure)
		assert.Nil(t, res)
		mProducts.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		mProducts := new(repoMocks.MockProductRepository)
		mProducts.On("List", mock.Anything).Return([]model.Product{{ID: 1, Name: "Laptop"}}, nil)
		svc := NewCatalogService(nil, mProducts, &simulation.Policy{FailureRate: 0.2, Rand: simulation.Fixed(0.9)})

		res, err := svc.ListProducts(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Count)
		mProducts.AssertExpectations(t)
	})
}

func TestCatalogService_ListProductsRecordsErrorSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc := NewCatalogService(nil, nil, &simulation.Policy{FailureRate: 1, Rand: simulation.Fixed(0)})
	_, err := svc.ListProducts(context.Background())
	require.ErrorIs(t, err, ErrSimulatedFailure)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "products.list", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCatalogService_SlowOperation(t *testing.T) {
	policy := &simulation.Policy{SlowMin: 10 * time.Millisecond, SlowMax: 30 * time.Millisecond, Rand: simulation.Fixed(0.5)}
	svc := NewCatalogService(nil, nil, policy)

	start := time.Now()
	d, err := svc.SlowOperation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, d)
	assert.GreaterOrEqual(t, time.Since(start), d)
}

func TestCatalogService_RandomOutcome(t *testing.T) {
	tests := []struct {
		draw float64
		want Outcome
	}{
		{0.0, OutcomeNotFound},
		{0.4, OutcomeInternal},
		{0.9, OutcomeSuccess},
	}
	for _, tt := range tests {
		svc := NewCatalogService(nil, nil, &simulation.Policy{Rand: simulation.Fixed(tt.draw)})
		assert.Equal(t, tt.want, svc.RandomOutcome(context.Background()))
	}
}
