package repository

import (
	"context"
	"errors"

	"demoapi/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UserRepository defines data access for users. No business logic here.
type UserRepository interface {
	// List returns every user ordered by id.
	List(ctx context.Context) ([]model.User, error)

	// FindByID returns a user by its id or ErrNotFound.
	FindByID(ctx context.Context, id int) (*model.User, error)

	// Create assigns the next id (current count + 1) and appends the user.
	// Implementations must make the assign-and-append sequence atomic.
	Create(ctx context.Context, u model.User) (*model.User, error)
}

// ProductRepository defines read-only access to the product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]model.Product, error)
}
