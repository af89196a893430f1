// Package memory is the default, process-local store of the demo.
package memory

import (
	"context"
	"sync"

	"demoapi/internal/model"
	"demoapi/internal/repository"
)

// Store keeps users and products in memory. Users are append-only.
type Store struct {
	mu       sync.RWMutex
	users    []model.User
	products []model.Product
}

// NewStore returns a store seeded with copies of users and products.
func NewStore(users []model.User, products []model.Product) *Store {
	return &Store{
		users:    append([]model.User(nil), users...),
		products: append([]model.Product(nil), products...),
	}
}

var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.ProductRepository = productView{}
)

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return s }

// Products exposes the store as a ProductRepository.
func (s *Store) Products() repository.ProductRepository { return productView{s} }

// List returns a copy of all users.
func (s *Store) List(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.User, 0, len(s.users)), s.users...), nil
}

// FindByID returns a copy of the user with the given id.
func (s *Store) FindByID(ctx context.Context, id int) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Create appends u with id = len(users)+1.
func (s *Store) Create(ctx context.Context, u model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = len(s.users) + 1
	s.users = append(s.users, u)
	return &u, nil
}

// ListProducts returns a copy of the catalog.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.Product, 0, len(s.products)), s.products...), nil
}

// Close is a no-op; it lets the store be registered as a shutdown hook like the SQL one.
func (s *Store) Close() error { return nil }

type productView struct{ s *Store }

func (p productView) List(ctx context.Context) ([]model.Product, error) {
	return p.s.ListProducts(ctx)
}
