// Package locale holds the user-facing strings and seed data of the demo in
// English and Portuguese.
package locale

import (
	"fmt"

	"demoapi/internal/model"
)

// Messages is the catalog of response texts for one language.
type Messages struct {
	Welcome            string
	Instrumentation    string
	ProductsEndpoint   string
	SlowEndpoint       string
	UserNotFound       string
	InvalidUserID      string
	NameEmailRequired  string
	UserCreated        string
	ProductsFailed     string
	ProductsFailedWhy  string
	SlowCompleted      string
	ResourceNotFound   string
	RandomSuccess      string
	RouteNotFound      string
	MethodNotAllowed   string
	InternalError      string
	InternalErrorQuiet string
}

var catalogs = map[string]Messages{
	"en": {
		Welcome:            "Go API instrumented with OpenTelemetry",
		Instrumentation:    "OpenTelemetry instrumentation (otelfiber, otelhttp, otelsql)",
		ProductsEndpoint:   "GET /api/products (20% chance of failure)",
		SlowEndpoint:       "GET /api/slow (simulated slow operation)",
		UserNotFound:       "User not found",
		InvalidUserID:      "Invalid user id",
		NameEmailRequired:  "Name and email are required",
		UserCreated:        "User created successfully",
		ProductsFailed:     "Internal error fetching products",
		ProductsFailedWhy:  "Database connection failed",
		SlowCompleted:      "Slow operation completed",
		ResourceNotFound:   "Resource not found",
		RandomSuccess:      "Success!",
		RouteNotFound:      "Route not found",
		MethodNotAllowed:   "Method not allowed",
		InternalError:      "Internal server error",
		InternalErrorQuiet: "An unexpected error occurred",
	},
	"pt": {
		Welcome:            "API Go instrumentada com OpenTelemetry",
		Instrumentation:    "Instrumentação OpenTelemetry (otelfiber, otelhttp, otelsql)",
		ProductsEndpoint:   "GET /api/products (20% chance de erro)",
		SlowEndpoint:       "GET /api/slow (operação lenta)",
		UserNotFound:       "Usuário não encontrado",
		InvalidUserID:      "ID de usuário inválido",
		NameEmailRequired:  "Nome e email são obrigatórios",
		UserCreated:        "Usuário criado com sucesso",
		ProductsFailed:     "Erro interno ao buscar produtos",
		ProductsFailedWhy:  "Falha na conexão com o banco de dados",
		SlowCompleted:      "Operação lenta concluída",
		ResourceNotFound:   "Recurso não encontrado",
		RandomSuccess:      "Sucesso!",
		RouteNotFound:      "Rota não encontrada",
		MethodNotAllowed:   "Método não permitido",
		InternalError:      "Erro interno do servidor",
		InternalErrorQuiet: "Ocorreu um erro inesperado",
	},
}

var seedUsers = map[string][]model.User{
	"en": {
		{ID: 1, Name: "Alice Smith", Email: "alice@example.com", Role: "admin"},
		{ID: 2, Name: "Bob Johnson", Email: "bob@example.com", Role: "user"},
		{ID: 3, Name: "Carol Davis", Email: "carol@example.com", Role: "user"},
	},
	"pt": {
		{ID: 1, Name: "Alice Silva", Email: "alice@example.com", Role: "admin"},
		{ID: 2, Name: "Bob Souza", Email: "bob@example.com", Role: "user"},
		{ID: 3, Name: "Carol Costa", Email: "carol@example.com", Role: "user"},
	},
}

var seedProducts = map[string][]model.Product{
	"en": {
		{ID: 1, Name: "Laptop", Price: 2999.99, Stock: 15},
		{ID: 2, Name: "Wireless Mouse", Price: 89.90, Stock: 50},
		{ID: 3, Name: "Mechanical Keyboard", Price: 199.90, Stock: 30},
	},
	"pt": {
		{ID: 1, Name: "Laptop", Price: 2999.99, Stock: 15},
		{ID: 2, Name: "Mouse", Price: 89.90, Stock: 50},
		{ID: 3, Name: "Teclado", Price: 199.90, Stock: 30},
	},
}

// Lookup returns the message catalog for lang.
func Lookup(lang string) (Messages, error) {
	m, ok := catalogs[lang]
	if !ok {
		return Messages{}, fmt.Errorf("unsupported locale %q", lang)
	}
	return m, nil
}

// MustLookup is Lookup that falls back to English.
func MustLookup(lang string) Messages {
	if m, err := Lookup(lang); err == nil {
		return m
	}
	return catalogs["en"]
}

// SeedUsers returns a fresh copy of the initial users for lang.
func SeedUsers(lang string) []model.User {
	src, ok := seedUsers[lang]
	if !ok {
		src = seedUsers["en"]
	}
	return append([]model.User(nil), src...)
}

// SeedProducts returns a fresh copy of the catalog products for lang.
func SeedProducts(lang string) []model.Product {
	src, ok := seedProducts[lang]
	if !ok {
		src = seedProducts["en"]
	}
	return append([]model.Product(nil), src...)
}
