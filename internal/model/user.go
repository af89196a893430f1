package model

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "user"

// User is an account of the demo catalog.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
