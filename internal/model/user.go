package model

import "time"

// RoleUser is the only role assigned in this version.
const RoleUser = "USER"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are used internally by the service and repository layers;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Email        – optional unique email address ("" when absent).
//  Role         – role name, always RoleUser.
//  CreatedAt    – timestamp of creation, set once.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Email        string    // users.email (nullable)
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}
