package model

import "time"

// User represents an application user record as stored in the `users`
// table. The engine itself never creates users; they arrive through the
// auth collaborator and are carried through booking operations as
// request-scoped identity (user id plus email for audit entries).
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (CUSTOMER or ADMIN).
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

// Roles recognised by the API. ADMIN manages events and seat inventory;
// CUSTOMER books seats.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)
