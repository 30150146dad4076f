package model

import "time"

// Role values stored in users.role and carried in the access token.
const (
	RoleCustomer = "CUSTOMER"
	RoleAgency   = "AGENCY"
)

// User represents an application user record as stored in the
// `users` table.  Agencies create events, customers book them; both can
// leave reviews and keep favourites.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name shown on reviews.
//  Email        – unique, normalised email address.
//  PasswordHash – bcrypt hashed password.
//  PhoneNumber  – optional contact number.
//  Role         – CUSTOMER or AGENCY.
//  IsActive     – whether the account may log in.
type User struct {
	ID           uint64    // users.id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	PhoneNumber  string    // users.phone_number
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
