package model

import "time"

// Roles carried in the access token's role claim.
const (
	RoleClient = "CLIENT"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  Reservations reference users by ID only.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – CLIENT or ADMIN.
//	IsActive     – whether the account is active.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`          // users.id
	Email        string    `gorm:"size:190;not null;uniqueIndex" json:"email"`  // users.email
	PasswordHash string    `gorm:"size:255;not null" json:"-"`                  // users.password_hash
	Role         string    `gorm:"size:20;not null;default:CLIENT" json:"role"` // users.role
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`      // users.is_active
	CreatedAt    time.Time `json:"created_at"`                                  // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`                                  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`     // refresh_tokens.id
	UserID    uint64     `gorm:"not null;index"`               // refresh_tokens.user_id
	TokenHash string     `gorm:"size:64;not null;uniqueIndex"` // refresh_tokens.token_hash
	ExpiresAt time.Time  `gorm:"not null"`                     // refresh_tokens.expires_at
	RevokedAt *time.Time                                       // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time                                        // refresh_tokens.created_at
}
