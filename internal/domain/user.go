package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents a gym member (or an admin) in the identity directory.
// The hex form of ID is the subject id check-in records are keyed by.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Age          int                `bson:"age,omitempty" json:"age,omitempty"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SubjectID returns the identifier used to key this user's check-in records.
func (u *User) SubjectID() string {
	return u.ID.Hex()
}
