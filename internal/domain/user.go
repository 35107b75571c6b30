package domain

import "time"

// User types. Every account is exactly one of these.
const (
	UserTypeDonor   = "donor"
	UserTypeManager = "manager"
	UserTypeAdmin   = "admin"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Name         string    `json:"name" dynamodbav:"name"`
	PhoneNumber  string    `json:"phone_number" dynamodbav:"phone_number"`
	BloodType    string    `json:"blood_type,omitempty" dynamodbav:"blood_type"`
	UserType     string    `json:"user_type" dynamodbav:"user_type"` // "donor" | "manager" | "admin"
	IsActive     bool      `json:"is_active" dynamodbav:"is_active"`
	IsVerified   bool      `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Recipient is the projection of a User the broadcast workflow needs.
type Recipient struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	IsActive bool   `json:"is_active"`
}

// AsRecipient projects the user fields used during alert delivery.
func (u *User) AsRecipient() Recipient {
	return Recipient{
		UserID:   u.UserID,
		Email:    u.Email,
		Name:     u.Name,
		UserType: u.UserType,
		IsActive: u.IsActive,
	}
}

type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	BloodType   string `json:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
}
