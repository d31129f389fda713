package domain

import "time"

// Roles assignable to a user. Role gates approval rights on booking
// requests, which live in a separate service; here it only travels inside
// login codes and JWT claims.
const (
	RoleAdmin   = "ADMIN"
	RoleFaculty = "FACULTY"
	RoleStudent = "STUDENT"
)

type User struct {
	UserID     string    `json:"id" dynamodbav:"user_id"`
	Name       string    `json:"name" dynamodbav:"name"`
	Email      string    `json:"email" dynamodbav:"email"`
	Role       string    `json:"role" dynamodbav:"role"`
	Department string    `json:"department,omitempty" dynamodbav:"department"`
	Enable     int       `json:"enable" dynamodbav:"enable"` // 1 = enabled, 0 = disabled
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

// RequestCodeRequest is the body of POST /v1/auth/request-code.
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest is the body of POST /v1/auth/verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}
