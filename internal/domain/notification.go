package domain

import "time"

// Notification types emitted by the booking system.
const (
	NotificationRequestSubmitted = "REQUEST_SUBMITTED"
	NotificationRequestApproved  = "REQUEST_APPROVED"
	NotificationRequestRejected  = "REQUEST_REJECTED"
	NotificationRequestModified  = "REQUEST_MODIFIED"
	NotificationRequestCancelled = "REQUEST_CANCELLED"
	NotificationOverrideCreated  = "OVERRIDE_CREATED"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Metadata       string    `json:"metadata,omitempty" dynamodbav:"metadata"` // JSON blob, opaque to the store
	Readed         int       `json:"readed" dynamodbav:"readed"`               // legacy field name preserved
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// NotificationData is the input for creating a notification.
type NotificationData struct {
	UserID   string
	Type     string
	Title    string
	Message  string
	Metadata map[string]any
}
