package domain

import "context"

type User struct {
	ID          string
	Email       string
	DisplayName string
	FCMToken    string
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

type Notification struct {
	Title   string
	Message string
	// UserIDs narrows delivery to these users; empty means every subscribed device.
	UserIDs []string
	Data    map[string]string
}

// Notifier delivers push notifications. Delivery is fire-and-forget for callers.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
