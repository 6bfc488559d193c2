package notification

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

// DefaultTopic is the FCM topic every client subscribes to for venue-wide announcements.
const DefaultTopic = "all"

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier sends push notifications through Firebase Cloud Messaging.
type FCMNotifier struct {
	client messageSender
	users  domain.UserRepository
	topic  string
	logger *slog.Logger
}

func NewFCMNotifier(client *messaging.Client, users domain.UserRepository, logger *slog.Logger) *FCMNotifier {
	return newFCMNotifier(client, users, logger)
}

func newFCMNotifier(client messageSender, users domain.UserRepository, logger *slog.Logger) *FCMNotifier {
	return &FCMNotifier{
		client: client,
		users:  users,
		topic:  DefaultTopic,
		logger: logger,
	}
}

func (f *FCMNotifier) Send(ctx context.Context, n domain.Notification) error {
	if len(n.UserIDs) == 0 {
		msg := &messaging.Message{
			Topic:        f.topic,
			Notification: &messaging.Notification{Title: n.Title, Body: n.Message},
			Data:         n.Data,
		}

		_, err := f.client.Send(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to send FCM topic message: %w", err)
		}

		return nil
	}

	tokens := f.resolveTokens(ctx, n.UserIDs)
	if len(tokens) == 0 {
		f.logger.Warn("no deliverable FCM tokens for notification", "user_ids", n.UserIDs, "title", n.Title)
		return nil
	}

	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Message},
		Data:         n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	resp, err := f.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	if resp.FailureCount > 0 {
		for i, r := range resp.Responses {
			if r.Error != nil {
				f.logger.Warn("FCM delivery failed", "token_index", i, "error", r.Error)
			}
		}
	}

	return nil
}

func (f *FCMNotifier) resolveTokens(ctx context.Context, userIDs []string) []string {
	tokens := make([]string, 0, len(userIDs))

	for _, id := range userIDs {
		user, err := f.users.GetByID(ctx, id)
		if err != nil {
			f.logger.Warn("could not load user for notification", "user_id", id, "error", err)
			continue
		}

		if user.FCMToken == "" {
			continue
		}

		tokens = append(tokens, user.FCMToken)
	}

	return tokens
}

// LogNotifier writes notifications to the log. Used when FCM is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(ctx context.Context, n domain.Notification) error {
	l.logger.Info("push notification", "title", n.Title, "message", n.Message, "user_ids", n.UserIDs)
	return nil
}
