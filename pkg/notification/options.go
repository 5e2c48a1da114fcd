package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithInApp adds the in-app notifier
func WithInApp(notifier *InAppNotifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(InAppSystem, notifier)
		return nil
	}
}

// WithShareInviteTemplates registers the share invite templates
func WithShareInviteTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		err := nm.RegisterNotification(ShareInviteNotice, EmailSystem, NoticeTemplate{
			Subject: "Items shared with you",
			Html:    loadTemplate("templates/email/share_invite.html"),
		})
		if err != nil {
			return err
		}
		return nm.RegisterNotification(ShareInviteNotice, InAppSystem, NoticeTemplate{
			Subject: "Items shared with you",
			Text:    "{{.OwnerName}} shared {{.ResourceCount}} item(s) with you as {{.Role}}.",
		})
	}
}

// WithShareRevokedTemplates registers the share revoked templates
func WithShareRevokedTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		err := nm.RegisterNotification(ShareRevokedNotice, EmailSystem, NoticeTemplate{
			Subject: "Sharing has been stopped",
			Html:    loadTemplate("templates/email/share_revoked.html"),
		})
		if err != nil {
			return err
		}
		return nm.RegisterNotification(ShareRevokedNotice, InAppSystem, NoticeTemplate{
			Subject: "Sharing has been stopped",
			Text:    "{{.OwnerName}} stopped sharing with you.",
		})
	}
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithShareInviteTemplates(),
			WithShareRevokedTemplates(),
		}
		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()
	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}
	return notificationManager, nil
}
