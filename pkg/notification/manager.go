package notification

import (
	"fmt"
	"log/slog"
)

// NotificationManager routes notices to the notifiers registered for them.
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	registry  map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
		registry:  make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}

	if _, exists := nm.registry[noticeType]; !exists {
		nm.registry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.registry[noticeType][system] = template
	return nil
}

// Send delivers the notice through every system it is registered for. A
// failure on one system does not stop delivery on the others; the first
// error is returned after all systems have been tried.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	systemTemplates, exists := nm.registry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	var firstErr error
	for system, template := range systemTemplates {
		notifier, exists := nm.notifiers[system]
		if !exists {
			slog.Debug("No notifier registered for system, skipping", "system", system, "noticeType", noticeType)
			continue
		}
		if err := notifier.Send(noticeType, notification, template); err != nil {
			slog.Error("Failed to send notification", "err", err, "system", system, "noticeType", noticeType)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
