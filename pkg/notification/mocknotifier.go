package notification

import "sync"

// MockNotifier records sent notifications for tests
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	SentTypes         []NoticeType
	FailWith          error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}

// Sent returns a snapshot of the recorded notifications
func (m *MockNotifier) Sent() []NotificationData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationData(nil), m.SentNotifications...)
}
