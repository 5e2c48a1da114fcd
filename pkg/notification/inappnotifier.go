package notification

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// InAppNotification is a notice stored for display inside the application
type InAppNotification struct {
	Recipient  string            `json:"recipient"`
	NoticeType NoticeType        `json:"notice_type"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Read       bool              `json:"read"`
}

// InAppNotifier stores notices keyed by recipient so the application can
// surface them on next visit. Delivery never leaves the process.
type InAppNotifier struct {
	byRecipient map[string][]InAppNotification
	mu          sync.Mutex
}

func NewInAppNotifier() *InAppNotifier {
	return &InAppNotifier{
		byRecipient: make(map[string][]InAppNotification),
	}
}

func (n *InAppNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("in-app notification requires 'To' recipient")
	}

	body := notification.Body
	if body == "" {
		rendered, err := renderTemplate("text", noticeTemplate.Text, notification.Data)
		if err != nil {
			return err
		}
		body = rendered
	}

	subject := noticeTemplate.Subject
	if notification.Subject != "" {
		subject = notification.Subject
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.byRecipient[notification.To] = append(n.byRecipient[notification.To], InAppNotification{
		Recipient:  notification.To,
		NoticeType: noticeType,
		Subject:    subject,
		Body:       body,
		Data:       notification.Data,
		CreatedAt:  time.Now().UTC(),
	})

	slog.Debug("In-app notification stored", "recipient", notification.To, "noticeType", noticeType)
	return nil
}

// ListForRecipient returns the stored notices for a recipient, oldest first
func (n *InAppNotifier) ListForRecipient(recipient string) []InAppNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]InAppNotification(nil), n.byRecipient[recipient]...)
}

// MarkAllRead marks every stored notice for the recipient as read
func (n *InAppNotifier) MarkAllRead(recipient string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notices := n.byRecipient[recipient]
	for i := range notices {
		notices[i].Read = true
	}
}
