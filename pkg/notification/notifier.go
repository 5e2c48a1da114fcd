package notification

// NotificationSystem represents a delivery channel (e.g. email, in-app).
type NotificationSystem string

// NoticeType identifies a kind of notification (e.g. share invite).
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	InAppSystem NotificationSystem = "inapp"
)

const (
	// ShareInviteNotice is sent to the invitee when a sharing session is issued
	ShareInviteNotice NoticeType = "share_invite"

	// ShareRevokedNotice is sent to the invitee when the owner stops sharing
	ShareRevokedNotice NoticeType = "share_revoked"
)

// NotificationData carries the per-message inputs for a notification
type NotificationData struct {
	To      string            // Recipient identifier (email address, user id)
	Subject string            // Optional subject override
	Body    string            // Optional pre-rendered body
	Data    map[string]string // Template values
}

// NoticeTemplate holds the rendering templates for one notice on one system
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
