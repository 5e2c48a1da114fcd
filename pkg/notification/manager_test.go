package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotification_Validation(t *testing.T) {
	manager := NewNotificationManager()

	assert.Error(t, manager.RegisterNotification("", EmailSystem, NoticeTemplate{}))
	assert.Error(t, manager.RegisterNotification(ShareInviteNotice, "", NoticeTemplate{}))
	assert.NoError(t, manager.RegisterNotification(ShareInviteNotice, EmailSystem, NoticeTemplate{Subject: "Invite"}))
}

func TestSend_DeliversToRegisteredSystems(t *testing.T) {
	manager := NewNotificationManager()
	emailMock := &MockNotifier{}
	inAppMock := &MockNotifier{}
	manager.RegisterNotifier(EmailSystem, emailMock)
	manager.RegisterNotifier(InAppSystem, inAppMock)

	require.NoError(t, manager.RegisterNotification(ShareInviteNotice, EmailSystem, NoticeTemplate{Subject: "Invite"}))
	require.NoError(t, manager.RegisterNotification(ShareInviteNotice, InAppSystem, NoticeTemplate{Subject: "Invite"}))

	err := manager.Send(ShareInviteNotice, NotificationData{
		To:   "bob@example.com",
		Data: map[string]string{"OwnerName": "Alice"},
	})
	require.NoError(t, err)

	require.Len(t, emailMock.Sent(), 1)
	require.Len(t, inAppMock.Sent(), 1)
	assert.Equal(t, "bob@example.com", emailMock.Sent()[0].To)
	assert.Equal(t, ShareInviteNotice, emailMock.SentTypes[0])
}

func TestSend_UnregisteredNoticeType(t *testing.T) {
	manager := NewNotificationManager()
	manager.RegisterNotifier(EmailSystem, &MockNotifier{})

	err := manager.Send(ShareRevokedNotice, NotificationData{To: "bob@example.com"})
	assert.Error(t, err)
}

func TestSend_SkipsSystemsWithoutNotifier(t *testing.T) {
	manager := NewNotificationManager()
	emailMock := &MockNotifier{}
	manager.RegisterNotifier(EmailSystem, emailMock)

	// In-app template is registered but no in-app notifier exists
	require.NoError(t, manager.RegisterNotification(ShareInviteNotice, EmailSystem, NoticeTemplate{}))
	require.NoError(t, manager.RegisterNotification(ShareInviteNotice, InAppSystem, NoticeTemplate{}))

	err := manager.Send(ShareInviteNotice, NotificationData{To: "bob@example.com"})
	require.NoError(t, err)
	assert.Len(t, emailMock.Sent(), 1)
}

func TestSend_FailureDoesNotStopOtherSystems(t *testing.T) {
	manager := NewNotificationManager()
	failure := errors.New("smtp unreachable")
	emailMock := &MockNotifier{FailWith: failure}
	inAppMock := &MockNotifier{}
	manager.RegisterNotifier(EmailSystem, emailMock)
	manager.RegisterNotifier(InAppSystem, inAppMock)

	require.NoError(t, manager.RegisterNotification(ShareRevokedNotice, EmailSystem, NoticeTemplate{}))
	require.NoError(t, manager.RegisterNotification(ShareRevokedNotice, InAppSystem, NoticeTemplate{}))

	err := manager.Send(ShareRevokedNotice, NotificationData{To: "bob@example.com"})
	assert.ErrorIs(t, err, failure)
	assert.Len(t, inAppMock.Sent(), 1)
}

func TestInAppNotifier(t *testing.T) {
	notifier := NewInAppNotifier()

	err := notifier.Send(ShareInviteNotice, NotificationData{
		To:   "bob@example.com",
		Data: map[string]string{"OwnerName": "Alice"},
	}, NoticeTemplate{
		Subject: "Shared with you",
		Text:    "{{.OwnerName}} shared resources with you.",
	})
	require.NoError(t, err)

	err = notifier.Send(ShareInviteNotice, NotificationData{}, NoticeTemplate{})
	assert.Error(t, err, "recipient is required")

	notices := notifier.ListForRecipient("bob@example.com")
	require.Len(t, notices, 1)
	assert.Equal(t, "Shared with you", notices[0].Subject)
	assert.Equal(t, "Alice shared resources with you.", notices[0].Body)
	assert.False(t, notices[0].Read)

	notifier.MarkAllRead("bob@example.com")
	notices = notifier.ListForRecipient("bob@example.com")
	require.Len(t, notices, 1)
	assert.True(t, notices[0].Read)
}
