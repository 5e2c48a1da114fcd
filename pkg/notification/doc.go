// Package notification delivers share notices over pluggable channels.
//
// A NotificationManager routes each NoticeType to the notifiers registered
// for it. Email delivery uses SMTP via go-mail; in-app delivery stores the
// notice for display on the recipient's next visit. Senders treat delivery
// as best effort: a failed notification is logged and never fails the
// operation that triggered it.
package notification
