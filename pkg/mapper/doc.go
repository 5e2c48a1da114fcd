// Package mapper resolves user identities for the sharing subsystem.
//
// Sessions address invitees by email so that resources can be shared with
// people who have not registered yet. When an invitee does have an account,
// the mapper ties the email back to it for delegation and notifications.
package mapper
