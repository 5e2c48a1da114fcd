// Package sharing implements time-bounded sharing sessions.
//
// A session grants an invitee, identified by email, access to a fixed set
// of an owner's resources as either editor or viewer. Editor sessions start
// at creation and last until revoked. Viewer sessions are lazy: the expiry
// countdown starts only when the invitee first opens the share, so a bounded
// grant is never shortened by sitting unread in an inbox.
//
// Once a session's expiry is set it only ever moves closer: revocation sets
// it to now, and nothing clears it. Re-sharing with the same invitee does
// not extend old grants; overlapping usable sessions are revoked and a new
// session is issued in their place.
package sharing
