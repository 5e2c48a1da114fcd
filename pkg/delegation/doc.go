// Package delegation resolves who a request acts as when sharing sessions
// are in play.
//
// An authenticated caller targeting another user's data (via the X-Owner-ID
// header) is checked against the owner's usable sharing sessions. A usable
// editor session swaps the request identity to the owner, recording the
// caller in OnBehalfOfEmail so mutations stay attributable. Nothing else
// grants delegation: viewer sessions never swap identity (invitees read
// shared resources through the session-keyed share endpoints), and without
// an editor session the request is refused outright.
package delegation
