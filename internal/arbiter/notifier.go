package arbiter

import "github.com/battleshipd/server/internal/wire"

// SessionNotifier is the narrow interface the Arbiter uses to reach a
// session, instead of the back-references a session and the arbiter
// would otherwise hold on each other. Both sides only ever interact
// through a session name and these two operations.
type SessionNotifier interface {
	// Send delivers env to the named session. Returns an error if the
	// session is unknown or the write failed; either means the session
	// is gone and its games are subject to the disconnection path.
	Send(name string, env wire.Envelope) error

	// Close terminates the named session's connection.
	Close(name string)
}
