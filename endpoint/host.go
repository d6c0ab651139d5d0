// Package endpoint implements the media host side of the encrypted control channel.
package endpoint

import (
	"context"

	"github.com/floegence/mediactl/protocol"
)

// Host is the media player being controlled.
type Host interface {
	// HandleCommand applies a user command. Errors are reported to the client and do not end the session.
	HandleCommand(ctx context.Context, cmd protocol.Command) error
	// Snapshot returns the full current state (track, timeline, album, volume).
	Snapshot(ctx context.Context) (protocol.Event, error)
	// Subscribe returns state updates until ctx is done.
	Subscribe(ctx context.Context) <-chan protocol.Event
}
