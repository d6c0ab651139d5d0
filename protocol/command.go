// Package protocol defines the plaintext JSON messages carried inside the encrypted channel.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when a command name or wire string is not in the command table.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one of the fixed set of outbound commands.
type Command uint8

const (
	Heartbeat Command = iota + 1
	HeartbeatAck
	TogglePlayPause
	PrevTrack
	NextTrack
	VolumeUp
	VolumeDown
	Like
)

type commandEntry struct {
	name string // stable user-facing name (CLI, metrics labels)
	wire string // canonical payload string
}

var commandTable = map[Command]commandEntry{
	Heartbeat:       {name: "heartbeat", wire: "Heartbeat"},
	HeartbeatAck:    {name: "heartbeat_res", wire: "HeartbeatRes"},
	TogglePlayPause: {name: "play_pause", wire: "TogglePlayPause"},
	PrevTrack:       {name: "prev_track", wire: "PrevTrack"},
	NextTrack:       {name: "next_track", wire: "NextTrack"},
	VolumeUp:        {name: "volume_up", wire: "VolumeUp"},
	VolumeDown:      {name: "volume_down", wire: "VolumeDown"},
	Like:            {name: "like", wire: "Like"},
}

// Commands lists every command in table order.
func Commands() []Command {
	return []Command{Heartbeat, HeartbeatAck, TogglePlayPause, PrevTrack, NextTrack, VolumeUp, VolumeDown, Like}
}

func (c Command) String() string {
	if e, ok := commandTable[c]; ok {
		return e.name
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// Wire returns the canonical payload string for c, or "" if c is unknown.
func (c Command) Wire() string {
	return commandTable[c].wire
}

// Valid reports whether c is in the command table.
func (c Command) Valid() bool {
	_, ok := commandTable[c]
	return ok
}

// ParseCommand maps a user-facing name (or a wire string) to a Command.
func ParseCommand(s string) (Command, error) {
	for c, e := range commandTable {
		if e.name == s || e.wire == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// EncodeCommand returns the plaintext for c: a bare JSON string literal.
func EncodeCommand(c Command) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, c)
	}
	return json.Marshal(c.Wire())
}

// DecodeCommand parses a plaintext command frame.
func DecodeCommand(b []byte) (Command, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownCommand, err)
	}
	for c, e := range commandTable {
		if e.wire == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
