package protocol

import (
	"errors"
	"testing"
)

func TestEncodeCommandIsBareJSONString(t *testing.T) {
	want := map[Command]string{
		Heartbeat:       `"Heartbeat"`,
		HeartbeatAck:    `"HeartbeatRes"`,
		TogglePlayPause: `"TogglePlayPause"`,
		PrevTrack:       `"PrevTrack"`,
		NextTrack:       `"NextTrack"`,
		VolumeUp:        `"VolumeUp"`,
		VolumeDown:      `"VolumeDown"`,
		Like:            `"Like"`,
	}
	if len(want) != len(Commands()) {
		t.Fatalf("command table has %d entries, test covers %d", len(Commands()), len(want))
	}
	for c, w := range want {
		b, err := EncodeCommand(c)
		if err != nil {
			t.Fatalf("EncodeCommand(%v): %v", c, err)
		}
		if string(b) != w {
			t.Fatalf("EncodeCommand(%v) = %s, want %s", c, b, w)
		}
		got, err := DecodeCommand(b)
		if err != nil || got != c {
			t.Fatalf("DecodeCommand(%s) = %v, %v", b, got, err)
		}
	}
}

func TestParseCommandAcceptsNamesAndWireStrings(t *testing.T) {
	for _, s := range []string{"play_pause", "TogglePlayPause"} {
		c, err := ParseCommand(s)
		if err != nil || c != TogglePlayPause {
			t.Fatalf("ParseCommand(%q) = %v, %v", s, c, err)
		}
	}
	if _, err := ParseCommand("rewind"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestEncodeCommandRejectsUnknown(t *testing.T) {
	if _, err := EncodeCommand(Command(0)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if _, err := DecodeCommand([]byte(`"Rewind"`)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if _, err := DecodeCommand([]byte(`{"cmd":"Like"}`)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand for an object, got %v", err)
	}
}
