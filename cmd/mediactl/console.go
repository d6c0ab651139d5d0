package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/floegence/mediactl/protocol"
	"github.com/rs/zerolog"
)

// controller is the part of channel.Manager driven from the console.
type controller interface {
	Send(ctx context.Context, cmd protocol.Command) error
	NotifyForeground()
}

// runConsole reads one command per line until EOF, "quit" or ctx is done. It reports
// whether "quit" was read.
//
// Lines are command names (play_pause, next_track, ...) or wire names, plus "fg".
func runConsole(ctx context.Context, r io.Reader, c controller, log zerolog.Logger) (quit bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			if !handleLine(ctx, strings.TrimSpace(line), c, log) {
				return true
			}
		}
	}
}

func handleLine(ctx context.Context, line string, c controller, log zerolog.Logger) bool {
	switch line {
	case "":
		return true
	case "quit", "exit":
		return false
	case "fg", "foreground":
		c.NotifyForeground()
		return true
	}
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		log.Warn().Str("input", line).Msg("unknown command")
		return true
	}
	if err := c.Send(ctx, cmd); err != nil {
		log.Warn().Err(err).Stringer("command", cmd).Msg("send failed")
		return true
	}
	log.Debug().Stringer("command", cmd).Msg("sent")
	return true
}
