package main

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/floegence/mediactl/protocol"
)

const volumeStep = 0.1

var errAlreadyLiked = errors.New("track already liked")

type track struct {
	info     protocol.TrackInfo
	duration time.Duration
	art      protocol.AlbumImage
}

// 1x1 transparent PNG.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

var defaultPlaylist = []track{
	{
		info:     protocol.TrackInfo{Title: "Harbor Lights", Artist: "The Pilots", Album: "Low Tide"},
		duration: 3*time.Minute + 42*time.Second,
		art:      protocol.AlbumImage{Kind: protocol.AlbumURL, URL: "https://example.invalid/art/low-tide.jpg"},
	},
	{
		info:     protocol.TrackInfo{Title: "Paper Satellites", Artist: "Mira Vale", Album: "Orbit"},
		duration: 4*time.Minute + 5*time.Second,
		art:      protocol.AlbumImage{Kind: protocol.AlbumBlob, Mime: "image/png", Data: placeholderPNG},
	},
	{
		info:     protocol.TrackInfo{Title: "Untitled Demo", Artist: "Unknown"},
		duration: 2*time.Minute + 18*time.Second,
		art:      protocol.AlbumImage{Kind: protocol.AlbumNone},
	},
}

// player is an in-memory media player that implements endpoint.Host.
type player struct {
	now func() time.Time

	mu       sync.Mutex
	playlist []track
	index    int
	paused   bool
	offset   time.Duration // position when last paused or seeked
	started  time.Time     // wall clock when playback resumed
	volume   float64
	liked    map[int]bool
	subs     map[chan protocol.Event]struct{}
}

func newPlayer(playlist []track, now func() time.Time) *player {
	if now == nil {
		now = time.Now
	}
	return &player{
		now:      now,
		playlist: playlist,
		paused:   true,
		volume:   0.5,
		liked:    make(map[int]bool),
		subs:     make(map[chan protocol.Event]struct{}),
	}
}

func (p *player) HandleCommand(_ context.Context, cmd protocol.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch cmd {
	case protocol.TogglePlayPause:
		// The session re-sends the timeline after a toggle.
		if p.paused {
			p.started = p.now()
		} else {
			p.offset = p.positionLocked()
		}
		p.paused = !p.paused
	case protocol.NextTrack:
		p.seekTrackLocked((p.index + 1) % len(p.playlist))
	case protocol.PrevTrack:
		// Restart the current track unless it just began.
		if p.positionLocked() > 3*time.Second {
			p.seekTrackLocked(p.index)
		} else {
			p.seekTrackLocked((p.index + len(p.playlist) - 1) % len(p.playlist))
		}
	case protocol.VolumeUp:
		p.setVolumeLocked(p.volume + volumeStep)
	case protocol.VolumeDown:
		p.setVolumeLocked(p.volume - volumeStep)
	case protocol.Like:
		if p.liked[p.index] {
			return errAlreadyLiked
		}
		p.liked[p.index] = true
	default:
		return protocol.ErrUnknownCommand
	}
	return nil
}

func (p *player) Snapshot(context.Context) (protocol.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := p.trackEventLocked()
	ev.Volume = &protocol.VolumeState{Level: p.volume, Muted: p.volume == 0}
	return ev, nil
}

// Subscribe registers a listener that is closed once ctx is done.
func (p *player) Subscribe(ctx context.Context) <-chan protocol.Event {
	ch := make(chan protocol.Event, 8)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	context.AfterFunc(ctx, func() {
		p.mu.Lock()
		delete(p.subs, ch)
		close(ch)
		p.mu.Unlock()
	})
	return ch
}

func (p *player) positionLocked() time.Duration {
	pos := p.offset
	if !p.paused {
		pos += p.now().Sub(p.started)
	}
	if d := p.playlist[p.index].duration; pos > d {
		pos = d
	}
	return pos
}

func (p *player) seekTrackLocked(i int) {
	p.index = i
	p.offset = 0
	p.started = p.now()
	p.publishLocked(p.trackEventLocked())
}

func (p *player) setVolumeLocked(v float64) {
	v = min(max(math.Round(v*10)/10, 0), 1)
	if v == p.volume {
		return
	}
	p.volume = v
	p.publishLocked(protocol.Event{Volume: &protocol.VolumeState{Level: v, Muted: v == 0}})
}

func (p *player) trackEventLocked() protocol.Event {
	t := p.playlist[p.index]
	info := t.info
	art := t.art
	return protocol.Event{
		Track:    &info,
		Timeline: &protocol.TimelineState{Position: p.positionLocked(), Duration: t.duration, Paused: p.paused},
		Album:    &art,
	}
}

// publishLocked drops the update for subscribers that are not keeping up.
func (p *player) publishLocked(ev protocol.Event) {
	for ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
