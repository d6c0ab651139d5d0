package main

import (
	"github.com/floegence/mediactl/channel"
	"github.com/floegence/mediactl/protocol"
	"github.com/rs/zerolog"
)

func newEventLogger(log zerolog.Logger) channel.Dispatcher {
	return channel.DispatcherFunc(func(ev protocol.Event) { logEvent(log, ev) })
}

func logEvent(log zerolog.Logger, ev protocol.Event) {
	if ev.Error != nil {
		log.Warn().Str("ctx", ev.Error.Context).Str("error", ev.Error.Message).Msg("host error")
	}
	if ev.Track != nil {
		log.Info().Str("title", ev.Track.Title).Str("artist", ev.Track.Artist).Str("album", ev.Track.Album).Msg("track")
	}
	if ev.Timeline != nil {
		log.Info().Dur("position", ev.Timeline.Position).Dur("duration", ev.Timeline.Duration).Bool("paused", ev.Timeline.Paused).Msg("timeline")
	}
	if ev.Album != nil {
		e := log.Debug().Str("kind", albumKind(ev.Album.Kind))
		switch ev.Album.Kind {
		case protocol.AlbumURL:
			e = e.Str("url", ev.Album.URL)
		case protocol.AlbumBlob:
			e = e.Str("mime", ev.Album.Mime).Int("bytes", len(ev.Album.Data))
		}
		e.Msg("album art")
	}
	if ev.Volume != nil {
		log.Info().Float64("volume", ev.Volume.Level).Bool("muted", ev.Volume.Muted).Msg("volume")
	}
	if ev.HeartbeatAck || ev.Heartbeat {
		log.Trace().Bool("ack", ev.HeartbeatAck).Msg("heartbeat")
	}
}

func albumKind(k protocol.AlbumKind) string {
	switch k {
	case protocol.AlbumURL:
		return "url"
	case protocol.AlbumBlob:
		return "blob"
	default:
		return "none"
	}
}
