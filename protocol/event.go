package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DecodeContext is the ErrorEvent context used for frames that do not parse as a known event.
const DecodeContext = "decode"

// Event is one inbound message. Several parts may be set at once (for example Track and Timeline).
type Event struct {
	Heartbeat    bool
	HeartbeatAck bool
	Track        *TrackInfo
	Timeline     *TimelineState
	Album        *AlbumImage
	Volume       *VolumeState
	Error        *ErrorEvent
}

// Empty reports whether no part is set.
func (e Event) Empty() bool {
	return !e.Heartbeat && !e.HeartbeatAck && e.Track == nil && e.Timeline == nil &&
		e.Album == nil && e.Volume == nil && e.Error == nil
}

type TrackInfo struct {
	Title  string
	Artist string
	Album  string
}

type TimelineState struct {
	Position time.Duration
	Duration time.Duration
	Paused   bool
}

type AlbumKind uint8

const (
	AlbumNone AlbumKind = iota
	AlbumURL
	AlbumBlob
)

// AlbumImage is the current cover art. Image bytes are passed through undecoded.
type AlbumImage struct {
	Kind AlbumKind
	URL  string
	Mime string
	Data []byte
}

// ErrorEvent is an error reported by the peer. It does not affect the channel.
type ErrorEvent struct {
	Context string
	Message string
}

func (e *ErrorEvent) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return e.Context + ": " + e.Message
}

type VolumeState struct {
	Level float64
	Muted bool
}

type timelineWire struct {
	Duration float64 `json:"duration"`
	Position float64 `json:"position"`
	Paused   bool    `json:"paused"`
}

type blobWire struct {
	Mime string `json:"mime"`
	Data []byte `json:"base64"`
}

type albumWire struct {
	URL  *string   `json:"Url,omitempty"`
	Blob *blobWire `json:"Blob,omitempty"`
}

type volumeWire struct {
	Level float64 `json:"level"`
	Muted bool    `json:"muted"`
}

type errorWire struct {
	Ctx   string `json:"ctx"`
	Error string `json:"error"`
}

var jsonNull = []byte("null")

// DecodeEvent parses a decrypted inbound frame. It never fails: a frame that is not
// valid JSON, or has no recognized key, yields an Error part with DecodeContext.
func DecodeEvent(b []byte) Event {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return decodeError(fmt.Sprintf("invalid event: %v", err))
	}
	var ev Event
	if _, ok := raw["heartbeat"]; ok {
		ev.Heartbeat = true
	}
	if _, ok := raw["heartbeat_res"]; ok {
		ev.HeartbeatAck = true
	}
	if err := decodeTrack(raw, &ev); err != nil {
		return decodeError(err.Error())
	}
	if v, ok := raw["timeline"]; ok && !isNull(v) {
		var tw timelineWire
		if err := json.Unmarshal(v, &tw); err != nil {
			return decodeError(fmt.Sprintf("timeline: %v", err))
		}
		ev.Timeline = &TimelineState{
			Position: millis(tw.Position),
			Duration: millis(tw.Duration),
			Paused:   tw.Paused,
		}
	}
	if v, ok := raw["album_img"]; ok {
		img, err := decodeAlbum(v)
		if err != nil {
			return decodeError(fmt.Sprintf("album_img: %v", err))
		}
		ev.Album = img
	}
	if v, ok := raw["volume"]; ok && !isNull(v) {
		var vw volumeWire
		if err := json.Unmarshal(v, &vw); err != nil {
			return decodeError(fmt.Sprintf("volume: %v", err))
		}
		ev.Volume = &VolumeState{Level: vw.Level, Muted: vw.Muted}
	}
	if v, ok := raw["error"]; ok {
		ee, err := decodeErrorPart(raw, v)
		if err != nil {
			return decodeError(fmt.Sprintf("error: %v", err))
		}
		ev.Error = ee
	}
	if ev.Empty() {
		return decodeError("unrecognized event")
	}
	return ev
}

func decodeTrack(raw map[string]json.RawMessage, ev *Event) error {
	var ti TrackInfo
	found := false
	for key, dst := range map[string]*string{"title": &ti.Title, "artist": &ti.Artist, "album": &ti.Album} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		found = true
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
	}
	if found {
		ev.Track = &ti
	}
	return nil
}

func decodeAlbum(v json.RawMessage) (*AlbumImage, error) {
	if isNull(v) {
		return &AlbumImage{Kind: AlbumNone}, nil
	}
	var aw albumWire
	if err := json.Unmarshal(v, &aw); err != nil {
		return nil, err
	}
	switch {
	case aw.URL != nil:
		return &AlbumImage{Kind: AlbumURL, URL: *aw.URL}, nil
	case aw.Blob != nil:
		return &AlbumImage{Kind: AlbumBlob, Mime: aw.Blob.Mime, Data: aw.Blob.Data}, nil
	default:
		return nil, fmt.Errorf("unknown image variant")
	}
}

// decodeErrorPart accepts both {"ctx":..,"error":".."} and {"error":{"ctx":..,"error":..}}.
func decodeErrorPart(raw map[string]json.RawMessage, v json.RawMessage) (*ErrorEvent, error) {
	var msg string
	if err := json.Unmarshal(v, &msg); err == nil {
		ee := &ErrorEvent{Message: msg}
		if c, ok := raw["ctx"]; ok {
			if err := json.Unmarshal(c, &ee.Context); err != nil {
				return nil, err
			}
		}
		return ee, nil
	}
	var ew errorWire
	if err := json.Unmarshal(v, &ew); err != nil {
		return nil, err
	}
	return &ErrorEvent{Context: ew.Ctx, Message: ew.Error}, nil
}

func decodeError(msg string) Event {
	return Event{Error: &ErrorEvent{Context: DecodeContext, Message: msg}}
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), jsonNull)
}

func millis(ms float64) time.Duration {
	if math.IsNaN(ms) || ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// MarshalJSON encodes e in the shape the host sends. Errors use the top-level
// {"ctx":..,"error":..} form.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if e.Heartbeat {
		out["heartbeat"] = nil
	}
	if e.HeartbeatAck {
		out["heartbeat_res"] = nil
	}
	if e.Track != nil {
		out["title"] = e.Track.Title
		out["artist"] = e.Track.Artist
		out["album"] = e.Track.Album
	}
	if e.Timeline != nil {
		out["timeline"] = timelineWire{
			Duration: float64(e.Timeline.Duration.Milliseconds()),
			Position: float64(e.Timeline.Position.Milliseconds()),
			Paused:   e.Timeline.Paused,
		}
	}
	if e.Album != nil {
		switch e.Album.Kind {
		case AlbumURL:
			u := e.Album.URL
			out["album_img"] = albumWire{URL: &u}
		case AlbumBlob:
			out["album_img"] = albumWire{Blob: &blobWire{Mime: e.Album.Mime, Data: e.Album.Data}}
		default:
			out["album_img"] = nil
		}
	}
	if e.Volume != nil {
		out["volume"] = volumeWire{Level: e.Volume.Level, Muted: e.Volume.Muted}
	}
	if e.Error != nil {
		out["ctx"] = e.Error.Context
		out["error"] = e.Error.Message
	}
	return json.Marshal(out)
}
