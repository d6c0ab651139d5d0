// Package psk decodes pre-shared keys and reports PSK changes.
package psk

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidPSK is returned when a non-empty PSK is not valid standard base64.
var ErrInvalidPSK = errors.New("invalid psk")

// Decode returns the PSK bytes for s. Surrounding whitespace is ignored, and an empty
// string decodes to nil (no channel). Both padded and unpadded standard base64 are accepted.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		return b, nil
	}
	return nil, ErrInvalidPSK
}

// Source reports the current PSK and its changes.
type Source interface {
	// Current returns the last committed value.
	Current() string
	// OnChange registers fn for every committed change. The returned func unregisters it.
	OnChange(fn func(string)) (stop func())
}

// Static is a Source that never changes.
type Static string

func (s Static) Current() string { return string(s) }

func (Static) OnChange(func(string)) func() { return func() {} }
