package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"DEBUG":    zerolog.DebugLevel,
		" warn ":   zerolog.WarnLevel,
		"off":      zerolog.Disabled,
		"trace":    zerolog.TraceLevel,
		"error":    zerolog.ErrorLevel,
		"warning":  zerolog.WarnLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}

func TestFactoryWritesScopedRecords(t *testing.T) {
	var buf bytes.Buffer
	f := NewFactory(New("mediactl", zerolog.InfoLevel, &buf, false))
	log := f.NewLogger("channel")

	log.Debugf("hidden %d", 1)
	log.Warnf("attempt %s failed", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json record: %v", err)
	}
	if rec["level"] != "warn" || rec["scope"] != "channel" || rec["app"] != "mediactl" || rec["message"] != "attempt abc failed" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
