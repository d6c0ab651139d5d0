package psk

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"
)

// DefaultPollInterval is how often a FileSource rereads its file.
const DefaultPollInterval = 2 * time.Second

// FileSource watches a file holding a base64 PSK. A missing file reads as empty.
type FileSource struct {
	*Value
	path     string
	interval time.Duration
}

// NewFileSource reads path once and returns a source committed to its content.
func NewFileSource(path string, interval, debounce time.Duration) (*FileSource, error) {
	initial, err := readPSKFile(path)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &FileSource{Value: NewValue(initial, debounce), path: path, interval: interval}, nil
}

// Run polls the file until ctx is done. Read errors other than a missing file keep the current value.
func (f *FileSource) Run(ctx context.Context) error {
	t := time.NewTicker(f.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			f.Close()
			return ctx.Err()
		case <-t.C:
			s, err := readPSKFile(f.path)
			if err != nil {
				continue
			}
			f.Set(s)
		}
	}
}

func readPSKFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
