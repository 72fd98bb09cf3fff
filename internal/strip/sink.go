package strip

import (
	"fmt"
	"os"
	"sync"
)

// Sink receives encoded frames.
type Sink interface {
	WriteFrame(frame []byte) error
	Close() error
}

type discard struct{}

func (discard) WriteFrame([]byte) error { return nil }
func (discard) Close() error            { return nil }

// Discard drops every frame. Used when no strip device is configured.
var Discard Sink = discard{}

// DeviceSink writes each frame in a single write to a character device or FIFO.
type DeviceSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenDevice opens path write-only.
func OpenDevice(path string) (*DeviceSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open strip device %s: %w", path, err)
	}
	return &DeviceSink{path: path, file: f}, nil
}

// WriteFrame implements Sink.
func (d *DeviceSink) WriteFrame(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return fmt.Errorf("strip device %s is closed", d.path)
	}
	n, err := d.file.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write to %s: %d of %d bytes", d.path, n, len(frame))
	}
	return nil
}

// Close implements Sink.
func (d *DeviceSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
