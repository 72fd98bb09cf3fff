// Package strip models the addressable LED strip: an in-memory pixel buffer,
// the frame encoding sent to the hardware and the periodic flush.
package strip

import (
	"fmt"
	"sync"

	"github.com/smazurov/lampnode/internal/color"
)

// Driver is the strip surface used by the transition runner and the flusher.
type Driver interface {
	// SetPixel writes one pixel into the buffer. Out of range indexes are ignored.
	SetPixel(index int, c color.Color)
	// Show flushes the buffer to hardware.
	Show() error
	// Len returns the fixed pixel count.
	Len() int
}

// Strip is a Driver backed by a pixel buffer and a frame sink.
type Strip struct {
	mu      sync.Mutex
	pixels  []color.Color
	dirty   bool
	encoder Encoder
	sink    Sink
}

// New creates a strip with count pixels, all black.
func New(count int, encoder Encoder, sink Sink) (*Strip, error) {
	if count <= 0 {
		return nil, fmt.Errorf("strip pixel count must be positive, got %d", count)
	}
	if sink == nil {
		sink = Discard
	}
	return &Strip{
		pixels:  make([]color.Color, count),
		dirty:   true,
		encoder: encoder,
		sink:    sink,
	}, nil
}

// SetPixel implements Driver.
func (s *Strip) SetPixel(index int, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.pixels) {
		return
	}
	if s.pixels[index] != c {
		s.pixels[index] = c
		s.dirty = true
	}
}

// Fill sets every pixel to c.
func (s *Strip) Fill(c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.pixels {
		s.pixels[i] = c
	}
	s.dirty = true
}

// Show implements Driver. Nothing is written when the buffer is unchanged.
func (s *Strip) Show() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	frame := s.encoder.Encode(s.pixels)
	s.dirty = false
	s.mu.Unlock()

	if err := s.sink.WriteFrame(frame); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("failed to write strip frame: %w", err)
	}
	return nil
}

// Len implements Driver.
func (s *Strip) Len() int {
	return len(s.pixels)
}

// Pixels returns a copy of the pixel buffer.
func (s *Strip) Pixels() []color.Color {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]color.Color, len(s.pixels))
	copy(out, s.pixels)
	return out
}

// Close releases the sink.
func (s *Strip) Close() error {
	return s.sink.Close()
}
