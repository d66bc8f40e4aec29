// Package audio provides the fixed-capacity buffers, chunking, volume
// scaling, and WAV helpers the satellite and its DSP stage share, ported
// from original_source/wyoming_satellite/utils.py.
package audio

import "fmt"

// Buffer is a fixed-capacity byte accumulator with a variable used length,
// equivalent to original_source's AudioBuffer. It never reallocates: once
// constructed with a capacity, Append past that capacity is an error.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a Buffer able to hold up to capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Clear resets the buffer to empty without releasing its backing array.
func (b *Buffer) Clear() {
	b.n = 0
}

// Append copies p onto the end of the used region. Returns an error if p
// would overflow the buffer's capacity.
func (b *Buffer) Append(p []byte) error {
	if b.n+len(p) > len(b.data) {
		return fmt.Errorf("audio: buffer overflow: %d + %d > %d", b.n, len(p), len(b.data))
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return nil
}

// Bytes returns a copy of the used region.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.n)
	copy(out, b.data[:b.n])
	return out
}

// Empty reports whether the buffer currently holds no bytes.
func (b *Buffer) Empty() bool {
	return b.n == 0
}
