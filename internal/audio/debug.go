package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/lestrrat-go/strftime"
)

// DebugRecorder writes a ring-buffered pre-roll plus the live chunks of one
// detected voice command to a timestamped WAV file, for the
// --debug-recording-dir feature (spec.md §4.7.2 edge cases). Filenames use
// lestrrat-go/strftime, matching the teacher's own daily-log-name pattern
// in src/log.go/src/xmit.go.
type DebugRecorder struct {
	dir     string
	pattern *strftime.Strftime
	format  goaudio.Format
	file    *os.File
	enc     *wav.Encoder
}

// NewDebugRecorder prepares a recorder that writes 16-bit PCM WAV files
// into dir, named by the strftime pattern (default
// "satellite-%Y%m%d-%H%M%S.wav" when pattern is empty).
func NewDebugRecorder(dir, pattern string, rate, channels int) (*DebugRecorder, error) {
	if pattern == "" {
		pattern = "satellite-%Y%m%d-%H%M%S.wav"
	}
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("audio: debug recorder pattern %q: %w", pattern, err)
	}
	return &DebugRecorder{
		dir:     dir,
		pattern: f,
		format:  goaudio.Format{SampleRate: rate, NumChannels: channels},
	}, nil
}

// Start opens a new WAV file for the upcoming command, writing preroll
// first (the VAD ring buffer's contents captured before speech onset).
func (d *DebugRecorder) Start(preroll []byte, at time.Time) error {
	if d.file != nil {
		return fmt.Errorf("audio: debug recorder already has an open file")
	}
	name := d.pattern.FormatString(at)
	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return fmt.Errorf("audio: create debug wav: %w", err)
	}
	enc := wav.NewEncoder(f, d.format.SampleRate, 16, d.format.NumChannels, 1)
	d.file = f
	d.enc = enc
	if len(preroll) > 0 {
		return d.Write(preroll)
	}
	return nil
}

// Write appends PCM16 samples to the open file. A no-op if Start has not
// been called (or Stop already closed the file).
func (d *DebugRecorder) Write(pcm []byte) error {
	if d.enc == nil {
		return nil
	}
	buf := pcm16ToIntBuffer(pcm, d.format)
	return d.enc.Write(buf)
}

// Stop finalizes and closes the current file, if any.
func (d *DebugRecorder) Stop() error {
	if d.enc == nil {
		return nil
	}
	err := d.enc.Close()
	closeErr := d.file.Close()
	d.enc = nil
	d.file = nil
	if err != nil {
		return fmt.Errorf("audio: finalize debug wav: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("audio: close debug wav: %w", closeErr)
	}
	return nil
}

func pcm16ToIntBuffer(pcm []byte, format goaudio.Format) *goaudio.IntBuffer {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		lo, hi := pcm[i*2], pcm[i*2+1]
		samples[i] = int(int16(uint16(lo) | uint16(hi)<<8))
	}
	f := format
	return &goaudio.IntBuffer{Format: &f, Data: samples, SourceBitDepth: 16}
}
