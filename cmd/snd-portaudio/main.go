// Command snd-portaudio is a reference sound peer (spec.md §4.12): it
// reads audio-start/audio-chunk/audio-stop events from stdin and plays
// them on the default PortAudio output device, to be spawned by the
// satellite via --snd-command.
package main

import (
	"fmt"
	"os"

	"github.com/gordonklaus/portaudio"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "snd-portaudio:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer portaudio.Terminate()

	in := wyoming.NewReader(os.Stdin)
	var stream *playbackStream

	for {
		ev, err := in.Read()
		if err != nil {
			if stream != nil {
				stream.Close()
			}
			if err == wyoming.ErrClosed {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch ev.Type {
		case wyoming.TypeAudioStart:
			if stream != nil {
				stream.Close()
			}
			format := wyoming.AudioFormatOf(ev)
			stream, err = openPlaybackStream(format)
			if err != nil {
				return fmt.Errorf("open output stream: %w", err)
			}

		case wyoming.TypeAudioChunk:
			if stream == nil {
				continue
			}
			if err := stream.Write(ev.Payload); err != nil {
				return fmt.Errorf("write: %w", err)
			}

		case wyoming.TypeAudioStop:
			if stream != nil {
				stream.Close()
				stream = nil
			}
		}
	}
}

// playbackStream buffers incoming PCM and feeds it to PortAudio's pull
// callback one frame at a time, padding with silence if the buffer runs
// dry between audio-chunk events.
type playbackStream struct {
	pa      *portaudio.Stream
	pending []int16
}

func openPlaybackStream(format wyoming.AudioFormat) (*playbackStream, error) {
	p := &playbackStream{}

	out := make([]int16, 1024*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.Rate), len(out)/format.Channels, func(outBuf []int16) {
		p.fill(outBuf)
	})
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, err
	}
	p.pa = stream
	return p, nil
}

func (p *playbackStream) fill(outBuf []int16) {
	n := copy(outBuf, p.pending)
	p.pending = p.pending[n:]
	for i := n; i < len(outBuf); i++ {
		outBuf[i] = 0
	}
}

func (p *playbackStream) Write(pcm []byte) error {
	p.pending = append(p.pending, littleEndianBytesToInt16Slice(pcm)...)
	return nil
}

func (p *playbackStream) Close() {
	_ = p.pa.Stop()
	_ = p.pa.Close()
}

func littleEndianBytesToInt16Slice(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return out
}
