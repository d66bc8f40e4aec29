// Command mic-portaudio is a reference mic peer (spec.md §4.12): it opens
// the default PortAudio input device and writes audio-chunk events to
// stdout, to be spawned by the satellite via --mic-command.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func main() {
	rate := flag.Int("rate", 16000, "Sample rate")
	width := flag.Int("width", 2, "Sample width in bytes (16-bit only)")
	channels := flag.Int("channels", 1, "Channel count")
	samplesPerChunk := flag.Int("samples-per-chunk", 1024, "Frames per audio-chunk")
	flag.Parse()

	if *width != 2 {
		fmt.Fprintln(os.Stderr, "mic-portaudio: only 16-bit samples are supported")
		os.Exit(1)
	}

	if err := run(*rate, *channels, *samplesPerChunk); err != nil {
		fmt.Fprintln(os.Stderr, "mic-portaudio:", err)
		os.Exit(1)
	}
}

func run(rate, channels, samplesPerChunk int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer portaudio.Terminate()

	out := wyoming.NewWriter(os.Stdout)
	format := wyoming.AudioFormat{Rate: rate, Width: 2, Channels: channels}

	frames := make([]int16, samplesPerChunk*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(rate), len(frames)/channels, frames)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			return nil
		default:
		}

		if err := stream.Read(); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		pcm := int16SliceToLittleEndianBytes(frames)
		if err := out.Write(wyoming.NewAudioChunk(format, 0, pcm)); err != nil {
			return fmt.Errorf("write audio-chunk: %w", err)
		}
	}
}

func int16SliceToLittleEndianBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}
