// Command led-cue is a reference event peer (spec.md §4.12): it reads the
// observability events the satellite fans out (--event-uri/--event-command)
// and drives a GPIO line as a visual listening cue, to be spawned by the
// satellite via --event-command.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func main() {
	chip := flag.String("chip", "gpiochip0", "GPIO chip device")
	offset := flag.Int("line", 17, "GPIO line offset to drive")
	blink := flag.Duration("detection-blink", 150*time.Millisecond, "How long to flash the line on a wake word detection")
	flag.Parse()

	if err := run(*chip, *offset, *blink); err != nil {
		fmt.Fprintln(os.Stderr, "led-cue:", err)
		os.Exit(1)
	}
}

func run(chip string, offset int, blink time.Duration) error {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}
	defer line.Close()

	in := wyoming.NewReader(os.Stdin)
	for {
		ev, err := in.Read()
		if err != nil {
			if err == wyoming.ErrClosed {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch ev.Type {
		case wyoming.TypeStreamingStarted:
			_ = line.SetValue(1)
		case wyoming.TypeStreamingStopped:
			_ = line.SetValue(0)
		case wyoming.TypeDetection:
			go flash(line, blink)
		}
	}
}

func flash(line *gpiocdev.Line, d time.Duration) {
	_ = line.SetValue(1)
	time.Sleep(d)
	_ = line.SetValue(0)
}
