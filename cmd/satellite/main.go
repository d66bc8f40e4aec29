// Command satellite is the entry point (C9): parses configuration,
// wires the satellite runtime, and runs until signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/discovery"
	"github.com/fernwood-iot/satellite/internal/dsp"
	"github.com/fernwood-iot/satellite/internal/logging"
	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/satellite"
)

func main() {
	settings, err := loadSettings(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "satellite:", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Debug: settings.LogDebug, Format: settings.LogFormat})

	if err := run(settings, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadSettings builds the immutable Settings tree in two passes:
// defaults + optional --config YAML, then the full pflag overlay
// (SPEC_FULL.md §4.10). A flag always wins over the same key from
// --config, regardless of declaration order.
func loadSettings(args []string) (config.Satellite, error) {
	settings := config.Defaults()

	var configPath string
	probe := pflag.NewFlagSet("satellite-config-probe", pflag.ContinueOnError)
	probe.Usage = func() {}
	probe.ParseErrorsWhitelist.UnknownFlags = true
	probe.StringVar(&configPath, "config", "", "Path to a YAML settings file")
	if err := probe.Parse(args); err != nil {
		return config.Satellite{}, err
	}

	if configPath != "" {
		if err := config.LoadYAML(configPath, &settings); err != nil {
			return config.Satellite{}, err
		}
	}

	fs := pflag.NewFlagSet("satellite", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", configPath, "Path to a YAML settings file")
	config.RegisterFlags(fs, &settings)
	if err := fs.Parse(args); err != nil {
		return config.Satellite{}, err
	}

	if err := config.Validate(settings); err != nil {
		return config.Satellite{}, err
	}
	return settings, nil
}

func run(settings config.Satellite, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := satellite.NewBase(settings, logger)

	commands := satellite.Commands{
		satellite.TriggerStreamingStart: settings.Event.StreamingStart,
		satellite.TriggerStreamingStop:  settings.Event.StreamingStop,
		satellite.TriggerDetect:         settings.Event.Detect,
		satellite.TriggerDetection:      settings.Event.Detection,
		satellite.TriggerTranscript:     settings.Event.Transcript,
		satellite.TriggerSttStart:       settings.Event.SttStart,
		satellite.TriggerSttStop:        settings.Event.SttStop,
		satellite.TriggerSynthesize:     settings.Event.Synthesize,
		satellite.TriggerTtsStart:       settings.Event.TtsStart,
		satellite.TriggerTtsStop:        settings.Event.TtsStop,
		satellite.TriggerError:          settings.Event.Error,
	}

	var evtManager *satellite.EventManager
	if settings.Event.Enabled() {
		dial, err := dialerFor(settings.Event.Service)
		if err != nil {
			return err
		}
		evtManager = satellite.NewEventManager(dial, settings.Event, logger.With("peer", "event"))
	}
	base.Evt = evtManager

	base.Triggers = satellite.NewTriggers(commands, eventSinkOf(evtManager), logger)

	if settings.Mic.Enabled() {
		dial, err := dialerFor(settings.Mic.Service)
		if err != nil {
			return err
		}
		base.Mic = satellite.NewMicManager(dial, settings.Mic, settings.Mic.ChannelIndex, logger.With("peer", "mic"))
	}
	if settings.Snd.Enabled() {
		dial, err := dialerFor(settings.Snd.Service)
		if err != nil {
			return err
		}
		base.Snd = satellite.NewSndManager(dial, settings.Snd, base.Triggers, logger.With("peer", "snd"))
		base.Triggers.SetSnd(base.Snd, settings.Snd)
	}
	if settings.Wake.Enabled() {
		dial, err := dialerFor(settings.Wake.Service)
		if err != nil {
			return err
		}
		base.Wake = satellite.NewWakeManager(dial, settings.Wake, logger.With("peer", "wake"))
	}

	bindings := make([]satellite.WakeWordBinding, 0, len(settings.Wake.Names))
	for _, spec := range settings.Wake.Names {
		name, pipeline := satellite.ParseWakeWordSpec(spec)
		bindings = append(bindings, satellite.WakeWordBinding{Name: name, Pipeline: pipeline})
	}
	base.SetWakeBindings(bindings)

	mode, err := buildMode(base, settings, logger)
	if err != nil {
		return err
	}
	base.SetMode(mode)

	var registrar *discovery.Registrar
	if settings.Zeroconf.Enabled {
		if network, addr, perr := splitListenURI(settings.ServerURI); perr == nil && network == "tcp" {
			port := portOf(addr)
			name := settings.Zeroconf.Name
			if name == "" {
				name = settings.Name
			}
			registrar, err = discovery.Register(ctx, discovery.Config{Name: name, Host: settings.Zeroconf.Host, Port: port}, logger)
			if err != nil {
				logger.Warn("zeroconf registration failed", "error", err)
			}
		}
	}
	if registrar != nil {
		defer registrar.Shutdown()
	}

	listener := satellite.NewListener(base, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- listener.Serve(ctx, settings.ServerURI)
	}()

	go func() {
		if err := base.Run(ctx); err != nil {
			logger.Error("satellite lifecycle stopped with error", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
		base.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

func buildMode(base *satellite.Base, settings config.Satellite, logger *log.Logger) (satellite.Mode, error) {
	switch {
	case settings.Wake.Enabled():
		var wakeDebug, sttDebug *audio.DebugRecorder
		if settings.DebugRecordingDir != "" {
			var err error
			wakeDebug, err = audio.NewDebugRecorder(settings.DebugRecordingDir, "satellite-%Y%m%d-%H%M%S-wake.wav", settings.Mic.Rate, 1)
			if err != nil {
				return nil, err
			}
			sttDebug, err = audio.NewDebugRecorder(settings.DebugRecordingDir, "satellite-%Y%m%d-%H%M%S-stt.wav", settings.Mic.Rate, 1)
			if err != nil {
				return nil, err
			}
		}
		return satellite.NewWakeStreaming(base, wakeDebug, sttDebug, logger.With("mode", "wake")), nil

	case settings.Vad.Enabled:
		vad, err := dsp.NewVAD(dsp.VADConfig{
			ModelPath:    settings.Vad.ModelPath,
			SampleRate:   settings.Mic.Rate,
			Threshold:    float32(settings.Vad.Threshold),
			TriggerLevel: settings.Vad.TriggerLevel,
		})
		if err != nil {
			return nil, err
		}
		var segmenter *dsp.Segmenter
		if settings.Vad.UseSegmenter {
			segmenter = dsp.NewSegmenter()
		}
		var debug *audio.DebugRecorder
		if settings.DebugRecordingDir != "" {
			var derr error
			debug, derr = audio.NewDebugRecorder(settings.DebugRecordingDir, "", settings.Mic.Rate, 1)
			if derr != nil {
				return nil, derr
			}
		}
		return satellite.NewVadStreaming(base, vad, segmenter, settings.Vad, settings.Mic, debug, logger.With("mode", "vad")), nil

	default:
		var debug *audio.DebugRecorder
		if settings.DebugRecordingDir != "" {
			var derr error
			debug, derr = audio.NewDebugRecorder(settings.DebugRecordingDir, "", settings.Mic.Rate, 1)
			if derr != nil {
				return nil, derr
			}
		}
		return satellite.NewAlwaysStreaming(base, debug), nil
	}
}

func eventSinkOf(m *satellite.EventManager) satellite.EventSink {
	if m == nil {
		return nil
	}
	return m
}

func dialerFor(svc config.Service) (peer.Dialer, error) {
	if len(svc.Command) > 0 {
		return peer.DialProcess(svc.Command), nil
	}
	if svc.URI != "" {
		return peer.ParseURI(svc.URI)
	}
	return func(ctx context.Context) (peer.Client, error) {
		return nil, fmt.Errorf("satellite: peer not configured")
	}, nil
}

func splitListenURI(uri string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(uri, "tcp://"):
		return "tcp", strings.TrimPrefix(uri, "tcp://"), nil
	case strings.HasPrefix(uri, "unix://"):
		return "unix", strings.TrimPrefix(uri, "unix://"), nil
	default:
		return "", "", fmt.Errorf("satellite: unsupported uri scheme %q", uri)
	}
}

func portOf(addr string) int {
	idx := strings.LastIndexByte(addr, ':')
	if idx < 0 {
		return 0
	}
	var port int
	fmt.Sscanf(addr[idx+1:], "%d", &port)
	return port
}
