package satellite

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/audio"
	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Trigger identifies one of the named hooks the satellite fires on
// lifecycle/protocol events (spec.md §4.6 "Triggers", GLOSSARY "Trigger").
type Trigger string

const (
	TriggerStreamingStart      Trigger = "streaming_start"
	TriggerStreamingStop       Trigger = "streaming_stop"
	TriggerDetect              Trigger = "detect"
	TriggerDetection           Trigger = "detection"
	TriggerSttStart            Trigger = "stt_start"
	TriggerSttStop             Trigger = "stt_stop"
	TriggerTranscript          Trigger = "transcript"
	TriggerSynthesize          Trigger = "synthesize"
	TriggerTtsStart            Trigger = "tts_start"
	TriggerTtsStop             Trigger = "tts_stop"
	TriggerError               Trigger = "error"
	TriggerPlayed              Trigger = "played"
	TriggerServerConnected     Trigger = "server_connected"
	TriggerServerDisconnected  Trigger = "server_disconnected"
	TriggerTimerStarted        Trigger = "timer_started"
	TriggerTimerUpdated        Trigger = "timer_updated"
	TriggerTimerCancelled      Trigger = "timer_cancelled"
	TriggerTimerFinished       Trigger = "timer_finished"
)

// Commands maps each trigger to the argv of a command run when it fires.
// An unset (nil) entry means "no command configured".
type Commands map[Trigger][]string

// EventSink receives the fan-out copy of every trigger for the event
// peer (spec.md §4.6: "Everything except ping/pong/audio-chunk is also
// enqueued to the event-peer").
type EventSink interface {
	Publish(ev wyoming.Event)
}

// Triggers fires configured commands and forwards observability events,
// ported from original_source/wyoming_satellite/utils.py's
// run_event_command plus satellite.py's ad-hoc trigger_* methods.
type Triggers struct {
	commands Commands
	sink     EventSink
	logger   *log.Logger

	snd         *SndManager
	sndSettings config.Snd
}

// NewTriggers builds a Triggers dispatcher.
func NewTriggers(commands Commands, sink EventSink, logger *log.Logger) *Triggers {
	if commands == nil {
		commands = Commands{}
	}
	return &Triggers{commands: commands, sink: sink, logger: logger}
}

// SetSnd wires the snd peer and its settings into Triggers so
// trigger_detection/trigger_transcript can play the awake/done cue WAVs
// and trigger_timer_finished can play the timer-finished cue (spec.md
// §4.6, original_source/wyoming_satellite/satellite.py:482-489,630,635).
// Called once during startup, after the snd peer (if any) is built.
func (t *Triggers) SetSnd(snd *SndManager, settings config.Snd) {
	t.snd = snd
	t.sndSettings = settings
}

// Fire runs trigger's configured command (if any), feeding it ev
// serialized as JSON on stdin, plays the trigger's cue WAV if it has one,
// and forwards ev to the event peer.
func (t *Triggers) Fire(trigger Trigger, ev wyoming.Event) {
	if t.sink != nil {
		t.sink.Publish(ev)
	}

	t.playCue(trigger)

	command, ok := t.commands[trigger]
	if !ok || len(command) == 0 {
		return
	}

	input, err := json.Marshal(map[string]any{"type": ev.Type, "data": ev.Data})
	if err != nil {
		t.logger.Warn("failed to serialize trigger event", "trigger", trigger, "error", err)
		return
	}

	if err := runEventCommand(command, input); err != nil {
		t.logger.Warn("trigger command failed", "trigger", trigger, "error", err)
	}
}

// FireTimerFinished fires TriggerTimerFinished and, if a timer-finished
// WAV is configured, plays it TimerFinishedRepeat times with
// TimerFinishedDelay between repeats (spec.md §4.6: "finished also plays
// finished-wav N times"). Playback runs in its own goroutine so repeats
// never block the caller's event-dispatch loop.
func (t *Triggers) FireTimerFinished(ev wyoming.Event) {
	t.Fire(TriggerTimerFinished, ev)

	if t.snd == nil || t.sndSettings.TimerFinishedWav == "" {
		return
	}
	repeat := t.sndSettings.TimerFinishedRepeat
	if repeat < 1 {
		repeat = 1
	}
	delay := time.Duration(t.sndSettings.TimerFinishedDelay * float64(time.Second))

	go func() {
		for i := 0; i < repeat; i++ {
			t.enqueueWav(t.sndSettings.TimerFinishedWav)
			if i < repeat-1 && delay > 0 {
				time.Sleep(delay)
			}
		}
	}()
}

// playCue plays the cue WAV belonging to trigger, if any (spec.md §4.3):
// the awake WAV on wake word detection, the done WAV once a transcript
// arrives.
func (t *Triggers) playCue(trigger Trigger) {
	if t.snd == nil {
		return
	}
	switch trigger {
	case TriggerDetection:
		t.enqueueWav(t.sndSettings.AwakeWav)
	case TriggerTranscript:
		t.enqueueWav(t.sndSettings.DoneWav)
	}
}

// enqueueWav decodes path and enqueues it on the snd peer as a
// non-TTS cue (SoundEvent.IsTTS=false, spec.md §3), mirroring
// original_source/wyoming_satellite/satellite.py's _play_wav.
func (t *Triggers) enqueueWav(path string) {
	if path == "" {
		return
	}
	events, err := audio.WavToEvents(path, t.sndSettings.SamplesPerChunk, t.sndSettings.VolumeMultiplier)
	if err != nil {
		t.logger.Warn("failed to load cue wav", "path", path, "error", err)
		return
	}
	for _, ev := range events {
		t.snd.Enqueue(SoundEvent{Event: ev, IsTTS: false})
	}
}

// runEventCommand runs command with input piped to its stdin, mirroring
// original_source/wyoming_satellite/utils.py's run_event_command: spawn,
// write stdin, close it, wait. Errors are returned rather than logged so
// Fire can attach trigger context.
func runEventCommand(command []string, input []byte) error {
	if len(command) == 0 {
		return nil
	}
	cmd := exec.CommandContext(context.Background(), command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	if _, err := stdin.Write(input); err != nil {
		stdin.Close()
		return err
	}
	stdin.Close()
	return cmd.Wait()
}
