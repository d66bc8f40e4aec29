package satellite

import (
	"regexp"
	"strings"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Pipeline stage names, carried verbatim in run-pipeline events.
const (
	StageWake   = "WAKE"
	StageASR    = "ASR"
	StageHandle = "HANDLE"
	StageTTS    = "TTS"
)

// WakeWordBinding maps a normalized wake-word name to an optional
// pipeline name (spec.md §3).
type WakeWordBinding struct {
	Name     string
	Pipeline string
}

var versionSuffix = regexp.MustCompile(`_v[0-9]+(\.[0-9]+)?$`)
var nonAlphaNumeric = regexp.MustCompile(`[^a-z0-9]+`)

// ParseWakeWordSpec splits a "--wake-word-name" argument of the form
// "name" or "name:pipeline" into its name and optional pipeline parts
// (spec.md §6: "--wake-word-name <name> [pipeline] (repeatable)").
func ParseWakeWordSpec(spec string) (name, pipeline string) {
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}

// NormalizeWakeWordName lower-cases name, strips a trailing version
// suffix like "_v2" or "_v2.1", maps runs of non-alphanumeric characters
// to single spaces, and trims the result - spec.md §4.6's pipeline-name
// matching rule.
func NormalizeWakeWordName(name string) string {
	n := strings.ToLower(name)
	n = versionSuffix.ReplaceAllString(n, "")
	n = nonAlphaNumeric.ReplaceAllString(n, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(n), " "))
}

// ResolvePipelineName looks up the pipeline bound to a detected wake-word
// name by normalized match, returning "" if no binding matches (meaning:
// use the server's default pipeline).
func ResolvePipelineName(bindings []WakeWordBinding, detectedName string) string {
	target := NormalizeWakeWordName(detectedName)
	for _, b := range bindings {
		if NormalizeWakeWordName(b.Name) == target {
			return b.Pipeline
		}
	}
	return ""
}

// PipelineRequest is the full set of parameters used to build a
// run-pipeline event (spec.md §4.6 "Pipeline request builder").
type PipelineRequest struct {
	StartStage    string
	EndStage      string
	RestartOnEnd  bool
	SndFormat     *wyoming.AudioFormat
	PipelineName  string
}

// BuildRunPipeline builds a run-pipeline event from req as given: the
// stages, restart_on_end, the optional snd_format and the optional
// pipeline name. It reads no settings; each streaming mode chooses its
// own stages (ASR after a local wake detection, else WAKE; TTS when snd
// is enabled, else HANDLE; restart_on_end only for AlwaysStreaming).
func BuildRunPipeline(req PipelineRequest) wyoming.Event {
	data := map[string]any{
		"start_stage":    req.StartStage,
		"end_stage":      req.EndStage,
		"restart_on_end": req.RestartOnEnd,
	}
	if req.SndFormat != nil {
		data["snd_format"] = map[string]any{
			"rate": req.SndFormat.Rate, "width": req.SndFormat.Width, "channels": req.SndFormat.Channels,
		}
	}
	if req.PipelineName != "" {
		data["name"] = req.PipelineName
	}
	return wyoming.Event{Type: wyoming.TypeRunPipeline, Data: data}
}
